package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/tsawler/pdfengine/core"
	"github.com/xdg-go/stringprep"
	"golang.org/x/text/encoding/charmap"
)

// passwordPad is the padding string of the standard security handler.
var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

var zeroIV = make([]byte, aes.BlockSize)

// standardSecurity holds the password-derived entries of the encryption
// dictionary.
type standardSecurity struct {
	h     *Handler
	id    []byte
	o, u  []byte
	oe    []byte
	ue    []byte
	perms []byte
}

func newStandardSecurity(encrypt core.Dict, h *Handler, id []byte) (*standardSecurity, error) {
	sec := &standardSecurity{h: h, id: id}

	ouLen := 32
	if h.R >= 5 {
		ouLen = 48
	}
	o, ok := encrypt.GetString("O")
	if !ok || len(o) < ouLen {
		return nil, fmt.Errorf("invalid /O: %w", core.ErrWrongType)
	}
	u, ok := encrypt.GetString("U")
	if !ok || len(u) < ouLen {
		return nil, fmt.Errorf("invalid /U: %w", core.ErrWrongType)
	}
	sec.o, sec.u = []byte(o)[:ouLen], []byte(u)[:ouLen]

	switch h.R {
	case 2, 3, 4:
	case 5, 6:
		oe, ok1 := encrypt.GetString("OE")
		ue, ok2 := encrypt.GetString("UE")
		if !ok1 || !ok2 || len(oe) != 32 || len(ue) != 32 {
			return nil, fmt.Errorf("invalid /OE or /UE: %w", core.ErrWrongType)
		}
		sec.oe, sec.ue = []byte(oe), []byte(ue)
		if perms, ok := encrypt.GetString("Perms"); ok && len(perms) == 16 {
			sec.perms = []byte(perms)
		}
	default:
		return nil, fmt.Errorf("%w: /R %d", ErrUnsupported, h.R)
	}
	return sec, nil
}

// authenticate tries password as the user password and then as the owner
// password, setting the handler's file key on success.
func (sec *standardSecurity) authenticate(password string) error {
	if sec.h.R >= 5 {
		pw, err := saslPrep(password)
		if err != nil {
			return err
		}
		if key, ok := sec.userKey6(pw); ok {
			sec.h.key = key
			return nil
		}
		if key, ok := sec.ownerKey6(pw); ok {
			sec.h.key = key
			sec.h.ownerAuth = true
			return nil
		}
		return ErrBadPassword
	}

	padded := padPassword(password)
	if key, ok := sec.userKey(padded); ok {
		sec.h.key = key
		return nil
	}
	if key, ok := sec.userKey(sec.userPasswordFromOwner(padded)); ok {
		sec.h.key = key
		sec.h.ownerAuth = true
		return nil
	}
	return ErrBadPassword
}

// padPassword encodes password in PDFDocEncoding, approximated by
// Windows-1252, and pads or truncates it to 32 bytes.
func padPassword(password string) []byte {
	enc, err := charmap.Windows1252.NewEncoder().Bytes([]byte(password))
	if err != nil {
		enc = []byte(password)
	}
	padded := make([]byte, 32)
	n := copy(padded, enc)
	copy(padded[n:], passwordPad)
	return padded
}

// saslPrep prepares a revision 5 and 6 password: SASLprep, UTF-8, at most
// 127 bytes.
func saslPrep(password string) ([]byte, error) {
	prepped, err := stringprep.SASLprep.Prepare(password)
	if err != nil {
		return nil, fmt.Errorf("%w: password: %v", ErrBadPassword, err)
	}
	b := []byte(prepped)
	if len(b) > 127 {
		b = b[:127]
	}
	return b, nil
}

// fileKey computes the file encryption key from a padded user password
// (Algorithm 2).
func (sec *standardSecurity) fileKey(padded []byte) []byte {
	h := sec.h
	m := md5.New()
	m.Write(padded)
	m.Write(sec.o)
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], uint32(h.P))
	m.Write(p[:])
	m.Write(sec.id)
	if h.R >= 4 && !h.encryptMetadata {
		m.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	key := m.Sum(nil)
	if h.R >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(key[:h.keyLen])
			key = sum[:]
		}
	}
	return key[:h.keyLen]
}

// computeU computes the /U value for a file key (Algorithms 4 and 5).
func (sec *standardSecurity) computeU(key []byte) []byte {
	u := make([]byte, 32)
	if sec.h.R == 2 {
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(u, passwordPad)
		return u
	}

	m := md5.New()
	m.Write(passwordPad)
	m.Write(sec.id)
	sum := m.Sum(nil)
	rc4Rounds(key, sum, 0, 19)
	copy(u, sum)
	return u
}

// rc4Rounds encrypts buf in place with key XORed with each round number
// from first to last, in that order.
func rc4Rounds(key, buf []byte, first, last int) {
	tmp := make([]byte, len(key))
	step := 1
	if last < first {
		step = -1
	}
	for i := first; ; i += step {
		for j := range key {
			tmp[j] = key[j] ^ byte(i)
		}
		c, _ := rc4.NewCipher(tmp)
		c.XORKeyStream(buf, buf)
		if i == last {
			return
		}
	}
}

// userKey checks a padded user password (Algorithm 6).
func (sec *standardSecurity) userKey(padded []byte) ([]byte, bool) {
	key := sec.fileKey(padded)
	u := sec.computeU(key)
	n := 32
	if sec.h.R >= 3 {
		n = 16
	}
	if bytes.Equal(u[:n], sec.u[:n]) {
		return key, true
	}
	return nil, false
}

// ownerRC4Key derives the RC4 key used to encrypt /O from a padded owner
// password (Algorithm 3, steps a to d).
func (sec *standardSecurity) ownerRC4Key(paddedOwner []byte) []byte {
	sum := md5.Sum(paddedOwner)
	key := sum[:]
	if sec.h.R >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(key[:sec.h.keyLen])
			key = s[:]
		}
	}
	return key[:sec.h.keyLen]
}

// userPasswordFromOwner recovers the padded user password from /O with a
// padded owner password (Algorithm 7).
func (sec *standardSecurity) userPasswordFromOwner(paddedOwner []byte) []byte {
	key := sec.ownerRC4Key(paddedOwner)
	buf := append([]byte(nil), sec.o[:32]...)
	if sec.h.R == 2 {
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(buf, buf)
		return buf
	}
	rc4Rounds(key, buf, 19, 0)
	return buf
}

// computeO computes /O from padded owner and user passwords (Algorithm 3).
func (sec *standardSecurity) computeO(paddedOwner, paddedUser []byte) []byte {
	key := sec.ownerRC4Key(paddedOwner)
	o := append([]byte(nil), paddedUser...)
	if sec.h.R == 2 {
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(o, o)
		return o
	}
	rc4Rounds(key, o, 0, 19)
	return o
}

// userKey6 checks a revision 5 or 6 user password (Algorithm 11) and
// decrypts the file key from /UE.
func (sec *standardSecurity) userKey6(pw []byte) ([]byte, bool) {
	if !bytes.Equal(sec.hash(pw, sec.u[32:40], nil), sec.u[:32]) {
		return nil, false
	}
	key := decryptKey(sec.hash(pw, sec.u[40:48], nil), sec.ue)
	return key, sec.checkPerms(key)
}

// ownerKey6 checks a revision 5 or 6 owner password (Algorithm 12) and
// decrypts the file key from /OE.
func (sec *standardSecurity) ownerKey6(pw []byte) ([]byte, bool) {
	u := sec.u[:48]
	if !bytes.Equal(sec.hash(pw, sec.o[32:40], u), sec.o[:32]) {
		return nil, false
	}
	key := decryptKey(sec.hash(pw, sec.o[40:48], u), sec.oe)
	return key, sec.checkPerms(key)
}

func decryptKey(intermediate, encrypted []byte) []byte {
	block, _ := aes.NewCipher(intermediate)
	key := make([]byte, 32)
	cipher.NewCBCDecrypter(block, zeroIV).CryptBlocks(key, encrypted)
	return key
}

// checkPerms validates the decrypted /Perms block when one is present.
func (sec *standardSecurity) checkPerms(key []byte) bool {
	if sec.perms == nil {
		return true
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return false
	}
	buf := make([]byte, 16)
	block.Decrypt(buf, sec.perms)
	return bytes.Equal(buf[9:12], []byte("adb"))
}

// hash is the revision 5 (plain SHA-256) or revision 6 (Algorithm 2.B)
// password hash.
func (sec *standardSecurity) hash(pw, salt, u []byte) []byte {
	if sec.h.R == 5 {
		m := sha256.New()
		m.Write(pw)
		m.Write(salt)
		m.Write(u)
		return m.Sum(nil)
	}
	return hash2B(pw, salt, u)
}

// hash2B implements Algorithm 2.B of ISO 32000-2.
func hash2B(pw, salt, u []byte) []byte {
	m := sha256.New()
	m.Write(pw)
	m.Write(salt)
	m.Write(u)
	k := m.Sum(nil)

	seqLen := len(pw) + 64 + len(u)
	k1 := make([]byte, 0, 64*seqLen)
	var e []byte
	for round := 0; round < 64 || int(e[len(e)-1]) > round-32; round++ {
		k1 = k1[:0]
		for j := 0; j < 64; j++ {
			k1 = append(k1, pw...)
			k1 = append(k1, k...)
			k1 = append(k1, u...)
		}

		block, _ := aes.NewCipher(k[:16])
		e = make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		// The first 16 bytes of E as a big-endian number mod 3 equal
		// the sum of those bytes mod 3, since 256 mod 3 is 1.
		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		var next hash.Hash
		switch sum % 3 {
		case 0:
			next = sha256.New()
		case 1:
			next = sha512.New384()
		default:
			next = sha512.New()
		}
		next.Write(e)
		k = next.Sum(nil)
	}
	return k[:32]
}
