package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tsawler/pdfengine/core"
)

// Method selects the cipher for NewEncryption.
type Method int

const (
	RC4 Method = iota
	AESV2
	AESV3
)

// Params describe an encryption dictionary to create.
type Params struct {
	Method          Method
	KeyLength       int // RC4 key length in bytes, 5 to 16; ignored for AES
	UserPassword    string
	OwnerPassword   string
	Permissions     int32
	EncryptMetadata bool
	ID              []byte // first element of the trailer /ID

	// Rand supplies salts, IVs and the AESV3 file key; crypto/rand when nil.
	Rand io.Reader
}

// NewEncryption creates an encryption dictionary for p and a handler that
// can encrypt as well as decrypt with it. RC4 with a 5-byte key uses
// revision 2; longer RC4 keys use revision 3; AESV2 uses revision 4 and
// AESV3 revision 6.
func NewEncryption(p Params) (core.Dict, *Handler, error) {
	rnd := p.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	h := &Handler{
		P:               p.Permissions,
		encryptMetadata: p.EncryptMetadata,
		filters:         make(map[string]*cryptFilter),
		rand:            rnd,
	}
	dict := core.Dict{
		"Filter": core.Name("Standard"),
		"P":      core.Int(p.Permissions),
	}

	switch p.Method {
	case RC4:
		if p.KeyLength < 5 || p.KeyLength > 16 {
			return nil, nil, fmt.Errorf("%w: RC4 key length %d", ErrUnsupported, p.KeyLength)
		}
		h.keyLen = p.KeyLength
		h.V, h.R = 1, 2
		if p.KeyLength > 5 {
			h.V, h.R = 2, 3
			dict["Length"] = core.Int(p.KeyLength * 8)
		}
		h.strF = &cryptFilter{cipher: cipherRC4}
		h.stmF = h.strF
	case AESV2:
		h.V, h.R, h.keyLen = 4, 4, 16
		h.strF = &cryptFilter{cipher: cipherAES}
		h.stmF = h.strF
		h.filters["StdCF"] = h.strF
		dict["Length"] = core.Int(128)
		dict["CF"] = core.Dict{"StdCF": core.Dict{
			"CFM": core.Name("AESV2"), "AuthEvent": core.Name("DocOpen"), "Length": core.Int(16),
		}}
	case AESV3:
		h.V, h.R, h.keyLen = 5, 6, 32
		h.strF = &cryptFilter{cipher: cipherAES, aesV3: true}
		h.stmF = h.strF
		h.filters["StdCF"] = h.strF
		dict["Length"] = core.Int(256)
		dict["CF"] = core.Dict{"StdCF": core.Dict{
			"CFM": core.Name("AESV3"), "AuthEvent": core.Name("DocOpen"), "Length": core.Int(32),
		}}
	default:
		return nil, nil, fmt.Errorf("%w: method %d", ErrUnsupported, p.Method)
	}
	dict["V"] = core.Int(h.V)
	dict["R"] = core.Int(h.R)
	if h.V >= 4 {
		dict["StmF"] = core.Name("StdCF")
		dict["StrF"] = core.Name("StdCF")
		dict["EncryptMetadata"] = core.Bool(p.EncryptMetadata)
	} else {
		h.encryptMetadata = true
	}

	sec := &standardSecurity{h: h, id: p.ID}
	if h.R >= 5 {
		if err := sec.create6(p.UserPassword, p.OwnerPassword, rnd); err != nil {
			return nil, nil, err
		}
		dict["OE"] = core.String(sec.oe)
		dict["UE"] = core.String(sec.ue)
		dict["Perms"] = core.String(sec.perms)
	} else {
		pu, po := padPassword(p.UserPassword), padPassword(p.OwnerPassword)
		if p.OwnerPassword == "" {
			po = pu
		}
		sec.o = sec.computeO(po, pu)
		h.key = sec.fileKey(pu)
		sec.u = sec.computeU(h.key)
	}
	dict["O"] = core.String(sec.o)
	dict["U"] = core.String(sec.u)
	return dict, h, nil
}

// create6 fills /U, /UE, /O, /OE and /Perms for revision 6 with a fresh
// file key (Algorithms 8, 9 and 10).
func (sec *standardSecurity) create6(user, owner string, rnd io.Reader) error {
	upw, err := saslPrep(user)
	if err != nil {
		return err
	}
	opw, err := saslPrep(owner)
	if err != nil {
		return err
	}

	key := make([]byte, 32)
	salts := make([]byte, 32)
	if _, err := io.ReadFull(rnd, key); err != nil {
		return err
	}
	if _, err := io.ReadFull(rnd, salts); err != nil {
		return err
	}
	sec.h.key = key

	wrap := func(intermediate []byte) []byte {
		block, _ := aes.NewCipher(intermediate)
		out := make([]byte, 32)
		cipher.NewCBCEncrypter(block, zeroIV).CryptBlocks(out, key)
		return out
	}

	sec.u = append(hash2B(upw, salts[0:8], nil), salts[0:16]...)
	sec.ue = wrap(hash2B(upw, salts[8:16], nil))
	sec.o = append(hash2B(opw, salts[16:24], sec.u), salts[16:32]...)
	sec.oe = wrap(hash2B(opw, salts[24:32], sec.u))

	perms := make([]byte, 16)
	binary.LittleEndian.PutUint32(perms, uint32(sec.h.P))
	copy(perms[4:8], []byte{0xFF, 0xFF, 0xFF, 0xFF})
	perms[8] = 'F'
	if sec.h.encryptMetadata {
		perms[8] = 'T'
	}
	copy(perms[9:12], "adb")
	block, _ := aes.NewCipher(key)
	block.Encrypt(perms, perms)
	sec.perms = perms
	return nil
}

// EncryptString encrypts a string belonging to the object ref.
func (h *Handler) EncryptString(data []byte, ref core.IndirectRef) ([]byte, error) {
	return h.encrypt(h.strF, data, ref)
}

// EncryptStream encrypts stream data belonging to the object ref.
func (h *Handler) EncryptStream(data []byte, ref core.IndirectRef) ([]byte, error) {
	return h.encrypt(h.stmF, data, ref)
}

func (h *Handler) encrypt(f *cryptFilter, data []byte, ref core.IndirectRef) ([]byte, error) {
	switch f.cipher {
	case cipherRC4:
		// RC4 is its own inverse.
		return h.decrypt(f, data, ref)
	case cipherAES:
		block, err := aes.NewCipher(h.objectKey(f, ref))
		if err != nil {
			return nil, err
		}
		rnd := h.rand
		if rnd == nil {
			rnd = rand.Reader
		}
		iv := make([]byte, aes.BlockSize)
		if _, err := io.ReadFull(rnd, iv); err != nil {
			return nil, err
		}
		n := aes.BlockSize - len(data)%aes.BlockSize
		padded := append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
		out := make([]byte, aes.BlockSize+len(padded))
		copy(out, iv)
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
		return out, nil
	}
	return bytes.Clone(data), nil
}
