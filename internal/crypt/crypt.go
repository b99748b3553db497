// Package crypt implements the PDF standard security handler for reading
// encrypted documents: RC4 with 40 to 128 bit keys (revisions 2 to 4),
// AES-128 (AESV2) and AES-256 (AESV3, revisions 5 and 6).
//
// NewEncryption builds the other direction: an encryption dictionary and a
// Handler whose EncryptString and EncryptStream produce data that the
// Decrypt methods read back, in the same way the filter package pairs each
// decoder with an encoder. Nothing in this module writes PDF files; the
// encrypting side serves round trips and building encrypted test documents.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/pdfengine/core"
)

var (
	// ErrBadPassword is returned when neither the supplied password nor the
	// empty password opens the document.
	ErrBadPassword = errors.New("incorrect password")

	// ErrUnsupported is returned for security handlers, versions or
	// ciphers this package does not implement.
	ErrUnsupported = errors.New("unsupported encryption")
)

type cipherType int

const (
	cipherNone cipherType = iota // Identity: data is stored in the clear
	cipherRC4
	cipherAES
)

// cryptFilter describes how one class of data (strings or streams) is
// encrypted.
type cryptFilter struct {
	cipher cipherType
	aesV3  bool // AESV3 uses the file key directly
}

// Handler decrypts strings and streams of one document.
type Handler struct {
	V, R int
	P    int32

	keyLen          int // file key length in bytes
	key             []byte
	encryptMetadata bool
	ownerAuth       bool

	strF, stmF *cryptFilter
	filters    map[string]*cryptFilter // named crypt filters from /CF

	rand io.Reader // IV source when encrypting
}

// New builds a handler from the encryption dictionary and the first element
// of the trailer /ID, authenticating with password. The user password is
// tried first, then the owner password.
func New(encrypt core.Dict, id []byte, password string) (*Handler, error) {
	if f, _ := encrypt.GetName("Filter"); f != "Standard" {
		return nil, fmt.Errorf("%w: security handler %q", ErrUnsupported, string(f))
	}

	v, _ := encrypt.GetInt("V")
	r, ok := encrypt.GetInt("R")
	if !ok {
		return nil, fmt.Errorf("%w: missing /R", ErrUnsupported)
	}
	p, ok := encrypt.GetInt("P")
	if !ok {
		return nil, fmt.Errorf("encryption dictionary missing /P: %w", core.ErrWrongType)
	}

	h := &Handler{
		V:               int(v),
		R:               int(r),
		P:               int32(uint32(p)),
		encryptMetadata: true,
		filters:         make(map[string]*cryptFilter),
	}
	if b, ok := encrypt.GetBool("EncryptMetadata"); ok && h.V >= 4 {
		h.encryptMetadata = bool(b)
	}

	if err := h.setupFilters(encrypt); err != nil {
		return nil, err
	}

	sec, err := newStandardSecurity(encrypt, h, id)
	if err != nil {
		return nil, err
	}
	if err := sec.authenticate(password); err != nil {
		return nil, err
	}
	return h, nil
}

// setupFilters determines key length and the string and stream filters.
func (h *Handler) setupFilters(encrypt core.Dict) error {
	switch h.V {
	case 0, 1:
		h.keyLen = 5
		h.strF = &cryptFilter{cipher: cipherRC4}
		h.stmF = h.strF
	case 2, 3:
		bits := 40
		if l, ok := encrypt.GetInt("Length"); ok {
			bits = int(l)
		}
		if bits < 40 || bits > 128 || bits%8 != 0 {
			return fmt.Errorf("%w: key length %d bits", ErrUnsupported, bits)
		}
		h.keyLen = bits / 8
		h.strF = &cryptFilter{cipher: cipherRC4}
		h.stmF = h.strF
	case 4, 5:
		h.keyLen = 16
		if h.V == 5 {
			h.keyLen = 32
		}
		cf, _ := encrypt.GetDict("CF")
		for _, name := range cf.Keys() {
			d, ok := cf.GetDict(name)
			if !ok {
				continue
			}
			f, err := parseCryptFilter(d)
			if err != nil {
				return fmt.Errorf("crypt filter %s: %w", name, err)
			}
			h.filters[name] = f
			// V4 allows 40-128 bit RC4 keys via the filter's Length, given in bytes.
			if h.V == 4 && f.cipher == cipherRC4 {
				if l, ok := d.GetInt("Length"); ok && l >= 5 && l <= 16 {
					h.keyLen = int(l)
				}
			}
		}
		var err error
		if h.stmF, err = h.namedFilter(encrypt, "StmF"); err != nil {
			return err
		}
		if h.strF, err = h.namedFilter(encrypt, "StrF"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: /V %d", ErrUnsupported, h.V)
	}
	return nil
}

func (h *Handler) namedFilter(encrypt core.Dict, key string) (*cryptFilter, error) {
	name, ok := encrypt.GetName(key)
	if !ok || name == "Identity" {
		return &cryptFilter{cipher: cipherNone}, nil
	}
	f, ok := h.filters[string(name)]
	if !ok {
		return nil, fmt.Errorf("%w: /%s names undefined crypt filter %s", ErrUnsupported, key, name)
	}
	return f, nil
}

func parseCryptFilter(d core.Dict) (*cryptFilter, error) {
	cfm, _ := d.GetName("CFM")
	switch cfm {
	case "", "None":
		return &cryptFilter{cipher: cipherNone}, nil
	case "V2":
		return &cryptFilter{cipher: cipherRC4}, nil
	case "AESV2":
		return &cryptFilter{cipher: cipherAES}, nil
	case "AESV3":
		return &cryptFilter{cipher: cipherAES, aesV3: true}, nil
	}
	return nil, fmt.Errorf("%w: /CFM %s", ErrUnsupported, cfm)
}

// OwnerAuthenticated reports whether the owner password opened the document.
func (h *Handler) OwnerAuthenticated() bool {
	return h.ownerAuth
}

// EncryptMetadata reports whether XMP metadata streams are encrypted.
func (h *Handler) EncryptMetadata() bool {
	return h.encryptMetadata
}

// Key returns the file encryption key.
func (h *Handler) Key() []byte {
	return h.key
}

// objectKey derives the key for one object (Algorithm 1). AESV3 uses the
// file key unchanged.
func (h *Handler) objectKey(f *cryptFilter, ref core.IndirectRef) []byte {
	if f.aesV3 || h.R >= 5 {
		return h.key
	}
	m := md5.New()
	m.Write(h.key)
	n, g := ref.Number, ref.Generation
	m.Write([]byte{byte(n), byte(n >> 8), byte(n >> 16), byte(g), byte(g >> 8)})
	if f.cipher == cipherAES {
		m.Write([]byte("sAlT"))
	}
	l := len(h.key) + 5
	if l > 16 {
		l = 16
	}
	return m.Sum(nil)[:l]
}

// DecryptString decrypts a string belonging to the object ref.
func (h *Handler) DecryptString(data []byte, ref core.IndirectRef) ([]byte, error) {
	return h.decrypt(h.strF, data, ref)
}

// DecryptStream decrypts stream data belonging to the object ref.
func (h *Handler) DecryptStream(data []byte, ref core.IndirectRef) ([]byte, error) {
	return h.decrypt(h.stmF, data, ref)
}

// DecryptStreamWith decrypts stream data with the named crypt filter, as
// selected by a stream's own /Crypt filter.
func (h *Handler) DecryptStreamWith(filter string, data []byte, ref core.IndirectRef) ([]byte, error) {
	if filter == "" || filter == "Identity" {
		return data, nil
	}
	f, ok := h.filters[filter]
	if !ok {
		return nil, fmt.Errorf("%w: crypt filter %s", ErrUnsupported, filter)
	}
	return h.decrypt(f, data, ref)
}

func (h *Handler) decrypt(f *cryptFilter, data []byte, ref core.IndirectRef) ([]byte, error) {
	switch f.cipher {
	case cipherRC4:
		c, err := rc4.NewCipher(h.objectKey(f, ref))
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		c.XORKeyStream(out, data)
		return out, nil
	case cipherAES:
		return decryptAES(h.objectKey(f, ref), data)
	}
	return data, nil
}

// decryptAES decrypts IV-prefixed AES-CBC data. A trailing partial block
// is dropped and malformed padding is left in place.
func decryptAES(key, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	if len(data) < aes.BlockSize {
		return nil, fmt.Errorf("aes data too short: %d bytes", len(data))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := data[:aes.BlockSize]
	body := data[aes.BlockSize:]
	body = body[:len(body)-len(body)%aes.BlockSize]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)
	return unpad(out), nil
}

func unpad(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return b
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return b
		}
	}
	return b[:len(b)-n]
}

// DecryptObject returns obj with every string and stream body decrypted.
// Cross-reference streams are never encrypted, and XMP metadata streams
// are left alone when /EncryptMetadata is false.
func (h *Handler) DecryptObject(obj core.Object, ref core.IndirectRef) (core.Object, error) {
	switch v := obj.(type) {
	case core.String:
		b, err := h.DecryptString([]byte(v), ref)
		if err != nil {
			return nil, err
		}
		return core.String(b), nil

	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			d, err := h.DecryptObject(elem, ref)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil

	case core.Dict:
		return h.decryptDict(v, ref)

	case *core.Stream:
		typ, _ := v.Dict.GetName("Type")
		if typ == "XRef" {
			return v, nil
		}
		dict, err := h.decryptDict(v.Dict, ref)
		if err != nil {
			return nil, err
		}
		if typ == "Metadata" && !h.encryptMetadata {
			return &core.Stream{Dict: dict, Data: v.Data}, nil
		}

		var data []byte
		if name, ok := streamCryptFilter(v.Dict); ok {
			data, err = h.DecryptStreamWith(name, v.Data, ref)
		} else {
			data, err = h.DecryptStream(v.Data, ref)
		}
		if err != nil {
			return nil, fmt.Errorf("decrypting stream %s: %w", ref, err)
		}
		return &core.Stream{Dict: dict, Data: data}, nil
	}
	return obj, nil
}

func (h *Handler) decryptDict(d core.Dict, ref core.IndirectRef) (core.Dict, error) {
	out := make(core.Dict, len(d))
	for k, elem := range d {
		dec, err := h.DecryptObject(elem, ref)
		if err != nil {
			return nil, err
		}
		out[k] = dec
	}
	return out, nil
}

// streamCryptFilter returns the crypt filter a stream selects through a
// /Crypt entry in its own filter list.
func streamCryptFilter(d core.Dict) (string, bool) {
	var names core.Array
	switch f := d.Get("Filter").(type) {
	case core.Name:
		names = core.Array{f}
	case core.Array:
		names = f
	default:
		return "", false
	}
	for i, n := range names {
		if n != core.Name("Crypt") {
			continue
		}
		var parms core.Dict
		switch p := d.Get("DecodeParms").(type) {
		case core.Dict:
			parms = p
		case core.Array:
			parms, _ = p.Get(i).(core.Dict)
		}
		name, _ := parms.GetName("Name")
		if name == "" {
			name = "Identity"
		}
		return string(name), true
	}
	return "", false
}
