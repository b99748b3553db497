package filters

import (
	"encoding/hex"
	"fmt"
)

const (
	asciiHexName = "ASCIIHexDecode"
	ascii85Name  = "ASCII85Decode"
)

// ASCIIHexDecode decodes ASCII hexadecimal encoded data.
// Each pair of hexadecimal digits (0-9, A-F, a-f) represents one byte.
// Whitespace is ignored, and > marks end of data. A final unpaired digit
// is treated as if followed by 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	return runStage(data, func(next Stage) Stage {
		return newASCIIHexDecoder(next, Options{})
	})
}

// ASCIIHexEncode encodes data as hexadecimal digits terminated by '>'.
func ASCIIHexEncode(data []byte) ([]byte, error) {
	return runStage(data, newASCIIHexEncoder)
}

// ASCII85Decode decodes ASCII base-85 encoded data.
// Each group of 5 characters (! to u) represents 4 bytes. 'z' stands for
// four zero bytes and may only appear between groups. '~' ends the data.
// A final partial group of n characters yields n-1 bytes.
func ASCII85Decode(data []byte) ([]byte, error) {
	return runStage(data, func(next Stage) Stage {
		return newASCII85Decoder(next, Options{})
	})
}

// ASCII85Encode encodes data in base-85, using 'z' for all-zero groups and
// ending with "~>".
func ASCII85Encode(data []byte) ([]byte, error) {
	return runStage(data, newASCII85Encoder)
}

func newASCIIHexDecoder(next Stage, opts Options) Stage {
	out := output(next, opts)
	var (
		high    byte
		pending bool
		done    bool
		buf     []byte
	)

	s := &stage{name: asciiHexName, next: next}
	s.write = func(p []byte) error {
		if done {
			return nil
		}
		buf = buf[:0]
		for _, c := range p {
			if isWhitespace(c) {
				continue
			}
			if c == '>' {
				done = true
				break
			}
			v, err := hexDigitToByte(c)
			if err != nil {
				return &DecodeError{Filter: asciiHexName, Err: err}
			}
			if pending {
				buf = append(buf, high<<4|v)
				pending = false
			} else {
				high = v
				pending = true
			}
		}
		if len(buf) == 0 {
			return nil
		}
		_, err := out.Write(buf)
		return err
	}
	s.flush = func() error {
		if !pending {
			return nil
		}
		pending = false
		_, err := out.Write([]byte{high << 4})
		return err
	}
	return s
}

func newASCIIHexEncoder(next Stage) Stage {
	s := &stage{name: "ASCIIHexEncode", next: next}
	s.write = func(p []byte) error {
		buf := make([]byte, hex.EncodedLen(len(p)))
		hex.Encode(buf, p)
		_, err := next.Write(buf)
		return err
	}
	s.flush = func() error {
		_, err := next.Write([]byte{'>'})
		return err
	}
	return s
}

func newASCII85Decoder(next Stage, opts Options) Stage {
	out := output(next, opts)
	var (
		group [5]byte
		n     int
		done  bool
		buf   []byte
	)

	s := &stage{name: ascii85Name, next: next}
	s.write = func(p []byte) error {
		if done {
			return nil
		}
		buf = buf[:0]
		for _, c := range p {
			switch {
			case isWhitespace(c):
				continue
			case c == '~':
				done = true
			case c == 'z':
				if n != 0 {
					return decodeErrorf(ascii85Name, "'z' inside a group")
				}
				buf = append(buf, 0, 0, 0, 0)
				continue
			case c < '!' || c > 'u':
				return decodeErrorf(ascii85Name, "invalid character %q", c)
			default:
				group[n] = c - '!'
				n++
				if n == 5 {
					v, err := a85Value(group[:])
					if err != nil {
						return err
					}
					buf = append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
					n = 0
				}
				continue
			}
			break
		}
		if len(buf) == 0 {
			return nil
		}
		_, err := out.Write(buf)
		return err
	}
	s.flush = func() error {
		switch n {
		case 0:
			return nil
		case 1:
			return decodeErrorf(ascii85Name, "truncated group of one character")
		}
		for i := n; i < 5; i++ {
			group[i] = 84
		}
		v, err := a85Value(group[:])
		if err != nil {
			return err
		}
		full := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		count := n - 1
		n = 0
		_, err = out.Write(full[:count])
		return err
	}
	return s
}

func a85Value(group []byte) (uint32, error) {
	var v uint64
	for _, d := range group {
		v = v*85 + uint64(d)
	}
	if v > 0xFFFFFFFF {
		return 0, decodeErrorf(ascii85Name, "group value overflows 32 bits")
	}
	return uint32(v), nil
}

func newASCII85Encoder(next Stage) Stage {
	var (
		tuple [4]byte
		n     int
	)

	encode := func(dst []byte, v uint32, count int) []byte {
		if count == 4 && v == 0 {
			return append(dst, 'z')
		}
		var digits [5]byte
		for i := 4; i >= 0; i-- {
			digits[i] = byte(v%85) + '!'
			v /= 85
		}
		return append(dst, digits[:count+1]...)
	}

	s := &stage{name: "ASCII85Encode", next: next}
	s.write = func(p []byte) error {
		buf := make([]byte, 0, len(p)*5/4+5)
		for _, c := range p {
			tuple[n] = c
			n++
			if n == 4 {
				v := uint32(tuple[0])<<24 | uint32(tuple[1])<<16 | uint32(tuple[2])<<8 | uint32(tuple[3])
				buf = encode(buf, v, 4)
				n = 0
			}
		}
		_, err := next.Write(buf)
		return err
	}
	s.flush = func() error {
		var buf []byte
		if n > 0 {
			for i := n; i < 4; i++ {
				tuple[i] = 0
			}
			v := uint32(tuple[0])<<24 | uint32(tuple[1])<<16 | uint32(tuple[2])<<8 | uint32(tuple[3])
			// A partial group never uses 'z'.
			var digits [5]byte
			for i := 4; i >= 0; i-- {
				digits[i] = byte(v%85) + '!'
				v /= 85
			}
			buf = append(buf, digits[:n+1]...)
			n = 0
		}
		buf = append(buf, '~', '>')
		_, err := next.Write(buf)
		return err
	}
	return s
}

// hexDigitToByte converts a hexadecimal character to its numeric value (0-15).
func hexDigitToByte(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit: %q", c)
	}
}

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
