package filters

import (
	"bytes"
	"errors"
	"testing"
)

func TestRunLengthDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"literal then repeat", []byte{0x02, 'A', 'B', 'C', 0xFB, 'X', 0x80}, "ABCXXXXXX"},
		{"bytes after end ignored", []byte{0x02, 'A', 'B', 'C', 0xFB, 'X', 0x80, 0x05, 'j', 'u', 'n', 'k'}, "ABCXXXXXX"},
		{"no end marker", []byte{0x00, 'Q'}, "Q"},
		{"longest repeat", []byte{0x81, 'z', 0x80}, string(bytes.Repeat([]byte("z"), 128))},
		{"empty", []byte{0x80}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := RunLengthDecode(tt.input)
			if err != nil {
				t.Fatalf("RunLengthDecode failed: %v", err)
			}
			if string(decoded) != tt.expected {
				t.Errorf("got %q, want %q", decoded, tt.expected)
			}
		})
	}
}

func TestRunLengthDecodeTruncated(t *testing.T) {
	for _, input := range [][]byte{
		{0x05, 'A', 'B'},
		{0xFB},
		{0x00},
	} {
		_, err := RunLengthDecode(input)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Errorf("RunLengthDecode(%x) error = %v, want *DecodeError", input, err)
		}
	}
}

// TestRunLengthDecodeSplitRecords writes a record across several Write calls.
func TestRunLengthDecodeSplitRecords(t *testing.T) {
	input := []byte{0x02, 'A', 'B', 'C', 0xFB, 'X', 0x80}
	sink := NewBuffer()
	s := newRunLengthDecoder(sink, Options{})
	for i := range input {
		if _, err := s.Write(input[i : i+1]); err != nil {
			t.Fatalf("Write failed at byte %d: %v", i, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := string(sink.Bytes()); got != "ABCXXXXXX" {
		t.Errorf("got %q, want ABCXXXXXX", got)
	}
}

func TestRunLengthRoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("a"),
		[]byte("abcabcabc"),
		bytes.Repeat([]byte("x"), 300),
		append(bytes.Repeat([]byte("ab"), 100), bytes.Repeat([]byte{0}, 129)...),
	}
	for _, in := range inputs {
		encoded, err := RunLengthEncode(in)
		if err != nil {
			t.Fatalf("RunLengthEncode failed: %v", err)
		}
		if encoded[len(encoded)-1] != 0x80 {
			t.Errorf("encoding of %d bytes does not end with EOD", len(in))
		}
		decoded, err := RunLengthDecode(encoded)
		if err != nil {
			t.Fatalf("RunLengthDecode failed: %v", err)
		}
		if !bytes.Equal(decoded, in) {
			t.Errorf("round trip mismatch for %d bytes", len(in))
		}
	}
}

func TestRunLengthMemoryLimit(t *testing.T) {
	input := bytes.Repeat([]byte{0x81, 'z'}, 100)
	_, err := Decode(input, []string{"RL"}, nil, Options{MaxDecodedSize: 1000})
	if !errors.Is(err, ErrMemoryLimit) {
		t.Errorf("got %v, want ErrMemoryLimit", err)
	}
}
