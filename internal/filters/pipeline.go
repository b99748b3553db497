package filters

import (
	"fmt"
)

// abbreviations maps the short filter names allowed in inline images to
// their full names.
var abbreviations = map[string]string{
	"Fl":  "FlateDecode",
	"LZW": "LZWDecode",
	"A85": "ASCII85Decode",
	"AHx": "ASCIIHexDecode",
	"RL":  "RunLengthDecode",
	"CCF": "CCITTFaxDecode",
	"DCT": "DCTDecode",
}

// CanonicalName expands an abbreviated filter name.
func CanonicalName(name string) string {
	if full, ok := abbreviations[name]; ok {
		return full
	}
	return name
}

// NewDecoder returns a stage that decodes the named filter and writes its
// output to next. Image codecs (DCTDecode, JPXDecode, JBIG2Decode) and the
// Identity crypt filter pass their input through unchanged.
func NewDecoder(name string, params Params, next Stage, opts Options) (Stage, error) {
	switch CanonicalName(name) {
	case "FlateDecode":
		return newFlateDecoder(next, params, opts), nil
	case "LZWDecode":
		return newLZWDecoder(next, params, opts), nil
	case "ASCII85Decode":
		return newASCII85Decoder(next, opts), nil
	case "ASCIIHexDecode":
		return newASCIIHexDecoder(next, opts), nil
	case "RunLengthDecode":
		return newRunLengthDecoder(next, opts), nil
	case "CCITTFaxDecode":
		return newCCITTFaxDecoder(next, params, opts), nil
	case "DCTDecode", "JPXDecode", "JBIG2Decode":
		return newPassThrough(name, next), nil
	case "Crypt":
		if n, ok := params["Name"].(string); ok && n != "Identity" {
			return nil, fmt.Errorf("%w: Crypt filter %q", ErrUnsupportedFilter, n)
		}
		return newPassThrough(name, next), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
}

// NewEncoder returns a stage that encodes with the named filter.
func NewEncoder(name string, params Params, next Stage) (Stage, error) {
	switch CanonicalName(name) {
	case "FlateDecode":
		return newFlateEncoder(next), nil
	case "LZWDecode":
		return newLZWEncoder(next, params), nil
	case "ASCII85Decode":
		return newASCII85Encoder(next), nil
	case "ASCIIHexDecode":
		return newASCIIHexEncoder(next), nil
	case "RunLengthDecode":
		return newRunLengthEncoder(next), nil
	}
	return nil, fmt.Errorf("%w: cannot encode %s", ErrUnsupportedFilter, name)
}

// NewDecodeChain builds a chain that applies names in order, so that the
// output of names[0] feeds names[1], ending in sink. params[i] belongs to
// names[i]; params may be shorter than names or contain nils.
func NewDecodeChain(names []string, params []Params, sink Stage, opts Options) (Stage, error) {
	next := sink
	for i := len(names) - 1; i >= 0; i-- {
		d, err := NewDecoder(names[i], paramAt(params, i), next, opts)
		if err != nil {
			return nil, err
		}
		next = d
	}
	return next, nil
}

// NewEncodeChain builds the inverse of NewDecodeChain: data written to
// the returned stage is encoded so that decoding with the same names and
// params restores it.
func NewEncodeChain(names []string, params []Params, sink Stage) (Stage, error) {
	next := sink
	for i := 0; i < len(names); i++ {
		e, err := NewEncoder(names[i], paramAt(params, i), next)
		if err != nil {
			return nil, err
		}
		next = e
	}
	return next, nil
}

// Decode runs data through the named filters.
func Decode(data []byte, names []string, params []Params, opts Options) ([]byte, error) {
	sink := NewBuffer()
	head, err := NewDecodeChain(names, params, sink, opts)
	if err != nil {
		return nil, err
	}
	return drive(head, sink, data)
}

// Encode runs data through the encoders for names, last filter first.
func Encode(data []byte, names []string, params []Params) ([]byte, error) {
	sink := NewBuffer()
	head, err := NewEncodeChain(names, params, sink)
	if err != nil {
		return nil, err
	}
	return drive(head, sink, data)
}

func paramAt(params []Params, i int) Params {
	if i < len(params) {
		return params[i]
	}
	return nil
}

// runStage feeds data through a single stage built by mk.
func runStage(data []byte, mk func(next Stage) Stage) ([]byte, error) {
	sink := NewBuffer()
	return drive(mk(sink), sink, data)
}

func drive(head Stage, sink *Buffer, data []byte) ([]byte, error) {
	if _, err := head.Write(data); err != nil {
		head.Close()
		return nil, err
	}
	if err := head.Close(); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}
