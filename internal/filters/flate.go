package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

const flateName = "FlateDecode"

// Params represents decode parameters from PDF stream dictionaries.
// Common parameters include Predictor, Columns, Colors, and BitsPerComponent.
type Params map[string]interface{}

// FlateDecode decompresses Flate (zlib/deflate) compressed data.
// This is the most common compression filter in PDFs. It optionally applies
// a predictor algorithm for image data decompression.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	return runStage(data, func(next Stage) Stage {
		return newFlateDecoder(next, params, Options{})
	})
}

// FlateEncode compresses data with zlib at the default compression level.
func FlateEncode(data []byte) ([]byte, error) {
	return runStage(data, newFlateEncoder)
}

// newFlateDecoder buffers its whole input and inflates it on Close, since
// the predictor works on complete rows and zlib needs the full stream to
// verify its checksum.
func newFlateDecoder(next Stage, params Params, opts Options) Stage {
	var in bytes.Buffer
	s := &stage{name: flateName, next: next}
	s.write = func(p []byte) error {
		in.Write(p)
		return nil
	}
	s.flush = func() error {
		predictor := getIntParam(params, "Predictor", 1)
		if predictor < 2 {
			return inflate(in.Bytes(), output(next, opts))
		}

		var raw bytes.Buffer
		if err := inflate(in.Bytes(), &limitWriter{w: &raw, max: opts.MaxDecodedSize}); err != nil {
			return err
		}
		decoded, err := applyPredictor(raw.Bytes(), predictor, params)
		if err != nil {
			return &DecodeError{Filter: flateName, Err: fmt.Errorf("predictor failed: %w", err)}
		}
		_, err = next.Write(decoded)
		return err
	}
	return s
}

// inflate decompresses data into w. Streams without a zlib header are
// read as raw deflate data. Empty input decodes to nothing.
func inflate(data []byte, w io.Writer) error {
	if len(data) == 0 {
		return nil
	}
	var src io.ReadCloser
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		if !errors.Is(err, zlib.ErrHeader) {
			return &DecodeError{Filter: flateName, Err: fmt.Errorf("failed to create zlib reader: %w", err)}
		}
		src = flate.NewReader(bytes.NewReader(data))
	} else {
		src = zr
	}
	defer src.Close()

	return pump(flateName, src, w)
}

// pump copies from a decompressor into w, separating read errors (corrupt
// input, reported as DecodeError) from write errors (returned unchanged).
func pump(filter string, src io.Reader, w io.Writer) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &DecodeError{Filter: filter, Err: fmt.Errorf("failed to decompress: %w", err)}
		}
	}
}

func newFlateEncoder(next Stage) Stage {
	zw := zlib.NewWriter(next)
	s := &stage{name: "FlateEncode", next: next}
	s.write = func(p []byte) error {
		_, err := zw.Write(p)
		return err
	}
	s.flush = zw.Close
	return s
}

// getIntParam extracts an integer parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to an integer.
func getIntParam(params Params, key string, defaultValue int) int {
	if params == nil {
		return defaultValue
	}

	obj, ok := params[key]
	if !ok {
		return defaultValue
	}

	switch v := obj.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

// getBoolParam extracts a boolean parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to a boolean.
func getBoolParam(params Params, key string, defaultValue bool) bool {
	if params == nil {
		return defaultValue
	}
	if v, ok := params[key].(bool); ok {
		return v
	}
	return defaultValue
}
