package filters

import (
	"bytes"
	"fmt"

	"github.com/hhrutter/lzw"
)

const lzwName = "LZWDecode"

// LZWDecode decompresses PDF LZW data: 9 to 12 bit codes, 256 clears the
// table and 257 ends the data. The EarlyChange parameter (default 1)
// selects whether the code width grows one entry early. A Predictor
// parameter is applied as for FlateDecode.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	return runStage(data, func(next Stage) Stage {
		return newLZWDecoder(next, params, Options{})
	})
}

// LZWEncode compresses data as PDF LZW. The EarlyChange parameter is
// honoured the same way as by LZWDecode.
func LZWEncode(data []byte, params Params) ([]byte, error) {
	return runStage(data, func(next Stage) Stage {
		return newLZWEncoder(next, params)
	})
}

func earlyChange(params Params) bool {
	return getIntParam(params, "EarlyChange", 1) == 1
}

func newLZWDecoder(next Stage, params Params, opts Options) Stage {
	var in bytes.Buffer
	s := &stage{name: lzwName, next: next}
	s.write = func(p []byte) error {
		in.Write(p)
		return nil
	}
	s.flush = func() error {
		if in.Len() == 0 {
			return nil
		}
		r := lzw.NewReader(bytes.NewReader(in.Bytes()), earlyChange(params))
		defer r.Close()

		predictor := getIntParam(params, "Predictor", 1)
		if predictor < 2 {
			return pump(lzwName, r, output(next, opts))
		}

		var raw bytes.Buffer
		if err := pump(lzwName, r, &limitWriter{w: &raw, max: opts.MaxDecodedSize}); err != nil {
			return err
		}
		decoded, err := applyPredictor(raw.Bytes(), predictor, params)
		if err != nil {
			return &DecodeError{Filter: lzwName, Err: fmt.Errorf("predictor failed: %w", err)}
		}
		_, err = next.Write(decoded)
		return err
	}
	return s
}

func newLZWEncoder(next Stage, params Params) Stage {
	w := lzw.NewWriter(next, earlyChange(params))
	s := &stage{name: "LZWEncode", next: next}
	s.write = func(p []byte) error {
		_, err := w.Write(p)
		return err
	}
	s.flush = w.Close
	return s
}
