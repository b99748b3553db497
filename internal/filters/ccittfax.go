package filters

import (
	"bytes"

	"golang.org/x/image/ccitt"
)

const ccittName = "CCITTFaxDecode"

// CCITTFaxDecode decodes CCITT Group 3/4 fax compressed data.
// This is commonly used for bi-level (black and white) images in PDFs,
// particularly for scanned documents.
//
// Parameters from the PDF decode parameters dictionary:
//   - K: Group selector (-1=Group4, 0=Group3 1D, >0=Group3 2D)
//   - Columns: Image width in pixels (default 1728)
//   - Rows: Image height in pixels (default 0, uses AutoDetectHeight)
//   - BlackIs1: Bit interpretation (default false, maps to ccitt.Options.Invert)
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	return runStage(data, func(next Stage) Stage {
		return newCCITTFaxDecoder(next, params, Options{})
	})
}

func newCCITTFaxDecoder(next Stage, params Params, opts Options) Stage {
	var in bytes.Buffer
	s := &stage{name: ccittName, next: next}
	s.write = func(p []byte) error {
		in.Write(p)
		return nil
	}
	s.flush = func() error {
		columns := getIntParam(params, "Columns", 1728)
		rows := getIntParam(params, "Rows", 0)

		// K < 0 is pure Group 4; K >= 0 is Group 3, one or two dimensional.
		sf := ccitt.Group3
		if getIntParam(params, "K", 0) < 0 {
			sf = ccitt.Group4
		}
		if rows == 0 {
			rows = ccitt.AutoDetectHeight
		}

		r := ccitt.NewReader(bytes.NewReader(in.Bytes()), ccitt.MSB, sf, columns, rows,
			&ccitt.Options{Invert: getBoolParam(params, "BlackIs1", false)})
		return pump(ccittName, r, output(next, opts))
	}
	return s
}
