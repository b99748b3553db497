package filters

import "fmt"

// applyPredictor reverses the prediction applied before compression.
// Predictor 1 is identity, 2 is TIFF Predictor 2, and 10-15 are the PNG
// predictors, where each row carries its own algorithm tag.
func applyPredictor(data []byte, predictor int, params Params) ([]byte, error) {
	switch {
	case predictor == 1 || len(data) == 0:
		return data, nil
	case predictor == 2:
		return applyTIFFPredictor2(data, params)
	case predictor >= 10 && predictor <= 15:
		return applyPNGPredictor(data, predictor, params)
	}
	return nil, fmt.Errorf("unsupported predictor: %d", predictor)
}

// maxColors bounds the Colors parameter; no PDF color space has more
// components.
const maxColors = 32

// rowGeometry returns the bytes per complete pixel (at least one) and the
// bytes per row of samples. A row longer than the dataLen bytes to be
// decoded is rejected, so the row buffers never exceed the input.
func rowGeometry(params Params, dataLen int) (bpp, rowSize int, err error) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)

	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return 0, 0, fmt.Errorf("unsupported BitsPerComponent %d", bpc)
	}
	if columns < 1 || colors < 1 || colors > maxColors {
		return 0, 0, fmt.Errorf("invalid predictor geometry: Columns=%d Colors=%d", columns, colors)
	}

	bitsPerPixel := colors * bpc
	// Every column takes at least one bit, so this also keeps the row
	// size computation below from overflowing.
	if int64(columns) > int64(dataLen)*8 {
		return 0, 0, fmt.Errorf("predictor row of %d columns exceeds %d bytes of data", columns, dataLen)
	}
	row := (int64(columns)*int64(bitsPerPixel) + 7) / 8
	if row > int64(dataLen) {
		return 0, 0, fmt.Errorf("predictor row of %d bytes exceeds %d bytes of data", row, dataLen)
	}
	return (bitsPerPixel + 7) / 8, int(row), nil
}

// applyTIFFPredictor2 applies TIFF Predictor 2, which predicts each sample
// from the sample to its left. This is rarely used in PDFs.
func applyTIFFPredictor2(data []byte, params Params) ([]byte, error) {
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)

	_, rowSize, err := rowGeometry(params, len(data))
	if err != nil {
		return nil, err
	}

	result := make([]byte, len(data))
	copy(result, data)

	for start := 0; start < len(result); start += rowSize {
		end := start + rowSize
		if end > len(result) {
			end = len(result)
		}
		row := result[start:end]

		switch bpc {
		case 8:
			for i := colors; i < len(row); i++ {
				row[i] += row[i-colors]
			}
		case 16:
			for i := 2 * colors; i+1 < len(row); i += 2 {
				prev := uint16(row[i-2*colors])<<8 | uint16(row[i-2*colors+1])
				cur := uint16(row[i])<<8 | uint16(row[i+1])
				cur += prev
				row[i], row[i+1] = byte(cur>>8), byte(cur)
			}
		default:
			undoSubBits(row, colors, bpc)
		}
	}

	return result, nil
}

// undoSubBits reverses TIFF prediction for samples narrower than a byte.
func undoSubBits(row []byte, colors, bpc int) {
	mask := byte(1<<uint(bpc) - 1)
	samples := len(row) * 8 / bpc

	get := func(i int) byte {
		bit := i * bpc
		shift := uint(8 - bpc - bit%8)
		return (row[bit/8] >> shift) & mask
	}
	set := func(i int, v byte) {
		bit := i * bpc
		shift := uint(8 - bpc - bit%8)
		row[bit/8] = row[bit/8]&^(mask<<shift) | (v&mask)<<shift
	}

	for i := colors; i < samples; i++ {
		set(i, get(i)+get(i-colors))
	}
}

// applyPNGPredictor applies PNG predictor algorithms. Each row starts with
// a predictor byte (0-4) that specifies which algorithm to use for that row.
// A short final row is decoded with the bytes available.
func applyPNGPredictor(data []byte, predictor int, params Params) ([]byte, error) {
	bpp, rowSize, err := rowGeometry(params, len(data))
	if err != nil {
		return nil, err
	}

	stride := rowSize + 1
	numRows := (len(data) + stride - 1) / stride
	result := make([]byte, 0, numRows*rowSize)
	prev := make([]byte, rowSize)

	for row := 0; row < numRows; row++ {
		start := row * stride
		end := start + stride
		if end > len(data) {
			end = len(data)
		}
		if end-start < 2 {
			break
		}

		cur := make([]byte, rowSize)
		n := copy(cur, data[start+1:end])
		if err := decodePNGRow(cur, prev, data[start], bpp); err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", row, err)
		}
		result = append(result, cur[:n]...)
		prev = cur
	}

	return result, nil
}

// decodePNGRow decodes one row in place given the previous decoded row.
// Predictor types: 0=None, 1=Sub, 2=Up, 3=Average, 4=Paeth.
func decodePNGRow(cur, prev []byte, tag byte, bpp int) error {
	switch tag {
	case 0:
	case 1:
		for i := bpp; i < len(cur); i++ {
			cur[i] += cur[i-bpp]
		}
	case 2:
		for i := range cur {
			cur[i] += prev[i]
		}
	case 3:
		for i := range cur {
			var left byte
			if i >= bpp {
				left = cur[i-bpp]
			}
			cur[i] += byte((int(left) + int(prev[i])) / 2)
		}
	case 4:
		for i := range cur {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			cur[i] += paethPredictor(left, prev[i], upLeft)
		}
	default:
		return fmt.Errorf("unknown PNG predictor: %d", tag)
	}
	return nil
}

// paethPredictor implements the Paeth predictor algorithm from the PNG specification.
// It selects the neighbor (left, above, or upper-left) closest to a linear prediction.
func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))

	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
