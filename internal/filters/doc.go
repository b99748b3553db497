// Package filters implements the PDF stream filters as composable stages.
//
// Every filter is a Stage: an io.WriteCloser that transforms what is
// written to it and forwards the result to the next stage. Closing the
// first stage flushes the chain end to end. A Buffer is the usual sink:
//
//	sink := filters.NewBuffer()
//	head, err := filters.NewDecodeChain(
//	    []string{"ASCII85Decode", "FlateDecode"}, nil, sink, filters.Options{})
//	if err != nil {
//	    return err
//	}
//	if _, err := head.Write(raw); err != nil {
//	    return err
//	}
//	if err := head.Close(); err != nil {
//	    return err
//	}
//	decoded := sink.Bytes()
//
// Decode and Encode wrap that sequence, and the one-shot helpers
// (FlateDecode, ASCII85Decode, ...) run a single filter.
//
// # Supported Filters
//
// FlateDecode, LZWDecode, ASCII85Decode, ASCIIHexDecode, RunLengthDecode
// and CCITTFaxDecode are decoded. The first five can also be encoded.
// DCTDecode, JPXDecode and JBIG2Decode pass through undecoded.
//
// FlateDecode and LZWDecode apply a predictor when the Predictor parameter
// is 2 (TIFF) or 10-15 (PNG), using Columns, Colors and BitsPerComponent.
//
// # Errors
//
// Malformed input is reported as a *DecodeError. When Options.MaxDecodedSize
// is set, a stage that would produce more output fails with ErrMemoryLimit,
// which is not a DecodeError.
package filters
