package core

import (
	"fmt"

	"github.com/tsawler/pdfengine/internal/filters"
)

// ObjectStream represents a PDF Object Stream (Type /ObjStm), introduced in PDF 1.5.
// Object streams store multiple objects in a single compressed stream, providing
// better compression than storing objects individually.
type ObjectStream struct {
	stream  *Stream              // Underlying stream object
	n       int                  // Number of objects in stream
	first   int                  // Byte offset of first object in decoded data
	extends *IndirectRef         // Optional reference to another ObjStm this one extends
	objects map[int]Object       // Cached parsed objects (index -> object)
	offsets []objectStreamOffset // Parsed offset pairs from header
	decoded []byte               // Decoded stream data (cached)
	opts    filters.Options
}

// objectStreamOffset pairs an object number with its byte offset within the decoded data.
type objectStreamOffset struct {
	ObjNum int // Object number
	Offset int // Byte offset within decoded data (relative to First)
}

// NewObjectStream creates an ObjectStream from a Stream object.
// The stream must have Type /ObjStm and required entries /N and /First.
// Returns an error if the stream is not a valid object stream.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}

	if typ, _ := stream.Dict.GetName("Type"); typ != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream: %w", wrongType("/Type", stream.Dict.Get("Type")))
	}

	nInt, ok := stream.Dict.GetInt("N")
	if !ok {
		return nil, fmt.Errorf("object stream /N: %w", wrongType("/N", stream.Dict.Get("N")))
	}
	if nInt < 0 {
		return nil, fmt.Errorf("invalid /N value: %d", nInt)
	}

	firstInt, ok := stream.Dict.GetInt("First")
	if !ok {
		return nil, fmt.Errorf("object stream /First: %w", wrongType("/First", stream.Dict.Get("First")))
	}
	if firstInt < 0 {
		return nil, fmt.Errorf("invalid /First value: %d", firstInt)
	}

	var extends *IndirectRef
	if extendsObj := stream.Dict.Get("Extends"); extendsObj != nil {
		ref, ok := extendsObj.(IndirectRef)
		if !ok {
			return nil, fmt.Errorf("invalid /Extends: %w", wrongType("/Extends", extendsObj))
		}
		extends = &ref
	}

	return &ObjectStream{
		stream:  stream,
		n:       int(nInt),
		first:   int(firstInt),
		extends: extends,
		objects: make(map[int]Object),
	}, nil
}

// SetDecodeOptions sets the filter options used to decode the stream. It
// must be called before the first object is read.
func (os *ObjectStream) SetDecodeOptions(opts filters.Options) {
	os.opts = opts
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int {
	return os.n
}

// First returns the byte offset to the first object's data in the decoded stream.
// The header (object number/offset pairs) precedes this offset.
func (os *ObjectStream) First() int {
	return os.first
}

// Extends returns the reference to another object stream this one extends, or nil.
func (os *ObjectStream) Extends() *IndirectRef {
	return os.extends
}

// decode decodes the stream data and parses the header. Called lazily on first access.
func (os *ObjectStream) decode() error {
	if os.decoded != nil {
		return nil
	}

	decoded, err := os.stream.DecodeWith(os.opts)
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}
	if decoded == nil {
		decoded = []byte{}
	}

	if err := os.parseHeader(decoded); err != nil {
		return fmt.Errorf("failed to parse object stream header: %w", err)
	}
	os.decoded = decoded
	return nil
}

// parseHeader parses the N "objNum offset" pairs before /First. Offsets
// must not decrease and must stay inside the decoded data.
func (os *ObjectStream) parseHeader(decoded []byte) error {
	if os.first > len(decoded) {
		return syntaxErrorf(int64(os.first), "/First exceeds decoded data length %d", len(decoded))
	}

	lex := NewLexer(decoded[:os.first])
	offsets := make([]objectStreamOffset, 0, os.n)
	last := 0
	for i := 0; i < os.n; i++ {
		numTok, err := lex.NextToken()
		if err != nil {
			return err
		}
		objNum, err := tokenInt(numTok, fmt.Sprintf("object number %d", i))
		if err != nil {
			return err
		}
		offTok, err := lex.NextToken()
		if err != nil {
			return err
		}
		offset, err := tokenInt(offTok, fmt.Sprintf("offset %d", i))
		if err != nil {
			return err
		}

		if int(offset) < last {
			return syntaxErrorf(offTok.Pos, "object stream offset %d decreases (previous %d)", offset, last)
		}
		if os.first+int(offset) > len(decoded) {
			return syntaxErrorf(offTok.Pos, "object stream offset %d beyond decoded data", offset)
		}
		last = int(offset)
		offsets = append(offsets, objectStreamOffset{ObjNum: int(objNum), Offset: int(offset)})
	}
	os.offsets = offsets
	return nil
}

// ObjectBytes returns the bytes of the object at index: from First plus
// its offset up to First plus the next offset, or to the end of the data
// for the last object.
func (os *ObjectStream) ObjectBytes(index int) ([]byte, error) {
	if err := os.decode(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(os.offsets) {
		return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ErrNotFound, index, len(os.offsets))
	}

	start := os.first + os.offsets[index].Offset
	end := len(os.decoded)
	if index+1 < len(os.offsets) {
		end = os.first + os.offsets[index+1].Offset
	}
	return os.decoded[start:end], nil
}

// GetObjectByIndex extracts an object by its index within the stream (0-based).
// Returns the object, its object number, and any error. The index corresponds
// to the position in the header, not the object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	data, err := os.ObjectBytes(index)
	if err != nil {
		return nil, 0, err
	}
	objNum := os.offsets[index].ObjNum

	if obj, ok := os.objects[index]; ok {
		return obj, objNum, nil
	}

	obj, err := NewParser(data).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse object at index %d: %w", index, err)
	}
	if _, isStream := obj.(*Stream); isStream {
		return nil, 0, fmt.Errorf("object %d: streams cannot be stored in object streams", objNum)
	}

	os.objects[index] = obj
	return obj, objNum, nil
}

// GetObjectByNumber finds and extracts an object by its object number.
// Returns the object, its index within the stream, and any error.
func (os *ObjectStream) GetObjectByNumber(objNum int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}

	for i, entry := range os.offsets {
		if entry.ObjNum == objNum {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, i, err
		}
	}

	return nil, 0, fmt.Errorf("%w: object %d in object stream", ErrNotFound, objNum)
}

// ObjectNumbers returns a slice of all object numbers stored in this stream.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.decode(); err != nil {
		return nil, err
	}

	nums := make([]int, len(os.offsets))
	for i, entry := range os.offsets {
		nums[i] = entry.ObjNum
	}
	return nums, nil
}
