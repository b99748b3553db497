package core

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/tsawler/pdfengine/internal/filters"
)

// XRefEntryType distinguishes the three kinds of cross-reference entries.
type XRefEntryType int

const (
	XRefEntryFree         XRefEntryType = iota // type 0: free object
	XRefEntryUncompressed                      // type 1: object at a byte offset
	XRefEntryCompressed                        // type 2: object inside an object stream
)

func (t XRefEntryType) String() string {
	switch t {
	case XRefEntryFree:
		return "free"
	case XRefEntryUncompressed:
		return "uncompressed"
	case XRefEntryCompressed:
		return "compressed"
	}
	return "unknown"
}

// XRefEntry represents a single cross-reference entry.
//
// For uncompressed entries Offset is the byte offset of the object. For free
// entries it is the next free object number. For compressed entries Offset
// and Generation carry the raw field values (object stream number and index)
// and StreamObj/StreamIndex name them explicitly.
type XRefEntry struct {
	Type        XRefEntryType
	Offset      int64
	Generation  int
	InUse       bool
	StreamObj   int // object number of the containing object stream
	StreamIndex int // index within the object stream
}

// XRefSubsection records one run of consecutive object numbers.
type XRefSubsection struct {
	Start int
	Count int
}

// XRefTable represents a cross-reference section, either a classic table or
// an xref stream, or the merge of several sections.
type XRefTable struct {
	Entries     map[int]*XRefEntry // Map from object number to XRef entry
	Trailer     Dict               // Trailer dictionary (the stream dict for xref streams)
	IsStream    bool
	Subsections []XRefSubsection
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or updates an XRef entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// ObjectNumbers returns the numbers of all in-use objects, sorted.
func (x *XRefTable) ObjectNumbers() []int {
	nums := make([]int, 0, len(x.Entries))
	for n, e := range x.Entries {
		if e.InUse {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}

// XRefParser parses cross-reference sections from the bytes of a file.
type XRefParser struct {
	data []byte
	pos  int64 // offset of the section being parsed

	// Resolver, when set, resolves indirect /Length values of xref streams.
	Resolver ReferenceResolver

	// Options bounds the decoding of xref and object streams.
	Options filters.Options
}

// NewXRefParser creates an XRef parser over the complete file bytes.
func NewXRefParser(data []byte) *XRefParser {
	return &XRefParser{data: data}
}

// startxrefWindow is how far from the end of the file startxref is searched.
const startxrefWindow = 1024

// FindXRef finds the byte offset of the last cross-reference section.
// PDFs end with "startxref\n<offset>\n%%EOF".
func (x *XRefParser) FindXRef() (int64, error) {
	tail := x.data
	base := 0
	if len(tail) > startxrefWindow {
		base = len(tail) - startxrefWindow
		tail = tail[base:]
	}

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx == -1 {
		return 0, syntaxErrorf(int64(len(x.data)), "startxref not found in last %d bytes", startxrefWindow)
	}

	lex := NewLexer(x.data)
	lex.SetPos(int64(base + idx + len("startxref")))
	tok, err := lex.NextToken()
	if err != nil {
		return 0, err
	}
	if tok.Type != TokenInteger {
		return 0, syntaxErrorf(tok.Pos, "invalid startxref offset %q", tok.Value)
	}
	offset, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil || offset < 0 || offset >= int64(len(x.data)) {
		return 0, syntaxErrorf(tok.Pos, "startxref offset %q out of range", tok.Value)
	}
	return offset, nil
}

// isXRefStream reports whether the section at the current position is an
// xref stream ("N G obj") rather than a classic table ("xref").
func (x *XRefParser) isXRefStream() (bool, error) {
	lex := NewLexer(x.data)
	lex.SetPos(x.pos)
	tok, err := lex.NextToken()
	if err != nil {
		return false, err
	}
	switch {
	case tok.Type == TokenKeyword && string(tok.Value) == "xref":
		return false, nil
	case tok.Type == TokenInteger:
		return true, nil
	}
	return false, syntaxErrorf(tok.Pos, "expected 'xref' or an xref stream object, got %v %q", tok.Type, tok.Value)
}

// ParseXRef parses the cross-reference section at the given byte offset,
// which is either a classic table or an xref stream.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(x.data)) {
		return nil, syntaxErrorf(offset, "xref offset out of range [0, %d)", len(x.data))
	}
	x.pos = offset

	isStream, err := x.isXRefStream()
	if err != nil {
		return nil, err
	}
	if isStream {
		return x.parseXRefStream()
	}
	return x.parseXRefTable()
}

// parseXRefTable reads "xref", the subsections and the trailer dictionary.
// Entries are read by fields rather than by fixed 20-byte records, so
// files with one- or three-byte line endings are accepted.
func (x *XRefParser) parseXRefTable() (*XRefTable, error) {
	lex := NewLexer(x.data)
	lex.SetPos(x.pos)
	if _, err := lex.NextToken(); err != nil { // xref
		return nil, err
	}

	table := NewXRefTable()
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			break
		}
		if tok.Type == TokenEOF {
			return nil, syntaxErrorf(tok.Pos, "xref table missing trailer")
		}

		start, err := tokenInt(tok, "subsection start")
		if err != nil {
			return nil, err
		}
		tok, err = lex.NextToken()
		if err != nil {
			return nil, err
		}
		count, err := tokenInt(tok, "subsection count")
		if err != nil {
			return nil, err
		}
		table.Subsections = append(table.Subsections, XRefSubsection{Start: int(start), Count: int(count)})

		for i := 0; i < int(count); i++ {
			entry, err := x.parseEntry(lex)
			if err != nil {
				return nil, fmt.Errorf("xref entry %d: %w", int(start)+i, err)
			}
			table.Set(int(start)+i, entry)
		}
	}

	parser := NewParserAt(x.data, lex.Pos())
	obj, err := parser.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse trailer dictionary: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, wrongType("trailer", obj)
	}
	table.Trailer = trailer
	return table, nil
}

// parseEntry reads one "nnnnnnnnnn ggggg n|f" entry.
func (x *XRefParser) parseEntry(lex *Lexer) (*XRefEntry, error) {
	offTok, err := lex.NextToken()
	if err != nil {
		return nil, err
	}
	offset, err := tokenInt(offTok, "offset")
	if err != nil {
		return nil, err
	}
	genTok, err := lex.NextToken()
	if err != nil {
		return nil, err
	}
	gen, err := tokenInt(genTok, "generation")
	if err != nil {
		return nil, err
	}
	flag, err := lex.NextToken()
	if err != nil {
		return nil, err
	}
	if flag.Type != TokenKeyword {
		return nil, syntaxErrorf(flag.Pos, "invalid in-use flag %q", flag.Value)
	}

	switch string(flag.Value) {
	case "n":
		return &XRefEntry{Type: XRefEntryUncompressed, Offset: offset, Generation: int(gen), InUse: true}, nil
	case "f":
		return &XRefEntry{Type: XRefEntryFree, Offset: offset, Generation: int(gen)}, nil
	}
	return nil, syntaxErrorf(flag.Pos, "invalid in-use flag %q", flag.Value)
}

func tokenInt(tok *Token, what string) (int64, error) {
	if tok.Type != TokenInteger {
		return 0, syntaxErrorf(tok.Pos, "expected %s, got %v %q", what, tok.Type, tok.Value)
	}
	v, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil || v < 0 {
		return 0, syntaxErrorf(tok.Pos, "invalid %s %q", what, tok.Value)
	}
	return v, nil
}

// parseXRefStream parses an xref stream object (PDF 1.5+). The stream
// dictionary doubles as the trailer.
func (x *XRefParser) parseXRefStream() (*XRefTable, error) {
	parser := NewParserAt(x.data, x.pos)
	parser.SetReferenceResolver(x.Resolver)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref stream object: %w", err)
	}
	stream, ok := indObj.Object.(*Stream)
	if !ok {
		return nil, syntaxErrorf(x.pos, "xref object %d is not a stream", indObj.Ref.Number)
	}

	if typ, _ := stream.Dict.GetName("Type"); typ != "XRef" {
		return nil, syntaxErrorf(x.pos, "xref stream has /Type %s, want /XRef", typeOrMissing(stream.Dict.Get("Type")))
	}
	size, ok := stream.Dict.GetInt("Size")
	if !ok || size < 0 {
		return nil, syntaxErrorf(x.pos, "xref stream missing /Size")
	}
	wArr, ok := stream.Dict.GetArray("W")
	if !ok {
		return nil, syntaxErrorf(x.pos, "xref stream missing /W")
	}
	if len(wArr) != 3 {
		return nil, syntaxErrorf(x.pos, "xref stream /W has %d elements, want 3", len(wArr))
	}
	w := make([]int, 3)
	for i := range wArr {
		v, ok := wArr.GetInt(i)
		if !ok || v < 0 || v > 8 {
			return nil, syntaxErrorf(x.pos, "invalid /W[%d]: %s", i, objectString(wArr[i]))
		}
		w[i] = int(v)
	}

	subsections := []XRefSubsection{{Start: 0, Count: int(size)}}
	if idx, ok := stream.Dict.GetArray("Index"); ok {
		if len(idx)%2 != 0 {
			return nil, syntaxErrorf(x.pos, "xref stream /Index has odd length %d", len(idx))
		}
		subsections = subsections[:0]
		for i := 0; i < len(idx); i += 2 {
			start, ok1 := idx.GetInt(i)
			count, ok2 := idx.GetInt(i + 1)
			if !ok1 || !ok2 || start < 0 || count < 0 {
				return nil, syntaxErrorf(x.pos, "invalid /Index pair at %d", i)
			}
			subsections = append(subsections, XRefSubsection{Start: int(start), Count: int(count)})
		}
	}

	data, err := stream.DecodeWith(x.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	table := NewXRefTable()
	table.IsStream = true
	table.Trailer = stream.Dict
	table.Subsections = subsections

	pos := 0
	for _, sub := range subsections {
		for i := 0; i < sub.Count; i++ {
			entry, n, err := x.parseXRefStreamEntry(data[pos:], w)
			if err != nil {
				return nil, fmt.Errorf("xref stream entry %d: %w", sub.Start+i, err)
			}
			pos += n
			if entry == nil {
				continue
			}
			table.Set(sub.Start+i, entry)
		}
	}
	return table, nil
}

func typeOrMissing(obj Object) string {
	if obj == nil {
		return "missing"
	}
	return obj.String()
}

// parseXRefStreamEntry decodes one binary entry with field widths w and
// returns it with the number of bytes consumed. A nil entry with no error
// means an unknown entry type, which is treated as a null reference.
func (x *XRefParser) parseXRefStreamEntry(data []byte, w []int) (*XRefEntry, int, error) {
	size := w[0] + w[1] + w[2]
	if len(data) < size {
		return nil, 0, syntaxErrorf(x.pos, "xref stream data truncated: need %d bytes, have %d", size, len(data))
	}

	typ := int64(1)
	if w[0] > 0 {
		typ = readBigEndianInt(data, w[0])
	}
	field2 := readBigEndianInt(data[w[0]:], w[1])
	field3 := readBigEndianInt(data[w[0]+w[1]:], w[2])

	switch typ {
	case 0:
		return &XRefEntry{Type: XRefEntryFree, Offset: field2, Generation: int(field3)}, size, nil
	case 1:
		return &XRefEntry{Type: XRefEntryUncompressed, Offset: field2, Generation: int(field3), InUse: true}, size, nil
	case 2:
		return &XRefEntry{
			Type:        XRefEntryCompressed,
			Offset:      field2,
			Generation:  int(field3),
			InUse:       true,
			StreamObj:   int(field2),
			StreamIndex: int(field3),
		}, size, nil
	}
	return nil, size, nil
}

// readBigEndianInt reads a width-byte big-endian unsigned integer.
func readBigEndianInt(data []byte, width int) int64 {
	var v int64
	for i := 0; i < width && i < len(data); i++ {
		v = v<<8 | int64(data[i])
	}
	return v
}

// ParseXRefsFromEOF locates the last section through startxref and parses
// it together with every earlier section, oldest first.
func (x *XRefParser) ParseXRefsFromEOF() ([]*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, fmt.Errorf("failed to find xref: %w", err)
	}

	tables, err := x.ParseAllXRefs(offset)
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref at %d: %w", offset, err)
	}
	return tables, nil
}

// ParseAllXRefs parses the section at offset and every earlier one reached
// through /Prev, including the /XRefStm sections of hybrid files. The
// result is ordered from oldest to newest.
func (x *XRefParser) ParseAllXRefs(offset int64) ([]*XRefTable, error) {
	var tables []*XRefTable
	seen := make(map[int64]bool)

	for {
		if seen[offset] {
			return nil, syntaxErrorf(offset, "xref /Prev chain loops")
		}
		seen[offset] = true

		table, err := x.ParseXRef(offset)
		if err != nil {
			return nil, fmt.Errorf("failed to parse xref at %d: %w", offset, err)
		}

		// A hybrid file's table lists the classic entries; the stream named by
		// XRefStm supplies the compressed ones.
		if stmOff, ok := table.Trailer.GetInt("XRefStm"); ok && !table.IsStream && !seen[int64(stmOff)] {
			seen[int64(stmOff)] = true
			stm, err := x.ParseXRef(int64(stmOff))
			if err != nil {
				return nil, fmt.Errorf("failed to parse /XRefStm at %d: %w", stmOff, err)
			}
			for num, e := range stm.Entries {
				if cur, ok := table.Entries[num]; !ok || !cur.InUse {
					table.Set(num, e)
				}
			}
		}

		tables = append([]*XRefTable{table}, tables...)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}
	return tables, nil
}

// MergeXRefTables merges sections ordered from oldest to newest. Entries
// and trailer keys from later sections override earlier ones.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, table := range tables {
		for objNum, entry := range table.Entries {
			merged.Set(objNum, entry)
		}
		for k, v := range table.Trailer {
			merged.Trailer[k] = v
		}
		merged.IsStream = table.IsStream
		merged.Subsections = append(merged.Subsections, table.Subsections...)
	}
	// Prev and XRefStm describe individual sections, not the merge.
	merged.Trailer.Delete("Prev")
	merged.Trailer.Delete("XRefStm")
	return merged
}

var objHeader = []byte("obj")

// Reconstruct rebuilds a cross-reference table by scanning the file for
// "N G obj" headers. Later definitions of the same object win, and the
// objects of any object stream found are indexed unless defined directly
// in the file. The trailer
// is the last "trailer" dictionary, or the dictionary of the last xref
// stream, or failing both a synthesized one pointing at a /Type /Catalog
// object.
func (x *XRefParser) Reconstruct() (*XRefTable, error) {
	table := NewXRefTable()
	var (
		trailer Dict
		catalog *IndirectRef
		objStms []IndirectObject
	)

	for i := 0; i < len(x.data); {
		j := bytes.Index(x.data[i:], objHeader)
		if j < 0 {
			break
		}
		at := i + j
		i = at + len(objHeader)

		// Must be the keyword, not a prefix of endobj or a longer word.
		if at > 0 && !isWhitespace(x.data[at-1]) || at+3 < len(x.data) && !isWhitespace(x.data[at+3]) && !isDelimiter(x.data[at+3]) {
			continue
		}
		start, num, gen, ok := objectHeaderBefore(x.data, at)
		if !ok {
			continue
		}
		table.Set(num, &XRefEntry{Type: XRefEntryUncompressed, Offset: int64(start), Generation: gen, InUse: true})

		parser := NewParserAt(x.data, int64(start))
		ind, err := parser.ParseIndirectObject()
		if err != nil {
			continue
		}
		switch v := ind.Object.(type) {
		case Dict:
			if t, _ := v.GetName("Type"); t == "Catalog" {
				ref := ind.Ref
				catalog = &ref
			}
		case *Stream:
			switch t, _ := v.Dict.GetName("Type"); t {
			case "XRef":
				trailer = v.Dict
			case "ObjStm":
				objStms = append(objStms, *ind)
			}
		}
	}

	for _, ind := range objStms {
		stm, err := NewObjectStream(ind.Object.(*Stream))
		if err != nil {
			continue
		}
		stm.SetDecodeOptions(x.Options)
		nums, err := stm.ObjectNumbers()
		if err != nil {
			continue
		}
		for i, num := range nums {
			if e, ok := table.Get(num); ok && e.Type == XRefEntryUncompressed {
				continue
			}
			table.Set(num, &XRefEntry{Type: XRefEntryCompressed, InUse: true, StreamObj: ind.Ref.Number, StreamIndex: i})
			if catalog != nil {
				continue
			}
			if obj, _, err := stm.GetObjectByIndex(i); err == nil {
				if d, ok := obj.(Dict); ok {
					if t, _ := d.GetName("Type"); t == "Catalog" {
						catalog = &IndirectRef{Number: num}
					}
				}
			}
		}
	}

	// Trailer dictionaries of classic tables.
	for i := 0; ; {
		j := bytes.Index(x.data[i:], []byte("trailer"))
		if j < 0 {
			break
		}
		at := i + j + len("trailer")
		i = at
		parser := NewParserAt(x.data, int64(at))
		if obj, err := parser.ParseObject(); err == nil {
			if d, ok := obj.(Dict); ok && d.Has("Root") {
				trailer = d
			}
		}
	}

	if len(table.Entries) == 0 {
		return nil, syntaxErrorf(0, "no objects found while reconstructing xref")
	}

	switch {
	case trailer != nil:
		table.Trailer = trailer.Clone()
	case catalog != nil:
		table.Trailer = Dict{"Root": *catalog}
	default:
		return nil, syntaxErrorf(0, "no trailer or catalog found while reconstructing xref")
	}
	for _, k := range []string{"Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length"} {
		table.Trailer.Delete(k)
	}
	table.Trailer["Size"] = Int(maxObjectNumber(table) + 1)
	table.Entries[0] = &XRefEntry{Type: XRefEntryFree, Generation: 65535}
	return table, nil
}

// objectHeaderBefore parses "N G " immediately before the obj keyword at
// objAt and returns the offset where N starts.
func objectHeaderBefore(data []byte, objAt int) (start, num, gen int, ok bool) {
	i := objAt
	skipSpace := func() {
		for i > 0 && isWhitespace(data[i-1]) {
			i--
		}
	}
	readInt := func() (int, bool) {
		end := i
		for i > 0 && isDigit(data[i-1]) {
			i--
		}
		if i == end || end-i > 10 {
			return 0, false
		}
		v, err := strconv.Atoi(string(data[i:end]))
		return v, err == nil
	}

	skipSpace()
	gen, ok = readInt()
	if !ok {
		return 0, 0, 0, false
	}
	before := i
	skipSpace()
	if i == before {
		return 0, 0, 0, false
	}
	num, ok = readInt()
	if !ok || num == 0 {
		return 0, 0, 0, false
	}
	if i > 0 && !isWhitespace(data[i-1]) && !isDelimiter(data[i-1]) {
		return 0, 0, 0, false
	}
	return i, num, gen, true
}

func maxObjectNumber(t *XRefTable) int {
	max := 0
	for n := range t.Entries {
		if n > max {
			max = n
		}
	}
	return max
}
