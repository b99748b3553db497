package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestXRefTable(t *testing.T) {
	table := NewXRefTable()
	if table.Size() != 0 {
		t.Errorf("new table Size() = %d, want 0", table.Size())
	}

	table.Set(1, &XRefEntry{Type: XRefEntryUncompressed, Offset: 100, InUse: true})
	table.Set(0, &XRefEntry{Type: XRefEntryFree, Generation: 65535})
	table.Set(4, &XRefEntry{Type: XRefEntryCompressed, InUse: true, StreamObj: 9})

	if entry, ok := table.Get(1); !ok || entry.Offset != 100 {
		t.Errorf("Get(1) = %+v, %v", entry, ok)
	}
	if _, ok := table.Get(2); ok {
		t.Error("Get(2) should not exist")
	}
	if diff := cmp.Diff([]int{1, 4}, table.ObjectNumbers()); diff != "" {
		t.Errorf("ObjectNumbers() mismatch (-want +got):\n%s", diff)
	}
}

func TestXRefEntryTypeString(t *testing.T) {
	for typ, want := range map[XRefEntryType]string{
		XRefEntryFree:         "free",
		XRefEntryUncompressed: "uncompressed",
		XRefEntryCompressed:   "compressed",
		XRefEntryType(7):      "unknown",
	} {
		if got := typ.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", typ, got, want)
		}
	}
}

func TestFindXRef(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int64
		wantErr bool
	}{
		{"LF", "%PDF-1.4\nbody\nstartxref\n9\n%%EOF\n", 9, false},
		{"CRLF", "%PDF-1.4\r\nbody\r\nstartxref\r\n10\r\n%%EOF\r\n", 10, false},
		{"CR only", "%PDF-1.4\rbody\rstartxref\r9\r%%EOF", 9, false},
		{"last startxref wins", "%PDF-1.4\nstartxref\n1\n%%EOF\nstartxref\n3\n%%EOF", 3, false},
		{"missing", "%PDF-1.4\nno marker here\n%%EOF", 0, true},
		{"not a number", "%PDF-1.4\nstartxref\nabc\n%%EOF", 0, true},
		{"out of range", "%PDF-1.4\nstartxref\n99999\n%%EOF", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewXRefParser([]byte(tt.content)).FindXRef()
			if tt.wantErr {
				var syn *SyntaxError
				if !errors.As(err, &syn) {
					t.Errorf("expected *SyntaxError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FindXRef() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFindXRefOnlySearchesTail(t *testing.T) {
	content := "startxref\n0\n" + strings.Repeat(" ", 2000)
	if _, err := NewXRefParser([]byte(content)).FindXRef(); err == nil {
		t.Error("startxref outside the last 1024 bytes should not be found")
	}
}

func TestParseXRefTable(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[int]XRefEntry
		subs    []XRefSubsection
	}{
		{
			name: "20-byte entries",
			content: "xref\n0 3\n" +
				"0000000000 65535 f \n" +
				"0000000015 00000 n \n" +
				"0000000079 00002 n \n" +
				"trailer\n<< /Size 3 /Root 1 0 R >>\n",
			want: map[int]XRefEntry{
				0: {Type: XRefEntryFree, Generation: 65535},
				1: {Type: XRefEntryUncompressed, Offset: 15, InUse: true},
				2: {Type: XRefEntryUncompressed, Offset: 79, Generation: 2, InUse: true},
			},
			subs: []XRefSubsection{{0, 3}},
		},
		{
			name: "CRLF and 19-byte entries",
			content: "xref\r\n0 2\r\n" +
				"0000000000 65535 f\r\n" +
				"0000000015 00000 n\n" +
				"trailer\r\n<</Size 2/Root 1 0 R>>",
			want: map[int]XRefEntry{
				0: {Type: XRefEntryFree, Generation: 65535},
				1: {Type: XRefEntryUncompressed, Offset: 15, InUse: true},
			},
			subs: []XRefSubsection{{0, 2}},
		},
		{
			name: "multiple subsections",
			content: "xref\n0 1\n" +
				"0000000000 65535 f \n" +
				"5 2\n" +
				"0000000100 00000 n \n" +
				"0000000200 00000 n \n" +
				"trailer\n<< /Size 7 /Root 5 0 R >>\n",
			want: map[int]XRefEntry{
				0: {Type: XRefEntryFree, Generation: 65535},
				5: {Type: XRefEntryUncompressed, Offset: 100, InUse: true},
				6: {Type: XRefEntryUncompressed, Offset: 200, InUse: true},
			},
			subs: []XRefSubsection{{0, 1}, {5, 2}},
		},
		{
			name: "later subsection overrides",
			content: "xref\n3 1\n" +
				"0000000100 00000 n \n" +
				"3 1\n" +
				"0000000300 00001 n \n" +
				"trailer\n<< /Size 4 /Root 3 1 R >>\n",
			want: map[int]XRefEntry{
				3: {Type: XRefEntryUncompressed, Offset: 300, Generation: 1, InUse: true},
			},
			subs: []XRefSubsection{{3, 1}, {3, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewXRefParser([]byte(tt.content)).ParseXRef(0)
			if err != nil {
				t.Fatalf("ParseXRef() error = %v", err)
			}
			got := make(map[int]XRefEntry)
			for n, e := range table.Entries {
				got[n] = *e
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.subs, table.Subsections); diff != "" {
				t.Errorf("subsections mismatch (-want +got):\n%s", diff)
			}
			if _, ok := table.Trailer.GetIndirectRef("Root"); !ok {
				t.Errorf("trailer missing /Root: %v", table.Trailer)
			}
		})
	}
}

func TestXRefErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		offset  int64
	}{
		{"not xref", "hello world", 0},
		{"missing trailer", "xref\n0 1\n0000000000 65535 f \n", 0},
		{"bad flag", "xref\n0 1\n0000000000 65535 x \ntrailer\n<<>>", 0},
		{"short subsection", "xref\n0 2\n0000000000 65535 f \ntrailer\n<<>>", 0},
		{"trailer not a dict", "xref\n0 1\n0000000000 65535 f \ntrailer\n[1 2]", 0},
		{"offset out of range", "xref\n", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewXRefParser([]byte(tt.content)).ParseXRef(tt.offset); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// incrementalPDF builds a file with an original section and one
// incremental update whose trailer points back through /Prev.
func incrementalPDF() (string, int64) {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	off1 := b.Len()
	b.WriteString("1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n")
	off2 := b.Len()
	b.WriteString("2 0 obj << /Type /Pages /Kids [] /Count 0 >> endobj\n")
	xref1 := b.Len()
	fmt.Fprintf(&b, "xref\n0 3\n0000000000 65535 f \n%010d 00000 n \n%010d 00000 n \n", off1, off2)
	b.WriteString("trailer\n<< /Size 3 /Root 1 0 R /Info 9 0 R >>\nstartxref\n")
	fmt.Fprintf(&b, "%d\n%%%%EOF\n", xref1)

	off2b := b.Len()
	b.WriteString("2 0 obj << /Type /Pages /Kids [] /Count 0 /Updated true >> endobj\n")
	xref2 := b.Len()
	fmt.Fprintf(&b, "xref\n0 1\n0000000000 65535 f \n2 1\n%010d 00000 n \n", off2b)
	fmt.Fprintf(&b, "trailer\n<< /Size 3 /Root 1 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n", xref1, xref2)
	return b.String(), int64(off2b)
}

func TestParseAllXRefsPrevChain(t *testing.T) {
	content, updatedOffset := incrementalPDF()
	parser := NewXRefParser([]byte(content))

	start, err := parser.FindXRef()
	if err != nil {
		t.Fatalf("FindXRef() error = %v", err)
	}
	tables, err := parser.ParseAllXRefs(start)
	if err != nil {
		t.Fatalf("ParseAllXRefs() error = %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("got %d sections, want 2", len(tables))
	}

	merged := MergeXRefTables(tables...)
	entry, ok := merged.Get(2)
	if !ok || entry.Offset != updatedOffset {
		t.Errorf("object 2 entry = %+v, want offset %d from the update", entry, updatedOffset)
	}
	if _, ok := merged.Get(1); !ok {
		t.Error("object 1 from the original section lost")
	}
	if !merged.Trailer.Has("Info") {
		t.Error("trailer key /Info from the older section lost")
	}
	if merged.Trailer.Has("Prev") {
		t.Error("merged trailer should not keep /Prev")
	}
}

func TestParseAllXRefsCycle(t *testing.T) {
	content := "xref\n0 1\n0000000000 65535 f \ntrailer\n<< /Size 1 /Prev 0 >>\n"
	_, err := NewXRefParser([]byte(content)).ParseAllXRefs(0)
	var syn *SyntaxError
	if !errors.As(err, &syn) {
		t.Errorf("expected *SyntaxError for a /Prev loop, got %v", err)
	}
}

func TestParseAllXRefsHybrid(t *testing.T) {
	stream := xrefStreamObject("  /Size 4\n  /W [1 1 1]\n  /Index [3 1]\n", []byte{0x02, 0x07, 0x00})

	var b strings.Builder
	b.WriteString("%PDF-1.5\n")
	stmOff := b.Len()
	b.Write(stream)
	tableOff := b.Len()
	b.WriteString("xref\n0 2\n0000000000 65535 f \n0000000009 00000 n \n3 1\n0000000000 00000 f \n")
	fmt.Fprintf(&b, "trailer\n<< /Size 4 /Root 1 0 R /XRefStm %d >>\n", stmOff)

	tables, err := NewXRefParser([]byte(b.String())).ParseAllXRefs(int64(tableOff))
	if err != nil {
		t.Fatalf("ParseAllXRefs() error = %v", err)
	}
	merged := MergeXRefTables(tables...)

	entry, ok := merged.Get(3)
	if !ok || entry.Type != XRefEntryCompressed || entry.StreamObj != 7 {
		t.Errorf("object 3 = %+v, want compressed in stream 7", entry)
	}
	if entry, _ := merged.Get(1); entry == nil || entry.Offset != 9 {
		t.Errorf("object 1 = %+v, want the table entry", entry)
	}
}

func TestMergeXRefTables(t *testing.T) {
	older := NewXRefTable()
	older.Set(1, &XRefEntry{Type: XRefEntryUncompressed, Offset: 10, InUse: true})
	older.Set(2, &XRefEntry{Type: XRefEntryUncompressed, Offset: 20, InUse: true})
	older.Trailer = Dict{"Size": Int(3), "Info": IndirectRef{5, 0}}

	newer := NewXRefTable()
	newer.Set(2, &XRefEntry{Type: XRefEntryFree, Generation: 1})
	newer.Trailer = Dict{"Size": Int(4)}

	merged := MergeXRefTables(older, newer)
	if e, _ := merged.Get(2); e.InUse {
		t.Error("object 2 should be freed by the newer section")
	}
	want := Dict{"Size": Int(4), "Info": IndirectRef{5, 0}}
	if diff := cmp.Diff(want, merged.Trailer); diff != "" {
		t.Errorf("trailer mismatch (-want +got):\n%s", diff)
	}
	if got := MergeXRefTables(); got.Size() != 0 {
		t.Errorf("empty merge Size() = %d", got.Size())
	}
}

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantRoot IndirectRef
		wantObjs []int
	}{
		{
			name: "trailer present",
			content: "%PDF-1.4\n1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n" +
				"2 0 obj << /Type /Pages /Kids [] /Count 0 >> endobj\n" +
				"trailer << /Root 1 0 R /Size 3 >>\n%%EOF",
			wantRoot: IndirectRef{1, 0},
			wantObjs: []int{1, 2},
		},
		{
			name: "catalog search",
			content: "%PDF-1.4\n4 0 obj << /Type /Pages /Kids [] /Count 0 >> endobj\n" +
				"7 0 obj << /Type /Catalog /Pages 4 0 R >> endobj\n",
			wantRoot: IndirectRef{7, 0},
			wantObjs: []int{4, 7},
		},
		{
			name: "later definition wins",
			content: "%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\n" +
				"1 0 obj << /Type /Catalog /V 2 >> endobj\n",
			wantRoot: IndirectRef{1, 0},
			wantObjs: []int{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewXRefParser([]byte(tt.content)).Reconstruct()
			if err != nil {
				t.Fatalf("Reconstruct() error = %v", err)
			}
			if root, _ := table.Trailer.GetIndirectRef("Root"); root != tt.wantRoot {
				t.Errorf("Root = %v, want %v", root, tt.wantRoot)
			}
			if diff := cmp.Diff(tt.wantObjs, table.ObjectNumbers()); diff != "" {
				t.Errorf("objects mismatch (-want +got):\n%s", diff)
			}
			for _, n := range tt.wantObjs {
				e, _ := table.Get(n)
				obj, err := NewParserAt([]byte(tt.content), e.Offset).ParseIndirectObject()
				if err != nil || obj.Ref.Number != n {
					t.Errorf("object %d offset %d does not parse: %v", n, e.Offset, err)
				}
			}
		})
	}

	if _, err := NewXRefParser([]byte("%PDF-1.4\nnothing here")).Reconstruct(); err == nil {
		t.Error("expected error for a file without objects")
	}
}

func TestReconstructObjectStream(t *testing.T) {
	catalog := "<< /Type /Catalog /Pages 4 0 R >>\n"
	header := fmt.Sprintf("5 0 6 %d ", len(catalog))
	data := header + catalog + "(packed)\n"

	var b strings.Builder
	b.WriteString("%PDF-1.5\n")
	b.WriteString("4 0 obj << /Type /Pages /Kids [] /Count 0 >> endobj\n")
	fmt.Fprintf(&b, "3 0 obj << /Type /ObjStm /N 2 /First %d /Length %d >> stream\n%s\nendstream endobj\n",
		len(header), len(data), data)
	b.WriteString("6 0 obj (direct) endobj\n")

	table, err := NewXRefParser([]byte(b.String())).Reconstruct()
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}
	if root, _ := table.Trailer.GetIndirectRef("Root"); root != (IndirectRef{Number: 5}) {
		t.Errorf("Root = %v, want 5 0 R from the object stream", root)
	}

	tests := []struct {
		num       int
		wantType  XRefEntryType
		wantIndex int
	}{
		{3, XRefEntryUncompressed, 0},
		{4, XRefEntryUncompressed, 0},
		{5, XRefEntryCompressed, 0},
		{6, XRefEntryUncompressed, 0},
	}
	for _, tt := range tests {
		e, ok := table.Get(tt.num)
		if !ok {
			t.Errorf("object %d missing", tt.num)
			continue
		}
		if e.Type != tt.wantType || e.StreamIndex != tt.wantIndex {
			t.Errorf("object %d entry = %+v, want type %v index %d", tt.num, e, tt.wantType, tt.wantIndex)
		}
		if e.Type == XRefEntryCompressed && e.StreamObj != 3 {
			t.Errorf("object %d in stream %d, want 3", tt.num, e.StreamObj)
		}
	}
}

func TestParseXRefsFromEOF(t *testing.T) {
	content, updatedOffset := incrementalPDF()
	tables, err := NewXRefParser([]byte(content)).ParseXRefsFromEOF()
	if err != nil {
		t.Fatalf("ParseXRefsFromEOF() error = %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("got %d sections, want 2", len(tables))
	}
	if e, ok := MergeXRefTables(tables...).Get(2); !ok || e.Offset != updatedOffset {
		t.Errorf("object 2 entry = %+v, want offset %d", e, updatedOffset)
	}

	if _, err := NewXRefParser([]byte("%PDF-1.4\nno xref")).ParseXRefsFromEOF(); err == nil {
		t.Error("expected error without startxref")
	}
}
