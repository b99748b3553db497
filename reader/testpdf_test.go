package reader

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// pdfBuilder writes synthetic PDF files, keeping track of object offsets
// so the cross-reference data it writes is exact.
type pdfBuilder struct {
	buf        bytes.Buffer
	offsets    map[int]int
	gens       map[int]int
	compressed map[int][2]int // object -> container, index
	pending    []int          // objects written since the last xref section
	lastXRef   int
	maxNum     int

	deflateXRef bool // compress xref streams with FlateDecode
}

// member is one object stored in an object stream.
type member struct {
	num  int
	body string
}

func newPDF(version string) *pdfBuilder {
	b := &pdfBuilder{
		offsets:    make(map[int]int),
		gens:       make(map[int]int),
		compressed: make(map[int][2]int),
		lastXRef:   -1,
	}
	fmt.Fprintf(&b.buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", version)
	return b
}

func (b *pdfBuilder) track(num, gen int) {
	b.offsets[num] = b.buf.Len()
	b.gens[num] = gen
	b.pending = append(b.pending, num)
	if num > b.maxNum {
		b.maxNum = num
	}
}

// obj writes "num 0 obj body endobj".
func (b *pdfBuilder) obj(num int, body string) *pdfBuilder {
	return b.objGen(num, 0, body)
}

func (b *pdfBuilder) objGen(num, gen int, body string) *pdfBuilder {
	b.track(num, gen)
	fmt.Fprintf(&b.buf, "%d %d obj\n%s\nendobj\n", num, gen, body)
	return b
}

// stream writes a stream object; dict holds extra entries and /Length is
// added.
func (b *pdfBuilder) stream(num int, dict string, data []byte) *pdfBuilder {
	b.track(num, 0)
	fmt.Fprintf(&b.buf, "%d 0 obj\n<<%s /Length %d>>\nstream\n", num, dict, len(data))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
	return b
}

// raw appends bytes as they are.
func (b *pdfBuilder) raw(s string) *pdfBuilder {
	b.buf.WriteString(s)
	return b
}

// objStm writes an object stream holding members.
func (b *pdfBuilder) objStm(num int, members ...member) *pdfBuilder {
	var header, body strings.Builder
	for i, m := range members {
		fmt.Fprintf(&header, "%d %d ", m.num, body.Len())
		body.WriteString(m.body)
		body.WriteString("\n")
		b.compressed[m.num] = [2]int{num, i}
		if m.num > b.maxNum {
			b.maxNum = m.num
		}
	}
	dict := fmt.Sprintf(" /Type /ObjStm /N %d /First %d", len(members), header.Len())
	return b.stream(num, dict, []byte(header.String()+body.String()))
}

// xrefTable writes a classic table covering every object so far, then the
// trailer and startxref. trailer holds extra trailer entries.
func (b *pdfBuilder) xrefTable(trailer string) []byte {
	start := b.buf.Len()
	size := b.maxNum + 1
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", size)
	for i := 0; i < size; i++ {
		if off, ok := b.offsets[i]; ok {
			fmt.Fprintf(&b.buf, "%010d %05d n \n", off, b.gens[i])
		} else {
			b.buf.WriteString("0000000000 65535 f \n")
		}
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", size, trailer, start)
	b.lastXRef = start
	b.pending = nil
	return b.bytes()
}

// update writes an incremental xref section for the objects written since
// the previous section, chained with /Prev.
func (b *pdfBuilder) update(trailer string) []byte {
	start := b.buf.Len()
	nums := append([]int(nil), b.pending...)
	sort.Ints(nums)
	b.buf.WriteString("xref\n")
	for _, n := range nums {
		fmt.Fprintf(&b.buf, "%d 1\n%010d %05d n \n", n, b.offsets[n], b.gens[n])
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Prev %d %s >>\nstartxref\n%d\n%%%%EOF\n",
		b.maxNum+1, b.lastXRef, trailer, start)
	b.lastXRef = start
	b.pending = nil
	return b.bytes()
}

// xrefStream writes a cross-reference stream as object num, with W [1 4 2],
// covering every object including compressed ones.
func (b *pdfBuilder) xrefStream(num int, trailer string) []byte {
	start := b.buf.Len()
	if num > b.maxNum {
		b.maxNum = num
	}
	b.offsets[num] = start
	size := b.maxNum + 1

	var data bytes.Buffer
	field := func(typ byte, f2 uint32, f3 uint16) {
		data.WriteByte(typ)
		binary.Write(&data, binary.BigEndian, f2)
		binary.Write(&data, binary.BigEndian, f3)
	}
	for i := 0; i < size; i++ {
		if off, ok := b.offsets[i]; ok {
			field(1, uint32(off), uint16(b.gens[i]))
		} else if c, ok := b.compressed[i]; ok {
			field(2, uint32(c[0]), uint16(c[1]))
		} else {
			field(0, 0, 0xFFFF)
		}
	}

	body := data.Bytes()
	if b.deflateXRef {
		var z bytes.Buffer
		w := zlib.NewWriter(&z)
		w.Write(body)
		w.Close()
		body = z.Bytes()
		trailer += " /Filter /FlateDecode"
	}
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 2] %s /Length %d >>\nstream\n",
		num, size, trailer, len(body))
	b.buf.Write(body)
	fmt.Fprintf(&b.buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", start)
	b.lastXRef = start
	return b.bytes()
}

func (b *pdfBuilder) bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// minimalDoc is a catalog, a page tree with one page and an empty content
// stream.
func minimalDoc() *pdfBuilder {
	return newPDF("1.4").
		obj(1, "<< /Type /Catalog /Pages 2 0 R >>").
		obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>").
		obj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << >> >>").
		stream(4, "", nil)
}

// writeTemp writes data to a file in a test temp directory.
func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func mustOpen(t *testing.T, data []byte, opts ...Option) *Reader {
	t.Helper()
	r, err := NewReader(data, opts...)
	if err != nil {
		t.Fatalf("NewReader() error: %v", err)
	}
	return r
}
