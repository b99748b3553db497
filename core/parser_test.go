package core

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Object
	}{
		{"null", "null", Null{}},
		{"true", "true", Bool(true)},
		{"false", "false", Bool(false)},
		{"integer", "42", Int(42)},
		{"negative", "-7", Int(-7)},
		{"real", "3.5", Real(3.5)},
		{"literal string", "(Hi)", String("Hi")},
		{"hex string", "<4869>", String("Hi")},
		{"odd hex string", "<486>", String("H`")},
		{"name", "/Type", Name("Type")},
		{"reference", "12 0 R", IndirectRef{Number: 12, Generation: 0}},
		{"array", "[1 2.5 /A (s)]", Array{Int(1), Real(2.5), Name("A"), String("s")}},
		{"array of refs", "[1 0 R 2 0 R]", Array{IndirectRef{1, 0}, IndirectRef{2, 0}}},
		{"array of ints", "[1 0 2]", Array{Int(1), Int(0), Int(2)}},
		{"nested array", "[[1] []]", Array{Array{Int(1)}, Array{}}},
		{"dict", "<</Type/Page/Count 3>>", Dict{"Type": Name("Page"), "Count": Int(3)}},
		{"dict with ref", "<< /Parent 4 0 R >>", Dict{"Parent": IndirectRef{4, 0}}},
		{"null values dropped", "<< /A null /B 1 >>", Dict{"B": Int(1)}},
		{"comments skipped", "[1 % one\n 2]", Array{Int(1), Int(2)}},
		{"nested dict", "<< /R << /F1 5 0 R >> >>", Dict{"R": Dict{"F1": IndirectRef{5, 0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser([]byte(tt.input)).ParseObject()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseObject() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseObjectSequence(t *testing.T) {
	p := NewParser([]byte("1 2 /N 3 0 R"))
	want := []Object{Int(1), Int(2), Name("N"), IndirectRef{3, 0}}
	for i, w := range want {
		got, err := p.ParseObject()
		if err != nil {
			t.Fatalf("object %d: %v", i, err)
		}
		if diff := cmp.Diff(w, got); diff != "" {
			t.Errorf("object %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	if _, err := p.ParseObject(); err != io.EOF {
		t.Errorf("at end: err = %v, want io.EOF", err)
	}
}

func TestParseObjectErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated array", "[1 2"},
		{"unterminated dict", "<< /A 1"},
		{"non-name key", "<< 1 2 >>"},
		{"unexpected keyword", "endobj"},
		{"array end", "]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser([]byte(tt.input)).ParseObject()
			var syn *SyntaxError
			if !errors.As(err, &syn) {
				t.Errorf("expected *SyntaxError, got %v", err)
			}
		})
	}
}

func TestParseMaxDepth(t *testing.T) {
	deep := strings.Repeat("[", MaxDepth+1) + strings.Repeat("]", MaxDepth+1)
	_, err := NewParser([]byte(deep)).ParseObject()
	if !errors.Is(err, ErrMaxDepth) {
		t.Errorf("depth %d: err = %v, want ErrMaxDepth", MaxDepth+1, err)
	}

	ok := strings.Repeat("[", MaxDepth) + strings.Repeat("]", MaxDepth)
	if _, err := NewParser([]byte(ok)).ParseObject(); err != nil {
		t.Errorf("depth %d: unexpected error %v", MaxDepth, err)
	}

	dicts := strings.Repeat("<</A ", MaxDepth+1) + "1" + strings.Repeat(">>", MaxDepth+1)
	if _, err := NewParser([]byte(dicts)).ParseObject(); !errors.Is(err, ErrMaxDepth) {
		t.Errorf("nested dicts: err = %v, want ErrMaxDepth", err)
	}
}

func TestParseIndirectObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ref   IndirectRef
		want  Object
	}{
		{"integer", "5 0 obj 42 endobj", IndirectRef{5, 0}, Int(42)},
		{"dict", "7 1 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj", IndirectRef{7, 1},
			Dict{"Type": Name("Catalog"), "Pages": IndirectRef{2, 0}}},
		{"missing endobj", "3 0 obj (text)\n4 0 obj", IndirectRef{3, 0}, String("text")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := NewParser([]byte(tt.input)).ParseIndirectObject()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if obj.Ref != tt.ref {
				t.Errorf("Ref = %v, want %v", obj.Ref, tt.ref)
			}
			if diff := cmp.Diff(tt.want, obj.Object); diff != "" {
				t.Errorf("object mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseIndirectObjectErrors(t *testing.T) {
	for _, input := range []string{"obj 1", "1 obj", "1 0 ob 5", "1 0 obj <</A 1>> stream"} {
		if _, err := NewParser([]byte(input)).ParseIndirectObject(); err == nil {
			t.Errorf("%q: expected error", input)
		}
	}
}

func TestParseStream(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		want         string
		wantFallback bool
	}{
		{
			name:  "exact length LF",
			input: "1 0 obj\n<< /Length 5 >>\nstream\nHello\nendstream\nendobj",
			want:  "Hello",
		},
		{
			name:  "exact length CRLF",
			input: "1 0 obj\r\n<< /Length 5 >>\r\nstream\r\nHello\r\nendstream\r\nendobj",
			want:  "Hello",
		},
		{
			name:  "binary with endstream-like bytes inside length",
			input: "1 0 obj << /Length 13 >> stream\nab endstream!\nendstream endobj",
			want:  "ab endstream!",
		},
		{
			name:         "length too short",
			input:        "1 0 obj << /Length 2 >> stream\nHello\nendstream endobj",
			want:         "Hello",
			wantFallback: true,
		},
		{
			name:         "length too long",
			input:        "1 0 obj << /Length 500 >> stream\nHello\r\nendstream endobj",
			want:         "Hello",
			wantFallback: true,
		},
		{
			name:         "length past the end of the file",
			input:        "1 0 obj\n<< /Length 9223372036854775807 >>\nstream\nabc\nendstream\nendobj\n",
			want:         "abc",
			wantFallback: true,
		},
		{
			name:         "missing length",
			input:        "1 0 obj << >> stream\nHello\nendstream endobj",
			want:         "Hello",
			wantFallback: true,
		},
		{
			name:         "unresolvable indirect length",
			input:        "1 0 obj << /Length 9 0 R >> stream\nHello\nendstream endobj",
			want:         "Hello",
			wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser([]byte(tt.input))
			fellBack := false
			p.OnLengthFallback = func(offset int64, reason string) { fellBack = true }

			obj, err := p.ParseIndirectObject()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			stream, ok := obj.Object.(*Stream)
			if !ok {
				t.Fatalf("expected *Stream, got %T", obj.Object)
			}
			if string(stream.Data) != tt.want {
				t.Errorf("Data = %q, want %q", stream.Data, tt.want)
			}
			if fellBack != tt.wantFallback {
				t.Errorf("fallback = %v, want %v", fellBack, tt.wantFallback)
			}
		})
	}
}

type mapResolver map[IndirectRef]Object

func (m mapResolver) ResolveReference(ref IndirectRef) (Object, error) {
	if obj, ok := m[ref]; ok {
		return obj, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrNotFound, ref)
}

func TestParseStreamIndirectLength(t *testing.T) {
	p := NewParser([]byte("1 0 obj << /Length 9 0 R >> stream\nHello world\nendstream endobj"))
	p.SetReferenceResolver(mapResolver{{9, 0}: Int(11)})
	p.OnLengthFallback = func(int64, string) { t.Error("unexpected length fallback") }

	obj, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(obj.Object.(*Stream).Data); got != "Hello world" {
		t.Errorf("Data = %q, want %q", got, "Hello world")
	}
}

func TestParseStreamNoEndstream(t *testing.T) {
	for _, length := range []string{"50", "9223372036854775807"} {
		_, err := NewParser([]byte("1 0 obj << /Length " + length + " >> stream\nHello")).ParseIndirectObject()
		var syn *SyntaxError
		if !errors.As(err, &syn) {
			t.Errorf("Length %s: expected *SyntaxError, got %v", length, err)
		}
	}
}

func TestParseStreamDataIsCopied(t *testing.T) {
	data := []byte("1 0 obj << /Length 3 >> stream\nabc\nendstream endobj")
	obj, err := NewParser(data).ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range data {
		data[i] = 'x'
	}
	if got := string(obj.Object.(*Stream).Data); got != "abc" {
		t.Errorf("stream data changed with the source buffer: %q", got)
	}
}

func TestNewParserAt(t *testing.T) {
	data := []byte("junk junk 2 0 obj /Name endobj")
	p := NewParserAt(data, 10)
	obj, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.Ref.Number != 2 || obj.Object != Name("Name") {
		t.Errorf("got %v %v", obj.Ref, obj.Object)
	}
}
