package core

import (
	"errors"
	"testing"
)

func TestTokenTypeString(t *testing.T) {
	tests := []struct {
		token TokenType
		want  string
	}{
		{TokenEOF, "EOF"},
		{TokenComment, "Comment"},
		{TokenKeyword, "Keyword"},
		{TokenInteger, "Integer"},
		{TokenReal, "Real"},
		{TokenString, "String"},
		{TokenHexString, "HexString"},
		{TokenName, "Name"},
		{TokenArrayStart, "ArrayStart"},
		{TokenArrayEnd, "ArrayEnd"},
		{TokenDictStart, "DictStart"},
		{TokenDictEnd, "DictEnd"},
		{TokenIndirectRef, "IndirectRef"},
		{TokenType(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.token.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLexerEOF(t *testing.T) {
	for _, input := range []string{"", "   \t\n\r  ", "\x00\f"} {
		token, err := NewLexer([]byte(input)).NextToken()
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", input, err)
		}
		if token.Type != TokenEOF {
			t.Errorf("%q: expected TokenEOF, got %v", input, token.Type)
		}
	}
}

func TestLexerComments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple comment", "%PDF-1.7", "%PDF-1.7"},
		{"comment with LF", "%comment\n", "%comment"},
		{"comment with CR", "%comment\r", "%comment"},
		{"comment with CRLF", "%comment\r\n", "%comment"},
		{"empty comment", "%\n", "%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := NewLexer([]byte(tt.input)).NextToken()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token.Type != TokenComment {
				t.Fatalf("expected TokenComment, got %v", token.Type)
			}
			if string(token.Value) != tt.expected {
				t.Errorf("comment = %q, want %q", token.Value, tt.expected)
			}
		})
	}
}

func TestLexerLiteralStrings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "(Hello)", "Hello"},
		{"empty", "()", ""},
		{"balanced parens", "(a (b) c)", "a (b) c"},
		{"escaped parens", `(a \( b \))`, "a ( b )"},
		{"escapes", `(\n\r\t\b\f\\)`, "\n\r\t\b\f\\"},
		{"octal", `(\101\102\7)`, "AB\a"},
		{"octal stops at three digits", `(\1011)`, "A1"},
		{"unknown escape keeps char", `(\q)`, "q"},
		{"line continuation LF", "(ab\\\ncd)", "abcd"},
		{"line continuation CRLF", "(ab\\\r\ncd)", "abcd"},
		{"bare CRLF reads as LF", "(ab\r\ncd)", "ab\ncd"},
		{"bare CR reads as LF", "(ab\rcd)", "ab\ncd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := NewLexer([]byte(tt.input)).NextToken()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token.Type != TokenString {
				t.Fatalf("expected TokenString, got %v", token.Type)
			}
			if string(token.Value) != tt.want {
				t.Errorf("value = %q, want %q", token.Value, tt.want)
			}
		})
	}
}

func TestLexerHexStrings(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "<48656C6C6F>", "48656C6C6F", false},
		{"whitespace", "<48 65\n6C>", "48656C", false},
		{"empty", "<>", "", false},
		{"invalid digit", "<4G>", "", true},
		{"unterminated", "<4865", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := NewLexer([]byte(tt.input)).NextToken()
			if tt.wantErr {
				var syn *SyntaxError
				if !errors.As(err, &syn) {
					t.Fatalf("expected *SyntaxError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token.Type != TokenHexString || string(token.Value) != tt.want {
				t.Errorf("got %v %q, want HexString %q", token.Type, token.Value, tt.want)
			}
		})
	}
}

func TestLexerNames(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/Type", "Type"},
		{"/A#20B", "A B"},
		{"/#2F", "/"},
		{"/", ""},
		{"/Name/Other", "Name"},
		{"/Bad#G1", "Bad#G1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			token, err := NewLexer([]byte(tt.input)).NextToken()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token.Type != TokenName || string(token.Value) != tt.want {
				t.Errorf("got %v %q, want Name %q", token.Type, token.Value, tt.want)
			}
		})
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input    string
		wantType TokenType
		want     string
	}{
		{"123", TokenInteger, "123"},
		{"-17", TokenInteger, "-17"},
		{"+5", TokenInteger, "+5"},
		{"3.14", TokenReal, "3.14"},
		{"-.5", TokenReal, "-.5"},
		{"4.", TokenReal, "4."},
		{"--5", TokenInteger, "-5"},
		{"-", TokenInteger, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			token, err := NewLexer([]byte(tt.input)).NextToken()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token.Type != tt.wantType || string(token.Value) != tt.want {
				t.Errorf("got %v %q, want %v %q", token.Type, token.Value, tt.wantType, tt.want)
			}
		})
	}
}

func TestLexerSequence(t *testing.T) {
	input := "<< /Type /Page /Kids [1 0 R] >> % note\nendobj"
	want := []TokenType{
		TokenDictStart, TokenName, TokenName, TokenName,
		TokenArrayStart, TokenInteger, TokenInteger, TokenIndirectRef, TokenArrayEnd,
		TokenDictEnd, TokenComment, TokenKeyword, TokenEOF,
	}

	lexer := NewLexer([]byte(input))
	for i, w := range want {
		tok, err := lexer.NextToken()
		if err != nil {
			t.Fatalf("token %d: unexpected error: %v", i, err)
		}
		if tok.Type != w {
			t.Fatalf("token %d = %v %q, want %v", i, tok.Type, tok.Value, w)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	lexer := NewLexer([]byte("  /A 12"))
	tok, _ := lexer.NextToken()
	if tok.Pos != 2 {
		t.Errorf("first token Pos = %d, want 2", tok.Pos)
	}
	tok, _ = lexer.NextToken()
	if tok.Pos != 5 {
		t.Errorf("second token Pos = %d, want 5", tok.Pos)
	}

	lexer.SetPos(2)
	tok, _ = lexer.NextToken()
	if string(tok.Value) != "A" {
		t.Errorf("after SetPos(2) got %q, want A", tok.Value)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", "(abc"},
		{"stray close paren", ")"},
		{"stray greater-than", "> "},
		{"brace", "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexer([]byte(tt.input)).NextToken()
			var syn *SyntaxError
			if !errors.As(err, &syn) {
				t.Errorf("expected *SyntaxError, got %v", err)
			}
		})
	}
}

func TestSkipStreamEOL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"LF", "\nDATA", 1},
		{"CRLF", "\r\nDATA", 2},
		{"lone CR", "\rDATA", 1},
		{"spaces then LF", "  \nDATA", 3},
		{"no EOL", "DATA", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := NewLexer([]byte(tt.input))
			lexer.SkipStreamEOL()
			if lexer.Pos() != tt.want {
				t.Errorf("Pos() = %d, want %d", lexer.Pos(), tt.want)
			}
		})
	}
}

func TestLexerRawAccess(t *testing.T) {
	lexer := NewLexer([]byte("abcdef"))
	b, err := lexer.ReadByte()
	if err != nil || b != 'a' {
		t.Fatalf("ReadByte() = %q, %v", b, err)
	}
	if p, _ := lexer.Peek(); p != 'b' {
		t.Errorf("Peek() = %q, want 'b'", p)
	}
	data, err := lexer.ReadBytes(3)
	if err != nil || string(data) != "bcd" {
		t.Fatalf("ReadBytes(3) = %q, %v", data, err)
	}
	if err := lexer.SkipBytes(5); err == nil {
		t.Error("SkipBytes past end should fail")
	}
}
