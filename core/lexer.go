package core

import (
	"bytes"
	"io"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenWhitespace
	TokenComment
	TokenKeyword     // true, false, null, obj, endobj, stream, endstream, etc.
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // R (after two numbers)
)

// String returns a readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenWhitespace:
		return "Whitespace"
	case TokenComment:
		return "Comment"
	case TokenKeyword:
		return "Keyword"
	case TokenInteger:
		return "Integer"
	case TokenReal:
		return "Real"
	case TokenString:
		return "String"
	case TokenHexString:
		return "HexString"
	case TokenName:
		return "Name"
	case TokenArrayStart:
		return "ArrayStart"
	case TokenArrayEnd:
		return "ArrayEnd"
	case TokenDictStart:
		return "DictStart"
	case TokenDictEnd:
		return "DictEnd"
	case TokenIndirectRef:
		return "IndirectRef"
	}
	return "Unknown"
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64 // offset of the first byte
}

// Lexer splits PDF bytes into tokens. It works on an in-memory slice so
// callers can reposition it and read raw stream data directly.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a lexer positioned at the start of data.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the current offset.
func (l *Lexer) Pos() int64 {
	return int64(l.pos)
}

// SetPos moves the lexer to offset, clamped to the data bounds.
func (l *Lexer) SetPos(offset int64) {
	switch {
	case offset < 0:
		l.pos = 0
	case offset > int64(len(l.data)):
		l.pos = len(l.data)
	default:
		l.pos = int(offset)
	}
}

// Data returns the underlying bytes.
func (l *Lexer) Data() []byte {
	return l.data
}

// NextToken returns the next token from the input. At the end of input it
// returns a TokenEOF token and a nil error.
func (l *Lexer) NextToken() (*Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.data) {
		return &Token{Type: TokenEOF, Pos: int64(l.pos)}, nil
	}

	b := l.data[l.pos]
	start := int64(l.pos)

	switch b {
	case '%':
		return l.readComment(), nil
	case '[':
		l.pos++
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: start}, nil
	case ']':
		l.pos++
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: start}, nil
	case '(':
		return l.readString()
	case '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return &Token{Type: TokenDictStart, Value: []byte("<<"), Pos: start}, nil
		}
		return l.readHexString()
	case '>':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return &Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: start}, nil
		}
		return nil, syntaxErrorf(start, "unexpected '>'")
	case '/':
		return l.readName()
	case ')', '{', '}':
		return nil, syntaxErrorf(start, "unexpected character %q", b)
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber(), nil
	}

	return l.readKeyword(), nil
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
}

// readComment reads a comment (% to end of line), consuming the EOL.
func (l *Lexer) readComment() *Token {
	start := l.pos
	for l.pos < len(l.data) && l.data[l.pos] != '\r' && l.data[l.pos] != '\n' {
		l.pos++
	}
	tok := &Token{Type: TokenComment, Value: l.data[start:l.pos], Pos: int64(start)}
	l.skipEOL()
	return tok
}

// readString reads a literal string, resolving escapes.
func (l *Lexer) readString() (*Token, error) {
	start := l.pos
	l.pos++ // (

	var buf bytes.Buffer
	depth := 1
	for {
		if l.pos >= len(l.data) {
			return nil, syntaxErrorf(int64(start), "unterminated string")
		}
		b := l.data[l.pos]
		l.pos++

		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return &Token{Type: TokenString, Value: buf.Bytes(), Pos: int64(start)}, nil
			}
			buf.WriteByte(b)
		case '\r':
			// An unescaped EOL in a string reads as a single LF.
			if l.pos < len(l.data) && l.data[l.pos] == '\n' {
				l.pos++
			}
			buf.WriteByte('\n')
		case '\\':
			if l.pos >= len(l.data) {
				return nil, syntaxErrorf(int64(start), "unterminated string")
			}
			next := l.data[l.pos]
			l.pos++
			switch next {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				val := next - '0'
				for i := 0; i < 2 && l.pos < len(l.data) && isOctalDigit(l.data[l.pos]); i++ {
					val = val*8 + (l.data[l.pos] - '0')
					l.pos++
				}
				buf.WriteByte(val)
			default:
				// Covers \( \) \\ and unknown escapes, which keep the character.
				buf.WriteByte(next)
			}
		default:
			buf.WriteByte(b)
		}
	}
}

// readHexString reads a hexadecimal string. The token value holds the
// digits with whitespace removed.
func (l *Lexer) readHexString() (*Token, error) {
	start := l.pos
	l.pos++ // <

	var buf bytes.Buffer
	for {
		if l.pos >= len(l.data) {
			return nil, syntaxErrorf(int64(start), "unterminated hex string")
		}
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			return &Token{Type: TokenHexString, Value: buf.Bytes(), Pos: int64(start)}, nil
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return nil, syntaxErrorf(int64(l.pos-1), "invalid hex digit %q", b)
		}
		buf.WriteByte(b)
	}
}

// readName reads a name object, decoding #xx escapes.
func (l *Lexer) readName() (*Token, error) {
	start := l.pos
	l.pos++ // /

	var buf bytes.Buffer
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
		if b == '#' && l.pos+1 < len(l.data) && isHexDigit(l.data[l.pos]) && isHexDigit(l.data[l.pos+1]) {
			buf.WriteByte(hexValue(l.data[l.pos])<<4 | hexValue(l.data[l.pos+1]))
			l.pos += 2
			continue
		}
		buf.WriteByte(b)
	}

	return &Token{Type: TokenName, Value: buf.Bytes(), Pos: int64(start)}, nil
}

// readNumber reads an integer or real number. Malformed numbers such as a
// lone sign read as zero, as most producers' readers do.
func (l *Lexer) readNumber() *Token {
	start := l.pos
	hasDecimal := false
	hasDigit := false

	if l.data[l.pos] == '-' || l.data[l.pos] == '+' {
		l.pos++
		// Tolerate doubled signs such as "--5".
		for l.pos < len(l.data) && (l.data[l.pos] == '-' || l.data[l.pos] == '+') {
			l.pos++
		}
	}
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if b == '.' && !hasDecimal {
			hasDecimal = true
		} else if isDigit(b) {
			hasDigit = true
		} else {
			break
		}
		l.pos++
	}

	value := normalizeNumber(l.data[start:l.pos], hasDigit)
	tokenType := TokenInteger
	if hasDecimal {
		tokenType = TokenReal
	}
	return &Token{Type: tokenType, Value: value, Pos: int64(start)}
}

func normalizeNumber(raw []byte, hasDigit bool) []byte {
	if !hasDigit {
		return []byte("0")
	}
	neg := false
	i := 0
	for i < len(raw) && (raw[i] == '-' || raw[i] == '+') {
		if raw[i] == '-' {
			neg = true
		}
		i++
	}
	if i <= 1 {
		return raw
	}
	out := append([]byte(nil), raw[i:]...)
	if neg {
		out = append([]byte{'-'}, out...)
	}
	return out
}

// readKeyword reads a run of regular characters: true, false, null, R,
// obj, endobj, stream, endstream, xref, trailer and so on.
func (l *Lexer) readKeyword() *Token {
	start := l.pos
	for l.pos < len(l.data) && !isWhitespace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		// A delimiter handled nowhere else; consume it so the caller
		// makes progress.
		l.pos++
	}
	value := l.data[start:l.pos]

	if len(value) == 1 && value[0] == 'R' {
		return &Token{Type: TokenIndirectRef, Value: value, Pos: int64(start)}
	}
	return &Token{Type: TokenKeyword, Value: value, Pos: int64(start)}
}

// skipEOL consumes one CRLF, LF or CR.
func (l *Lexer) skipEOL() {
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
}

// SkipStreamEOL consumes the end-of-line marker after the stream keyword.
// The PDF format requires CRLF or LF; a lone CR and stray spaces before the
// EOL are accepted too.
func (l *Lexer) SkipStreamEOL() {
	for l.pos < len(l.data) && (l.data[l.pos] == ' ' || l.data[l.pos] == '\t') {
		l.pos++
	}
	l.skipEOL()
}

// ReadBytes reads exactly n bytes of raw data.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || l.pos+n > len(l.data) {
		return nil, syntaxErrorf(int64(l.pos), "unexpected EOF: expected %d bytes, have %d", n, len(l.data)-l.pos)
	}
	data := l.data[l.pos : l.pos+n]
	l.pos += n
	return data, nil
}

// SkipBytes skips exactly n bytes.
func (l *Lexer) SkipBytes(n int) error {
	_, err := l.ReadBytes(n)
	return err
}

// Peek returns the next byte without consuming it.
func (l *Lexer) Peek() (byte, error) {
	if l.pos >= len(l.data) {
		return 0, io.EOF
	}
	return l.data[l.pos], nil
}

// ReadByte reads and returns a single byte.
func (l *Lexer) ReadByte() (byte, error) {
	if l.pos >= len(l.data) {
		return 0, io.EOF
	}
	b := l.data[l.pos]
	l.pos++
	return b, nil
}

func isWhitespace(b byte) bool {
	// PDF whitespace: space, tab, LF, CR, FF, null
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
