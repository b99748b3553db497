package contentstream

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/tsawler/pdfengine/core"
)

// Operation is one operator and the operands that preceded it.
type Operation struct {
	Operator string
	Operands []core.Object
	Offset   int64 // position of the operator keyword
}

// Parser tokenizes a content stream into operations. Each parser owns its
// operand stack, so parsers may run concurrently on different streams.
type Parser struct {
	data     []byte
	pos      int
	operands []core.Object
}

// NewParser creates a parser over data.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Offset returns the current read position.
func (p *Parser) Offset() int64 {
	return int64(p.pos)
}

// Next returns the next operation, or io.EOF once the data is exhausted.
// Operands left over at the end without an operator are dropped.
//
// A malformed token yields a *core.SyntaxError and discards the pending
// operands. The parser skips one byte past the point of failure, so
// calling Next again resynchronizes on the following token.
func (p *Parser) Next() (Operation, error) {
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			p.operands = p.operands[:0]
			return Operation{}, io.EOF
		}

		start := p.pos
		c := p.data[p.pos]
		if isLetter(c) || c == '\'' || c == '"' {
			op, err := p.parseOperator()
			if err != nil {
				return Operation{}, p.fail(start, err)
			}
			if op.Operator == "true" || op.Operator == "false" || op.Operator == "null" {
				p.operands = append(p.operands, keywordValue(op.Operator))
				continue
			}
			return op, nil
		}

		operand, err := p.parseOperand(0)
		if err != nil {
			return Operation{}, p.fail(start, err)
		}
		p.operands = append(p.operands, operand)
	}
}

// Parse returns every operation in the stream. On error it returns the
// operations read so far along with the error.
func (p *Parser) Parse() ([]Operation, error) {
	var ops []Operation
	for {
		op, err := p.Next()
		if err == io.EOF {
			return ops, nil
		}
		if err != nil {
			return ops, err
		}
		ops = append(ops, op)
	}
}

func (p *Parser) fail(start int, err error) error {
	p.operands = p.operands[:0]
	p.pos = start + 1
	if se, ok := err.(*core.SyntaxError); ok {
		return se
	}
	return &core.SyntaxError{Offset: int64(start), Msg: "content stream", Err: err}
}

// parseOperator reads a keyword and, unless it is true/false/null, turns
// the pending operands into an Operation.
func (p *Parser) parseOperator() (Operation, error) {
	start := p.pos
	for p.pos < len(p.data) && isRegular(p.data[p.pos]) {
		p.pos++
	}
	operator := string(p.data[start:p.pos])

	switch operator {
	case "true", "false", "null":
		return Operation{Operator: operator}, nil
	}

	op := Operation{
		Operator: operator,
		Operands: make([]core.Object, len(p.operands)),
		Offset:   int64(start),
	}
	copy(op.Operands, p.operands)
	p.operands = p.operands[:0]

	if operator == "BI" {
		img, err := p.parseInlineImage()
		if err != nil {
			return Operation{}, err
		}
		op.Operands = []core.Object{img}
	}
	return op, nil
}

func keywordValue(kw string) core.Object {
	switch kw {
	case "true":
		return core.Bool(true)
	case "false":
		return core.Bool(false)
	}
	return core.Null{}
}

// parseOperand parses a number, string, name, array, dictionary, boolean
// or null. depth counts enclosing arrays and dictionaries.
func (p *Parser) parseOperand(depth int) (core.Object, error) {
	p.skipWhitespace()
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("unexpected end of stream")
	}

	c := p.data[p.pos]
	switch {
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case c == '(':
		return p.parseString()
	case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
		return p.parseDict(depth + 1)
	case c == '<':
		return p.parseHexString()
	case c == '/':
		return p.parseName()
	case c == '[':
		return p.parseArray(depth + 1)
	case isLetter(c):
		start := p.pos
		for p.pos < len(p.data) && isRegular(p.data[p.pos]) {
			p.pos++
		}
		switch kw := string(p.data[start:p.pos]); kw {
		case "true", "false", "null":
			return keywordValue(kw), nil
		default:
			p.pos = start
			return nil, fmt.Errorf("operator %q inside an operand", kw)
		}
	}
	return nil, fmt.Errorf("unexpected character %q", c)
}

// parseNumber parses an integer or real. A lone sign or point reads as 0,
// the way most consumers treat it.
func (p *Parser) parseNumber() (core.Object, error) {
	start := p.pos
	hasDecimal := false

	if p.data[p.pos] == '+' || p.data[p.pos] == '-' {
		p.pos++
		// Some producers write "--5".
		for p.pos < len(p.data) && p.data[p.pos] == '-' {
			p.pos++
		}
	}
	digits := p.pos
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
		} else if c == '.' && !hasDecimal {
			hasDecimal = true
			p.pos++
		} else {
			break
		}
	}
	if p.pos < len(p.data) && isRegular(p.data[p.pos]) {
		return nil, fmt.Errorf("malformed number %q", p.data[start:p.pos+1])
	}

	body := string(p.data[digits:p.pos])
	neg := p.data[start] == '-'
	if body == "" || body == "." {
		return core.Int(0), nil
	}

	if hasDecimal {
		val, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number %q: %w", body, err)
		}
		if neg {
			val = -val
		}
		return core.Real(val), nil
	}

	val, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		// Out of int64 range.
		f, ferr := strconv.ParseFloat(body, 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", body, err)
		}
		if neg {
			f = -f
		}
		return core.Real(f), nil
	}
	if neg {
		val = -val
	}
	return core.Int(val), nil
}

// parseString parses a literal string with escapes and balanced
// parentheses.
func (p *Parser) parseString() (core.Object, error) {
	p.pos++ // (

	var result bytes.Buffer
	depth := 1
	for p.pos < len(p.data) && depth > 0 {
		c := p.data[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.data):
			p.pos++
			next := p.data[p.pos]
			p.pos++
			switch next {
			case 'n':
				result.WriteByte('\n')
			case 'r':
				result.WriteByte('\r')
			case 't':
				result.WriteByte('\t')
			case 'b':
				result.WriteByte('\b')
			case 'f':
				result.WriteByte('\f')
			case '\r':
				// Line continuation.
				if p.pos < len(p.data) && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := int(next - '0')
				for i := 0; i < 2 && p.pos < len(p.data); i++ {
					d := p.data[p.pos]
					if d < '0' || d > '7' {
						break
					}
					v = v*8 + int(d-'0')
					p.pos++
				}
				result.WriteByte(byte(v))
			default:
				// Covers \( \) \\ and unknown escapes, which drop the
				// backslash.
				result.WriteByte(next)
			}
		case c == '(':
			depth++
			result.WriteByte(c)
			p.pos++
		case c == ')':
			depth--
			if depth > 0 {
				result.WriteByte(c)
			}
			p.pos++
		default:
			result.WriteByte(c)
			p.pos++
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unclosed string")
	}
	return core.String(result.String()), nil
}

// parseHexString parses <...>. Whitespace is ignored and an odd final
// digit is padded with 0.
func (p *Parser) parseHexString() (core.Object, error) {
	p.pos++ // <

	var result bytes.Buffer
	var hi byte
	half := false
	for {
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unclosed hex string")
		}
		c := p.data[p.pos]
		p.pos++
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		if !isHexDigit(c) {
			return nil, fmt.Errorf("invalid hex digit %q", c)
		}
		if half {
			result.WriteByte(hi<<4 | hexValue(c))
		} else {
			hi = hexValue(c)
		}
		half = !half
	}
	if half {
		result.WriteByte(hi << 4)
	}
	return core.String(result.String()), nil
}

// parseName parses /Name, decoding #xx escapes.
func (p *Parser) parseName() (core.Object, error) {
	p.pos++ // /

	var result bytes.Buffer
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if !isRegular(c) {
			break
		}
		if c == '#' && p.pos+2 < len(p.data) && isHexDigit(p.data[p.pos+1]) && isHexDigit(p.data[p.pos+2]) {
			result.WriteByte(hexValue(p.data[p.pos+1])<<4 | hexValue(p.data[p.pos+2]))
			p.pos += 3
			continue
		}
		result.WriteByte(c)
		p.pos++
	}
	return core.Name(result.String()), nil
}

func (p *Parser) parseArray(depth int) (core.Object, error) {
	if depth > core.MaxDepth {
		return nil, core.ErrMaxDepth
	}
	p.pos++ // [

	arr := core.Array{}
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unclosed array")
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		obj, err := p.parseOperand(depth)
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict(depth int) (core.Object, error) {
	if depth > core.MaxDepth {
		return nil, core.ErrMaxDepth
	}
	p.pos += 2 // <<

	dict := make(core.Dict)
	for {
		p.skipWhitespace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unclosed dictionary")
		}
		if p.data[p.pos] == '>' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '>' {
			p.pos += 2
			return dict, nil
		}
		if p.data[p.pos] != '/' {
			return nil, fmt.Errorf("dictionary key must be a name")
		}
		key, _ := p.parseName()
		value, err := p.parseOperand(depth)
		if err != nil {
			return nil, err
		}
		dict[string(key.(core.Name))] = value
	}
}

// skipWhitespace advances past whitespace and comments.
func (p *Parser) skipWhitespace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isWhitespace(c) {
			p.pos++
			continue
		}
		if c == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		return
	}
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDelimiter(c byte) bool {
	return c == '(' || c == ')' || c == '<' || c == '>' ||
		c == '[' || c == ']' || c == '{' || c == '}' ||
		c == '/' || c == '%'
}

// isRegular reports whether c can appear inside a keyword or name.
func isRegular(c byte) bool {
	return !isWhitespace(c) && !isDelimiter(c)
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
