package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver is an interface for resolving indirect references.
// This allows the parser to resolve indirect stream lengths when needed.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser parses PDF objects from a byte slice using a Lexer for
// tokenization. It supports parsing all PDF object types including indirect
// objects and streams.
type Parser struct {
	lexer        *Lexer
	currentToken *Token // Current token being processed
	peekToken    *Token // Next token (lookahead)
	lexErr       error  // error from filling the lookahead
	resolver     ReferenceResolver
	depth        int

	// OnLengthFallback, when set, is called for each stream whose /Length
	// was unusable and which was bounded by scanning for endstream.
	OnLengthFallback func(offset int64, reason string)
}

// SetReferenceResolver sets the reference resolver for the parser.
// This is needed to resolve indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// NewParser creates a parser over data, positioned at its start.
func NewParser(data []byte) *Parser {
	return NewParserAt(data, 0)
}

// NewParserAt creates a parser over data positioned at offset.
func NewParserAt(data []byte, offset int64) *Parser {
	p := &Parser{lexer: NewLexer(data)}
	p.lexer.SetPos(offset)
	p.reset()
	return p
}

// reset reloads the lookahead from the lexer's current position.
func (p *Parser) reset() {
	p.currentToken = nil
	p.peekToken = nil
	p.lexErr = nil
	p.nextToken()
	p.nextToken()
}

// Pos returns the offset of the current token.
func (p *Parser) Pos() int64 {
	if p.currentToken != nil {
		return p.currentToken.Pos
	}
	return p.lexer.Pos()
}

// nextToken advances the parser to the next token by shifting the lookahead.
func (p *Parser) nextToken() {
	p.currentToken = p.peekToken

	// Stream data follows the stream keyword and cannot be tokenized;
	// parseStream reads it directly from the lexer.
	if p.currentToken != nil && p.currentToken.Type == TokenKeyword &&
		string(p.currentToken.Value) == "stream" {
		p.peekToken = nil
		return
	}
	if p.lexErr != nil {
		p.peekToken = nil
		return
	}

	token, err := p.lexer.NextToken()
	if err != nil {
		p.lexErr = err
		p.peekToken = nil
		return
	}
	p.peekToken = token
}

// current returns the current token, or the pending lexer error.
func (p *Parser) current() (*Token, error) {
	if p.currentToken == nil {
		if p.lexErr != nil {
			return nil, p.lexErr
		}
		return nil, syntaxErrorf(p.lexer.Pos(), "unexpected end of input")
	}
	return p.currentToken, nil
}

// skipComments skips over any consecutive comment tokens.
func (p *Parser) skipComments() {
	for p.currentToken != nil && p.currentToken.Type == TokenComment {
		p.nextToken()
	}
}

// ParseObject parses and returns the next PDF object from the input.
// It handles all PDF object types: null, boolean, integer, real, string,
// name, array, dictionary, and indirect references. At the end of input it
// returns io.EOF.
func (p *Parser) ParseObject() (Object, error) {
	p.skipComments()

	tok, err := p.current()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF

	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			p.nextToken()
			return Null{}, nil
		case "true":
			p.nextToken()
			return Bool(true), nil
		case "false":
			p.nextToken()
			return Bool(false), nil
		}
		return nil, syntaxErrorf(tok.Pos, "unexpected keyword %q", tok.Value)

	case TokenInteger:
		return p.parseNumber()

	case TokenReal:
		val, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, &SyntaxError{Offset: tok.Pos, Msg: "invalid real number", Err: err}
		}
		p.nextToken()
		return Real(val), nil

	case TokenString:
		p.nextToken()
		return String(tok.Value), nil

	case TokenHexString:
		p.nextToken()
		return String(decodeHexDigits(tok.Value)), nil

	case TokenName:
		p.nextToken()
		return Name(tok.Value), nil

	case TokenArrayStart:
		return p.parseArray()

	case TokenDictStart:
		return p.parseDict()
	}

	return nil, syntaxErrorf(tok.Pos, "unexpected token %v", tok.Type)
}

// decodeHexDigits converts validated hex digits to bytes, padding an odd
// final digit with 0.
func decodeHexDigits(digits []byte) []byte {
	out := make([]byte, (len(digits)+1)/2)
	for i, d := range digits {
		if i%2 == 0 {
			out[i/2] = hexValue(d) << 4
		} else {
			out[i/2] |= hexValue(d)
		}
	}
	return out
}

// parseNumber parses an integer, real number, or indirect reference.
// Indirect references are detected by lookahead: "num gen R" pattern.
func (p *Parser) parseNumber() (Object, error) {
	tok := p.currentToken
	firstInt, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(tok.Value), 64)
		if ferr != nil {
			return nil, syntaxErrorf(tok.Pos, "invalid number %q", tok.Value)
		}
		p.nextToken()
		return Real(f), nil
	}

	if p.peekToken != nil && p.peekToken.Type == TokenInteger && firstInt >= 0 {
		secondInt, err := strconv.ParseInt(string(p.peekToken.Value), 10, 64)
		if err == nil {
			// Move to the second integer; the lookahead now shows
			// whether an R follows.
			p.nextToken()
			if p.peekToken != nil && p.peekToken.Type == TokenIndirectRef {
				p.nextToken()
				p.nextToken()
				return IndirectRef{Number: int(firstInt), Generation: int(secondInt)}, nil
			}
			// Not a reference: the second integer stays current.
			return Int(firstInt), nil
		}
	}

	p.nextToken()
	return Int(firstInt), nil
}

func (p *Parser) enter(pos int64) error {
	p.depth++
	if p.depth > MaxDepth {
		return &SyntaxError{Offset: pos, Msg: "nesting too deep", Err: ErrMaxDepth}
	}
	return nil
}

// parseArray parses a PDF array "[obj1 obj2 ...]".
func (p *Parser) parseArray() (Object, error) {
	start := p.currentToken.Pos
	if err := p.enter(start); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	p.nextToken()

	arr := Array{}
	for {
		p.skipComments()
		tok, err := p.current()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			p.nextToken()
			return arr, nil
		case TokenEOF:
			return nil, syntaxErrorf(start, "unterminated array")
		}

		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

// parseDict parses a PDF dictionary "<< /Key value ... >>".
func (p *Parser) parseDict() (Object, error) {
	start := p.currentToken.Pos
	if err := p.enter(start); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()
	p.nextToken()

	dict := make(Dict)
	for {
		p.skipComments()
		tok, err := p.current()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			p.nextToken()
			return dict, nil
		case TokenEOF:
			return nil, syntaxErrorf(start, "unterminated dictionary")
		case TokenName:
		default:
			return nil, syntaxErrorf(tok.Pos, "expected name for dictionary key, got %v", tok.Type)
		}
		key := string(tok.Value)
		p.nextToken()

		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing dictionary value for key '%s': %w", key, err)
		}

		// A null value is equivalent to an absent entry.
		if _, isNull := value.(Null); !isNull {
			dict[key] = value
		}
	}
}

// ParseIndirectObject parses an indirect object definition.
// Format: "num gen obj <object> endobj" or "num gen obj <dict> stream ... endstream endobj".
// A missing endobj is tolerated.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	p.skipComments()

	num, err := p.expectInt("object number")
	if err != nil {
		return nil, err
	}
	gen, err := p.expectInt("generation number")
	if err != nil {
		return nil, err
	}

	tok, err := p.current()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "obj" {
		return nil, syntaxErrorf(tok.Pos, "expected 'obj' keyword, got %v %q", tok.Type, tok.Value)
	}
	p.nextToken()

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("error parsing object %d %d: %w", num, gen, err)
	}

	if tok := p.currentToken; tok != nil && tok.Type == TokenKeyword && string(tok.Value) == "stream" {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, syntaxErrorf(tok.Pos, "stream must follow a dictionary")
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("error parsing stream %d %d: %w", num, gen, err)
		}
		obj = stream
	}

	if tok := p.currentToken; tok != nil && tok.Type == TokenKeyword && string(tok.Value) == "endobj" {
		p.nextToken()
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: num, Generation: gen},
		Object: obj,
	}, nil
}

func (p *Parser) expectInt(what string) (int, error) {
	tok, err := p.current()
	if err != nil {
		return 0, err
	}
	if tok.Type != TokenInteger {
		return 0, syntaxErrorf(tok.Pos, "expected %s, got %v", what, tok.Type)
	}
	v, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil || v < 0 {
		return 0, syntaxErrorf(tok.Pos, "invalid %s %q", what, tok.Value)
	}
	p.nextToken()
	return int(v), nil
}

var endstreamKeyword = []byte("endstream")

// parseStream reads the stream data after the stream keyword. The data is
// bounded by /Length when that value is usable and is followed by
// endstream; otherwise by a scan for the endstream keyword.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	p.lexer.SkipStreamEOL()
	start := p.lexer.Pos()
	data := p.lexer.Data()

	length, lengthErr := p.streamLength(dict)
	if lengthErr == nil && length > int64(len(data))-start {
		lengthErr = fmt.Errorf("stream length %d exceeds data", length)
	}
	if lengthErr == nil && endstreamFollows(data, start+length) {
		p.lexer.SetPos(start + length)
		stream := &Stream{Dict: dict, Data: copyBytes(data[start : start+length])}
		return stream, p.finishStream()
	}

	idx := bytes.Index(data[start:], endstreamKeyword)
	if idx < 0 {
		if lengthErr != nil {
			return nil, &SyntaxError{Offset: start, Msg: "stream has no usable length and no endstream", Err: lengthErr}
		}
		return nil, syntaxErrorf(start, "stream length %d does not end at endstream and no endstream found", length)
	}
	if p.OnLengthFallback != nil {
		reason := "length does not end at endstream"
		if lengthErr != nil {
			reason = lengthErr.Error()
		}
		p.OnLengthFallback(start, reason)
	}

	end := start + int64(idx)
	// The EOL before endstream is not part of the data.
	if end > start && data[end-1] == '\n' {
		end--
	}
	if end > start && data[end-1] == '\r' {
		end--
	}
	p.lexer.SetPos(start + int64(idx))
	stream := &Stream{Dict: dict, Data: copyBytes(data[start:end])}
	return stream, p.finishStream()
}

// finishStream consumes endstream and reloads the lookahead.
func (p *Parser) finishStream() error {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	if tok.Type != TokenKeyword || !bytes.Equal(tok.Value, endstreamKeyword) {
		return syntaxErrorf(tok.Pos, "expected 'endstream', got %v %q", tok.Type, tok.Value)
	}
	p.reset()
	return nil
}

func (p *Parser) streamLength(dict Dict) (int64, error) {
	lengthObj := dict.Get("Length")
	switch v := lengthObj.(type) {
	case Int:
		if v < 0 {
			return 0, fmt.Errorf("negative stream length %d", v)
		}
		return int64(v), nil
	case IndirectRef:
		if p.resolver == nil {
			return 0, fmt.Errorf("indirect stream length %s without a resolver", v)
		}
		resolved, err := p.resolver.ResolveReference(v)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve stream length: %w", err)
		}
		n, ok := resolved.(Int)
		if !ok || n < 0 {
			return 0, wrongType("stream length", resolved)
		}
		return int64(n), nil
	case nil:
		return 0, fmt.Errorf("stream dictionary missing 'Length' entry")
	}
	return 0, wrongType("stream length", lengthObj)
}

// endstreamFollows reports whether only whitespace separates pos from an
// endstream keyword.
func endstreamFollows(data []byte, pos int64) bool {
	i := int(pos)
	for i < len(data) && isWhitespace(data[i]) {
		i++
	}
	return bytes.HasPrefix(data[i:], endstreamKeyword)
}

// copyBytes detaches stream data from the file buffer, which may be a
// memory mapping released when the document is closed.
func copyBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
