package rdf

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// NTriplesParser parses N-Triples documents: <subject> <predicate> <object> .
//
// The same scanner reads single terms through ParseTerm. In that lenient mode
// variables (?name) and relative IRIs are accepted.
type NTriplesParser struct {
	input   string
	pos     int
	length  int
	line    int
	lenient bool
}

// NewNTriplesParser creates a new N-Triples parser with strict validation
func NewNTriplesParser(input string) *NTriplesParser {
	return &NTriplesParser{
		input:  input,
		pos:    0,
		length: len(input),
		line:   1,
	}
}

// ReadNTriples parses all triples from r
func ReadNTriples(r io.Reader) ([]*Triple, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read N-Triples input: %w", err)
	}
	return NewNTriplesParser(string(data)).Parse()
}

// ParseTerm parses a single term written in N-Triples syntax, or a variable
// written as ?name. It is the inverse of Term.String.
func ParseTerm(s string) (Term, error) {
	p := &NTriplesParser{input: strings.TrimSpace(s), line: 1, lenient: true}
	p.length = len(p.input)
	if p.length == 0 {
		return nil, fmt.Errorf("empty term")
	}
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if p.pos != p.length {
		return nil, fmt.Errorf("unexpected trailing input %q", p.input[p.pos:])
	}
	return term, nil
}

// Parse parses the document and returns its triples in document order
func (p *NTriplesParser) Parse() ([]*Triple, error) {
	var triples []*Triple

	for p.pos < p.length {
		p.skipWhitespaceAndComments()
		if p.pos >= p.length {
			break
		}

		triple, err := p.parseTriple()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", p.line, err)
		}
		triples = append(triples, triple)
	}

	return triples, nil
}

// skipWhitespaceAndComments skips whitespace and comments
func (p *NTriplesParser) skipWhitespaceAndComments() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == '\n' {
			p.line++
			p.pos++
			continue
		}
		if ch == ' ' || ch == '\t' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

// parseTriple parses: subject predicate object .
func (p *NTriplesParser) parseTriple() (*Triple, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing subject: %w", err)
	}
	if _, ok := subject.(*Literal); ok {
		return nil, fmt.Errorf("literals cannot be used as subjects")
	}

	p.skipWhitespaceAndComments()

	predicate, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing predicate: %w", err)
	}
	if _, ok := predicate.(*NamedNode); !ok {
		return nil, fmt.Errorf("predicate must be an IRI, got %s", predicate)
	}

	p.skipWhitespaceAndComments()

	object, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing object: %w", err)
	}

	p.skipWhitespaceAndComments()

	if p.pos >= p.length || p.input[p.pos] != '.' {
		return nil, fmt.Errorf("expected '.' at end of triple")
	}
	p.pos++

	return NewTriple(subject, predicate, object), nil
}

// parseTerm parses an IRI, blank node, literal or (lenient mode) variable
func (p *NTriplesParser) parseTerm() (Term, error) {
	if p.pos >= p.length {
		return nil, fmt.Errorf("unexpected end of input")
	}
	ch := p.input[p.pos]

	switch ch {
	case '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil

	case '_':
		return p.parseBlankNode()

	case '"':
		return p.parseLiteral()

	case '?', '$':
		if !p.lenient {
			return nil, fmt.Errorf("variables not allowed in N-Triples at position %d", p.pos)
		}
		return p.parseVariable()

	default:
		return nil, fmt.Errorf("unexpected character at position %d: %c", p.pos, ch)
	}
}

// parseIRI parses an IRI enclosed in < >
func (p *NTriplesParser) parseIRI() (string, error) {
	if p.pos >= p.length || p.input[p.pos] != '<' {
		return "", fmt.Errorf("expected '<' at start of IRI")
	}
	p.pos++

	var result strings.Builder
	for p.pos < p.length && p.input[p.pos] != '>' {
		ch := p.input[p.pos]

		if ch == '\\' {
			if p.pos+1 < p.length && (p.input[p.pos+1] == 'u' || p.input[p.pos+1] == 'U') {
				escaped, err := p.processUnicodeEscape()
				if err != nil {
					return "", err
				}
				result.WriteString(escaped)
				continue
			}
			return "", fmt.Errorf("invalid escape sequence in IRI at position %d", p.pos)
		}

		// IRIs cannot contain: space, <, >, ", {, }, |, ^, ` or control characters
		if !p.lenient && (ch == ' ' || ch == '<' || ch == '"' || ch == '{' || ch == '}' ||
			ch == '|' || ch == '^' || ch == '`' || ch <= 0x1F) {
			return "", fmt.Errorf("invalid character in IRI: %q at position %d", ch, p.pos)
		}

		result.WriteByte(ch)
		p.pos++
	}

	if p.pos >= p.length {
		return "", fmt.Errorf("unclosed IRI")
	}
	p.pos++

	iri := result.String()
	if !p.lenient && !strings.Contains(iri, ":") {
		return "", fmt.Errorf("relative IRI not allowed in N-Triples: %s", iri)
	}

	return iri, nil
}

// parseBlankNode parses a blank node
func (p *NTriplesParser) parseBlankNode() (Term, error) {
	p.pos++ // skip '_'
	if p.pos >= p.length || p.input[p.pos] != ':' {
		return nil, fmt.Errorf("expected ':' after '_' in blank node")
	}
	p.pos++

	start := p.pos
	for p.pos < p.length && !isTermDelimiter(p.input[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return nil, fmt.Errorf("empty blank node label")
	}

	return NewBlankNode(p.input[start:p.pos]), nil
}

// parseVariable parses ?name or $name
func (p *NTriplesParser) parseVariable() (Term, error) {
	p.pos++ // skip '?' or '$'
	start := p.pos
	for p.pos < p.length {
		ch := p.input[p.pos]
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_') {
			break
		}
		p.pos++
	}
	if start == p.pos {
		return nil, fmt.Errorf("invalid variable name")
	}
	return NewVariable(p.input[start:p.pos]), nil
}

// parseLiteral parses a quoted literal with an optional language tag or datatype
func (p *NTriplesParser) parseLiteral() (Term, error) {
	p.pos++ // skip opening '"'

	var value strings.Builder
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == '"' {
			break
		}
		if ch != '\\' {
			value.WriteByte(ch)
			p.pos++
			continue
		}

		p.pos++
		if p.pos >= p.length {
			return nil, fmt.Errorf("unexpected end of input in escape sequence")
		}
		switch escCh := p.input[p.pos]; escCh {
		case 'n':
			value.WriteByte('\n')
		case 't':
			value.WriteByte('\t')
		case 'r':
			value.WriteByte('\r')
		case 'b':
			value.WriteByte('\b')
		case 'f':
			value.WriteByte('\f')
		case '"':
			value.WriteByte('"')
		case '\'':
			value.WriteByte('\'')
		case '\\':
			value.WriteByte('\\')
		case 'u', 'U':
			p.pos--
			escaped, err := p.processUnicodeEscape()
			if err != nil {
				return nil, err
			}
			value.WriteString(escaped)
			continue
		default:
			return nil, fmt.Errorf("invalid escape sequence \\%c at position %d", escCh, p.pos)
		}
		p.pos++
	}

	if p.pos >= p.length {
		return nil, fmt.Errorf("unclosed string literal")
	}
	p.pos++ // skip closing '"'

	if p.pos < p.length && p.input[p.pos] == '@' {
		p.pos++
		start := p.pos
		for p.pos < p.length && !isTermDelimiter(p.input[p.pos]) {
			p.pos++
		}
		lang := p.input[start:p.pos]
		if lang == "" {
			return nil, fmt.Errorf("empty language tag")
		}
		first := lang[0]
		if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
			return nil, fmt.Errorf("invalid language tag: must start with a letter, got %q", first)
		}
		return NewLiteralWithLanguage(value.String(), lang), nil
	}

	if p.pos+1 < p.length && p.input[p.pos] == '^' && p.input[p.pos+1] == '^' {
		p.pos += 2
		datatype, err := p.parseIRI()
		if err != nil {
			return nil, fmt.Errorf("error parsing datatype: %w", err)
		}
		return NewLiteralWithDatatype(value.String(), NewNamedNode(datatype)), nil
	}

	return NewLiteral(value.String()), nil
}

// processUnicodeEscape processes \uXXXX or \UXXXXXXXX escape sequences
func (p *NTriplesParser) processUnicodeEscape() (string, error) {
	p.pos++ // skip '\'

	digits := 4
	if p.input[p.pos] == 'U' {
		digits = 8
	}
	p.pos++

	if p.pos+digits > p.length {
		return "", fmt.Errorf("incomplete Unicode escape sequence")
	}

	hexStr := p.input[p.pos : p.pos+digits]
	p.pos += digits

	codePoint, err := strconv.ParseUint(hexStr, 16, 32)
	if err != nil {
		return "", fmt.Errorf("invalid hex digits in Unicode escape: %s", hexStr)
	}

	return string(rune(codePoint)), nil
}

func isTermDelimiter(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '.' || ch == '<' || ch == ';' || ch == ',' || ch == '}'
}
