// Package sparql reads star queries written as SPARQL SELECT queries.
//
// A query set is a sequence of queries of the form
//
//	PREFIX ex: <http://example.org/>
//	SELECT ?h WHERE { ?h ex:knows ex:alice ; a ex:Person . }
//
// PREFIX and BASE declarations stay in effect for the rest of the set. Exactly
// one variable is projected and it becomes the hub of the star query.
package sparql

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

// Parser parses SPARQL star queries
type Parser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string // Maps prefix to IRI
	baseURI  string            // Base URI for resolving relative IRIs
}

// NewParser creates a new query set parser
func NewParser(input string) *Parser {
	return &Parser{
		input:    input,
		pos:      0,
		length:   len(input),
		prefixes: make(map[string]string),
		baseURI:  "",
	}
}

// ReadQuerySet parses every query in r
func ReadQuerySet(r io.Reader) ([]*store.StarQuery, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read query set: %w", err)
	}
	return NewParser(string(data)).Parse()
}

// ParseQuery parses a single star query
func ParseQuery(input string) (*store.StarQuery, error) {
	queries, err := NewParser(input).Parse()
	if err != nil {
		return nil, err
	}
	if len(queries) != 1 {
		return nil, fmt.Errorf("expected one query, found %d", len(queries))
	}
	return queries[0], nil
}

// Parse parses the whole query set. Queries are labelled q1, q2, ... in
// document order.
func (p *Parser) Parse() ([]*store.StarQuery, error) {
	var queries []*store.StarQuery
	for {
		if err := p.parsePrologue(); err != nil {
			return nil, p.errorf(len(queries)+1, err)
		}
		p.skipWhitespace()
		if p.pos >= p.length {
			return queries, nil
		}

		q, err := p.parseSelect()
		if err != nil {
			return nil, p.errorf(len(queries)+1, err)
		}
		q.Label = fmt.Sprintf("q%d", len(queries)+1)
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Label, err)
		}
		queries = append(queries, q)
	}
}

func (p *Parser) errorf(query int, err error) error {
	line := 1 + strings.Count(p.input[:p.pos], "\n")
	return fmt.Errorf("query q%d, line %d: %w", query, line, err)
}

// parsePrologue consumes PREFIX and BASE declarations
func (p *Parser) parsePrologue() error {
	for {
		p.skipWhitespace()
		if p.matchKeyword("PREFIX") {
			if err := p.parsePrefix(); err != nil {
				return err
			}
		} else if p.matchKeyword("BASE") {
			if err := p.parseBase(); err != nil {
				return err
			}
		} else {
			return nil
		}
	}
}

// parseSelect parses SELECT ?hub WHERE { patterns }
func (p *Parser) parseSelect() (*store.StarQuery, error) {
	if !p.matchKeyword("SELECT") {
		return nil, fmt.Errorf("expected SELECT")
	}
	p.matchKeyword("DISTINCT") // answers are sets anyway

	p.skipWhitespace()
	hub, err := p.parseVariable()
	if err != nil {
		return nil, fmt.Errorf("star queries project exactly one variable: %w", err)
	}
	p.skipWhitespace()
	if ch := p.peek(); ch == '?' || ch == '$' || ch == '*' {
		return nil, fmt.Errorf("star queries project exactly one variable")
	}

	p.matchKeyword("WHERE") // optional

	patterns, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	return store.NewStarQuery(hub, patterns...), nil
}

// parseGroup parses { triples ( . triples )* .? }
func (p *Parser) parseGroup() ([]*rdf.Triple, error) {
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, fmt.Errorf("expected '{' to start WHERE clause")
	}
	p.advance()

	var patterns []*rdf.Triple
	for {
		p.skipWhitespace()
		switch p.peek() {
		case '}':
			p.advance()
			return patterns, nil
		case 0:
			return nil, fmt.Errorf("unexpected end of input, expected '}'")
		case '.':
			p.advance()
			continue
		}

		triples, err := p.parseTriplePatterns()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, triples...)

		p.skipWhitespace()
		if ch := p.peek(); ch != '.' && ch != '}' {
			return nil, fmt.Errorf("expected '.' or '}' after triple pattern, got %q", ch)
		}
	}
}

func (p *Parser) parseTriplePattern() (*rdf.Triple, error) {
	p.skipWhitespace()

	subject, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("failed to parse subject: %w", err)
	}

	p.skipWhitespace()
	predicate, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("failed to parse predicate: %w", err)
	}

	p.skipWhitespace()
	object, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object: %w", err)
	}

	return rdf.NewTriple(subject, predicate, object), nil
}

// parseTriplePatterns parses triple patterns with property list shorthand (semicolon and comma)
// Syntax:
//
//	?s ?p1 ?o1 ; ?p2 ?o2 ; ?p3 ?o3 .  (semicolon repeats subject)
//	?s ?p ?o1 , ?o2 , ?o3 .           (comma repeats subject and predicate)
func (p *Parser) parseTriplePatterns() ([]*rdf.Triple, error) {
	current, err := p.parseTriplePattern()
	if err != nil {
		return nil, err
	}
	triples := []*rdf.Triple{current}

	for {
		p.skipWhitespace()
		switch p.peek() {
		case ',':
			p.advance()
			object, err := p.parseTermOrVariable()
			if err != nil {
				return nil, fmt.Errorf("failed to parse object after comma: %w", err)
			}
			triples = append(triples, rdf.NewTriple(current.Subject, current.Predicate, object))

		case ';':
			p.advance()
			p.skipWhitespace()
			// trailing semicolon
			if p.peek() == '.' || p.peek() == '}' {
				return triples, nil
			}

			predicate, err := p.parseTermOrVariable()
			if err != nil {
				return nil, fmt.Errorf("failed to parse predicate after semicolon: %w", err)
			}
			p.skipWhitespace()
			object, err := p.parseTermOrVariable()
			if err != nil {
				return nil, fmt.Errorf("failed to parse object after semicolon: %w", err)
			}
			current = rdf.NewTriple(current.Subject, predicate, object)
			triples = append(triples, current)

		default:
			return triples, nil
		}
	}
}

// parseTermOrVariable parses either an RDF term or a variable
func (p *Parser) parseTermOrVariable() (rdf.Term, error) {
	p.skipWhitespace()

	ch := p.peek()
	switch {
	case ch == '?' || ch == '$':
		return p.parseVariable()
	case ch == '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(iri), nil
	case ch == '"' || ch == '\'':
		return p.parseLiteral()
	case ch == '_':
		return p.parseBlankNode()
	case ch >= '0' && ch <= '9' || ch == '-' || ch == '+':
		return p.parseNumericLiteral()
	}

	// Keyword 'a' (shorthand for rdf:type)
	if ch == 'a' && (p.pos+1 >= p.length || !isNameChar(p.input[p.pos+1]) && p.input[p.pos+1] != ':') {
		p.advance()
		return rdf.RDFType, nil
	}

	if p.matchKeyword("true") {
		return rdf.NewBooleanLiteral(true), nil
	}
	if p.matchKeyword("false") {
		return rdf.NewBooleanLiteral(false), nil
	}

	// Prefixed name (like :foo or prefix:foo)
	if ch == ':' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
		iri, err := p.parsePrefixedName()
		if err != nil {
			return nil, err
		}
		return rdf.NewNamedNode(iri), nil
	}

	if ch == 0 {
		return nil, fmt.Errorf("unexpected end of input")
	}
	return nil, fmt.Errorf("unexpected character: %c", ch)
}

// parseVariable parses a SPARQL variable
func (p *Parser) parseVariable() (*rdf.Variable, error) {
	if p.peek() != '?' && p.peek() != '$' {
		return nil, fmt.Errorf("expected variable starting with ? or $")
	}
	p.advance() // consume ? or $

	name := p.readWhile(isNameChar)
	if name == "" {
		return nil, fmt.Errorf("invalid variable name")
	}
	return rdf.NewVariable(name), nil
}

// parseIRI parses an IRI enclosed in < >
func (p *Parser) parseIRI() (string, error) {
	if p.peek() != '<' {
		return "", fmt.Errorf("expected '<' to start IRI")
	}
	p.advance()

	iri := p.readWhile(func(ch byte) bool {
		return ch != '>' && ch != '\n'
	})

	if p.peek() != '>' {
		return "", fmt.Errorf("expected '>' to end IRI")
	}
	p.advance()

	return p.resolveIRI(iri), nil
}

// parseLiteral parses a quoted string with an optional language tag or datatype
func (p *Parser) parseLiteral() (*rdf.Literal, error) {
	quote := p.peek()
	p.advance()

	var value strings.Builder
	for {
		if p.pos >= p.length {
			return nil, fmt.Errorf("unclosed string literal")
		}
		ch := p.input[p.pos]
		if ch == quote {
			p.advance()
			break
		}
		if ch == '\\' && p.pos+1 < p.length {
			p.advance()
			switch esc := p.input[p.pos]; esc {
			case 'n':
				value.WriteByte('\n')
			case 't':
				value.WriteByte('\t')
			case 'r':
				value.WriteByte('\r')
			case '"', '\'', '\\':
				value.WriteByte(esc)
			default:
				return nil, fmt.Errorf("invalid escape sequence \\%c", esc)
			}
			p.advance()
			continue
		}
		value.WriteByte(ch)
		p.advance()
	}

	switch {
	case p.peek() == '@':
		p.advance()
		lang := p.readWhile(func(ch byte) bool {
			return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-'
		})
		if lang == "" {
			return nil, fmt.Errorf("empty language tag")
		}
		return rdf.NewLiteralWithLanguage(value.String(), lang), nil

	case p.match("^^"):
		var (
			datatype string
			err      error
		)
		if p.peek() == '<' {
			datatype, err = p.parseIRI()
		} else {
			datatype, err = p.parsePrefixedName()
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing datatype: %w", err)
		}
		return rdf.NewLiteralWithDatatype(value.String(), rdf.NewNamedNode(datatype)), nil
	}

	return rdf.NewLiteral(value.String()), nil
}

// parseBlankNode parses a blank node
func (p *Parser) parseBlankNode() (*rdf.BlankNode, error) {
	if !p.match("_:") {
		return nil, fmt.Errorf("expected '_:' to start blank node")
	}

	id := p.readWhile(isNameChar)
	if id == "" {
		return nil, fmt.Errorf("empty blank node label")
	}
	return rdf.NewBlankNode(id), nil
}

// parseNumericLiteral parses a numeric literal
func (p *Parser) parseNumericLiteral() (*rdf.Literal, error) {
	numStr := p.readWhile(func(ch byte) bool {
		return (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' || ch == '+' || ch == 'e' || ch == 'E'
	})
	// a trailing '.' ends the triple
	if strings.HasSuffix(numStr, ".") {
		numStr = numStr[:len(numStr)-1]
		p.pos--
	}

	if _, err := strconv.ParseInt(numStr, 10, 64); err == nil {
		return rdf.NewLiteralWithDatatype(numStr, rdf.XSDInteger), nil
	}
	if _, err := strconv.ParseFloat(numStr, 64); err != nil {
		return nil, fmt.Errorf("invalid numeric literal %q", numStr)
	}
	return rdf.NewLiteralWithDatatype(numStr, rdf.XSDDouble), nil
}

func (p *Parser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) advance() {
	if p.pos < p.length {
		p.pos++
	}
}

func (p *Parser) skipWhitespace() {
	for p.pos < p.length {
		ch := p.input[p.pos]

		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}

		// Skip comments (from # to end of line)
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}

		break
	}
}

func (p *Parser) readWhile(predicate func(byte) bool) string {
	start := p.pos
	for p.pos < p.length && predicate(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// matchKeyword consumes keyword, case-insensitively, if it is followed by a
// non-name character
func (p *Parser) matchKeyword(keyword string) bool {
	p.skipWhitespace()

	end := p.pos + len(keyword)
	if end > p.length || !strings.EqualFold(p.input[p.pos:end], keyword) {
		return false
	}
	if end < p.length && (isNameChar(p.input[end]) || p.input[end] == ':') {
		return false
	}
	p.pos = end
	return true
}

func (p *Parser) match(s string) bool {
	if !strings.HasPrefix(p.input[p.pos:], s) {
		return false
	}
	p.pos += len(s)
	return true
}

// parsePrefix parses and stores a PREFIX declaration (prefix: <iri>)
func (p *Parser) parsePrefix() error {
	p.skipWhitespace()

	prefix := p.readWhile(func(ch byte) bool {
		return isNameChar(ch) || ch == '-'
	})
	if !p.match(":") {
		return fmt.Errorf("expected ':' in PREFIX declaration")
	}

	p.skipWhitespace()
	iri, err := p.parseIRI()
	if err != nil {
		return fmt.Errorf("PREFIX %s: %w", prefix, err)
	}
	p.prefixes[prefix] = iri
	return nil
}

// parseBase parses and stores a BASE declaration (<iri>)
func (p *Parser) parseBase() error {
	p.skipWhitespace()

	// resolve against the previous base before replacing it
	iri, err := p.parseIRI()
	if err != nil {
		return fmt.Errorf("BASE: %w", err)
	}
	p.baseURI = iri
	return nil
}

// parsePrefixedName parses a prefixed name (like :foo or prefix:foo) and expands it to a full IRI
func (p *Parser) parsePrefixedName() (string, error) {
	prefix := p.readWhile(func(ch byte) bool {
		return isNameChar(ch) || ch == '-'
	})

	if !p.match(":") {
		return "", fmt.Errorf("expected ':' in prefixed name %q", prefix)
	}

	local := p.readWhile(func(ch byte) bool {
		return isNameChar(ch) || ch == '-' || ch == '.' && p.pos+1 < p.length && isNameChar(p.input[p.pos+1])
	})

	baseIRI, ok := p.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("undefined prefix: '%s'", prefix)
	}
	return baseIRI + local, nil
}

// resolveIRI resolves a potentially relative IRI against the BASE URI
func (p *Parser) resolveIRI(iri string) string {
	if p.baseURI == "" || isAbsoluteIRI(iri) {
		return iri
	}
	// simple concatenation, no RFC 3986 dot segment removal
	return p.baseURI + iri
}

// isAbsoluteIRI checks if an IRI is absolute (has a scheme)
func isAbsoluteIRI(iri string) bool {
	colonIdx := strings.Index(iri, ":")
	if colonIdx <= 0 {
		return false
	}
	for i := 0; i < colonIdx; i++ {
		c := iri[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9' && i > 0) || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	return true
}

func isNameChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
}
