package sparql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

func patternStrings(q *store.StarQuery) []string {
	out := make([]string, len(q.Patterns))
	for i, p := range q.Patterns {
		out[i] = p.String()
	}
	return out
}

func TestParseSimpleQuery(t *testing.T) {
	q, err := ParseQuery(`SELECT ?h WHERE { ?h <http://example.org/knows> "Alice" . }`)
	require.NoError(t, err)

	assert.Equal(t, "q1", q.Label)
	assert.Equal(t, "h", q.Hub.Name)
	assert.Equal(t, []string{`?h <http://example.org/knows> "Alice" .`}, patternStrings(q))
}

func TestParsePrefixesAndShorthand(t *testing.T) {
	input := `
PREFIX ex: <http://example.org/>
# people who know alice and bob and like pizza
SELECT ?person WHERE {
	?person ex:knows ex:alice , ex:bob ;
	        a ex:Person ;
	        ex:likes "pizza"@en ;
	        ex:age 42 .
}`
	q, err := ParseQuery(input)
	require.NoError(t, err)

	want := []*rdf.Triple{
		rdf.NewTriple(rdf.NewVariable("person"), rdf.NewNamedNode("http://example.org/knows"), rdf.NewNamedNode("http://example.org/alice")),
		rdf.NewTriple(rdf.NewVariable("person"), rdf.NewNamedNode("http://example.org/knows"), rdf.NewNamedNode("http://example.org/bob")),
		rdf.NewTriple(rdf.NewVariable("person"), rdf.RDFType, rdf.NewNamedNode("http://example.org/Person")),
		rdf.NewTriple(rdf.NewVariable("person"), rdf.NewNamedNode("http://example.org/likes"), rdf.NewLiteralWithLanguage("pizza", "en")),
		rdf.NewTriple(rdf.NewVariable("person"), rdf.NewNamedNode("http://example.org/age"), rdf.NewIntegerLiteral(42)),
	}
	require.Len(t, q.Patterns, len(want))
	for i := range want {
		assert.True(t, want[i].Equals(q.Patterns[i]), "pattern %d: got %s, want %s", i, q.Patterns[i], want[i])
	}
}

func TestParseQuerySet(t *testing.T) {
	input := `
PREFIX ex: <http://example.org/>
SELECT ?h WHERE { ?h ex:p ?o . }

select ?x where {
	?x ex:q "v"^^<http://www.w3.org/2001/XMLSchema#string> .
	ex:a ex:r ?x
}

BASE <http://base.org/>
SELECT ?y { ?y <rel> _:b1 }
`
	queries, err := ReadQuerySet(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, queries, 3)

	assert.Equal(t, []string{"q1", "q2", "q3"}, []string{queries[0].Label, queries[1].Label, queries[2].Label})
	assert.Equal(t, "x", queries[1].Hub.Name)
	assert.Len(t, queries[1].Patterns, 2)
	assert.True(t, queries[1].Patterns[0].Object.Equals(rdf.NewLiteralWithDatatype("v", rdf.XSDString)))

	assert.Equal(t, []string{`?y <http://base.org/rel> _:b1 .`}, patternStrings(queries[2]))
}

func TestParseEmptyInput(t *testing.T) {
	queries, err := NewParser("  # nothing here\n").Parse()
	require.NoError(t, err)
	assert.Empty(t, queries)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not a select", `ASK { ?h ?p ?o }`, "expected SELECT"},
		{"two projected", `SELECT ?h ?x WHERE { ?h ?p ?x }`, "exactly one variable"},
		{"star projection", `SELECT * WHERE { ?h ?p ?x }`, "exactly one variable"},
		{"hub missing", `SELECT ?h WHERE { ?x ?p ?o }`, "does not mention ?h"},
		{"no patterns", `SELECT ?h WHERE { }`, "no patterns"},
		{"unclosed", `SELECT ?h WHERE { ?h ?p ?o .`, "expected '}'"},
		{"unknown prefix", `SELECT ?h WHERE { ?h ex:p ?o }`, "undefined prefix"},
		{"unclosed literal", `SELECT ?h WHERE { ?h ?p "oops }`, "unclosed string literal"},
		{"missing dot", `SELECT ?h WHERE { ?h ?p ?o ?h ?p ?o }`, "expected '.' or '}'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(tt.input).Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseErrorReportsQueryAndLine(t *testing.T) {
	input := "SELECT ?h WHERE { ?h ?p ?o }\n\nSELECT ?h WHERE {\n ?h ?p \"x\n}"
	_, err := NewParser(input).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query q2")

	var invalid = `SELECT ?h WHERE { ?x ?p ?o }`
	_, err = ParseQuery(invalid)
	assert.ErrorIs(t, err, store.ErrInvalidQuery)
}

func TestParseQueryRejectsSets(t *testing.T) {
	_, err := ParseQuery(`SELECT ?h { ?h ?p ?o } SELECT ?h { ?h ?p ?o }`)
	assert.Error(t, err)
}
