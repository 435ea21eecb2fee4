package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksaelezovic/hexastore/internal/compare"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

func sub(pairs ...any) rdf.Substitution {
	s := rdf.NewSubstitution()
	for i := 0; i < len(pairs); i += 2 {
		s.Bind(rdf.NewVariable(pairs[i].(string)), pairs[i+1].(rdf.Term))
	}
	return s
}

func TestSubstitutionsTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, false, 0)

	err := f.Substitutions([]rdf.Substitution{
		sub("y", rdf.NewLiteral("Alice"), "x", rdf.NewNamedNode("http://example.org/bob")),
		sub("x", rdf.NewNamedNode("http://example.org/carol")),
	})
	require.NoError(t, err)

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "?x")
	assert.Less(t, strings.Index(lines[0], "?x"), strings.Index(lines[0], "?y"), "columns are sorted")
	assert.Contains(t, out, "<http://example.org/bob>")
	assert.Contains(t, out, `"Alice"`)
	assert.Contains(t, out, "_2 rows_")
}

func TestSubstitutionsEmptyAndGround(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, false, 0)

	require.NoError(t, f.Substitutions(nil))
	assert.Equal(t, "_No results_\n", buf.String())

	buf.Reset()
	require.NoError(t, f.Substitutions([]rdf.Substitution{rdf.NewSubstitution()}))
	assert.Equal(t, "_Pattern holds (1)_\n", buf.String())
}

func TestTruncate(t *testing.T) {
	f := NewFormatter(nil, false, 8)
	assert.Equal(t, "short", f.truncate("short"))
	assert.Equal(t, "abcde...", f.truncate("abcdefghijkl"))

	f.MaxWidth = 0
	assert.Equal(t, "abcdefghijkl", f.truncate("abcdefghijkl"))
}

func TestComparison(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, false, 0)

	results := []compare.Result{
		{Label: "q1", Query: "SELECT ?h WHERE { ... }", Expected: []string{"a"}, Actual: []string{"a"}},
		{Label: "q2", Query: "SELECT ?h WHERE { ... }", Expected: []string{"a", "b"}, Actual: []string{"a", "c"},
			Missing: []string{"b"}, Extra: []string{"c"}},
		{Label: "q3", Query: "SELECT ?h WHERE { ... }", Err: errors.New("boom")},
	}
	require.NoError(t, f.Comparison(results, compare.Summary{Identical: 1, Differing: 1, Failed: 1}))

	out := buf.String()
	assert.Contains(t, out, "=== Query: q1 ===")
	assert.Contains(t, out, "✓ identical, 1 answers")
	assert.Contains(t, out, "✗ differs: expected 2, got 2")
	assert.Contains(t, out, "missing b")
	assert.Contains(t, out, "extra c")
	assert.Contains(t, out, "✗ boom")
	assert.Contains(t, out, "FAIL 1 identical, 1 differing, 1 failed")
	assert.NotContains(t, out, "\x1b[", "no escape codes without color")
}

func TestColorize(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, true, 0)
	require.NoError(t, f.Comparison(nil, compare.Summary{}))
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "PASS")
}

func TestAtomsAndLoaded(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(&buf, false, 0)

	atoms := store.NewAtoms([]*rdf.Triple{
		rdf.NewTriple(rdf.NewNamedNode("http://example.org/a"), rdf.RDFType, rdf.NewLiteral("x")),
	})
	require.NoError(t, f.Atoms(atoms))
	require.NoError(t, f.Loaded(3, 2, "hexa"))

	assert.Equal(t,
		"<http://example.org/a> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> \"x\" .\n"+
			"== 3 triples read, 2 distinct in the hexa store\n",
		buf.String())
}
