package kvstore

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aleksaelezovic/hexastore/internal/linear"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

var (
	bob   = rdf.NewLiteral("Bob")
	alice = rdf.NewLiteral("Alice")
	pizza = rdf.NewLiteral("Pizza")
	knows = rdf.NewLiteral("knows")
	likes = rdf.NewLiteral("likes")

	x = rdf.NewVariable("x")
	y = rdf.NewVariable("y")
	h = rdf.NewVariable("h")
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

func newSample(t *testing.T) *Store {
	t.Helper()
	s := setupTestStore(t)
	_, err := store.AddAll(s, slices.Values([]*rdf.Triple{
		rdf.NewTriple(bob, knows, alice),
		rdf.NewTriple(alice, knows, bob),
		rdf.NewTriple(bob, likes, pizza),
	}))
	require.NoError(t, err)
	return s
}

func resultSet(t *testing.T, it store.Iterator) []string {
	t.Helper()
	subs, err := store.Collect(it)
	require.NoError(t, err)
	out := make([]string, len(subs))
	for i, sub := range subs {
		out[i] = sub.String()
	}
	slices.Sort(out)
	return out
}

func TestHashTerm(t *testing.T) {
	a, err := HashTerm(rdf.NewLiteral("x"))
	require.NoError(t, err)
	b, err := HashTerm(rdf.NewNamedNode("x"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte(rdf.TermTypeLiteral), a[0])

	again, err := HashTerm(rdf.NewLiteral("x"))
	require.NoError(t, err)
	assert.Equal(t, a, again)

	_, err = HashTerm(x)
	assert.Error(t, err)
}

func TestTermEncoding(t *testing.T) {
	terms := []rdf.Term{
		rdf.NewNamedNode("http://example.org/a"),
		rdf.NewNamedNode("urn:x>y"),
		rdf.NewNamedNode(""),
		rdf.NewBlankNode("b 1"),
		rdf.NewLiteral(""),
		rdf.NewLiteral("line\n\"quoted\""),
		rdf.NewLiteralWithLanguage("chat", "fr"),
		rdf.NewLiteralWithDatatype("x", rdf.XSDString),
		rdf.NewLiteralWithDatatype("x", rdf.NewNamedNode("urn:t>")),
	}
	for _, want := range terms {
		encoded, err := EncodeTerm(want)
		require.NoError(t, err)
		got, err := DecodeTerm(encoded)
		require.NoError(t, err, "DecodeTerm(%s)", want)
		assert.True(t, got.Equals(want), "DecodeTerm(EncodeTerm(%s)) = %s", want, got)
	}

	plain, err := EncodeTerm(rdf.NewLiteral("x"))
	require.NoError(t, err)
	typed, err := EncodeTerm(rdf.NewLiteralWithDatatype("x", rdf.XSDString))
	require.NoError(t, err)
	assert.NotEqual(t, plain, typed)

	_, err = EncodeTerm(x)
	assert.Error(t, err)

	for _, bad := range [][]byte{nil, {99}, plain[:len(plain)-1], append(slices.Clone(plain), 0)} {
		_, err := DecodeTerm(bad)
		assert.Error(t, err, "DecodeTerm(%v)", bad)
	}
}

func TestKeyEncoding(t *testing.T) {
	key := EncodeKey(1, 256, 3)
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 1, 0, 0, 0, 0, 3}, key)

	a, b, c, err := DecodeKey(key)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{1, 256, 3}, [3]uint32{uint32(a), uint32(b), uint32(c)})

	_, _, _, err = DecodeKey(key[:8])
	assert.Error(t, err)

	id, err := DecodeID(EncodeID(42))
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestAddIsIdempotent(t *testing.T) {
	s := setupTestStore(t)

	added, err := s.Add(rdf.NewTriple(bob, knows, alice))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add(rdf.NewTriple(rdf.NewLiteral("Bob"), knows, rdf.NewLiteral("Alice")))
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, 1, s.Size())
	assert.Equal(t, 3, s.Terms())
	require.NoError(t, s.CheckConsistency())
}

func TestAddRejectsPatterns(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.Add(rdf.NewTriple(bob, knows, y))
	assert.ErrorIs(t, err, store.ErrNotGround)
	assert.Zero(t, s.Terms())
}

func TestMatch(t *testing.T) {
	s := newSample(t)

	tests := []struct {
		name    string
		pattern *rdf.Triple
		want    []string
	}{
		{"ground", rdf.NewTriple(bob, knows, alice), []string{"{}"}},
		{"ground missing", rdf.NewTriple(alice, likes, pizza), []string{}},
		{"subject predicate", rdf.NewTriple(bob, knows, y), []string{`{?y -> "Alice"}`}},
		{"predicate object", rdf.NewTriple(x, knows, alice), []string{`{?x -> "Bob"}`}},
		{"subject object", rdf.NewTriple(bob, x, pizza), []string{`{?x -> "likes"}`}},
		{"predicate only", rdf.NewTriple(x, knows, y), []string{`{?x -> "Alice", ?y -> "Bob"}`, `{?x -> "Bob", ?y -> "Alice"}`}},
		{"unknown term", rdf.NewTriple(rdf.NewLiteral("Carol"), knows, y), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resultSet(t, s.Match(tt.pattern))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Match(%s) mismatch (-want +got):\n%s", tt.pattern, diff)
			}
		})
	}
}

func TestIteratorCloseReleasesTransaction(t *testing.T) {
	s := newSample(t)

	it := s.Match(rdf.NewTriple(bob, knows, y))
	require.NoError(t, it.Close())
	assert.False(t, it.Next())
	require.NoError(t, it.Close())

	// writes still go through once the read transaction is gone
	added, err := s.Add(rdf.NewTriple(alice, likes, pizza))
	require.NoError(t, err)
	assert.True(t, added)
}

func TestMatchStar(t *testing.T) {
	s := newSample(t)

	it, err := store.MatchStar(s, store.NewStarQuery(h,
		rdf.NewTriple(h, knows, alice),
		rdf.NewTriple(h, likes, pizza),
	))
	require.NoError(t, err)
	assert.Equal(t, []string{`{?h -> "Bob"}`}, resultSet(t, it))
}

func TestAtomsRoundTripsTerms(t *testing.T) {
	s := setupTestStore(t)
	triples := []*rdf.Triple{
		rdf.NewTriple(rdf.NewNamedNode("http://example.org/a"), rdf.RDFType, rdf.NewNamedNode("http://example.org/T")),
		rdf.NewTriple(rdf.NewBlankNode("b1"), rdf.NewNamedNode("http://example.org/label"), rdf.NewLiteralWithLanguage("chat", "fr")),
		rdf.NewTriple(rdf.NewBlankNode("b1"), rdf.NewNamedNode("http://example.org/age"), rdf.NewIntegerLiteral(30)),
		rdf.NewTriple(rdf.NewBlankNode("b1"), rdf.NewNamedNode("http://example.org/note"), rdf.NewLiteral("line\n\"quoted\"\t\\")),
	}
	_, err := store.AddAll(s, slices.Values(triples))
	require.NoError(t, err)

	atoms, err := s.Atoms()
	require.NoError(t, err)
	require.Equal(t, len(triples), atoms.Len())
	for _, want := range triples {
		assert.True(t, atoms.Contains(want), "missing %s", want)
	}
}

func TestMatchesLinearStore(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	vocab := make([]rdf.Term, 0, 8)
	for i := range 5 {
		vocab = append(vocab, rdf.NewNamedNode(fmt.Sprintf("http://example.org/n%d", i)))
	}
	vocab = append(vocab, rdf.NewLiteral("v"), rdf.NewLiteralWithLanguage("v", "en"), rdf.NewBlankNode("b"))

	baseline := linear.New()
	kv := setupTestStore(t)
	for range 120 {
		triple := rdf.NewTriple(vocab[r.IntN(len(vocab))], vocab[r.IntN(5)], vocab[r.IntN(len(vocab))])
		a, err := baseline.Add(triple)
		require.NoError(t, err)
		b, err := kv.Add(triple)
		require.NoError(t, err)
		require.Equal(t, a, b, "Add(%s)", triple)
	}
	require.Equal(t, baseline.Size(), kv.Size())
	require.NoError(t, kv.CheckConsistency())

	vars := []rdf.Term{x, y, h}
	pick := func() rdf.Term {
		if r.IntN(2) == 0 {
			return vars[r.IntN(len(vars))]
		}
		return vocab[r.IntN(len(vocab))]
	}
	for i := range 300 {
		pattern := rdf.NewTriple(pick(), pick(), pick())
		want := resultSet(t, baseline.Match(pattern))
		if diff := cmp.Diff(want, resultSet(t, kv.Match(pattern))); diff != "" {
			t.Fatalf("pattern %d %s differs (-linear +kv):\n%s", i, pattern, diff)
		}
	}
}

func TestTermsWithoutNTriplesForm(t *testing.T) {
	s := setupTestStore(t)
	p := rdf.NewNamedNode("urn:p")
	odd := rdf.NewNamedNode("urn:x>y")
	triples := []*rdf.Triple{
		rdf.NewTriple(rdf.NewNamedNode("urn:a"), p, rdf.NewLiteral("ok")),
		rdf.NewTriple(rdf.NewBlankNode("b 1"), p, rdf.NewLiteral("x")),
		rdf.NewTriple(rdf.NewNamedNode("urn:s"), p, odd),
	}
	for _, triple := range triples {
		added, err := s.Add(triple)
		require.NoError(t, err)
		require.True(t, added, "Add(%s)", triple)
	}

	n, err := s.HowMany(rdf.NewTriple(x, p, y))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got := resultSet(t, s.Match(rdf.NewTriple(rdf.NewNamedNode("urn:s"), p, x)))
	assert.Equal(t, []string{`{?x -> <urn:x>y>}`}, got)

	n, err = s.HowMany(rdf.NewTriple(rdf.NewBlankNode("b 1"), x, y))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	atoms, err := s.Atoms()
	require.NoError(t, err)
	for _, want := range triples {
		assert.True(t, atoms.Contains(want), "missing %s", want)
	}
	require.NoError(t, s.CheckConsistency())
}
