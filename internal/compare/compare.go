// Package compare checks a store's star query answers against an
// independent reference evaluator loaded with the same data.
package compare

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

// Result is the outcome of one query. Answers are rendered substitutions,
// sorted.
type Result struct {
	Label    string
	Query    string
	Expected []string
	Actual   []string
	Missing  []string // expected but not returned
	Extra    []string // returned but not expected
	Err      error
}

// Identical reports whether the candidate answered exactly the reference set
func (r Result) Identical() bool {
	return r.Err == nil && len(r.Missing) == 0 && len(r.Extra) == 0
}

// Summary counts identical, differing and failed queries
type Summary struct {
	Identical int
	Differing int
	Failed    int
}

// Harness runs queries on a candidate store and on the reference
type Harness struct {
	candidate store.Store
	reference *Reference
	logger    *zap.Logger
}

// NewHarness loads triples into the candidate and into a new reference
func NewHarness(candidate store.Store, triples []*rdf.Triple, logger *zap.Logger) (*Harness, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := store.AddAll(candidate, slices.Values(triples)); err != nil {
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}
	reference, err := NewReference(triples)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference: %w", err)
	}
	if candidate.Size() != reference.Size() {
		return nil, fmt.Errorf("candidate holds %d triples, reference %d", candidate.Size(), reference.Size())
	}

	logger.Info("data loaded",
		zap.Int("triples", len(triples)),
		zap.Int("distinct", reference.Size()),
		zap.String("candidate", fmt.Sprintf("%T", candidate)))

	return &Harness{candidate: candidate, reference: reference, logger: logger}, nil
}

// Run compares every query, in order
func (h *Harness) Run(queries []*store.StarQuery) ([]Result, Summary) {
	results := make([]Result, 0, len(queries))
	var summary Summary
	for _, q := range queries {
		r := h.Compare(q)
		switch {
		case r.Err != nil:
			summary.Failed++
		case r.Identical():
			summary.Identical++
		default:
			summary.Differing++
		}
		results = append(results, r)
	}
	return results, summary
}

// Compare evaluates q on both sides and diffs the answer sets
func (h *Harness) Compare(q *store.StarQuery) Result {
	r := Result{Label: q.Label, Query: q.String()}

	expected, err := h.reference.Evaluate(q)
	if err != nil {
		r.Err = fmt.Errorf("reference: %w", err)
		return r
	}
	it, err := store.MatchStar(h.candidate, q)
	if err != nil {
		r.Err = err
		return r
	}
	actual, err := store.Collect(it)
	if err != nil {
		r.Err = err
		return r
	}

	r.Expected = render(expected)
	r.Actual = render(actual)
	r.Missing = difference(r.Expected, r.Actual)
	r.Extra = difference(r.Actual, r.Expected)

	if r.Identical() {
		h.logger.Debug("query matches", zap.String("query", q.Label), zap.Int("answers", len(r.Actual)))
	} else {
		h.logger.Warn("query differs",
			zap.String("query", q.Label),
			zap.Strings("missing", r.Missing),
			zap.Strings("extra", r.Extra))
	}
	return r
}

// render turns substitutions into a sorted set of strings
func render(subs []rdf.Substitution) []string {
	out := make([]string, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub.String())
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// difference returns the elements of a not in b; both must be sorted
func difference(a, b []string) []string {
	var out []string
	for _, s := range a {
		if _, found := slices.BinarySearch(b, s); !found {
			out = append(out, s)
		}
	}
	return out
}
