// Package star evaluates star queries on top of any store.Matcher.
//
// A star query only projects its hub variable, so every pattern after the
// first acts as an existence filter on the hub candidates: a candidate t
// survives pattern P iff P with the hub replaced by t has at least one match.
// This is only sound for the star shape; queries projecting several
// variables need real joins.
package star

import (
	"fmt"

	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

// Evaluate returns one substitution {hub -> t} per hub value t satisfying
// every pattern of q. Results come in first-seen order of the first pattern.
//
// q must have at least one pattern and every pattern must mention the hub;
// an empty query yields no results.
func Evaluate(m store.Matcher, q *store.StarQuery) (store.Iterator, error) {
	if len(q.Patterns) == 0 {
		return store.Empty(), nil
	}

	candidates, err := seed(m, q.Hub, q.Patterns[0])
	if err != nil {
		return nil, err
	}

	for i, pattern := range q.Patterns[1:] {
		if candidates.len() == 0 {
			break
		}
		if candidates, err = filter(m, q.Hub, pattern, candidates); err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i+1, err)
		}
	}

	results := make([]rdf.Substitution, 0, candidates.len())
	for _, t := range candidates.terms {
		sub := rdf.NewSubstitution()
		sub.Bind(q.Hub, t)
		results = append(results, sub)
	}
	return store.NewSliceIterator(results), nil
}

// seed collects the hub bindings of the first pattern
func seed(m store.Matcher, hub *rdf.Variable, pattern *rdf.Triple) (*termSet, error) {
	candidates := newTermSet()
	it := m.Match(pattern)
	for it.Next() {
		if t, ok := it.Substitution().Get(hub); ok {
			candidates.add(t)
		}
	}
	if err := it.Close(); err != nil {
		return nil, fmt.Errorf("pattern 0: %w", err)
	}
	return candidates, nil
}

// filter keeps the candidates for which the instantiated pattern has a match
func filter(m store.Matcher, hub *rdf.Variable, pattern *rdf.Triple, candidates *termSet) (*termSet, error) {
	ok := newTermSet()
	for _, t := range candidates.terms {
		n, err := m.HowMany(pattern.Substitute(hub, t))
		if err != nil {
			return nil, err
		}
		if n > 0 {
			ok.add(t)
		}
	}
	return candidates.intersect(ok), nil
}

// termSet is an insertion-ordered set of terms
type termSet struct {
	terms []rdf.Term
	index map[rdf.Key]struct{}
}

func newTermSet() *termSet {
	return &termSet{index: make(map[rdf.Key]struct{})}
}

func (s *termSet) add(t rdf.Term) {
	key := rdf.KeyOf(t)
	if _, ok := s.index[key]; ok {
		return
	}
	s.index[key] = struct{}{}
	s.terms = append(s.terms, t)
}

func (s *termSet) has(t rdf.Term) bool {
	_, ok := s.index[rdf.KeyOf(t)]
	return ok
}

func (s *termSet) len() int {
	return len(s.terms)
}

func (s *termSet) intersect(other *termSet) *termSet {
	out := newTermSet()
	for _, t := range s.terms {
		if other.has(t) {
			out.add(t)
		}
	}
	return out
}
