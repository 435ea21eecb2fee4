// Package linear implements the baseline triple store: a deduplicated list of
// ground triples matched by brute-force unification.
//
// Every query is O(n) in the number of stored triples. The store is the
// correctness oracle for the indexed stores and their fallback matcher for
// pattern shapes they do not index.
package linear

import (
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
	"go.uber.org/zap"
)

// Store holds ground triples in insertion order
type Store struct {
	triples []*rdf.Triple
	seen    map[rdf.TripleKey]struct{}
	logger  *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates an empty linear store
func New(opts ...Option) *Store {
	s := &Store{
		seen:   make(map[rdf.TripleKey]struct{}),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add inserts a ground triple, reporting false if it is already present
func (s *Store) Add(t *rdf.Triple) (bool, error) {
	if err := store.CheckGround(t); err != nil {
		return false, err
	}

	key := rdf.KeyOfTriple(t)
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	s.triples = append(s.triples, rdf.NewTriple(t.Subject, t.Predicate, t.Object))
	return true, nil
}

// Match unifies the pattern with every stored triple, in insertion order
func (s *Store) Match(pattern *rdf.Triple) store.Iterator {
	s.logger.Debug("linear scan",
		zap.Stringer("pattern", pattern),
		zap.Int("triples", len(s.triples)))

	var results []rdf.Substitution
	for _, t := range s.triples {
		if sub, ok := Unify(pattern, t); ok {
			results = append(results, sub)
		}
	}
	return store.NewSliceIterator(results)
}

// HowMany counts the results of Match
func (s *Store) HowMany(pattern *rdf.Triple) (int, error) {
	return store.Count(s.Match(pattern))
}

// Size returns the number of stored triples
func (s *Store) Size() int {
	return len(s.triples)
}

// Atoms returns a snapshot of the stored triples in insertion order
func (s *Store) Atoms() (store.Atoms, error) {
	return store.NewAtoms(s.triples), nil
}

// Unify matches pattern against a ground triple position by position.
// Variables bind to the data term; a variable occurring more than once must
// bind equal terms. Constants must be equal to the data term.
func Unify(pattern, data *rdf.Triple) (rdf.Substitution, bool) {
	sub := rdf.NewSubstitution()
	if unifyTerm(pattern.Subject, data.Subject, sub) &&
		unifyTerm(pattern.Predicate, data.Predicate, sub) &&
		unifyTerm(pattern.Object, data.Object, sub) {
		return sub, true
	}
	return nil, false
}

func unifyTerm(pattern, data rdf.Term, sub rdf.Substitution) bool {
	v, ok := pattern.(*rdf.Variable)
	if !ok {
		return pattern.Equals(data)
	}
	if bound, ok := sub.Get(v); ok {
		return bound.Equals(data)
	}
	sub.Bind(v, data)
	return true
}
