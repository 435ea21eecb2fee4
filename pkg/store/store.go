// Package store defines the capability contract shared by every triple store
// implementation: insertion, single-pattern matching, counting and inspection.
//
// Stores are single-writer: populate first, then query. No locking is done and
// mutating a store while one of its iterators is open is undefined.
package store

import (
	"errors"
	"fmt"
	"iter"

	"github.com/aleksaelezovic/hexastore/pkg/rdf"
)

var (
	// ErrNotGround is returned when a triple containing variables is added
	ErrNotGround = errors.New("triple is not ground")

	// ErrUnsupported is returned by MatchStar for stores that do not evaluate
	// star queries. It is distinct from a query with zero results.
	ErrUnsupported = fmt.Errorf("star queries not implemented: %w", errors.ErrUnsupported)

	// ErrNotFound is returned when a key or identifier has no entry
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery is returned by StarQuery.Validate
	ErrInvalidQuery = errors.New("invalid star query")
)

// Matcher is the minimal read capability the star query evaluator needs
type Matcher interface {
	// Match returns one substitution per stored triple matching the pattern
	Match(pattern *rdf.Triple) Iterator

	// HowMany returns the number of substitutions Match would produce
	HowMany(pattern *rdf.Triple) (int, error)
}

// Store is a set of ground triples that can be matched against patterns
type Store interface {
	Matcher

	// Add inserts a ground triple. It reports false if the triple was
	// already present.
	Add(t *rdf.Triple) (bool, error)

	// Size returns the number of distinct triples stored
	Size() int

	// Atoms returns a read-only snapshot of all stored triples
	Atoms() (Atoms, error)
}

// StarMatcher is implemented by stores that evaluate star queries
type StarMatcher interface {
	MatchStar(q *StarQuery) (Iterator, error)
}

// AddAll inserts every triple of the sequence and reports whether at least
// one of them was new. It stops at the first error.
func AddAll(s Store, triples iter.Seq[*rdf.Triple]) (bool, error) {
	added := false
	for t := range triples {
		ok, err := s.Add(t)
		if err != nil {
			return added, err
		}
		added = added || ok
	}
	return added, nil
}

// MatchStar evaluates a star query on s, or returns ErrUnsupported if s does
// not implement StarMatcher.
func MatchStar(s Store, q *StarQuery) (Iterator, error) {
	sm, ok := s.(StarMatcher)
	if !ok {
		return nil, fmt.Errorf("%T: %w", s, ErrUnsupported)
	}
	return sm.MatchStar(q)
}

// CheckGround returns ErrNotGround if t has a variable or a missing component
func CheckGround(t *rdf.Triple) error {
	if t == nil || t.Subject == nil || t.Predicate == nil || t.Object == nil {
		return fmt.Errorf("incomplete triple: %w", ErrNotGround)
	}
	if !t.IsGround() {
		return fmt.Errorf("%s: %w", t, ErrNotGround)
	}
	return nil
}
