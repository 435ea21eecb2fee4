// Package hexastore implements the six-index triple store.
//
// Terms are interned by a store-scoped dictionary and every triple is kept
// under the six orderings SPO, SOP, PSO, POS, OSP and OPS. Match picks an
// index from the bound positions of the pattern:
//
//	all three bound  -> existence check in SPO
//	two bound        -> SPO (s,p), POS (p,o) or SOP (s,o)
//	otherwise        -> unification scan over the decoded triples
//
// The single bound case can be served from SPO, POS or OSP instead of the
// scan with WithSingleBoundIndex. Both paths produce the same result sets.
package hexastore

import (
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/hexastore/internal/dictionary"
	"github.com/aleksaelezovic/hexastore/internal/linear"
	"github.com/aleksaelezovic/hexastore/internal/star"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

// Store is the six-index triple store
type Store struct {
	dict    *dictionary.Dictionary
	indexes [permutationCount]index
	order   [][3]dictionary.ID // insertion order, for Atoms
	count   int

	singleBound bool
	logger      *zap.Logger
}

var (
	_ store.Store       = (*Store)(nil)
	_ store.StarMatcher = (*Store)(nil)
)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithSingleBoundIndex answers patterns with exactly one bound position from
// the index keyed by that position instead of scanning every triple.
func WithSingleBoundIndex(enabled bool) Option {
	return func(s *Store) {
		s.singleBound = enabled
	}
}

// New creates an empty store with its own dictionary
func New(opts ...Option) *Store {
	s := &Store{
		dict:   dictionary.New(),
		logger: zap.NewNop(),
	}
	for i := range s.indexes {
		s.indexes[i] = make(index)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add encodes the triple and inserts it under all six orderings. A triple
// already present is reported as false and leaves the indexes untouched.
func (s *Store) Add(t *rdf.Triple) (bool, error) {
	if err := store.CheckGround(t); err != nil {
		return false, err
	}

	ids := [3]dictionary.ID{
		s.dict.Encode(t.Subject),
		s.dict.Encode(t.Predicate),
		s.dict.Encode(t.Object),
	}

	if s.indexes[SPO].contains(ids[0], ids[1], ids[2]) {
		return false, nil
	}

	for p := range permutationCount {
		s.indexes[p].insert(p.keys(ids))
	}
	s.order = append(s.order, ids)
	s.count++
	return true, nil
}

// Match returns the substitutions of the pattern against the stored triples
func (s *Store) Match(pattern *rdf.Triple) store.Iterator {
	var (
		ids   [3]dictionary.ID
		bound []Position
	)
	for i, term := range pattern.Terms() {
		if rdf.IsVariable(term) {
			continue
		}
		id := s.dict.Lookup(term)
		if id == dictionary.None {
			// a bound term never seen by this store cannot match anything
			s.logger.Debug("unknown term", zap.Stringer("term", term))
			return store.Empty()
		}
		ids[i] = id
		bound = append(bound, Position(i))
	}

	switch len(bound) {
	case 3:
		return s.matchGround(ids)
	case 2:
		return s.matchTwoBound(pattern, ids, bound)
	case 1:
		if s.singleBound {
			return s.matchOneBound(pattern, ids, bound[0])
		}
	}
	return s.scan(pattern)
}

func (s *Store) matchGround(ids [3]dictionary.ID) store.Iterator {
	s.logger.Debug("match", zap.Stringer("index", SPO), zap.Int("bound", 3))
	if !s.indexes[SPO].contains(ids[0], ids[1], ids[2]) {
		return store.Empty()
	}
	return store.NewSliceIterator([]rdf.Substitution{rdf.NewSubstitution()})
}

// matchTwoBound descends two levels of the index keyed by the bound
// positions and binds the remaining variable to every id found.
func (s *Store) matchTwoBound(pattern *rdf.Triple, ids [3]dictionary.ID, bound []Position) store.Iterator {
	var perm Permutation
	switch {
	case bound[0] == Subject && bound[1] == Predicate:
		perm = SPO
	case bound[0] == Predicate && bound[1] == Object:
		perm = POS
	default:
		perm = SOP
	}
	s.logger.Debug("match", zap.Stringer("index", perm), zap.Int("bound", 2))

	a, b, _ := perm.keys(ids)
	set := s.indexes[perm].lookup(a, b)
	if set == nil {
		return store.Empty()
	}

	free := order[perm][2]
	v := pattern.Terms()[free].(*rdf.Variable)

	results := make([]rdf.Substitution, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		sub := rdf.NewSubstitution()
		sub.Bind(v, s.dict.MustDecode(dictionary.ID(it.Next())))
		results = append(results, sub)
	}
	return store.NewSliceIterator(results)
}

// matchOneBound walks the first level of the index keyed by the bound
// position. Unification handles variables repeated in the free positions.
func (s *Store) matchOneBound(pattern *rdf.Triple, ids [3]dictionary.ID, pos Position) store.Iterator {
	perm := [...]Permutation{Subject: SPO, Predicate: POS, Object: OSP}[pos]
	s.logger.Debug("match", zap.Stringer("index", perm), zap.Int("bound", 1))

	a := ids[pos]
	level2 := s.indexes[perm][a]

	var results []rdf.Substitution
	for _, b := range slices.Sorted(maps.Keys(level2)) {
		it := level2[b].Iterator()
		for it.HasNext() {
			data := s.decode(perm.triple(a, b, dictionary.ID(it.Next())))
			if sub, ok := linear.Unify(pattern, data); ok {
				results = append(results, sub)
			}
		}
	}
	return store.NewSliceIterator(results)
}

// scan evaluates the pattern with the linear store's unification over a
// decoded copy of the data.
func (s *Store) scan(pattern *rdf.Triple) store.Iterator {
	s.logger.Debug("match falls back to scan", zap.Stringer("pattern", pattern), zap.Int("triples", s.count))

	scratch := linear.New(linear.WithLogger(s.logger))
	for _, ids := range s.order {
		if _, err := scratch.Add(s.decode(ids)); err != nil {
			// decoded triples are ground by construction
			panic(fmt.Sprintf("hexastore: %v", err))
		}
	}
	return scratch.Match(pattern)
}

// MatchStar evaluates a star query
func (s *Store) MatchStar(q *store.StarQuery) (store.Iterator, error) {
	return star.Evaluate(s, q)
}

// HowMany counts the results of Match
func (s *Store) HowMany(pattern *rdf.Triple) (int, error) {
	return store.Count(s.Match(pattern))
}

// Size returns the number of distinct triples
func (s *Store) Size() int {
	return s.count
}

// Terms returns the number of distinct interned terms
func (s *Store) Terms() int {
	return s.dict.Len()
}

// Atoms decodes every stored triple, in insertion order
func (s *Store) Atoms() (store.Atoms, error) {
	triples := make([]*rdf.Triple, len(s.order))
	for i, ids := range s.order {
		triples[i] = s.decode(ids)
	}
	return store.NewAtoms(triples), nil
}

func (s *Store) decode(ids [3]dictionary.ID) *rdf.Triple {
	return rdf.NewTriple(
		s.dict.MustDecode(ids[0]),
		s.dict.MustDecode(ids[1]),
		s.dict.MustDecode(ids[2]),
	)
}

// CheckConsistency verifies that all six indexes hold exactly the triples of
// the SPO index, that the triple counter agrees and that every id decodes.
func (s *Store) CheckConsistency() error {
	reference := make(map[[3]dictionary.ID]struct{}, s.count)
	s.indexes[SPO].each(func(a, b, c dictionary.ID) bool {
		reference[SPO.triple(a, b, c)] = struct{}{}
		return true
	})
	if len(reference) != s.count {
		return fmt.Errorf("spo holds %d triples, counter says %d", len(reference), s.count)
	}

	for p := range permutationCount {
		if n := s.indexes[p].count(); n != s.count {
			return fmt.Errorf("%s holds %d triples, counter says %d", p, n, s.count)
		}
		var err error
		s.indexes[p].each(func(a, b, c dictionary.ID) bool {
			ids := p.triple(a, b, c)
			if _, ok := reference[ids]; !ok {
				err = fmt.Errorf("%s holds %v missing from spo", p, ids)
				return false
			}
			for _, id := range ids {
				if _, derr := s.dict.Decode(id); derr != nil {
					err = fmt.Errorf("%s: %w", p, derr)
					return false
				}
			}
			return true
		})
		if err != nil {
			return err
		}
	}
	return nil
}
