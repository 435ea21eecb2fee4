// Package kvstore keeps the six triple orderings in an in-memory badger
// instance. Keys are table prefixed; index keys are three big-endian ids so a
// prefix scan over two ids yields every value of the third position in id
// order.
package kvstore

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/hexastore/internal/dictionary"
	"github.com/aleksaelezovic/hexastore/internal/linear"
	"github.com/aleksaelezovic/hexastore/internal/star"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

// permutations maps each index table to the triple positions of its key
var permutations = map[Table][3]int{
	TableSPO: {0, 1, 2},
	TableSOP: {0, 2, 1},
	TablePSO: {1, 0, 2},
	TablePOS: {1, 2, 0},
	TableOSP: {2, 0, 1},
	TableOPS: {2, 1, 0},
}

// Store is a triple store on top of badger
type Store struct {
	db     *storage
	nextID dictionary.ID
	count  int
	logger *zap.Logger
}

var (
	_ store.Store       = (*Store)(nil)
	_ store.StarMatcher = (*Store)(nil)
)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger for the store and the underlying badger instance
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open creates an empty in-memory store. Close must be called to release it.
func Open(opts ...Option) (*Store, error) {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := openStorage(s.logger.Named("badger"))
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

// Close releases the badger instance
func (s *Store) Close() error {
	return s.db.close()
}

// Add interns the terms and writes all six index keys in one transaction
func (s *Store) Add(t *rdf.Triple) (bool, error) {
	if err := store.CheckGround(t); err != nil {
		return false, err
	}

	tx := s.db.begin(true)
	defer tx.discard()

	// ids allocated by a transaction that does not commit are handed out again
	next := s.nextID
	committed := false
	defer func() {
		if !committed {
			s.nextID = next
		}
	}()

	var ids [3]dictionary.ID
	for i, term := range t.Terms() {
		id, err := s.intern(tx, term)
		if err != nil {
			return false, err
		}
		ids[i] = id
	}

	exists, err := tx.has(TableSPO, EncodeKey(ids[0], ids[1], ids[2]))
	if err != nil {
		return false, fmt.Errorf("failed to check triple: %w", err)
	}
	if exists {
		return false, nil
	}

	for table, pos := range permutations {
		key := EncodeKey(ids[pos[0]], ids[pos[1]], ids[pos[2]])
		if err := tx.set(table, key, nil); err != nil {
			return false, fmt.Errorf("failed to write %s: %w", table, err)
		}
	}

	if err := tx.commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	committed = true
	s.count++
	return true, nil
}

// intern returns the id of term, allocating one if needed
func (s *Store) intern(tx *txn, term rdf.Term) (dictionary.ID, error) {
	encoded, err := EncodeTerm(term)
	if err != nil {
		return dictionary.None, err
	}
	hashed := hashEncoded(encoded)

	value, err := tx.get(TableTerm2ID, hashed[:])
	switch {
	case err == nil:
		id, err := DecodeID(value)
		if err != nil {
			return dictionary.None, err
		}
		stored, err := tx.get(TableID2Term, value)
		if err != nil {
			return dictionary.None, fmt.Errorf("id %d has no term: %w", id, err)
		}
		if !bytes.Equal(stored, encoded) {
			return dictionary.None, fmt.Errorf("hash collision between %s and id %d", term, id)
		}
		return id, nil
	case !errors.Is(err, store.ErrNotFound):
		return dictionary.None, err
	}

	s.nextID++
	id := s.nextID
	if err := tx.set(TableTerm2ID, hashed[:], EncodeID(id)); err != nil {
		return dictionary.None, err
	}
	if err := tx.set(TableID2Term, EncodeID(id), encoded); err != nil {
		return dictionary.None, err
	}
	return id, nil
}

// lookup returns the id of a term without allocating one
func (s *Store) lookup(tx *txn, term rdf.Term) (dictionary.ID, error) {
	hashed, err := HashTerm(term)
	if err != nil {
		return dictionary.None, err
	}
	value, err := tx.get(TableTerm2ID, hashed[:])
	if errors.Is(err, store.ErrNotFound) {
		return dictionary.None, nil
	}
	if err != nil {
		return dictionary.None, err
	}
	return DecodeID(value)
}

// decode reads the term stored under id
func (s *Store) decode(tx *txn, id dictionary.ID) (rdf.Term, error) {
	value, err := tx.get(TableID2Term, EncodeID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to decode id %d: %w", id, err)
	}
	term, err := DecodeTerm(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode id %d: %w", id, err)
	}
	return term, nil
}

// Match returns the substitutions of the pattern against the stored triples
func (s *Store) Match(pattern *rdf.Triple) store.Iterator {
	tx := s.db.begin(false)

	var (
		ids   [3]dictionary.ID
		bound []int
	)
	for i, term := range pattern.Terms() {
		if rdf.IsVariable(term) {
			continue
		}
		id, err := s.lookup(tx, term)
		if err != nil {
			tx.discard()
			return &errIterator{err: err}
		}
		if id == dictionary.None {
			tx.discard()
			s.logger.Debug("unknown term", zap.Stringer("term", term))
			return store.Empty()
		}
		ids[i] = id
		bound = append(bound, i)
	}

	switch len(bound) {
	case 3:
		defer tx.discard()
		s.logger.Debug("match", zap.Stringer("index", TableSPO), zap.Int("bound", 3))
		ok, err := tx.has(TableSPO, EncodeKey(ids[0], ids[1], ids[2]))
		if err != nil {
			return &errIterator{err: err}
		}
		if !ok {
			return store.Empty()
		}
		return store.NewSliceIterator([]rdf.Substitution{rdf.NewSubstitution()})
	case 2:
		return s.matchTwoBound(tx, pattern, ids, bound)
	}

	tx.discard()
	return s.scan(pattern)
}

// matchTwoBound streams the third position from a prefix scan of the index
// keyed by the two bound positions. The iterator owns tx.
func (s *Store) matchTwoBound(tx *txn, pattern *rdf.Triple, ids [3]dictionary.ID, bound []int) store.Iterator {
	var table Table
	switch {
	case bound[0] == 0 && bound[1] == 1:
		table = TableSPO
	case bound[0] == 1 && bound[1] == 2:
		table = TablePOS
	default:
		table = TableSOP
	}
	s.logger.Debug("match", zap.Stringer("index", table), zap.Int("bound", 2))

	pos := permutations[table]
	return &scanIterator{
		store:    s,
		tx:       tx,
		scanner:  tx.scan(table, EncodeKey(ids[pos[0]], ids[pos[1]])),
		variable: pattern.Terms()[pos[2]].(*rdf.Variable),
	}
}

// scan unifies the pattern against every stored triple
func (s *Store) scan(pattern *rdf.Triple) store.Iterator {
	s.logger.Debug("match falls back to scan", zap.Stringer("pattern", pattern), zap.Int("triples", s.count))

	atoms, err := s.Atoms()
	if err != nil {
		return &errIterator{err: err}
	}
	var results []rdf.Substitution
	for data := range atoms.All() {
		if sub, ok := linear.Unify(pattern, data); ok {
			results = append(results, sub)
		}
	}
	return store.NewSliceIterator(results)
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
	return int(s.nextID)
}

// Atoms decodes every stored triple in SPO key order
func (s *Store) Atoms() (store.Atoms, error) {
	tx := s.db.begin(false)
	defer tx.discard()

	sc := tx.scan(TableSPO, nil)
	defer sc.close()

	triples := make([]*rdf.Triple, 0, s.count)
	for sc.next() {
		a, b, c, err := DecodeKey(sc.key())
		if err != nil {
			return store.Atoms{}, err
		}
		var terms [3]rdf.Term
		for i, id := range [3]dictionary.ID{a, b, c} {
			if terms[i], err = s.decode(tx, id); err != nil {
				return store.Atoms{}, err
			}
		}
		triples = append(triples, rdf.NewTriple(terms[0], terms[1], terms[2]))
	}
	return store.NewAtoms(triples), nil
}

// CheckConsistency verifies that every index table holds the triples of spo
func (s *Store) CheckConsistency() error {
	tx := s.db.begin(false)
	defer tx.discard()

	reference := make(map[[3]dictionary.ID]struct{}, s.count)
	for table, pos := range permutations {
		n := 0
		sc := tx.scan(table, nil)
		for sc.next() {
			a, b, c, err := DecodeKey(sc.key())
			if err != nil {
				sc.close()
				return fmt.Errorf("%s: %w", table, err)
			}
			var ids [3]dictionary.ID
			ids[pos[0]], ids[pos[1]], ids[pos[2]] = a, b, c
			if table == TableSPO {
				reference[ids] = struct{}{}
			}
			n++
		}
		sc.close()
		if n != s.count {
			return fmt.Errorf("%s holds %d triples, counter says %d", table, n, s.count)
		}
	}

	// second pass once spo is known, map iteration order is random
	for table, pos := range permutations {
		sc := tx.scan(table, nil)
		for sc.next() {
			a, b, c, _ := DecodeKey(sc.key())
			var ids [3]dictionary.ID
			ids[pos[0]], ids[pos[1]], ids[pos[2]] = a, b, c
			if _, ok := reference[ids]; !ok {
				sc.close()
				return fmt.Errorf("%s holds %v missing from spo", table, ids)
			}
		}
		sc.close()
	}
	return nil
}

// scanIterator decodes one binding per key of a prefix scan
type scanIterator struct {
	store    *Store
	tx       *txn
	scanner  *scanner
	variable *rdf.Variable
	current  rdf.Substitution
	err      error
	closed   bool
}

func (it *scanIterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}
	if !it.scanner.next() {
		it.current = nil
		return false
	}
	_, _, c, err := DecodeKey(it.scanner.key())
	if err != nil {
		it.err = err
		return false
	}
	term, err := it.store.decode(it.tx, c)
	if err != nil {
		it.err = err
		return false
	}
	it.current = rdf.NewSubstitution()
	it.current.Bind(it.variable, term)
	return true
}

func (it *scanIterator) Substitution() rdf.Substitution {
	return it.current
}

func (it *scanIterator) Close() error {
	if !it.closed {
		it.closed = true
		it.scanner.close()
		it.tx.discard()
	}
	return it.err
}

// errIterator yields nothing and reports err on Close
type errIterator struct {
	err error
}

func (it *errIterator) Next() bool                     { return false }
func (it *errIterator) Substitution() rdf.Substitution { return nil }
func (it *errIterator) Close() error                   { return it.err }
