package store

import "github.com/aleksaelezovic/hexastore/pkg/rdf"

// Iterator is a one-shot, pull-based sequence of substitutions.
//
//	it := s.Match(pattern)
//	defer it.Close()
//	for it.Next() {
//		sub := it.Substitution()
//	}
//
// Errors hit while producing results are reported by Close.
type Iterator interface {
	Next() bool
	Substitution() rdf.Substitution
	Close() error
}

// sliceIterator iterates over materialized results
type sliceIterator struct {
	subs []rdf.Substitution
	pos  int
}

// NewSliceIterator wraps already computed substitutions
func NewSliceIterator(subs []rdf.Substitution) Iterator {
	return &sliceIterator{subs: subs, pos: -1}
}

// Empty returns an iterator with no results
func Empty() Iterator {
	return &sliceIterator{pos: -1}
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.subs) {
		it.pos = len(it.subs)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Substitution() rdf.Substitution {
	if it.pos < 0 || it.pos >= len(it.subs) {
		return nil
	}
	return it.subs[it.pos]
}

func (it *sliceIterator) Close() error {
	it.pos = len(it.subs)
	return nil
}

// Collect drains it and closes it
func Collect(it Iterator) ([]rdf.Substitution, error) {
	var subs []rdf.Substitution
	for it.Next() {
		subs = append(subs, it.Substitution())
	}
	if err := it.Close(); err != nil {
		return nil, err
	}
	return subs, nil
}

// Count drains it, closes it and returns the number of results
func Count(it Iterator) (int, error) {
	n := 0
	for it.Next() {
		n++
	}
	if err := it.Close(); err != nil {
		return 0, err
	}
	return n, nil
}
