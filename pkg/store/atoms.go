package store

import (
	"iter"

	"github.com/aleksaelezovic/hexastore/pkg/rdf"
)

// Atoms is a read-only view over a snapshot of stored triples. It exposes no
// mutating operations; Slice hands out a copy.
type Atoms struct {
	triples []rdf.Triple
}

// NewAtoms snapshots the given triples
func NewAtoms(triples []*rdf.Triple) Atoms {
	snapshot := make([]rdf.Triple, len(triples))
	for i, t := range triples {
		snapshot[i] = *t
	}
	return Atoms{triples: snapshot}
}

// Len returns the number of triples
func (a Atoms) Len() int {
	return len(a.triples)
}

// At returns a copy of the i-th triple
func (a Atoms) At(i int) *rdf.Triple {
	t := a.triples[i]
	return &t
}

// All yields a copy of every triple in order
func (a Atoms) All() iter.Seq[*rdf.Triple] {
	return func(yield func(*rdf.Triple) bool) {
		for i := range a.triples {
			if !yield(a.At(i)) {
				return
			}
		}
	}
}

// Contains reports whether t is part of the snapshot
func (a Atoms) Contains(t *rdf.Triple) bool {
	for i := range a.triples {
		if a.triples[i].Equals(t) {
			return true
		}
	}
	return false
}

// Slice returns a fresh copy of the triples
func (a Atoms) Slice() []*rdf.Triple {
	out := make([]*rdf.Triple, len(a.triples))
	for i := range a.triples {
		out[i] = a.At(i)
	}
	return out
}
