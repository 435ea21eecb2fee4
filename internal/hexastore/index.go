package hexastore

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/aleksaelezovic/hexastore/internal/dictionary"
)

// Position of a component inside a triple
type Position int

const (
	Subject Position = iota
	Predicate
	Object
)

// Permutation names one of the six key orderings of a triple
type Permutation int

const (
	SPO Permutation = iota
	SOP
	PSO
	POS
	OSP
	OPS

	permutationCount
)

// order lists the triple positions in key order for each permutation
var order = [permutationCount][3]Position{
	SPO: {Subject, Predicate, Object},
	SOP: {Subject, Object, Predicate},
	PSO: {Predicate, Subject, Object},
	POS: {Predicate, Object, Subject},
	OSP: {Object, Subject, Predicate},
	OPS: {Object, Predicate, Subject},
}

func (p Permutation) String() string {
	switch p {
	case SPO:
		return "spo"
	case SOP:
		return "sop"
	case PSO:
		return "pso"
	case POS:
		return "pos"
	case OSP:
		return "osp"
	case OPS:
		return "ops"
	default:
		return "unknown"
	}
}

// keys reorders an (s, p, o) id triple into this permutation's key order
func (p Permutation) keys(ids [3]dictionary.ID) (a, b, c dictionary.ID) {
	o := order[p]
	return ids[o[0]], ids[o[1]], ids[o[2]]
}

// triple maps keys in this permutation's order back to (s, p, o)
func (p Permutation) triple(a, b, c dictionary.ID) [3]dictionary.ID {
	var ids [3]dictionary.ID
	o := order[p]
	ids[o[0]], ids[o[1]], ids[o[2]] = a, b, c
	return ids
}

// index is a three level mapping first -> second -> set of third
type index map[dictionary.ID]map[dictionary.ID]*roaring.Bitmap

// insert adds (a, b, c) and reports whether it was new
func (idx index) insert(a, b, c dictionary.ID) bool {
	level2, ok := idx[a]
	if !ok {
		level2 = make(map[dictionary.ID]*roaring.Bitmap)
		idx[a] = level2
	}
	set, ok := level2[b]
	if !ok {
		set = roaring.New()
		level2[b] = set
	}
	return set.CheckedAdd(uint32(c))
}

// lookup returns the set of third components under (a, b), or nil
func (idx index) lookup(a, b dictionary.ID) *roaring.Bitmap {
	return idx[a][b]
}

// contains reports whether (a, b, c) is present
func (idx index) contains(a, b, c dictionary.ID) bool {
	set := idx.lookup(a, b)
	return set != nil && set.Contains(uint32(c))
}

// each calls fn for every (a, b, c) of the index until fn returns false
func (idx index) each(fn func(a, b, c dictionary.ID) bool) {
	for a, level2 := range idx {
		for b, set := range level2 {
			it := set.Iterator()
			for it.HasNext() {
				if !fn(a, b, dictionary.ID(it.Next())) {
					return
				}
			}
		}
	}
}

// count returns the number of (a, b, c) entries
func (idx index) count() int {
	n := 0
	for _, level2 := range idx {
		for _, set := range level2 {
			n += int(set.GetCardinality())
		}
	}
	return n
}
