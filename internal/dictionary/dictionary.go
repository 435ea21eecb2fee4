// Package dictionary interns RDF terms into dense integer identifiers.
package dictionary

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/hexastore/pkg/rdf"
)

// ID identifies an interned term. Identifiers are assigned in first-seen
// order starting at 1 and are never reused.
type ID uint32

// None is the "not present" sentinel; it is never assigned to a term
const None ID = 0

// ErrNotFound is returned when decoding an identifier with no entry
var ErrNotFound = errors.New("term id not found")

// Dictionary is a bidirectional term <-> ID mapping owned by one store
type Dictionary struct {
	term2id map[rdf.Key]ID
	id2term []rdf.Term // id2term[id-1]
}

// New creates an empty dictionary
func New() *Dictionary {
	return &Dictionary{
		term2id: make(map[rdf.Key]ID),
	}
}

// Encode returns the identifier of t, allocating the next one if t has not
// been seen before.
func (d *Dictionary) Encode(t rdf.Term) ID {
	key := rdf.KeyOf(t)
	if id, ok := d.term2id[key]; ok {
		return id
	}
	d.id2term = append(d.id2term, t)
	id := ID(len(d.id2term))
	d.term2id[key] = id
	return id
}

// Lookup returns the identifier of t, or None if t was never encoded.
// It never mutates the dictionary.
func (d *Dictionary) Lookup(t rdf.Term) ID {
	return d.term2id[rdf.KeyOf(t)]
}

// Contains reports whether t has been encoded
func (d *Dictionary) Contains(t rdf.Term) bool {
	return d.Lookup(t) != None
}

// Decode returns the term for id
func (d *Dictionary) Decode(id ID) (rdf.Term, error) {
	if id == None || int(id) > len(d.id2term) {
		return nil, fmt.Errorf("decode %d: %w", id, ErrNotFound)
	}
	return d.id2term[id-1], nil
}

// MustDecode is Decode for identifiers the caller obtained from this
// dictionary. It panics on unknown ids, which would mean a corrupted index.
func (d *Dictionary) MustDecode(id ID) rdf.Term {
	t, err := d.Decode(id)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of distinct interned terms
func (d *Dictionary) Len() int {
	return len(d.id2term)
}
