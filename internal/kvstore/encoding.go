package kvstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/aleksaelezovic/hexastore/internal/dictionary"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
)

const (
	// HashedTermSize is a type byte followed by a 128-bit hash
	HashedTermSize = 17

	// IDSize is the width of an encoded dictionary id
	IDSize = 4
)

// HashedTerm is the term2id key of a term
type HashedTerm [HashedTermSize]byte

// Hash128 computes a 128-bit xxhash3 hash of the input string
func Hash128(s string) [16]byte {
	hash := xxh3.HashString128(s)
	var result [16]byte
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// HashTerm keys a term by its type and the hash of its encoding.
// Variables are rejected.
func HashTerm(term rdf.Term) (HashedTerm, error) {
	encoded, err := EncodeTerm(term)
	if err != nil {
		return HashedTerm{}, err
	}
	return hashEncoded(encoded), nil
}

func hashEncoded(encoded []byte) HashedTerm {
	var hashed HashedTerm
	hashed[0] = encoded[0]
	hash := Hash128(string(encoded))
	copy(hashed[1:], hash[:])
	return hashed
}

// EncodeTerm writes a term as its type byte followed by length-prefixed
// fields: the IRI of a named node, the label of a blank node, or the value,
// language and optional datatype IRI of a literal.
func EncodeTerm(term rdf.Term) ([]byte, error) {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return appendField([]byte{byte(rdf.TermTypeNamedNode)}, t.IRI), nil
	case *rdf.BlankNode:
		return appendField([]byte{byte(rdf.TermTypeBlankNode)}, t.ID), nil
	case *rdf.Literal:
		buf := appendField([]byte{byte(rdf.TermTypeLiteral)}, t.Value)
		buf = appendField(buf, t.Language)
		if t.Datatype == nil {
			return append(buf, 0), nil
		}
		return appendField(append(buf, 1), t.Datatype.IRI), nil
	default:
		return nil, fmt.Errorf("cannot store term %s of type %T", term, term)
	}
}

// DecodeTerm reads a term written by EncodeTerm
func DecodeTerm(buf []byte) (rdf.Term, error) {
	if len(buf) == 0 {
		return nil, errors.New("empty term encoding")
	}
	d := fieldReader{buf: buf[1:]}
	var term rdf.Term
	switch rdf.TermType(buf[0]) {
	case rdf.TermTypeNamedNode:
		term = rdf.NewNamedNode(d.field())
	case rdf.TermTypeBlankNode:
		term = rdf.NewBlankNode(d.field())
	case rdf.TermTypeLiteral:
		lit := rdf.NewLiteralWithLanguage(d.field(), d.field())
		if d.flag() {
			lit.Datatype = rdf.NewNamedNode(d.field())
		}
		term = lit
	default:
		return nil, fmt.Errorf("unknown term type %d", buf[0])
	}
	if d.err != nil {
		return nil, d.err
	}
	if len(d.buf) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after %s", len(d.buf), term)
	}
	return term, nil
}

func appendField(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// fieldReader consumes fields written by appendField, keeping the first error
type fieldReader struct {
	buf []byte
	err error
}

func (r *fieldReader) field() string {
	if r.err != nil {
		return ""
	}
	n, size := binary.Uvarint(r.buf)
	if size <= 0 || uint64(len(r.buf)-size) < n {
		r.err = errors.New("truncated term encoding")
		return ""
	}
	s := string(r.buf[size : size+int(n)])
	r.buf = r.buf[size+int(n):]
	return s
}

func (r *fieldReader) flag() bool {
	if r.err != nil {
		return false
	}
	if len(r.buf) == 0 {
		r.err = errors.New("truncated term encoding")
		return false
	}
	set := r.buf[0] == 1
	r.buf = r.buf[1:]
	return set
}

// EncodeID writes an id as 4 big-endian bytes so keys sort by id
func EncodeID(id dictionary.ID) []byte {
	buf := make([]byte, IDSize)
	binary.BigEndian.PutUint32(buf, uint32(id))
	return buf
}

// DecodeID reads an id written by EncodeID
func DecodeID(buf []byte) (dictionary.ID, error) {
	if len(buf) != IDSize {
		return dictionary.None, fmt.Errorf("invalid id length: %d", len(buf))
	}
	return dictionary.ID(binary.BigEndian.Uint32(buf)), nil
}

// EncodeKey concatenates ids into an index key
func EncodeKey(ids ...dictionary.ID) []byte {
	key := make([]byte, IDSize*len(ids))
	for i, id := range ids {
		binary.BigEndian.PutUint32(key[i*IDSize:], uint32(id))
	}
	return key
}

// DecodeKey splits a three id index key
func DecodeKey(key []byte) (a, b, c dictionary.ID, err error) {
	if len(key) != 3*IDSize {
		return 0, 0, 0, fmt.Errorf("invalid index key length: %d", len(key))
	}
	a = dictionary.ID(binary.BigEndian.Uint32(key[0:4]))
	b = dictionary.ID(binary.BigEndian.Uint32(key[4:8]))
	c = dictionary.ID(binary.BigEndian.Uint32(key[8:12]))
	return a, b, c, nil
}
