package rdf

import "fmt"

// Triple represents an RDF triple (subject, predicate, object). A triple is
// ground when none of its components is a Variable; otherwise it is a pattern.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func NewTriple(subject, predicate, object Term) *Triple {
	return &Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
	}
}

func (t *Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

// Terms returns the three components in subject, predicate, object order
func (t *Triple) Terms() [3]Term {
	return [3]Term{t.Subject, t.Predicate, t.Object}
}

// IsGround reports whether the triple contains no variables
func (t *Triple) IsGround() bool {
	return !IsVariable(t.Subject) && !IsVariable(t.Predicate) && !IsVariable(t.Object)
}

// Equals compares component-wise
func (t *Triple) Equals(other *Triple) bool {
	return t.Subject.Equals(other.Subject) &&
		t.Predicate.Equals(other.Predicate) &&
		t.Object.Equals(other.Object)
}

// Mentions reports whether v occurs in any position
func (t *Triple) Mentions(v *Variable) bool {
	for _, term := range t.Terms() {
		if v.Equals(term) {
			return true
		}
	}
	return false
}

// Variables returns the distinct variables of the pattern in position order
func (t *Triple) Variables() []*Variable {
	var vars []*Variable
	seen := make(map[string]bool, 3)
	for _, term := range t.Terms() {
		if v, ok := term.(*Variable); ok && !seen[v.Name] {
			seen[v.Name] = true
			vars = append(vars, v)
		}
	}
	return vars
}

// Substitute returns a copy of the pattern with every occurrence of v
// replaced by value. Other positions are left untouched.
func (t *Triple) Substitute(v *Variable, value Term) *Triple {
	replace := func(term Term) Term {
		if v.Equals(term) {
			return value
		}
		return term
	}
	return NewTriple(replace(t.Subject), replace(t.Predicate), replace(t.Object))
}

// TripleKey is the comparable value identity of a triple
type TripleKey [3]Key

// KeyOfTriple returns the value identity of t
func KeyOfTriple(t *Triple) TripleKey {
	return TripleKey{KeyOf(t.Subject), KeyOf(t.Predicate), KeyOf(t.Object)}
}
