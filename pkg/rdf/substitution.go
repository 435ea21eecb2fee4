package rdf

import (
	"maps"
	"slices"
	"strings"
)

// Substitution binds variables (by name) to terms. It represents one answer
// of a match.
type Substitution map[string]Term

// NewSubstitution creates an empty substitution
func NewSubstitution() Substitution {
	return make(Substitution)
}

// Bind maps v to value
func (s Substitution) Bind(v *Variable, value Term) {
	s[v.Name] = value
}

// Get returns the term bound to v, if any
func (s Substitution) Get(v *Variable) (Term, bool) {
	t, ok := s[v.Name]
	return t, ok
}

// Equal reports whether both substitutions hold the same bindings,
// regardless of insertion order.
func (s Substitution) Equal(other Substitution) bool {
	if len(s) != len(other) {
		return false
	}
	for name, t := range s {
		o, ok := other[name]
		if !ok || !t.Equals(o) {
			return false
		}
	}
	return true
}

// String renders the bindings sorted by variable name, e.g. {?x -> <a>, ?y -> "b"}
func (s Substitution) String() string {
	names := slices.Sorted(maps.Keys(s))
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = "?" + name + " -> " + s[name].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
