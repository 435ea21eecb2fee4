package compare

import (
	"maps"

	"github.com/aleksaelezovic/hexastore/internal/linear"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

// Reference evaluates star queries as plain conjunctive queries: it joins
// the patterns left to right by backtracking over a linear store and
// projects the hub. It shares no code with the star evaluator.
type Reference struct {
	data *linear.Store
}

// NewReference loads triples into a fresh linear store
func NewReference(triples []*rdf.Triple) (*Reference, error) {
	data := linear.New()
	for _, t := range triples {
		if _, err := data.Add(t); err != nil {
			return nil, err
		}
	}
	return &Reference{data: data}, nil
}

// Size returns the number of distinct triples loaded
func (r *Reference) Size() int {
	return r.data.Size()
}

// Evaluate returns the distinct hub bindings of q in discovery order
func (r *Reference) Evaluate(q *store.StarQuery) ([]rdf.Substitution, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		results []rdf.Substitution
		seen    = make(map[rdf.Key]struct{})
	)
	err := r.solve(q.Patterns, rdf.NewSubstitution(), func(sub rdf.Substitution) {
		value, ok := sub.Get(q.Hub)
		if !ok {
			return
		}
		key := rdf.KeyOf(value)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		projected := rdf.NewSubstitution()
		projected.Bind(q.Hub, value)
		results = append(results, projected)
	})
	return results, err
}

// solve extends sub with a match of every remaining pattern and calls emit
// once per complete solution
func (r *Reference) solve(patterns []*rdf.Triple, sub rdf.Substitution, emit func(rdf.Substitution)) error {
	if len(patterns) == 0 {
		emit(sub)
		return nil
	}

	pattern := instantiate(patterns[0], sub)
	matches, err := store.Collect(r.data.Match(pattern))
	if err != nil {
		return err
	}
	for _, ext := range matches {
		next := maps.Clone(sub)
		maps.Copy(next, ext)
		if err := r.solve(patterns[1:], next, emit); err != nil {
			return err
		}
	}
	return nil
}

// instantiate replaces the variables of pattern already bound in sub
func instantiate(pattern *rdf.Triple, sub rdf.Substitution) *rdf.Triple {
	for _, v := range pattern.Variables() {
		if value, ok := sub.Get(v); ok {
			pattern = pattern.Substitute(v, value)
		}
	}
	return pattern
}
