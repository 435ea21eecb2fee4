package store

import (
	"fmt"
	"strings"

	"github.com/aleksaelezovic/hexastore/pkg/rdf"
)

// StarQuery is a conjunction of patterns that all mention one hub variable.
// Only the hub is projected; every other variable is existential.
type StarQuery struct {
	Label    string
	Hub      *rdf.Variable
	Patterns []*rdf.Triple
}

// NewStarQuery creates a star query. Preconditions (non-empty patterns, each
// mentioning the hub) are not checked here; see Validate.
func NewStarQuery(hub *rdf.Variable, patterns ...*rdf.Triple) *StarQuery {
	return &StarQuery{Hub: hub, Patterns: patterns}
}

// Validate checks the star shape
func (q *StarQuery) Validate() error {
	if q.Hub == nil {
		return fmt.Errorf("%w: missing hub variable", ErrInvalidQuery)
	}
	if len(q.Patterns) == 0 {
		return fmt.Errorf("%w: no patterns", ErrInvalidQuery)
	}
	for i, p := range q.Patterns {
		if !p.Mentions(q.Hub) {
			return fmt.Errorf("%w: pattern %d (%s) does not mention %s", ErrInvalidQuery, i, p, q.Hub)
		}
	}
	return nil
}

func (q *StarQuery) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s WHERE {", q.Hub)
	for _, p := range q.Patterns {
		sb.WriteString(" " + p.String())
	}
	sb.WriteString(" }")
	return sb.String()
}
