package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

func newDemoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a demo with sample data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDemo(cmd)
		},
	}
}

func (a *app) runDemo(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "=== Hexastore Demo (%s store) ===\n\n", a.cfg.Store)

	s, release, err := a.openStore()
	if err != nil {
		return err
	}
	defer release()

	bob := rdf.NewNamedNode("http://example.org/bob")
	alice := rdf.NewNamedNode("http://example.org/alice")
	pizza := rdf.NewLiteral("Pizza")
	knows := rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows")
	likes := rdf.NewNamedNode("http://example.org/likes")

	triples := []*rdf.Triple{
		rdf.NewTriple(bob, knows, alice),
		rdf.NewTriple(alice, knows, bob),
		rdf.NewTriple(bob, likes, pizza),
		rdf.NewTriple(bob, knows, alice),
	}

	fmt.Fprintln(w, "Inserting sample data...")
	for _, t := range triples {
		added, err := s.Add(t)
		if err != nil {
			return fmt.Errorf("failed to insert triple: %w", err)
		}
		mark := "✓"
		if !added {
			mark = "= already present:"
		}
		fmt.Fprintf(w, "  %s %s\n", mark, t)
	}
	fmt.Fprintf(w, "\nTotal triples stored: %d\n\n", s.Size())

	x, y, h := rdf.NewVariable("x"), rdf.NewVariable("y"), rdf.NewVariable("h")
	for _, pattern := range []*rdf.Triple{
		rdf.NewTriple(bob, knows, y),
		rdf.NewTriple(x, knows, y),
		rdf.NewTriple(bob, knows, alice),
	} {
		fmt.Fprintf(w, "Match %s\n", pattern)
		subs, err := store.Collect(s.Match(pattern))
		if err != nil {
			return err
		}
		if err := a.out.Substitutions(subs); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	q := store.NewStarQuery(h,
		rdf.NewTriple(h, knows, alice),
		rdf.NewTriple(h, likes, pizza),
	)
	fmt.Fprintf(w, "Star query %s\n", q)
	it, err := store.MatchStar(s, q)
	if errors.Is(err, store.ErrUnsupported) {
		fmt.Fprintf(w, "_The %s store does not evaluate star queries_\n", a.cfg.Store)
		return nil
	}
	if err != nil {
		return err
	}
	subs, err := store.Collect(it)
	if err != nil {
		return err
	}
	if err := a.out.Substitutions(subs); err != nil {
		return err
	}

	atoms, err := s.Atoms()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nStored triples:\n")
	return a.out.Atoms(atoms)
}
