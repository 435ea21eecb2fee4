package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/hexastore/internal/compare"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"github.com/aleksaelezovic/hexastore/pkg/sparql"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

func readTriples(path string) ([]*rdf.Triple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data: %w", err)
	}
	defer f.Close()

	triples, err := rdf.ReadNTriples(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return triples, nil
}

func readQueries(path string) ([]*store.StarQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queries: %w", err)
	}
	defer f.Close()

	queries, err := sparql.ReadQuerySet(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return queries, nil
}

// loadStore opens the configured store and fills it with the data file
func (a *app) loadStore(path string) (store.Store, func() error, int, error) {
	triples, err := readTriples(path)
	if err != nil {
		return nil, nil, 0, err
	}
	s, release, err := a.openStore()
	if err != nil {
		return nil, nil, 0, err
	}
	if _, err := store.AddAll(s, slices.Values(triples)); err != nil {
		_ = release()
		return nil, nil, 0, fmt.Errorf("failed to load %s: %w", path, err)
	}
	a.logger.Info("data loaded",
		zap.String("file", path),
		zap.Int("read", len(triples)),
		zap.Int("distinct", s.Size()))
	return s, release, len(triples), nil
}

func newLoadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <data.nt>",
		Short: "Load an N-Triples file and report its size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, release, read, err := a.loadStore(args[0])
			if err != nil {
				return err
			}
			defer release()

			if err := a.out.Loaded(read, s.Size(), a.cfg.Store); err != nil {
				return err
			}
			if dump, _ := cmd.Flags().GetBool("dump"); dump {
				atoms, err := s.Atoms()
				if err != nil {
					return err
				}
				return a.out.Atoms(atoms)
			}
			return nil
		},
	}
	cmd.Flags().Bool("dump", false, "Print the stored triples")
	return cmd
}

func newMatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "match <data.nt> <subject> <predicate> <object>",
		Short: "Match a single triple pattern",
		Long: `Match a single triple pattern. Terms use N-Triples syntax and variables
are written ?name, for example:

  hexastore match data.nt '?x' '<http://xmlns.com/foaf/0.1/knows>' '?y'`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var terms [3]rdf.Term
			for i, arg := range args[1:] {
				term, err := rdf.ParseTerm(arg)
				if err != nil {
					return fmt.Errorf("invalid term %q: %w", arg, err)
				}
				terms[i] = term
			}
			pattern := rdf.NewTriple(terms[0], terms[1], terms[2])

			s, release, _, err := a.loadStore(args[0])
			if err != nil {
				return err
			}
			defer release()

			subs, err := store.Collect(s.Match(pattern))
			if err != nil {
				return err
			}
			return a.out.Substitutions(subs)
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <data.nt> <queries.queryset>",
		Short: "Evaluate star queries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := readQueries(args[1])
			if err != nil {
				return err
			}
			s, release, _, err := a.loadStore(args[0])
			if err != nil {
				return err
			}
			defer release()

			w := cmd.OutOrStdout()
			for _, q := range queries {
				fmt.Fprintf(w, "=== Query: %s ===\n%s\n\n", q.Label, q)

				it, err := store.MatchStar(s, q)
				if errors.Is(err, store.ErrUnsupported) {
					return fmt.Errorf("the %s store cannot evaluate star queries: %w", a.cfg.Store, err)
				}
				if err != nil {
					return fmt.Errorf("query %s: %w", q.Label, err)
				}
				subs, err := store.Collect(it)
				if err != nil {
					return fmt.Errorf("query %s: %w", q.Label, err)
				}
				if err := a.out.Substitutions(subs); err != nil {
					return err
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func newCompareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <data.nt> <queries.queryset>",
		Short: "Check star query answers against a reference evaluator",
		Long: `Evaluate every query on the configured store and on an independent
backtracking evaluator, then report missing and extra answers per query.
Exits non-zero if any query differs or fails.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			triples, err := readTriples(args[0])
			if err != nil {
				return err
			}
			queries, err := readQueries(args[1])
			if err != nil {
				return err
			}
			s, release, err := a.openStore()
			if err != nil {
				return err
			}
			defer release()

			harness, err := compare.NewHarness(s, triples, a.logger.Named("compare"))
			if err != nil {
				return err
			}
			results, summary := harness.Run(queries)
			if err := a.out.Comparison(results, summary); err != nil {
				return err
			}
			if summary.Differing > 0 || summary.Failed > 0 {
				return fmt.Errorf("%d of %d queries did not match the reference", summary.Differing+summary.Failed, len(results))
			}
			return nil
		},
	}
}
