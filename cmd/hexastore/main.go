package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/hexastore/internal/config"
	"github.com/aleksaelezovic/hexastore/internal/hexastore"
	"github.com/aleksaelezovic/hexastore/internal/kvstore"
	"github.com/aleksaelezovic/hexastore/internal/linear"
	"github.com/aleksaelezovic/hexastore/internal/logging"
	"github.com/aleksaelezovic/hexastore/internal/output"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

// app carries what every subcommand needs once flags are parsed
type app struct {
	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
	out     *output.Formatter
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "hexastore",
		Short: "In-memory RDF triple stores and star queries",
		Long: `hexastore loads N-Triples data into one of three triple stores and answers
single triple patterns and star queries over it.

Stores:
  hexa     six permutation indexes over dictionary ids
  linear   a plain list scanned on every match (no star queries)
  badger   the six permutations as keys of an in-memory badger database`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "hexastore.yaml", "Path to the YAML configuration file")
	flags.String("store", config.StoreHexa, "Store implementation: hexa, linear or badger")
	flags.Bool("single-bound", false, "Answer single-bound patterns from an index (hexa store only)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newLoadCmd(a),
		newMatchCmd(a),
		newQueryCmd(a),
		newCompareCmd(a),
		newDemoCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// init loads the configuration, applies flag overrides and builds the logger
func (a *app) init(cmd *cobra.Command) error {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if flags.Changed("store") {
		cfg.Store, _ = flags.GetString("store")
	}
	if flags.Changed("single-bound") {
		cfg.SingleBoundIndex, _ = flags.GetBool("single-bound")
	}
	if noColor, _ := flags.GetBool("no-color"); noColor {
		cfg.Output.Color = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	verbose, _ := flags.GetBool("verbose")
	logger, err := logging.New(cfg.Log, verbose)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.cfgPath = path
	a.logger = logger
	a.out = output.NewFormatter(cmd.OutOrStdout(), cfg.Output.Color, cfg.Output.MaxWidth)
	return nil
}

// openStore creates the configured store. The returned func releases it.
func (a *app) openStore() (store.Store, func() error, error) {
	logger := a.logger.Named(a.cfg.Store)
	noop := func() error { return nil }

	switch a.cfg.Store {
	case config.StoreHexa:
		s := hexastore.New(
			hexastore.WithLogger(logger),
			hexastore.WithSingleBoundIndex(a.cfg.SingleBoundIndex),
		)
		return s, noop, nil
	case config.StoreLinear:
		return linear.New(linear.WithLogger(logger)), noop, nil
	case config.StoreBadger:
		s, err := kvstore.Open(kvstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store: %q", a.cfg.Store)
	}
}
