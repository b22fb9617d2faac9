// Package main provides the vibe-geneset command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// logger is replaced in the root PersistentPreRunE once the level is known.
var logger = zap.NewNop()

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	_ = logger.Sync()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(os.Stderr, "Run 'vibe-geneset --help' for usage.\n")
		return ExitUsage
	}
	return ExitError
}

// usageError marks errors caused by bad invocation rather than bad data.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// usageArgs wraps a positional argument validator so its failures exit
// with ExitUsage.
func usageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

func newRootCmd() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "vibe-geneset",
		Short: "Compare, evaluate and build phenotype gene set databases",
		Long: `vibe-geneset works with gene set databases in GMT format: it compares
databases, scores them against phenotype gene lists with the MAC bootstrap
test, merges LLM-extracted and verified gene lists, and builds consensus
databases across sources.`,
		Example: `  # Compare a regenerated database with the original
  vibe-geneset compare original.gmt new.gmt -o comparison.csv

  # Bootstrap MAC of a phenotype gene list against two databases
  vibe-geneset mac --db HPO=hpo.gmt --db LLM=llm.gmt --phenotype epilepsy=genes.txt

  # Build a consensus database from three model outputs
  vibe-geneset consensus qwen.gmt deepseek.gmt llama.gmt -o consensus.gmt`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "vibe-geneset version %s (%s) built %s\n", version, commit, date)
				return nil
			}
			return cmd.Help()
		},
	}

	root.Flags().BoolVar(&showVersion, "version", false, "Show version information")

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default: ~/.vibe-geneset.yaml)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.Bool("offline", false, "Never query MyGene.info; map identifiers from --mapping-file")
	pf.String("mapping-file", "", "Symbol<TAB>id dictionary used for offline mapping")
	pf.String("cache", "", "DuckDB results and mapping cache (default: ~/.vibe-geneset/cache.duckdb)")

	_ = viper.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("offline", pf.Lookup("offline"))
	_ = viper.BindPFlag("mapping.file", pf.Lookup("mapping-file"))
	_ = viper.BindPFlag("cache.path", pf.Lookup("cache"))

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	root.AddCommand(
		newCompareCmd(),
		newSimilarityCmd(),
		newOverlapCmd(),
		newDBSimCmd(),
		newMACCmd(),
		newPresenceCmd(),
		newMergeCmd(),
		newConsensusCmd(),
		newProgressCmd(),
		newDownloadCmd(),
		newConfigCmd(),
	)

	return root
}

// nopCloser adapts stdout so callers can always Close their output.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// createOutput opens path for writing, or stdout for "" and "-".
func createOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}

// writeOutput runs write against path and reports the first error,
// including the error of closing the file.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	out, err := createOutput(cmd, path)
	if err != nil {
		return err
	}
	if err := write(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
