package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-geneset/internal/progress"
)

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect and edit the phenotype progress store",
		Long: `The progress store records which phenotypes finished extraction.
'merge --only-done' merges only those phenotypes.`,
		Example: `  vibe-geneset progress import processed_phenotypes.txt --progress-db progress.db
  vibe-geneset progress mark HP_0001250 --progress-db progress.db
  vibe-geneset progress list --progress-db progress.db`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().String("progress-db", "", "SQLite progress store (default: progress.path config)")

	cmd.AddCommand(
		newProgressImportCmd(),
		newProgressExportCmd(),
		newProgressListCmd(),
		newProgressMarkCmd(),
	)
	return cmd
}

// withProgress opens the progress store named by --progress-db or
// progress.path and runs fn against it.
func withProgress(cmd *cobra.Command, fn func(progress.Store) error) error {
	if err := bindFlags(cmd, map[string]string{"progress.path": "progress-db"}); err != nil {
		return err
	}
	path := expandHome(viper.GetString("progress.path"))
	if path == "" {
		return &usageError{errors.New("--progress-db or progress.path is required")}
	}
	s, err := progress.OpenSQLite(path)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

func newProgressImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Mark every phenotype listed in a text file (one per line) as done",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open progress file: %w", err)
			}
			defer f.Close()
			return withProgress(cmd, func(s progress.Store) error {
				n, err := progress.ImportLines(cmd.Context(), s, f)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Imported %d phenotypes\n", n)
				return nil
			})
		},
	}
}

func newProgressExportCmd() *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write done phenotypes as text, one per line",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProgress(cmd, func(s progress.Store) error {
				return writeOutput(cmd, outputFile, func(w io.Writer) error {
					return progress.ExportLines(cmd.Context(), s, w)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newProgressListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Count done phenotypes",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProgress(cmd, func(s progress.Store) error {
				keys, err := s.Keys(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d phenotypes done\n", len(keys))
				return nil
			})
		},
	}
}

func newProgressMarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark <phenotype>...",
		Short: "Mark phenotypes as done",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProgress(cmd, func(s progress.Store) error {
				for _, key := range args {
					if err := s.MarkDone(cmd.Context(), key); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
