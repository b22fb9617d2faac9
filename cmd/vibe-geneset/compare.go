package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-geneset/internal/compare"
	"github.com/inodb/vibe-geneset/internal/gmt"
)

// readGMT loads a GMT file, logging skipped lines.
func readGMT(path string) (*gmt.Database, error) {
	db, err := gmt.ReadFile(path, gmt.WithLogger(logger.With(zap.String("path", path))))
	if err != nil {
		return nil, err
	}
	logger.Info("loaded gene sets",
		zap.String("path", path),
		zap.Int("sets", db.Len()),
		zap.Stringer("space", db.Space()))
	return db, nil
}

func newCompareCmd() *cobra.Command {
	var (
		outputFile  string
		summaryFile string
	)

	cmd := &cobra.Command{
		Use:   "compare <original.gmt> <new.gmt>",
		Short: "Compare gene sets of two databases by name",
		Long: `Compare every gene set of the original database with the same-named set of
the new database and report common, newly added and lost genes.`,
		Example: `  vibe-geneset compare original.gmt new.gmt -o comparison.csv
  vibe-geneset compare original.gmt new.gmt --summary summary.yaml`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			original, err := readGMT(args[0])
			if err != nil {
				return err
			}
			newDB, err := readGMT(args[1])
			if err != nil {
				return err
			}

			records, err := compare.Compare(original, newDB)
			if err != nil {
				return err
			}
			logger.Info("compared gene sets", zap.Int("sets", len(records)))

			if err := writeOutput(cmd, outputFile, func(w io.Writer) error {
				return compare.WriteComparisonCSV(w, records)
			}); err != nil {
				return err
			}

			if summaryFile == "" {
				return nil
			}
			return writeOutput(cmd, summaryFile, func(w io.Writer) error {
				return compare.WriteSummaryYAML(w, compare.Summarize(records))
			})
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output CSV file (default: stdout)")
	cmd.Flags().StringVar(&summaryFile, "summary", "", "Also write summary statistics as YAML to this file")

	return cmd
}

func newSimilarityCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "similarity <db1.gmt> <db2.gmt>",
		Short: "Jaccard similarity of same-named gene sets",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			db1, err := readGMT(args[0])
			if err != nil {
				return err
			}
			db2, err := readGMT(args[1])
			if err != nil {
				return err
			}

			rep, err := compare.Similarity(db1, db2)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, outputFile, func(w io.Writer) error {
				return compare.WriteSimilarityCSV(w, rep)
			}); err != nil {
				return err
			}

			st := rep.Stats
			fmt.Fprintf(os.Stderr, "Unweighted mean similarity: %.2f%%\n", 100*st.UnweightedMean)
			fmt.Fprintf(os.Stderr, "Weighted mean similarity:   %.2f%%\n", 100*st.WeightedMean)
			fmt.Fprintf(os.Stderr, "Total similarity:           %.2f%% (%d shared of %d genes)\n",
				100*st.TotalSimilarity, st.SharedGenes, st.UnionGenes)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output CSV file (default: stdout)")

	return cmd
}

func newOverlapCmd() *cobra.Command {
	var (
		diseasesFile string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "overlap --diseases <diseases.json> <a.gmt> <b.gmt>",
		Short: "Overlap of disease gene lists with the gene sets of two databases",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if diseasesFile == "" {
				return &usageError{fmt.Errorf("--diseases is required")}
			}
			f, err := os.Open(diseasesFile)
			if err != nil {
				return fmt.Errorf("open diseases: %w", err)
			}
			diseases, err := compare.LoadDiseases(f)
			f.Close()
			if err != nil {
				return err
			}

			a, err := readGMT(args[0])
			if err != nil {
				return err
			}
			b, err := readGMT(args[1])
			if err != nil {
				return err
			}

			rep, err := compare.DiseaseOverlap(diseases, a, b)
			if err != nil {
				return err
			}
			logger.Info("disease overlap",
				zap.Int("diseases", len(diseases)),
				zap.Int("total_a", rep.TotalA),
				zap.Int("total_b", rep.TotalB))

			return writeOutput(cmd, outputFile, func(w io.Writer) error {
				return compare.WriteOverlapCSV(w, rep)
			})
		},
	}

	cmd.Flags().StringVar(&diseasesFile, "diseases", "", "JSON map of disease name to {disease_group, genes}")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output CSV file (default: stdout)")

	return cmd
}
