package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-geneset/internal/consensus"
	"github.com/inodb/vibe-geneset/internal/gmt"
	"github.com/inodb/vibe-geneset/internal/merge"
	"github.com/inodb/vibe-geneset/internal/progress"
)

func newMergeCmd() *cobra.Command {
	var (
		extractedDir string
		verifiedDir  string
		model        string
		outputDir    string
		onlyDone     bool
	)

	cmd := &cobra.Command{
		Use:   "merge --extracted <dir> --verified <dir> --model <name>",
		Short: "Merge extracted and verified phenotype gene lists into GMT files",
		Long: `Merge per-phenotype gene lists extracted from the literature with the
verified gene lists, map the merged symbols to Entrez ids and write:

  genesets_symbols_<model>.gmt   mapped symbols per phenotype
  genesets_entrez_<model>.gmt    Entrez ids aligned with the symbols
  merged_<model>.json            merged records with their origin
  unmapped_genes_<model>.json    symbols without an Entrez id`,
		Example: `  vibe-geneset merge --extracted out/extracted --verified out/verified --model qwen -o out
  vibe-geneset merge --extracted out/extracted --verified out/verified --model qwen --mode union`,
		Args: usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"merge.mode":    "mode",
				"progress.path": "progress-db",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if extractedDir == "" || verifiedDir == "" || model == "" {
				return &usageError{errors.New("--extracted, --verified and --model are required")}
			}

			rc, err := openRun()
			if err != nil {
				return err
			}
			defer rc.Close()

			var filter progress.Store
			if onlyDone {
				filter = rc.Progress
			}
			loader := merge.NewLoader(filter)
			loader.SetLogger(logger)

			extracted, err := loader.LoadExtractedDir(ctx, extractedDir)
			if err != nil {
				return err
			}
			verified, err := loader.LoadVerifiedDir(ctx, verifiedDir)
			if err != nil {
				return err
			}

			result := merge.Merge(extracted, verified, rc.Config.MergeMode)
			logger.Info("merged phenotypes",
				zap.Stringer("mode", rc.Config.MergeMode),
				zap.Int("phenotypes", result.Len()))

			built, err := merge.BuildGMTs(ctx, result, rc.Mapper)
			if err != nil {
				return err
			}
			for pheno, syms := range built.Unmapped {
				logger.Warn("unmapped genes", zap.String("phenotype", pheno), zap.Strings("genes", syms))
			}

			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			out := func(pattern string) string {
				return filepath.Join(outputDir, fmt.Sprintf(pattern, model))
			}

			if err := gmt.WriteFile(out("genesets_symbols_%s.gmt"), built.Symbols); err != nil {
				return err
			}
			if err := gmt.WriteFile(out("genesets_entrez_%s.gmt"), built.Numeric); err != nil {
				return err
			}
			if err := writeOutput(cmd, out("merged_%s.json"), func(w io.Writer) error {
				return merge.WriteJSON(w, result)
			}); err != nil {
				return err
			}
			if err := writeOutput(cmd, out("unmapped_genes_%s.json"), func(w io.Writer) error {
				return merge.WriteUnmapped(w, built.Unmapped)
			}); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Wrote %d gene sets (%d phenotypes with unmapped genes) to %s\n",
				built.Symbols.Len(), len(built.Unmapped), outputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&extractedDir, "extracted", "", "Directory of <phenotype>.json extracted gene lists")
	cmd.Flags().StringVar(&verifiedDir, "verified", "", "Directory of <phenotype>/<gene>.json verified genes")
	cmd.Flags().StringVar(&model, "model", "", "Model name used in output file names")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
	cmd.Flags().String("mode", merge.ModeIntersection.String(), "Phenotypes to emit: intersection or union")
	cmd.Flags().BoolVar(&onlyDone, "only-done", false, "Only merge phenotypes marked done in the progress store")
	cmd.Flags().String("progress-db", "", "SQLite progress store (default: in memory)")

	return cmd
}

func newConsensusCmd() *cobra.Command {
	var (
		labels        []string
		outputFile    string
		overlapFile   string
		phenotypeFile string
		crossrefFile  string
	)

	cmd := &cobra.Command{
		Use:   "consensus <source.gmt>...",
		Short: "Keep genes that enough sources agree on",
		Long: `Build a consensus database: a gene enters a gene set when at least
--min-sources of the source databases list it for that set. Optionally
summarize how gene set names overlap between sources and cross-reference
the consensus sets with curated phenotype genes.`,
		Example: `  vibe-geneset consensus qwen.gmt deepseek.gmt llama.gmt -o consensus.gmt
  vibe-geneset consensus a.gmt b.gmt c.gmt --min-sources 3 --overlap overlap.json
  vibe-geneset consensus a.gmt b.gmt -o consensus.gmt \
      --phenotypes phenotype_genes.tsv --crossref consensus_hpo_entrez.gmt`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"consensus.min_sources": "min-sources",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(labels) == 0 {
				for _, p := range args {
					labels = append(labels, sourceLabel(p))
				}
			}
			if len(labels) != len(args) {
				return &usageError{fmt.Errorf("%d labels for %d sources", len(labels), len(args))}
			}
			if crossrefFile != "" && phenotypeFile == "" {
				return &usageError{errors.New("--crossref requires --phenotypes")}
			}

			sources := make([]*gmt.Database, len(args))
			for i, p := range args {
				db, err := readGMT(p)
				if err != nil {
					return err
				}
				sources[i] = db
			}

			rc, err := openRun()
			if err != nil {
				return err
			}
			defer rc.Close()

			db, err := consensus.Build(sources, rc.Config.MinSources)
			if err != nil {
				if errors.Is(err, consensus.ErrMinSources) {
					return &usageError{err}
				}
				return err
			}
			logger.Info("consensus built",
				zap.Int("sources", len(sources)),
				zap.Int("min_sources", rc.Config.MinSources),
				zap.Int("sets", db.Len()))

			if err := writeOutput(cmd, outputFile, func(w io.Writer) error {
				return gmt.Write(w, db)
			}); err != nil {
				return err
			}

			if overlapFile != "" {
				ov, err := consensus.SourceOverlap(labels, sources)
				if err != nil {
					return err
				}
				if err := writeOutput(cmd, overlapFile, ov.WriteJSON); err != nil {
					return err
				}
			}

			if phenotypeFile == "" {
				return nil
			}
			f, err := os.Open(phenotypeFile)
			if err != nil {
				return fmt.Errorf("open phenotypes: %w", err)
			}
			phenotypes, err := consensus.LoadPhenotypeGenes(f)
			f.Close()
			if err != nil {
				return err
			}

			xref, err := consensus.CrossReference(cmd.Context(), db, phenotypes, rc.Mapper)
			if err != nil {
				return err
			}
			logger.Info("cross-referenced phenotypes",
				zap.Int("matched", xref.DB.Len()),
				zap.Int("unmatched", len(xref.Unmatched)),
				zap.Int("with_unmapped", len(xref.Unmapped)))
			for _, name := range xref.Unmatched {
				logger.Debug("no phenotype for consensus set", zap.String("name", name))
			}
			if crossrefFile == "" {
				return nil
			}
			return gmt.WriteFile(crossrefFile, xref.DB)
		},
	}

	cmd.Flags().StringSliceVar(&labels, "labels", nil, "Source labels in argument order (default: file base names)")
	cmd.Flags().Int("min-sources", consensus.DefaultMinSources, "Minimum number of sources listing a gene")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Consensus GMT file (default: stdout)")
	cmd.Flags().StringVar(&overlapFile, "overlap", "", "Write the gene set name overlap between sources as JSON")
	cmd.Flags().StringVar(&phenotypeFile, "phenotypes", "", "Aggregated phenotype genes TSV (see 'download')")
	cmd.Flags().StringVar(&crossrefFile, "crossref", "", "Write consensus sets with phenotype genes as Entrez ids to this GMT")

	return cmd
}

// sourceLabel derives a label from a file name: "out/qwen.gmt.gz" -> "qwen".
func sourceLabel(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base))
}
