package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-geneset/internal/duckdb"
	"github.com/inodb/vibe-geneset/internal/gmt"
	"github.com/inodb/vibe-geneset/internal/gsdb"
	"github.com/inodb/vibe-geneset/internal/mac"
)

// Metric names persisted in the db_similarity table.
const (
	metricJaccard   = "jaccard"
	metricICJaccard = "ic_jaccard"
)

// bindFlags binds command flags to config keys. It runs from PreRunE so
// that commands sharing a key do not override each other's binding.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// namedPath is one NAME=path command-line pair.
type namedPath struct {
	Name string
	Path string
}

func parseNamedPaths(flag string, values []string) ([]namedPath, error) {
	out := make([]namedPath, 0, len(values))
	seen := make(map[string]bool)
	for _, v := range values {
		name, path, ok := strings.Cut(v, "=")
		if !ok || name == "" || path == "" {
			return nil, &usageError{fmt.Errorf("--%s %q: expected NAME=path", flag, v)}
		}
		if seen[name] {
			return nil, &usageError{fmt.Errorf("--%s: duplicate name %q", flag, name)}
		}
		seen[name] = true
		out = append(out, namedPath{Name: name, Path: path})
	}
	return out, nil
}

func newDBSimCmd() *cobra.Command {
	var (
		strict     bool
		byNameFile string
	)

	cmd := &cobra.Command{
		Use:   "dbsim <db1.gmt> <db2.gmt>",
		Short: "Database-to-database best-match similarity",
		Long: `Score two databases by averaging, in both directions, the best Jaccard
match of every gene set in the other database. The information-content
weighted variant down-weights genes present in many gene sets.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db1, err := readGMT(args[0])
			if err != nil {
				return err
			}
			db2, err := readGMT(args[1])
			if err != nil {
				return err
			}
			if err := gsdb.CheckSameLength(db1, db2); err != nil {
				if strict {
					return err
				}
				logger.Warn("databases differ in size", zap.Error(err))
			}

			m1, err := gsdb.New(db1)
			if err != nil {
				return err
			}
			m2, err := gsdb.New(db2)
			if err != nil {
				return err
			}

			plain, err := gsdb.DBToDBSimilarity(db1, db2)
			if err != nil {
				return err
			}
			ic, err := gsdb.ICDBToDBSimilarity(m1, m2)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.6f\n%s\t%.6f\n", metricJaccard, plain, metricICJaccard, ic)

			if byNameFile != "" {
				scores, err := gsdb.SimilarityByName(m1, m2)
				if err != nil {
					return err
				}
				if err := writeOutput(cmd, byNameFile, func(w io.Writer) error {
					return gsdb.WriteSimilarityCSV(w, scores)
				}); err != nil {
					return err
				}
			}

			rc, err := openRun()
			if err != nil {
				return err
			}
			defer rc.Close()
			if err := rc.StartRun(ctx, "dbsim", args[0], args[1]); err != nil {
				return err
			}
			return rc.Results.WriteDBSimilarity(ctx, rc.RunID, []duckdb.DBSimilarity{
				{DB1: args[0], DB2: args[1], Metric: metricJaccard, Score: plain},
				{DB1: args[0], DB2: args[1], Metric: metricICJaccard, Score: ic},
			})
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when the databases hold a different number of gene sets")
	cmd.Flags().StringVar(&byNameFile, "by-name", "", "Write IC-weighted Jaccard of same-named sets as CSV to this file")

	return cmd
}

func newMACCmd() *cobra.Command {
	var (
		dbFlags    []string
		phenoFlags []string
		weighted   bool
		both       bool
		reuse      bool
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "mac --db NAME=db.gmt --phenotype NAME=genes.txt",
		Short: "Bootstrap MAC test of phenotype gene lists against databases",
		Long: `Compute the maximum achievable coverage (MAC) of each phenotype gene list in
each database and its empirical p-value from random gene lists of the same
size drawn from the database's gene universe. Results are written as CSV and
recorded in the results cache.`,
		Example: `  vibe-geneset mac --db HPO=hpo.gmt --db LLM=llm.gmt \
      --phenotype epilepsy=epilepsy.txt --both --samples 10000 --seed 42

  # Reuse the cached results of an identical earlier run
  vibe-geneset mac --db HPO=hpo.gmt --phenotype epilepsy=epilepsy.txt --seed 42 --reuse`,
		Args: usageArgs(cobra.NoArgs),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"bootstrap.samples": "samples",
				"bootstrap.seed":    "seed",
				"bootstrap.workers": "workers",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			dbs, err := parseNamedPaths("db", dbFlags)
			if err != nil {
				return err
			}
			phenos, err := parseNamedPaths("phenotype", phenoFlags)
			if err != nil {
				return err
			}
			if len(dbs) == 0 || len(phenos) == 0 {
				return &usageError{errors.New("at least one --db and one --phenotype are required")}
			}

			weightings := []bool{weighted}
			if both {
				weightings = []bool{false, true}
			}

			rc, err := openRun()
			if err != nil {
				return err
			}
			defer rc.Close()
			cfg := rc.Config
			logger.Info("bootstrap settings",
				zap.Int("samples", cfg.Samples),
				zap.Uint64("seed", cfg.Seed),
				zap.Int("workers", cfg.Workers))

			command := macCommand(dbs, phenos, weightings, cfg.Samples, cfg.Seed)
			inputs := make([]string, 0, len(dbs)+len(phenos))
			for _, p := range append(append([]namedPath{}, dbs...), phenos...) {
				inputs = append(inputs, p.Path)
			}

			if reuse {
				prev, err := rc.PreviousRun(ctx, command, inputs...)
				if err != nil {
					return err
				}
				if prev != nil {
					cached, err := rc.Results.MACResults(ctx, prev.ID)
					if err != nil {
						return err
					}
					logger.Info("reusing cached results", zap.String("run_id", prev.ID), zap.Int("results", len(cached)))
					return writeOutput(cmd, outputFile, func(w io.Writer) error {
						return mac.WriteCSV(w, jobResultsFromCache(cached))
					})
				}
				logger.Info("no matching earlier run, computing")
			}

			jobs, err := buildMACJobs(dbs, phenos, weightings)
			if err != nil {
				return err
			}

			ev := mac.NewEvaluator(cfg.Samples, cfg.Seed)
			ev.SetLogger(logger)
			results := ev.RunAll(jobs, cfg.Workers)

			failed := 0
			stored := make([]duckdb.MACResult, 0, len(results))
			for _, r := range results {
				if r.Err != nil {
					failed++
					continue
				}
				stored = append(stored, duckdb.MACResult{
					Phenotype: r.Phenotype,
					Database:  r.Database,
					Weighted:  r.Result.Weighted,
					MAC:       r.Result.MAC,
					PValue:    r.Result.PValue,
					Exceeded:  r.Result.Exceeded,
					Samples:   r.Result.Samples,
				})
			}

			if err := writeOutput(cmd, outputFile, func(w io.Writer) error {
				return mac.WriteCSV(w, results)
			}); err != nil {
				return err
			}

			if err := rc.StartRun(ctx, command, inputs...); err != nil {
				return err
			}
			if err := rc.Results.WriteMACResults(ctx, rc.RunID, stored); err != nil {
				return err
			}
			logger.Info("mac done",
				zap.String("run_id", rc.RunID),
				zap.Int("jobs", len(jobs)),
				zap.Int("failed", failed))

			if failed > 0 {
				return fmt.Errorf("%d of %d bootstrap jobs failed", failed, len(jobs))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&dbFlags, "db", nil, "Gene set database as NAME=path.gmt (repeatable)")
	cmd.Flags().StringArrayVar(&phenoFlags, "phenotype", nil, "Phenotype gene list as NAME=path, one gene per line (repeatable)")
	cmd.Flags().BoolVar(&weighted, "weighted", false, "Use information-content weighted MAC")
	cmd.Flags().BoolVar(&both, "both", false, "Run both unweighted and weighted MAC")
	cmd.Flags().BoolVar(&reuse, "reuse", false, "Reuse results of an identical earlier run over unchanged files (needs a fixed --seed)")
	cmd.Flags().Int("samples", mac.DefaultSamples, "Number of bootstrap samples")
	cmd.Flags().Uint64("seed", 0, "Random seed (default: time-based, logged)")
	cmd.Flags().Int("workers", 0, "Parallel workers (default: number of CPUs)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output CSV file (default: stdout)")

	return cmd
}

// macCommand encodes the parameters that determine MAC results, so that
// earlier runs are only reused when every parameter matches.
func macCommand(dbs, phenos []namedPath, weightings []bool, samples int, seed uint64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "mac samples=%d seed=%d weighted=%v", samples, seed, weightings)
	for _, d := range dbs {
		fmt.Fprintf(&b, " db=%s", d.Name)
	}
	for _, p := range phenos {
		fmt.Fprintf(&b, " phenotype=%s", p.Name)
	}
	return b.String()
}

func buildMACJobs(dbs, phenos []namedPath, weightings []bool) ([]mac.Job, error) {
	models := make([]*gsdb.Model, len(dbs))
	for i, d := range dbs {
		db, err := readGMT(d.Path)
		if err != nil {
			return nil, err
		}
		if models[i], err = gsdb.New(db); err != nil {
			return nil, fmt.Errorf("database %s: %w", d.Name, err)
		}
	}

	var jobs []mac.Job
	for _, p := range phenos {
		genes, err := gmt.ReadList(p.Path)
		if err != nil {
			return nil, fmt.Errorf("phenotype %s: %w", p.Name, err)
		}
		for i, d := range dbs {
			for _, w := range weightings {
				jobs = append(jobs, mac.Job{
					Phenotype: p.Name,
					Database:  d.Name,
					Genes:     genes,
					Model:     models[i],
					Weighted:  w,
				})
			}
		}
	}
	return jobs, nil
}

func jobResultsFromCache(cached []duckdb.MACResult) []mac.JobResult {
	out := make([]mac.JobResult, len(cached))
	for i, c := range cached {
		out[i] = mac.JobResult{
			Seq:       i,
			Phenotype: c.Phenotype,
			Database:  c.Database,
			Result: mac.Result{
				MAC:      c.MAC,
				PValue:   c.PValue,
				Exceeded: c.Exceeded,
				Samples:  c.Samples,
				Weighted: c.Weighted,
			},
		}
	}
	return out
}

func newPresenceCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "presence <db.gmt> <genes.txt>",
		Short: "Count the gene sets containing each gene of a list",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := readGMT(args[0])
			if err != nil {
				return err
			}
			genes, err := gmt.ReadList(args[1])
			if err != nil {
				return err
			}
			rep := mac.Presence(db, genes)
			return writeOutput(cmd, outputFile, rep.WriteTSV)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output TSV file (default: stdout)")

	return cmd
}
