package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-geneset/internal/consensus"
)

// HPO annotation release URL
const hpoPhenotypeGenesURL = "https://github.com/obophenotype/human-phenotype-ontology/releases/latest/download/phenotype_to_genes.txt"

// PhenotypeGenesFileName is the aggregated one-phenotype-per-row file read
// by 'consensus --phenotypes'.
const PhenotypeGenesFileName = "phenotype_genes.tsv"

func newDownloadCmd() *cobra.Command {
	var (
		outputDir string
		url       string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download HPO phenotype gene annotations",
		Long: `Download the HPO phenotype_to_genes.txt annotation table and aggregate it
into one row per phenotype (` + PhenotypeGenesFileName + `) for cross-referencing
consensus gene sets. The path of the aggregated file is printed.`,
		Example: `  # Download to ~/.vibe-geneset/hpo (default)
  vibe-geneset download

  # Download to a custom directory
  vibe-geneset download --output /data/hpo`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("cannot determine home directory: %w", err)
				}
				outputDir = filepath.Join(home, ".vibe-geneset", "hpo")
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", outputDir, err)
			}

			logger.Info("downloading HPO phenotype genes", zap.String("dir", outputDir))

			client := &http.Client{Timeout: timeout}
			rawPath := filepath.Join(outputDir, filepath.Base(url))
			if err := fetchFile(cmd.Context(), client, url, rawPath); err != nil {
				return fmt.Errorf("downloading phenotype genes: %w", err)
			}

			aggPath := filepath.Join(outputDir, PhenotypeGenesFileName)
			if err := aggregatePhenotypeFile(rawPath, aggPath); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), aggPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: ~/.vibe-geneset/hpo)")
	cmd.Flags().StringVar(&url, "url", hpoPhenotypeGenesURL, "phenotype_to_genes.txt URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "HTTP timeout")

	return cmd
}

// aggregatePhenotypeFile writes the one-phenotype-per-row table via a
// temporary file so a failed run leaves no partial output.
func aggregatePhenotypeFile(rawPath, destPath string) error {
	in, err := os.Open(rawPath)
	if err != nil {
		return fmt.Errorf("open phenotype genes: %w", err)
	}
	defer in.Close()

	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	err = consensus.AggregatePhenotypeGenes(in, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}
	logger.Info("aggregated phenotype genes", zap.String("path", destPath))
	return nil
}

// fetchFile streams url into destPath unless destPath already exists.
// The body lands in destPath+".tmp" first and is renamed on success.
func fetchFile(ctx context.Context, client *http.Client, url, destPath string) error {
	name := filepath.Base(destPath)
	if info, err := os.Stat(destPath); err == nil {
		logger.Info("already downloaded", zap.String("file", name), zap.String("size", formatSize(info.Size())))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	counter := &byteCounter{name: name, total: resp.ContentLength, every: 5 * time.Second, last: time.Now()}
	n, err := io.Copy(f, io.TeeReader(resp.Body, counter))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	logger.Info("downloaded", zap.String("file", name), zap.String("size", formatSize(n)))
	return nil
}

// byteCounter logs download progress at most once per interval.
type byteCounter struct {
	name  string
	total int64
	seen  int64
	every time.Duration
	last  time.Time
}

func (c *byteCounter) Write(p []byte) (int, error) {
	c.seen += int64(len(p))
	if time.Since(c.last) < c.every {
		return len(p), nil
	}
	c.last = time.Now()
	fields := []zap.Field{zap.String("file", c.name), zap.String("received", formatSize(c.seen))}
	if c.total > 0 {
		fields = append(fields, zap.String("of", formatSize(c.total)),
			zap.Float64("pct", 100*float64(c.seen)/float64(c.total)))
	}
	logger.Info("downloading", fields...)
	return len(p), nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
