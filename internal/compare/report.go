package compare

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

const geneSep = ", "

type comparisonRow struct {
	Name     string `csv:"Gene Set Name"`
	Common   string `csv:"Common Genes"`
	Added    string `csv:"Newly Added Genes"`
	Lost     string `csv:"Lost Genes"`
	NCommon  int    `csv:"# Common"`
	NAdded   int    `csv:"# New"`
	NLost    int    `csv:"# Lost"`
	Original int    `csv:"# Original"`
}

type similarityRow struct {
	Name    string  `csv:"Gene Set Name"`
	Size1   int     `csv:"# Genes DB1"`
	Size2   int     `csv:"# Genes DB2"`
	Common  int     `csv:"# Common"`
	Union   int     `csv:"Union Size"`
	Percent float64 `csv:"% Similarity"`
}

// WriteComparisonCSV writes comparison records with sorted, comma-space
// joined gene lists.
func WriteComparisonCSV(w io.Writer, records []Record) error {
	rows := make([]*comparisonRow, len(records))
	for i, r := range records {
		rows[i] = &comparisonRow{
			Name:     r.Name,
			Common:   strings.Join(r.Common, geneSep),
			Added:    strings.Join(r.Added, geneSep),
			Lost:     strings.Join(r.Lost, geneSep),
			NCommon:  r.NumCommon(),
			NAdded:   r.NumAdded(),
			NLost:    r.NumLost(),
			Original: r.Original,
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write comparison csv: %w", err)
	}
	return nil
}

// ReadComparisonCSV reads records written by WriteComparisonCSV.
func ReadComparisonCSV(r io.Reader) ([]Record, error) {
	var rows []*comparisonRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read comparison csv: %w", err)
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = Record{
			Name:     row.Name,
			Common:   splitGenes(row.Common),
			Added:    splitGenes(row.Added),
			Lost:     splitGenes(row.Lost),
			Original: row.Original,
		}
	}
	return out, nil
}

func splitGenes(cell string) []string {
	var out []string
	for _, g := range strings.Split(cell, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// WriteSimilarityCSV writes one row per compared gene set with the
// similarity as a percentage rounded to two decimals.
func WriteSimilarityCSV(w io.Writer, rep *SimilarityReport) error {
	rows := make([]*similarityRow, len(rep.Rows))
	for i, r := range rep.Rows {
		rows[i] = &similarityRow{
			Name:    r.Name,
			Size1:   r.Size1,
			Size2:   r.Size2,
			Common:  r.Common,
			Union:   r.Union,
			Percent: math.Round(r.Percent*100) / 100,
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write similarity csv: %w", err)
	}
	return nil
}

// WriteOverlapCSV writes disease overlap rows.
func WriteOverlapCSV(w io.Writer, rep *OverlapReport) error {
	if err := gocsv.Marshal(rep.Rows, w); err != nil {
		return fmt.Errorf("write overlap csv: %w", err)
	}
	return nil
}

// WriteSummaryYAML writes a comparison summary as YAML. A standard
// deviation that is undefined for a single set is written as .nan.
func WriteSummaryYAML(w io.Writer, s Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("write summary yaml: %w", err)
	}
	return enc.Close()
}
