package consensus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// NormalizeName lowercases s, turns underscores into spaces, collapses
// whitespace runs, strips characters outside [a-z0-9] and whitespace, and
// trims the result.
func NormalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", " ")
	s = whitespace.ReplaceAllString(s, " ")
	s = nonAlnum.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Phenotype is a curated phenotype with its associated gene symbols.
type Phenotype struct {
	ID    string
	Name  string
	Genes []string
}

func tsvReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// LoadPhenotypeGenes reads a tab-separated file with a header row and the
// columns id, name and comma-separated gene symbols. Rows with fewer than
// three columns are skipped. A repeated name replaces the earlier row.
func LoadPhenotypeGenes(r io.Reader) ([]Phenotype, error) {
	cr := tsvReader(r)
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read phenotype header: %w", err)
	}

	index := make(map[string]int)
	var out []Phenotype
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read phenotype row: %w", err)
		}
		if len(row) < 3 {
			continue
		}
		p := Phenotype{ID: strings.TrimSpace(row[0]), Name: strings.TrimSpace(row[1])}
		seen := make(map[string]bool)
		for _, g := range strings.Split(row[2], ",") {
			if g = strings.TrimSpace(g); g != "" && !seen[g] {
				seen[g] = true
				p.Genes = append(p.Genes, g)
			}
		}
		if i, ok := index[p.Name]; ok {
			out[i] = p
			continue
		}
		index[p.Name] = len(out)
		out = append(out, p)
	}
	return out, nil
}

type phenotypeGeneRow struct {
	HPOID      string `csv:"hpo_id"`
	HPOName    string `csv:"hpo_name"`
	GeneSymbol string `csv:"gene_symbol"`
}

type phenotypeSetRow struct {
	HPOID   string `csv:"hpo_id"`
	HPOName string `csv:"hpo_name"`
	Genes   string `csv:"genes"`
}

// AggregatePhenotypeGenes turns a one-gene-per-row HPO
// phenotype_to_genes.txt table into the one-phenotype-per-row file read by
// LoadPhenotypeGenes. Phenotypes keep their first-seen order, the last
// name seen for an id wins, and genes are sorted.
func AggregatePhenotypeGenes(r io.Reader, w io.Writer) error {
	var rows []phenotypeGeneRow
	if err := gocsv.UnmarshalCSV(tsvReader(r), &rows); err != nil {
		return fmt.Errorf("read phenotype genes: %w", err)
	}

	var order []string
	names := make(map[string]string)
	genes := make(map[string]map[string]bool)
	for _, row := range rows {
		id := strings.TrimSpace(row.HPOID)
		if id == "" {
			continue
		}
		if _, ok := genes[id]; !ok {
			order = append(order, id)
			genes[id] = make(map[string]bool)
		}
		names[id] = strings.TrimSpace(row.HPOName)
		if g := strings.TrimSpace(row.GeneSymbol); g != "" {
			genes[id][g] = true
		}
	}

	out := make([]phenotypeSetRow, 0, len(order))
	for _, id := range order {
		syms := make([]string, 0, len(genes[id]))
		for g := range genes[id] {
			syms = append(syms, g)
		}
		sort.Strings(syms)
		out = append(out, phenotypeSetRow{HPOID: id, HPOName: names[id], Genes: strings.Join(syms, ",")})
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := gocsv.MarshalCSV(&out, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("write phenotype gene sets: %w", err)
	}
	return nil
}
