package merge

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-json"

	"github.com/inodb/vibe-geneset/internal/gmt"
	"github.com/inodb/vibe-geneset/internal/idmap"
)

// GMT descriptions of built gene sets.
const (
	SymbolsDescription = "combined extracted+verified (symbols mapped to Entrez)"
	NumericDescription = "combined extracted+verified (entrez)"
)

// GMTBuild holds the gene sets built from a merge result.
type GMTBuild struct {
	Symbols  *gmt.Database       // mapped symbols only
	Numeric  *gmt.Database       // numeric ids aligned with Symbols
	Unmapped map[string][]string // phenotype -> symbols without an id
}

// BuildGMTs maps the merged genes of every phenotype to numeric ids.
// Only mapped symbols enter the GMTs, and phenotypes without any mapped
// gene are left out.
func BuildGMTs(ctx context.Context, r *Result, mapper idmap.Mapper) (*GMTBuild, error) {
	var all []string
	for _, pheno := range r.Phenotypes() {
		for _, rec := range r.Records(pheno) {
			all = append(all, rec.Gene)
		}
	}

	mapped := idmap.NewResult()
	if len(all) > 0 {
		var err error
		mapped, err = mapper.Map(ctx, idmap.Unique(all), gmt.SpaceNumeric)
		if err != nil {
			return nil, fmt.Errorf("map merged genes: %w", err)
		}
	}

	b := &GMTBuild{
		Symbols:  gmt.NewDatabase(),
		Numeric:  gmt.NewDatabase(),
		Unmapped: make(map[string][]string),
	}
	for _, pheno := range r.Phenotypes() {
		symbols := gmt.NewGeneSet()
		for _, rec := range r.Records(pheno) {
			symbols.Add(rec.Gene)
		}

		var syms, ids, missing []string
		for _, s := range symbols.Sorted() {
			if id, ok := mapped.Lookup(s); ok {
				syms = append(syms, s)
				ids = append(ids, id)
			} else {
				missing = append(missing, s)
			}
		}
		if len(missing) > 0 {
			b.Unmapped[pheno] = missing
		}
		if len(syms) == 0 {
			continue
		}
		b.Symbols.Add(gmt.Record{Name: pheno, Description: SymbolsDescription, Genes: syms})
		b.Numeric.Add(gmt.Record{Name: pheno, Description: NumericDescription, Genes: ids})
	}
	return b, nil
}

// WriteUnmapped writes phenotype -> unmapped symbols as indented JSON.
func WriteUnmapped(w io.Writer, unmapped map[string][]string) error {
	for _, syms := range unmapped {
		sort.Strings(syms)
	}
	b, err := json.MarshalIndent(unmapped, "", "  ")
	if err != nil {
		return fmt.Errorf("encode unmapped genes: %w", err)
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
