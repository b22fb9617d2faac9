package consensus

import (
	"context"
	"fmt"
	"sort"

	"github.com/inodb/vibe-geneset/internal/gmt"
	"github.com/inodb/vibe-geneset/internal/idmap"
)

// CrossRefDescription tags every cross-referenced gene set.
const CrossRefDescription = "phenotype_gene_source_entrez"

// CrossRef is the outcome of matching consensus gene sets to phenotypes.
type CrossRef struct {
	DB        *gmt.Database       // consensus name -> phenotype genes as numeric ids
	Unmatched []string            // consensus names without a phenotype
	Unmapped  map[string][]string // consensus name -> phenotype symbols without an id
}

// CrossReference pairs consensus gene sets with phenotypes whose names
// normalize identically and replaces the consensus genes with the
// phenotype's genes mapped to numeric ids. Names are never partially
// matched. Pairs whose genes all fail to map are left out of DB.
func CrossReference(ctx context.Context, consensus *gmt.Database, phenotypes []Phenotype, mapper idmap.Mapper) (*CrossRef, error) {
	byNorm := make(map[string]string)
	for _, name := range consensus.Names() {
		byNorm[NormalizeName(name)] = name
	}
	phenoByNorm := make(map[string]Phenotype)
	for _, p := range phenotypes {
		phenoByNorm[NormalizeName(p.Name)] = p
	}

	matched := make(map[string]Phenotype)
	var symbols []string
	for norm, p := range phenoByNorm {
		if name, ok := byNorm[norm]; ok {
			matched[name] = p
			symbols = append(symbols, p.Genes...)
		}
	}

	res := idmap.NewResult()
	if len(symbols) > 0 {
		var err error
		res, err = mapper.Map(ctx, idmap.Unique(symbols), gmt.SpaceNumeric)
		if err != nil {
			return nil, fmt.Errorf("map phenotype genes: %w", err)
		}
	}

	cr := &CrossRef{Unmapped: make(map[string][]string)}
	sets := make(map[string][]string)
	for name, p := range matched {
		ids := gmt.NewGeneSet()
		var missing []string
		for _, g := range p.Genes {
			if id, ok := res.Lookup(g); ok {
				ids.Add(id)
			} else {
				missing = append(missing, g)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			cr.Unmapped[name] = missing
		}
		if ids.Len() > 0 {
			sets[name] = ids.Sorted()
		}
	}
	cr.DB = gmt.FromSets(sets, CrossRefDescription)

	for norm, name := range byNorm {
		if _, ok := phenoByNorm[norm]; !ok {
			cr.Unmatched = append(cr.Unmatched, name)
		}
	}
	sort.Strings(cr.Unmatched)
	return cr, nil
}
