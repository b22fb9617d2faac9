// Package consensus combines gene-set databases produced independently by
// several sources into majority-vote gene sets, and cross-references them
// against curated phenotype gene lists.
package consensus

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

// DefaultMinSources is the vote threshold used when none is configured.
const DefaultMinSources = 2

// Description tags every consensus gene set.
const Description = "consensus"

// ErrMinSources is returned for a vote threshold outside [1, sources].
var ErrMinSources = errors.New("min sources out of range")

// Build returns the gene sets named by at least minSources sources. Within
// each, a gene is kept when at least minSources of the source sets list it.
// Sets whose consensus is empty are dropped. A source only counts for a
// name when its set has genes.
func Build(sources []*gmt.Database, minSources int) (*gmt.Database, error) {
	if minSources < 1 || minSources > len(sources) {
		return nil, fmt.Errorf("%w: %d with %d sources", ErrMinSources, minSources, len(sources))
	}
	if err := gmt.CheckCompatible(sources...); err != nil {
		return nil, err
	}

	votes := make(map[string]int)
	for _, src := range sources {
		for _, name := range populated(src) {
			votes[name]++
		}
	}

	out := make(map[string][]string)
	for name, n := range votes {
		if n < minSources {
			continue
		}
		counts := make(map[string]int)
		for _, src := range sources {
			for g := range src.Set(name) {
				counts[g]++
			}
		}
		agreed := gmt.NewGeneSet()
		for g, c := range counts {
			if c >= minSources {
				agreed.Add(g)
			}
		}
		if agreed.Len() > 0 {
			out[name] = agreed.Sorted()
		}
	}
	return gmt.FromSets(out, Description), nil
}

// populated returns the names of the non-empty gene sets of db.
func populated(db *gmt.Database) []string {
	var out []string
	db.Each(func(name string, genes gmt.GeneSet) {
		if genes.Len() > 0 {
			out = append(out, name)
		}
	})
	return out
}
