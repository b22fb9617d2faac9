// Package mac scores how well a query gene list is covered by a gene-set
// database (maximum achievable coverage) and estimates the significance of
// that score by resampling the database's gene universe.
package mac

import (
	"github.com/inodb/vibe-geneset/internal/gmt"
	"github.com/inodb/vibe-geneset/internal/gsdb"
)

// Coverage returns |gs ∩ l| / |gs|, or 0 for an empty gene set.
func Coverage(gs, l gmt.GeneSet) float64 {
	if len(gs) == 0 {
		return 0
	}
	return float64(gs.IntersectionSize(l)) / float64(len(gs))
}

// WeightedCoverage is Coverage with every gene weighted by its information
// content in m. A gene set whose total information content is 0 has
// coverage 0.
func WeightedCoverage(m *gsdb.Model, gs, l gmt.GeneSet) float64 {
	total := m.SumIC(gs)
	if total == 0 {
		return 0
	}
	return m.SumIC(gs.Intersect(l)) / total
}

// MAC returns the highest coverage of l by any single gene set of m.
func MAC(m *gsdb.Model, l gmt.GeneSet) float64 {
	var best float64
	m.Database().Each(func(_ string, gs gmt.GeneSet) {
		if c := Coverage(gs, l); c > best {
			best = c
		}
	})
	return best
}

// WeightedMAC returns the highest weighted coverage of l by any gene set.
func WeightedMAC(m *gsdb.Model, l gmt.GeneSet) float64 {
	var best float64
	m.Database().Each(func(_ string, gs gmt.GeneSet) {
		if c := WeightedCoverage(m, gs, l); c > best {
			best = c
		}
	})
	return best
}

// Permeability counts the gene sets whose coverage of l is at least tau.
func Permeability(m *gsdb.Model, l gmt.GeneSet, tau float64) int {
	n := 0
	m.Database().Each(func(_ string, gs gmt.GeneSet) {
		if Coverage(gs, l) >= tau {
			n++
		}
	})
	return n
}

// WeightedPermeability counts the gene sets whose weighted coverage of l is
// at least tau.
func WeightedPermeability(m *gsdb.Model, l gmt.GeneSet, tau float64) int {
	n := 0
	m.Database().Each(func(_ string, gs gmt.GeneSet) {
		if WeightedCoverage(m, gs, l) >= tau {
			n++
		}
	})
	return n
}

func scorer(weighted bool) func(*gsdb.Model, gmt.GeneSet) float64 {
	if weighted {
		return WeightedMAC
	}
	return MAC
}
