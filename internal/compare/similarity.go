package compare

import (
	"gonum.org/v1/gonum/stat"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

// SimilarityRow is the Jaccard comparison of one gene set name.
type SimilarityRow struct {
	Name    string
	Size1   int
	Size2   int
	Common  int
	Union   int
	Percent float64
}

// Stats aggregates per-set similarities. Similarities are fractions in [0, 1].
type Stats struct {
	UnweightedMean  float64 // mean per-set Jaccard ratio
	WeightedMean    float64 // sum of intersections over sum of unions
	TotalSimilarity float64 // Jaccard ratio of all genes of the compared sets

	TotalGenes1 int
	TotalGenes2 int
	SharedGenes int
	UnionGenes  int
}

// SimilarityReport holds per-set rows in db1 order and the aggregates.
type SimilarityReport struct {
	Rows  []SimilarityRow
	Stats Stats
}

// Similarity compares the sets of db1 with the same-named sets of db2.
// Names present on only one side are ignored. Sets whose union is empty get
// a 0 row but are left out of both means.
func Similarity(db1, db2 *gmt.Database) (*SimilarityReport, error) {
	if err := gmt.CheckCompatible(db1, db2); err != nil {
		return nil, err
	}

	rep := &SimilarityReport{}
	all1 := make(gmt.GeneSet)
	all2 := make(gmt.GeneSet)
	var ratios []float64
	var totalInter, totalUnion int

	db1.Each(func(name string, g1 gmt.GeneSet) {
		g2 := db2.Set(name)
		if g2 == nil {
			return
		}
		for g := range g1 {
			all1.Add(g)
		}
		for g := range g2 {
			all2.Add(g)
		}

		inter := g1.IntersectionSize(g2)
		union := len(g1) + len(g2) - inter
		row := SimilarityRow{Name: name, Size1: len(g1), Size2: len(g2), Common: inter, Union: union}
		if union > 0 {
			ratio := float64(inter) / float64(union)
			row.Percent = ratio * 100
			ratios = append(ratios, ratio)
			totalInter += inter
			totalUnion += union
		}
		rep.Rows = append(rep.Rows, row)
	})

	if len(ratios) > 0 {
		rep.Stats.UnweightedMean = stat.Mean(ratios, nil)
	}
	if totalUnion > 0 {
		rep.Stats.WeightedMean = float64(totalInter) / float64(totalUnion)
	}
	rep.Stats.TotalGenes1 = all1.Len()
	rep.Stats.TotalGenes2 = all2.Len()
	rep.Stats.SharedGenes = all1.IntersectionSize(all2)
	rep.Stats.UnionGenes = rep.Stats.TotalGenes1 + rep.Stats.TotalGenes2 - rep.Stats.SharedGenes
	rep.Stats.TotalSimilarity = gmt.Jaccard(all1, all2)
	return rep, nil
}
