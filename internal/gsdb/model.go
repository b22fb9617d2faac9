// Package gsdb derives a background gene-frequency model from a gene-set
// database and computes information-content weighted similarity scores.
package gsdb

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

// Model is the read-only information-content model of one database.
//
// Genes absent from the database have no information content. Weighted
// computations treat them as zero-weight instead of failing.
type Model struct {
	db       *gmt.Database
	size     int
	presence map[string]int
	ic       map[string]float64
	universe []string
}

// New builds the model for db. Databases mixing symbols and numeric ids are
// rejected.
func New(db *gmt.Database) (*Model, error) {
	if err := db.Validate(); err != nil {
		return nil, fmt.Errorf("build gsdb: %w", err)
	}

	m := &Model{
		db:       db,
		size:     db.Len(),
		presence: make(map[string]int),
	}
	db.Each(func(_ string, genes gmt.GeneSet) {
		for g := range genes {
			m.presence[g]++
		}
	})

	m.ic = make(map[string]float64, len(m.presence))
	for g, n := range m.presence {
		m.ic[g] = -math.Log10(float64(n) / float64(m.size))
	}
	m.universe = db.Universe()
	return m, nil
}

// Database returns the gene-set database the model was built from.
func (m *Model) Database() *gmt.Database { return m.db }

// Size returns the number of gene sets.
func (m *Model) Size() int { return m.size }

// Presence returns the number of gene sets containing gene.
func (m *Model) Presence(gene string) int { return m.presence[gene] }

// Distribution returns presence/size, or 0 for genes outside the universe.
func (m *Model) Distribution(gene string) float64 {
	n, ok := m.presence[gene]
	if !ok {
		return 0
	}
	return float64(n) / float64(m.size)
}

// IC returns the information content of gene and whether it is defined.
func (m *Model) IC(gene string) (float64, bool) {
	v, ok := m.ic[gene]
	return v, ok
}

// Weight returns the information content of gene, 0 when it is undefined.
func (m *Model) Weight(gene string) float64 {
	return m.ic[gene]
}

// Universe returns the sorted distinct genes of the database.
func (m *Model) Universe() []string {
	out := make([]string, len(m.universe))
	copy(out, m.universe)
	return out
}

// UniverseSize returns the number of distinct genes.
func (m *Model) UniverseSize() int { return len(m.universe) }

// SumIC returns the summed information content of genes. The sum does not
// depend on map iteration order.
func (m *Model) SumIC(genes gmt.GeneSet) float64 {
	w := make([]float64, 0, len(genes))
	for g := range genes {
		w = append(w, m.ic[g])
	}
	return sum(w)
}

func sum(w []float64) float64 {
	sort.Float64s(w)
	return floats.Sum(w)
}
