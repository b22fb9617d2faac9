package compare

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

// Disease is a named disease with its associated genes.
type Disease struct {
	Name  string
	Group string
	Genes []string
}

type rawDisease struct {
	DiseaseGroup string   `json:"disease_group"`
	Genes        []string `json:"genes"`
}

// LoadDiseases reads a JSON object mapping disease name to
// {"disease_group": ..., "genes": [...]}. Diseases are returned sorted by name.
func LoadDiseases(r io.Reader) ([]Disease, error) {
	var raw map[string]rawDisease
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode disease map: %w", err)
	}
	out := make([]Disease, 0, len(raw))
	for name, d := range raw {
		out = append(out, Disease{Name: name, Group: d.DiseaseGroup, Genes: d.Genes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// OverlapRow is the overlap of one disease's genes with one gene set in two
// databases.
type OverlapRow struct {
	Disease string `csv:"Disease"`
	Group   string `csv:"DiseaseGroup"`
	GeneSet string `csv:"GeneSet"`
	NumA    int    `csv:"NumGenes_GMT_A"`
	NumB    int    `csv:"NumGenes_GMT_B"`
	GenesA  string `csv:"Genes_GMT_A"`
	GenesB  string `csv:"Genes_GMT_B"`
}

// OverlapReport holds every disease x gene set row and per-database totals.
type OverlapReport struct {
	Rows   []OverlapRow
	TotalA int
	TotalB int
}

// DiseaseOverlap intersects each disease gene list with every set of a that
// is also present in b.
func DiseaseOverlap(diseases []Disease, a, b *gmt.Database) (*OverlapReport, error) {
	if err := gmt.CheckCompatible(a, b); err != nil {
		return nil, err
	}

	rep := &OverlapReport{}
	for _, d := range diseases {
		genes := gmt.NewGeneSet(d.Genes...)
		a.Each(func(name string, setA gmt.GeneSet) {
			setB := b.Set(name)
			if setB == nil {
				return
			}
			inA := genes.Intersect(setA).Sorted()
			inB := genes.Intersect(setB).Sorted()
			rep.Rows = append(rep.Rows, OverlapRow{
				Disease: d.Name,
				Group:   d.Group,
				GeneSet: name,
				NumA:    len(inA),
				NumB:    len(inB),
				GenesA:  strings.Join(inA, ","),
				GenesB:  strings.Join(inB, ","),
			})
			rep.TotalA += len(inA)
			rep.TotalB += len(inB)
		})
	}
	return rep, nil
}
