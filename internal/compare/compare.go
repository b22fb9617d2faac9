// Package compare reports how two versions of a gene-set database differ:
// per-set gene gains and losses, Jaccard similarity and summary statistics.
package compare

import "github.com/inodb/vibe-geneset/internal/gmt"

// Record describes one gene set present in both the original and the new
// database.
type Record struct {
	Name     string
	Common   []string
	Added    []string
	Lost     []string
	Original int
}

// NumCommon returns the number of genes kept.
func (r Record) NumCommon() int { return len(r.Common) }

// NumAdded returns the number of genes only in the new set.
func (r Record) NumAdded() int { return len(r.Added) }

// NumLost returns the number of original genes missing from the new set.
func (r Record) NumLost() int { return len(r.Lost) }

// Compare walks the sets of newDB in order and, for each name also present in
// original, records the common, added and lost genes. Sets that exist on
// only one side produce no record.
func Compare(original, newDB *gmt.Database) ([]Record, error) {
	if err := gmt.CheckCompatible(original, newDB); err != nil {
		return nil, err
	}

	var out []Record
	newDB.Each(func(name string, genes gmt.GeneSet) {
		orig := original.Set(name)
		if orig == nil {
			return
		}
		out = append(out, Record{
			Name:     name,
			Common:   orig.Intersect(genes).Sorted(),
			Added:    genes.Minus(orig).Sorted(),
			Lost:     orig.Minus(genes).Sorted(),
			Original: orig.Len(),
		})
	})
	return out, nil
}
