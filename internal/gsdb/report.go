package gsdb

import (
	"fmt"
	"io"
	"sort"

	"github.com/gocarina/gocsv"
)

type matrixRow struct {
	Name       string  `csv:"Gene Set Name"`
	Similarity float64 `csv:"Weighted Jaccard"`
}

// WriteSimilarityCSV writes per-name weighted Jaccard scores, highest
// first, ties by name.
func WriteSimilarityCSV(w io.Writer, scores map[string]float64) error {
	rows := make([]*matrixRow, 0, len(scores))
	for name, s := range scores {
		rows = append(rows, &matrixRow{Name: name, Similarity: s})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Similarity != rows[j].Similarity {
			return rows[i].Similarity > rows[j].Similarity
		}
		return rows[i].Name < rows[j].Name
	})
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write similarity csv: %w", err)
	}
	return nil
}
