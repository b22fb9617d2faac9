package mac

import (
	"bufio"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

// GenePresence is the number of gene sets containing one query gene.
type GenePresence struct {
	Gene     string
	Presence int
}

// PresenceReport lists per-gene presence counts in query order.
type PresenceReport struct {
	Genes []GenePresence
	Total int
}

// Presence counts, for each query gene, the gene sets of db containing it.
func Presence(db *gmt.Database, genes []string) PresenceReport {
	var rep PresenceReport
	for _, g := range genes {
		n := 0
		db.Each(func(_ string, gs gmt.GeneSet) {
			if gs.Contains(g) {
				n++
			}
		})
		rep.Genes = append(rep.Genes, GenePresence{Gene: g, Presence: n})
		rep.Total += n
	}
	return rep
}

// WriteTSV writes gene<TAB>presence lines followed by a total line.
func (r PresenceReport) WriteTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, p := range r.Genes {
		fmt.Fprintf(bw, "%s\t%d\n", p.Gene, p.Presence)
	}
	fmt.Fprintf(bw, "total\t%d\n", r.Total)
	return bw.Flush()
}

type csvRow struct {
	Phenotype string  `csv:"Phenotype"`
	Database  string  `csv:"Database"`
	Weighted  bool    `csv:"Weighted"`
	MAC       float64 `csv:"MAC"`
	PValue    float64 `csv:"P-Value"`
	Samples   int     `csv:"Samples"`
}

// WriteCSV writes successful job results as CSV. Failed jobs are left out.
func WriteCSV(w io.Writer, results []JobResult) error {
	rows := make([]*csvRow, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		rows = append(rows, &csvRow{
			Phenotype: r.Phenotype,
			Database:  r.Database,
			Weighted:  r.Result.Weighted,
			MAC:       r.Result.MAC,
			PValue:    r.Result.PValue,
			Samples:   r.Result.Samples,
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write mac csv: %w", err)
	}
	return nil
}
