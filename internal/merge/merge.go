package merge

import (
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-json"
)

// Mode selects which phenotypes are emitted.
type Mode int

const (
	// ModeIntersection emits only phenotypes present in both inputs.
	ModeIntersection Mode = iota
	// ModeUnion emits every phenotype of either input.
	ModeUnion
)

func (m Mode) String() string {
	if m == ModeUnion {
		return "union"
	}
	return "intersection"
}

// ParseMode converts "intersection" or "union" into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "intersection":
		return ModeIntersection, nil
	case "union":
		return ModeUnion, nil
	}
	return ModeIntersection, fmt.Errorf("unknown merge mode %q", s)
}

// Record is one merged gene of a phenotype.
type Record struct {
	Gene      string   `json:"Gene"`
	Source    Source   `json:"Source"`
	Reference string   `json:"Source Reference"`
	Journal   string   `json:"Journal"`
	PMIDs     []string `json:"PMIDS"`
}

// Result holds merged records per phenotype. Records keep the order in
// which their gene was first seen.
type Result struct {
	records map[string][]Record
}

// Phenotypes returns the merged phenotypes in lexical order.
func (r *Result) Phenotypes() []string {
	out := make([]string, 0, len(r.records))
	for p := range r.records {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Records returns the merged genes of a phenotype.
func (r *Result) Records(phenotype string) []Record {
	return r.records[phenotype]
}

// Len returns the number of merged phenotypes.
func (r *Result) Len() int {
	return len(r.records)
}

// Merge combines extracted and verified entries per phenotype. Extracted
// entries are applied first. A gene seen in both inputs ends as Both,
// with PMIDs unioned; extracted values only fill empty reference and
// journal fields while non-empty verified values replace them.
func Merge(extracted, verified map[string][]Entry, mode Mode) *Result {
	res := &Result{records: make(map[string][]Record)}
	for _, pheno := range phenotypes(extracted, verified, mode) {
		m := newGeneMerger()
		for _, e := range extracted[pheno] {
			m.add(e)
		}
		for _, e := range verified[pheno] {
			m.add(e)
		}
		res.records[pheno] = m.records()
	}
	return res
}

func phenotypes(extracted, verified map[string][]Entry, mode Mode) []string {
	var out []string
	for p := range extracted {
		if _, ok := verified[p]; ok || mode == ModeUnion {
			out = append(out, p)
		}
	}
	if mode == ModeUnion {
		for p := range verified {
			if _, ok := extracted[p]; !ok {
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

type geneMerger struct {
	byGene map[string]*Record
	seen   map[string]map[string]bool // gene -> pmid
	order  []string
}

func newGeneMerger() *geneMerger {
	return &geneMerger{
		byGene: make(map[string]*Record),
		seen:   make(map[string]map[string]bool),
	}
}

func (m *geneMerger) add(e Entry) {
	if e.Gene == "" {
		return
	}
	rec, ok := m.byGene[e.Gene]
	if !ok {
		rec = &Record{Gene: e.Gene, Source: e.Origin, Reference: e.Reference, Journal: e.Journal}
		m.byGene[e.Gene] = rec
		m.seen[e.Gene] = make(map[string]bool)
		m.order = append(m.order, e.Gene)
	} else {
		rec.Source = rec.Source.absorb(e.Origin)
		if e.Origin == Verified {
			if e.Reference != "" {
				rec.Reference = e.Reference
			}
			if e.Journal != "" {
				rec.Journal = e.Journal
			}
		} else {
			if rec.Reference == "" {
				rec.Reference = e.Reference
			}
			if rec.Journal == "" {
				rec.Journal = e.Journal
			}
		}
	}

	seen := m.seen[e.Gene]
	for _, id := range e.PMIDs {
		if !seen[id] {
			seen[id] = true
			rec.PMIDs = append(rec.PMIDs, id)
		}
	}
}

func (m *geneMerger) records() []Record {
	out := make([]Record, len(m.order))
	for i, g := range m.order {
		out[i] = *m.byGene[g]
		if out[i].PMIDs == nil {
			out[i].PMIDs = []string{}
		}
	}
	return out
}

// WriteJSON writes the merged records as an indented object keyed by
// phenotype.
func WriteJSON(w io.Writer, r *Result) error {
	b, err := json.MarshalIndent(r.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode merged records: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write merged records: %w", err)
	}
	return nil
}

// ReadJSON reads records written by WriteJSON.
func ReadJSON(rd io.Reader) (*Result, error) {
	res := &Result{records: make(map[string][]Record)}
	if err := json.NewDecoder(rd).Decode(&res.records); err != nil {
		return nil, fmt.Errorf("decode merged records: %w", err)
	}
	return res, nil
}
