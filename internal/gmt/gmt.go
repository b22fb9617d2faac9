// Package gmt provides an in-memory gene-set database backed by the GMT
// (Gene Matrix Transposed) file format.
package gmt

import (
	"errors"
	"fmt"
	"sort"
)

// IDSpace identifies the naming scheme used for the genes of a database.
type IDSpace int

const (
	// SpaceUnknown is the space of a database without genes.
	SpaceUnknown IDSpace = iota
	// SpaceSymbol covers gene symbols and accessions (e.g. TP53).
	SpaceSymbol
	// SpaceNumeric covers canonical numeric identifiers (e.g. Entrez 7157).
	SpaceNumeric
	// SpaceMixed marks a database holding both kinds of identifiers.
	SpaceMixed
)

func (s IDSpace) String() string {
	switch s {
	case SpaceSymbol:
		return "symbol"
	case SpaceNumeric:
		return "numeric"
	case SpaceMixed:
		return "mixed"
	}
	return "unknown"
}

// ParseIDSpace converts a name such as "symbol" or "entrez" into an IDSpace.
func ParseIDSpace(s string) (IDSpace, error) {
	switch s {
	case "symbol":
		return SpaceSymbol, nil
	case "numeric", "entrez", "entrezgene":
		return SpaceNumeric, nil
	}
	return SpaceUnknown, fmt.Errorf("unknown identifier space %q", s)
}

// ErrMixedIDSpace is returned when symbols and numeric identifiers are mixed.
var ErrMixedIDSpace = errors.New("gene identifiers mix symbols and numeric ids")

// ClassifyGene returns the identifier space a single gene token belongs to.
func ClassifyGene(gene string) IDSpace {
	if gene == "" {
		return SpaceUnknown
	}
	for i := 0; i < len(gene); i++ {
		if gene[i] < '0' || gene[i] > '9' {
			return SpaceSymbol
		}
	}
	return SpaceNumeric
}

// Record is a single GMT line: name, description and gene list.
type Record struct {
	Name        string
	Description string
	Genes       []string
}

type entry struct {
	rec Record
	set GeneSet
}

// Database is an ordered collection of gene sets keyed by name.
// Names keep the order of their first appearance; re-adding a name replaces
// its content in place.
type Database struct {
	entries map[string]*entry
	order   []string
}

// NewDatabase creates an empty database.
func NewDatabase() *Database {
	return &Database{entries: make(map[string]*entry)}
}

// FromSets builds a database from name -> genes, ordered by name.
func FromSets(sets map[string][]string, description string) *Database {
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	sort.Strings(names)

	db := NewDatabase()
	for _, name := range names {
		db.Add(Record{Name: name, Description: description, Genes: sets[name]})
	}
	return db
}

// Add inserts or replaces a record. Duplicate genes within the record are
// collapsed, keeping the first occurrence.
func (db *Database) Add(r Record) {
	set := make(GeneSet, len(r.Genes))
	genes := make([]string, 0, len(r.Genes))
	for _, g := range r.Genes {
		if g == "" || set.Contains(g) {
			continue
		}
		set.Add(g)
		genes = append(genes, g)
	}
	r.Genes = genes

	if e, ok := db.entries[r.Name]; ok {
		e.rec = r
		e.set = set
		return
	}
	db.entries[r.Name] = &entry{rec: r, set: set}
	db.order = append(db.order, r.Name)
}

// Len returns the number of gene sets.
func (db *Database) Len() int {
	return len(db.order)
}

// Names returns gene-set names in insertion order.
func (db *Database) Names() []string {
	out := make([]string, len(db.order))
	copy(out, db.order)
	return out
}

// SortedNames returns gene-set names in lexical order.
func (db *Database) SortedNames() []string {
	out := db.Names()
	sort.Strings(out)
	return out
}

// Has reports whether a gene set with the given name exists.
func (db *Database) Has(name string) bool {
	_, ok := db.entries[name]
	return ok
}

// Get returns a copy of the named record.
func (db *Database) Get(name string) (Record, bool) {
	e, ok := db.entries[name]
	if !ok {
		return Record{}, false
	}
	r := e.rec
	r.Genes = append([]string(nil), e.rec.Genes...)
	return r, true
}

// Set returns the genes of the named gene set. The returned set is shared
// with the database and must not be modified. A missing name yields nil.
func (db *Database) Set(name string) GeneSet {
	e, ok := db.entries[name]
	if !ok {
		return nil
	}
	return e.set
}

// Each calls fn for every gene set in insertion order.
func (db *Database) Each(fn func(name string, genes GeneSet)) {
	for _, name := range db.order {
		fn(name, db.entries[name].set)
	}
}

// Universe returns the sorted list of distinct genes across all sets.
func (db *Database) Universe() []string {
	all := make(GeneSet)
	for _, e := range db.entries {
		for g := range e.set {
			all.Add(g)
		}
	}
	return all.Sorted()
}

// Space reports the identifier space shared by every gene in the database.
func (db *Database) Space() IDSpace {
	space := SpaceUnknown
	for _, name := range db.order {
		for _, g := range db.entries[name].rec.Genes {
			s := ClassifyGene(g)
			switch {
			case space == SpaceUnknown:
				space = s
			case s != space:
				return SpaceMixed
			}
		}
	}
	return space
}

// Validate fails when the database mixes identifier spaces.
func (db *Database) Validate() error {
	if db.Space() == SpaceMixed {
		return ErrMixedIDSpace
	}
	return nil
}

// CheckCompatible fails when two databases cannot be compared because their
// identifier spaces are mixed or differ.
func CheckCompatible(dbs ...*Database) error {
	space := SpaceUnknown
	for i, db := range dbs {
		s := db.Space()
		if s == SpaceMixed {
			return fmt.Errorf("database %d: %w", i+1, ErrMixedIDSpace)
		}
		if s == SpaceUnknown {
			continue
		}
		if space != SpaceUnknown && s != space {
			return fmt.Errorf("database %d uses %s identifiers, expected %s: %w", i+1, s, space, ErrMixedIDSpace)
		}
		space = s
	}
	return nil
}
