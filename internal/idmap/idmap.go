// Package idmap maps gene symbols and accessions to canonical identifiers.
package idmap

import (
	"context"
	"sort"
	"strings"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

// Mapper converts identifiers into the target identifier space.
// Unresolved identifiers are reported in Result.Invalid, never dropped.
type Mapper interface {
	Map(ctx context.Context, symbols []string, target gmt.IDSpace) (*Result, error)
}

// Result is keyed by input identifier, so mapped ids cannot drift out of
// alignment with the symbols they came from.
type Result struct {
	Mapped  map[string]string
	Invalid []string
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{Mapped: make(map[string]string)}
}

// Lookup returns the mapped id of symbol.
func (r *Result) Lookup(symbol string) (string, bool) {
	id, ok := r.Mapped[symbol]
	return id, ok
}

// Valid returns the mapped input identifiers in lexical order.
func (r *Result) Valid() []string {
	out := make([]string, 0, len(r.Mapped))
	for s := range r.Mapped {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// IDs returns the mapped ids aligned with Valid.
func (r *Result) IDs() []string {
	valid := r.Valid()
	out := make([]string, len(valid))
	for i, s := range valid {
		out[i] = r.Mapped[s]
	}
	return out
}

// Lists returns mapped ids, their input identifiers at the same positions,
// and the unresolved identifiers.
func (r *Result) Lists() (mapped, valid, invalid []string) {
	valid = r.Valid()
	mapped = make([]string, len(valid))
	for i, s := range valid {
		mapped[i] = r.Mapped[s]
	}
	invalid = append([]string(nil), r.Invalid...)
	sort.Strings(invalid)
	return mapped, valid, invalid
}

// Merge adds the entries of o. Mappings in r take precedence.
func (r *Result) Merge(o *Result) {
	for s, id := range o.Mapped {
		if _, ok := r.Mapped[s]; !ok {
			r.Mapped[s] = id
		}
	}
	for _, s := range o.Invalid {
		if _, ok := r.Mapped[s]; !ok {
			r.Invalid = append(r.Invalid, s)
		}
	}
}

// Unique trims identifiers and removes blanks and duplicates, keeping the
// first occurrence.
func Unique(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// StaticMapper resolves identifiers from a fixed dictionary regardless of
// the target space. It serves offline runs and tests.
type StaticMapper struct {
	dict map[string]string
}

// NewStaticMapper creates a mapper over symbol -> id.
func NewStaticMapper(dict map[string]string) *StaticMapper {
	return &StaticMapper{dict: dict}
}

// Map implements Mapper.
func (m *StaticMapper) Map(_ context.Context, symbols []string, _ gmt.IDSpace) (*Result, error) {
	res := NewResult()
	for _, s := range Unique(symbols) {
		if id, ok := m.dict[s]; ok {
			res.Mapped[s] = id
		} else {
			res.Invalid = append(res.Invalid, s)
		}
	}
	return res, nil
}
