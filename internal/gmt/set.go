package gmt

import "sort"

// GeneSet is an unordered set of gene identifiers.
type GeneSet map[string]struct{}

// NewGeneSet builds a set from a list of identifiers. Empty strings are ignored.
func NewGeneSet(genes ...string) GeneSet {
	s := make(GeneSet, len(genes))
	for _, g := range genes {
		if g != "" {
			s[g] = struct{}{}
		}
	}
	return s
}

// Add inserts a gene into the set.
func (s GeneSet) Add(gene string) {
	s[gene] = struct{}{}
}

// Contains reports whether gene is a member of the set.
func (s GeneSet) Contains(gene string) bool {
	_, ok := s[gene]
	return ok
}

// Len returns the number of genes in the set.
func (s GeneSet) Len() int {
	return len(s)
}

// Intersect returns a new set holding genes present in both s and o.
func (s GeneSet) Intersect(o GeneSet) GeneSet {
	small, large := s, o
	if len(small) > len(large) {
		small, large = large, small
	}
	out := make(GeneSet)
	for g := range small {
		if _, ok := large[g]; ok {
			out[g] = struct{}{}
		}
	}
	return out
}

// IntersectionSize returns |s ∩ o| without allocating.
func (s GeneSet) IntersectionSize(o GeneSet) int {
	small, large := s, o
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for g := range small {
		if _, ok := large[g]; ok {
			n++
		}
	}
	return n
}

// Union returns a new set holding genes present in s or o.
func (s GeneSet) Union(o GeneSet) GeneSet {
	out := make(GeneSet, len(s)+len(o))
	for g := range s {
		out[g] = struct{}{}
	}
	for g := range o {
		out[g] = struct{}{}
	}
	return out
}

// Minus returns a new set holding genes in s that are not in o.
func (s GeneSet) Minus(o GeneSet) GeneSet {
	out := make(GeneSet)
	for g := range s {
		if _, ok := o[g]; !ok {
			out[g] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s GeneSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for g := range s {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b GeneSet) float64 {
	inter := a.IntersectionSize(b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
