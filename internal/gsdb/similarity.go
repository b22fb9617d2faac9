package gsdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/inodb/vibe-geneset/internal/gmt"
)

// WeightedJaccard returns the information-content weighted Jaccard score of
// a against b. Intersection genes are weighted by ma. Union genes are weighted
// by ma when they belong to a, by mb otherwise, so swapping the arguments
// also requires swapping the models. A zero union weight yields 0.
func WeightedJaccard(a, b gmt.GeneSet, ma, mb *Model) float64 {
	inter := make([]float64, 0, len(a))
	union := make([]float64, 0, len(a)+len(b))
	for g := range a {
		w := ma.Weight(g)
		union = append(union, w)
		if b.Contains(g) {
			inter = append(inter, w)
		}
	}
	for g := range b {
		if !a.Contains(g) {
			union = append(union, mb.Weight(g))
		}
	}
	u := sum(union)
	if u == 0 {
		return 0
	}
	return sum(inter) / u
}

// BestMatch returns the highest Jaccard score between gs and any set of db
// with the name of that set. Sets are visited in database order and only a
// strictly greater score replaces the current best, so the first of several
// tied sets wins. Without any positive overlap the result is 0 and "".
func BestMatch(gs gmt.GeneSet, db *gmt.Database) (float64, string) {
	var best float64
	var name string
	db.Each(func(n string, other gmt.GeneSet) {
		if s := gmt.Jaccard(gs, other); s > best {
			best, name = s, n
		}
	})
	return best, name
}

// BestICMatch is BestMatch with WeightedJaccard(gs, set, ma, mb) over the
// sets of mb.
func BestICMatch(gs gmt.GeneSet, ma, mb *Model) (float64, string) {
	var best float64
	var name string
	mb.db.Each(func(n string, other gmt.GeneSet) {
		if s := WeightedJaccard(gs, other, ma, mb); s > best {
			best, name = s, n
		}
	})
	return best, name
}

// DBToDBSimilarity scores two databases as
//
//	sum(best match of db1 sets in db2) / (2*|db1|) + sum(best match of db2 sets in db1) / (2*|db2|)
//
// The score is not symmetric when the databases differ in size. An empty
// database contributes 0 to its term.
func DBToDBSimilarity(db1, db2 *gmt.Database) (float64, error) {
	if err := gmt.CheckCompatible(db1, db2); err != nil {
		return 0, err
	}
	var score1, score2 float64
	db1.Each(func(_ string, gs gmt.GeneSet) {
		s, _ := BestMatch(gs, db2)
		score1 += s
	})
	db2.Each(func(_ string, gs gmt.GeneSet) {
		s, _ := BestMatch(gs, db1)
		score2 += s
	})
	return halfMean(score1, db1.Len()) + halfMean(score2, db2.Len()), nil
}

// ICDBToDBSimilarity is DBToDBSimilarity using information-content weighted
// Jaccard scores. Each direction weights the query side by its own model.
func ICDBToDBSimilarity(m1, m2 *Model) (float64, error) {
	if err := gmt.CheckCompatible(m1.db, m2.db); err != nil {
		return 0, err
	}
	var score1, score2 float64
	m1.db.Each(func(_ string, gs gmt.GeneSet) {
		s, _ := BestICMatch(gs, m1, m2)
		score1 += s
	})
	m2.db.Each(func(_ string, gs gmt.GeneSet) {
		s, _ := BestICMatch(gs, m2, m1)
		score2 += s
	})
	return halfMean(score1, m1.size) + halfMean(score2, m2.size), nil
}

func halfMean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(2*n)
}

// SimilarityByName returns the weighted Jaccard score of every set name
// present in both models, weighting the first database's genes by m1.
func SimilarityByName(m1, m2 *Model) (map[string]float64, error) {
	if err := gmt.CheckCompatible(m1.db, m2.db); err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	m1.db.Each(func(name string, gs gmt.GeneSet) {
		if other := m2.db.Set(name); other != nil {
			out[name] = WeightedJaccard(gs, other, m1, m2)
		}
	})
	return out, nil
}

// LengthMismatchError reports two databases that were expected to hold the
// same number of gene sets.
type LengthMismatchError struct {
	Len1, Len2 int
	MissingIn1 []string
	MissingIn2 []string
}

func (e *LengthMismatchError) Error() string {
	msg := fmt.Sprintf("databases differ in size: %d vs %d gene sets", e.Len1, e.Len2)
	if len(e.MissingIn2) > 0 {
		msg += fmt.Sprintf("; %d only in first (%s)", len(e.MissingIn2), preview(e.MissingIn2))
	}
	if len(e.MissingIn1) > 0 {
		msg += fmt.Sprintf("; %d only in second (%s)", len(e.MissingIn1), preview(e.MissingIn1))
	}
	return msg
}

func preview(names []string) string {
	const limit = 5
	if len(names) <= limit {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:limit], ", ") + ", ..."
}

// CheckSameLength fails with a *LengthMismatchError when the databases hold
// a different number of gene sets.
func CheckSameLength(db1, db2 *gmt.Database) error {
	if db1.Len() == db2.Len() {
		return nil
	}
	e := &LengthMismatchError{Len1: db1.Len(), Len2: db2.Len()}
	for _, n := range db1.Names() {
		if !db2.Has(n) {
			e.MissingIn2 = append(e.MissingIn2, n)
		}
	}
	for _, n := range db2.Names() {
		if !db1.Has(n) {
			e.MissingIn1 = append(e.MissingIn1, n)
		}
	}
	sort.Strings(e.MissingIn1)
	sort.Strings(e.MissingIn2)
	return e
}
