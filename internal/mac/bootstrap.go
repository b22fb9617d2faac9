package mac

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/inodb/vibe-geneset/internal/gmt"
	"github.com/inodb/vibe-geneset/internal/gsdb"
)

// DefaultSamples is the number of random samples drawn when none is given.
const DefaultSamples = 1000

var (
	// ErrInvalidSamples is returned for a non-positive sample count.
	ErrInvalidSamples = errors.New("number of samples must be positive")
	// ErrQueryTooLarge is returned when the query holds at least as many
	// genes as the database universe.
	ErrQueryTooLarge = errors.New("query list must be smaller than the gene universe")
	// ErrEmptyQuery is returned for a query without genes.
	ErrEmptyQuery = errors.New("query list is empty")
)

// Options configures BootstrapTest. Source drives the sampling; a
// time-seeded source is used when it is nil.
type Options struct {
	Weighted bool
	Samples  int
	Source   rand.Source
}

// Result is the outcome of a bootstrap test.
type Result struct {
	MAC      float64
	PValue   float64
	Exceeded int
	Samples  int
	Weighted bool
}

// BootstrapTest computes the (weighted) MAC of genes against m and its
// empirical p-value: the fraction of random gene lists of the same size,
// drawn without replacement from the model universe, whose MAC is strictly
// greater than the observed one. Duplicate genes in the query are counted
// once.
func BootstrapTest(m *gsdb.Model, genes []string, opts Options) (Result, error) {
	if opts.Samples <= 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidSamples, opts.Samples)
	}
	query := gmt.NewGeneSet(genes...)
	if len(query) == 0 {
		return Result{}, ErrEmptyQuery
	}
	universe := m.Universe()
	if len(query) >= len(universe) {
		return Result{}, fmt.Errorf("%w: %d genes, universe has %d", ErrQueryTooLarge, len(query), len(universe))
	}

	src := opts.Source
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	score := scorer(opts.Weighted)

	res := Result{
		MAC:      score(m, query),
		Samples:  opts.Samples,
		Weighted: opts.Weighted,
	}

	idxs := make([]int, len(query))
	sample := make(gmt.GeneSet, len(query))
	for i := 0; i < opts.Samples; i++ {
		sampleuv.WithoutReplacement(idxs, len(universe), src)
		clear(sample)
		for _, idx := range idxs {
			sample.Add(universe[idx])
		}
		if score(m, sample) > res.MAC {
			res.Exceeded++
		}
	}
	res.PValue = float64(res.Exceeded) / float64(opts.Samples)
	return res, nil
}
