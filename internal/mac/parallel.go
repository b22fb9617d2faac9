package mac

import (
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"github.com/inodb/vibe-geneset/internal/gsdb"
)

// Job is one bootstrap test of a phenotype gene list against a database.
type Job struct {
	Seq       int
	Phenotype string
	Database  string
	Genes     []string
	Model     *gsdb.Model
	Weighted  bool
}

// JobResult holds the bootstrap outcome of a single job.
type JobResult struct {
	Seq       int
	Phenotype string
	Database  string
	Result    Result
	Err       error
}

// Evaluator runs bootstrap jobs on a pool of workers.
type Evaluator struct {
	samples int
	seed    uint64
	logger  *zap.Logger
}

// NewEvaluator creates an evaluator drawing samples random lists per job.
// Job n samples from a source seeded with seed+n, so results do not depend
// on the number of workers.
func NewEvaluator(samples int, seed uint64) *Evaluator {
	return &Evaluator{samples: samples, seed: seed, logger: zap.NewNop()}
}

// SetLogger sets the logger for job progress.
func (e *Evaluator) SetLogger(l *zap.Logger) {
	e.logger = l
}

func (e *Evaluator) evaluate(job Job) JobResult {
	res, err := BootstrapTest(job.Model, job.Genes, Options{
		Weighted: job.Weighted,
		Samples:  e.samples,
		Source:   rand.NewSource(e.seed + uint64(job.Seq)),
	})
	if err != nil {
		e.logger.Warn("bootstrap failed",
			zap.String("phenotype", job.Phenotype),
			zap.String("database", job.Database),
			zap.Error(err))
	} else {
		e.logger.Debug("bootstrap done",
			zap.String("phenotype", job.Phenotype),
			zap.String("database", job.Database),
			zap.Float64("mac", res.MAC),
			zap.Float64("p_value", res.PValue))
	}
	return JobResult{
		Seq:       job.Seq,
		Phenotype: job.Phenotype,
		Database:  job.Database,
		Result:    res,
		Err:       err,
	}
}

// Run evaluates jobs using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (e *Evaluator) Run(jobs <-chan Job, workers int) <-chan JobResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan JobResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- e.evaluate(job)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// RunAll evaluates a slice of jobs and returns their results in job order.
// Seq is assigned from the slice position.
func (e *Evaluator) RunAll(jobs []Job, workers int) []JobResult {
	ch := make(chan Job, len(jobs))
	for i, job := range jobs {
		job.Seq = i
		ch <- job
	}
	close(ch)

	out := make([]JobResult, 0, len(jobs))
	_ = OrderedCollect(e.Run(ch, workers), func(r JobResult) error {
		out = append(out, r)
		return nil
	})
	return out
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan JobResult, fn func(JobResult) error) error {
	pending := make(map[int]JobResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
