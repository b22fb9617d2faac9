package mac

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeJobs(t *testing.T, n int) []Job {
	m := testModel(t)
	queries := [][]string{{"a", "d"}, {"c", "e"}, {"b"}, {"a", "b", "e"}}
	jobs := make([]Job, n)
	for i := 0; i < n; i++ {
		jobs[i] = Job{
			Phenotype: fmt.Sprintf("P%d", i),
			Database:  "test",
			Genes:     queries[i%len(queries)],
			Model:     m,
			Weighted:  i%2 == 1,
		}
	}
	return jobs
}

func TestEvaluator_OrderPreservation(t *testing.T) {
	jobs := makeJobs(t, 40)
	ch := make(chan Job, len(jobs))
	for i, job := range jobs {
		job.Seq = i
		ch <- job
	}
	close(ch)

	e := NewEvaluator(20, 1)
	var collected []int
	err := OrderedCollect(e.Run(ch, 8), func(r JobResult) error {
		require.NoError(t, r.Err)
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 40)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestEvaluator_ReproducibleAcrossWorkers(t *testing.T) {
	jobs := makeJobs(t, 16)

	single := NewEvaluator(100, 99).RunAll(jobs, 1)
	many := NewEvaluator(100, 99).RunAll(jobs, 6)

	require.Len(t, single, 16)
	require.Len(t, many, 16)
	for i := range single {
		assert.Equal(t, single[i].Phenotype, many[i].Phenotype)
		assert.Equal(t, single[i].Result, many[i].Result, "job %d", i)
	}
}

func TestEvaluator_JobError(t *testing.T) {
	jobs := makeJobs(t, 2)
	jobs[1].Genes = []string{"a", "b", "c", "d", "e"}

	results := NewEvaluator(10, 1).RunAll(jobs, 2)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrQueryTooLarge)
}

func TestOrderedCollect_StopsOnError(t *testing.T) {
	results := make(chan JobResult, 5)
	for i := 0; i < 5; i++ {
		results <- JobResult{Seq: i}
	}
	close(results)

	stop := errors.New("stop")
	var seen int
	err := OrderedCollect(results, func(r JobResult) error {
		seen++
		if r.Seq == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 3, seen)
}
