package consensus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalIsIdentity(t *testing.T) {
	var c Coordinator = Local{}
	assert.Equal(t, 0, c.Rank())
	assert.Equal(t, 1, c.Size())

	start, end := c.Scatter(17)
	assert.Equal(t, 0, start)
	assert.Equal(t, 17, end)

	require.NoError(t, c.Barrier(context.Background()))

	counts := NewCoOccurrence(3)
	got, err := c.AllReduce(context.Background(), counts)
	require.NoError(t, err)
	assert.Same(t, counts, got)
}

func TestGroup_AllReduceSumsAcrossMembers(t *testing.T) {
	const size = 3
	g := NewGroup(size)

	results := make([]*CoOccurrence, size)
	errs := make([]error, size)
	var wg sync.WaitGroup
	for rank := 0; rank < size; rank++ {
		rank := rank
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := g.Member(rank)
			counts := NewCoOccurrence(3)
			// Rank r observes r+1 runs where 0 and 1 share a cluster.
			for i := 0; i <= rank; i++ {
				counts.Observe(labelled(0, 0, 1))
			}
			if err := m.Barrier(context.Background()); err != nil {
				errs[rank] = err
				return
			}
			results[rank], errs[rank] = m.AllReduce(context.Background(), counts)
		}()
	}
	wg.Wait()

	for rank := 0; rank < size; rank++ {
		require.NoError(t, errs[rank])
		cl, tot := results[rank].Counts(0, 1)
		// 1 + 2 + 3 runs.
		assert.Equal(t, 6, cl, "rank %d", rank)
		assert.Equal(t, 6, tot, "rank %d", rank)
		cl, tot = results[rank].Counts(0, 2)
		assert.Equal(t, 0, cl, "rank %d", rank)
		assert.Equal(t, 6, tot, "rank %d", rank)
	}
	assert.NotSame(t, results[0], results[1], "every member gets its own copy")
}

func TestGroup_IsReusable(t *testing.T) {
	const size = 2
	g := NewGroup(size)

	var wg sync.WaitGroup
	totals := make([][]int, size)
	for rank := 0; rank < size; rank++ {
		rank := rank
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := g.Member(rank)
			for round := 0; round < 3; round++ {
				counts := NewCoOccurrence(2)
				counts.Observe(labelled(0, 0))
				sum, err := m.AllReduce(context.Background(), counts)
				if err != nil {
					t.Error(err)
					return
				}
				totals[rank] = append(totals[rank], sum.Total[0])
			}
		}()
	}
	wg.Wait()

	// The accumulator is reset between reductions.
	for rank := 0; rank < size; rank++ {
		assert.Equal(t, []int{2, 2, 2}, totals[rank], "rank %d", rank)
	}
}

func TestGroup_BarrierHonoursContext(t *testing.T) {
	g := NewGroup(2)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.Member(0).Barrier(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestGroup_ScatterCoversAllRounds(t *testing.T) {
	g := NewGroup(4)
	covered := make([]int, 10)
	for rank := 0; rank < 4; rank++ {
		start, end := g.Member(rank).Scatter(10)
		for r := start; r < end; r++ {
			covered[r]++
		}
	}
	for r, c := range covered {
		assert.Equal(t, 1, c, "round %d", r)
	}
}

func TestRunParallel_InvalidWorkers(t *testing.T) {
	_, err := RunParallel(context.Background(), twoTriples(), DefaultConfig(), 0)
	assert.ErrorIs(t, err, ErrConfiguration)
}
