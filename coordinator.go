package consensus

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Coordinator lets several workers share one consensus run. The rounds are
// split statically with Scatter; each worker clusters its own slice with a
// private copy of the samples and the workers meet once, to sum their
// counters, before the consensus matrix is built.
type Coordinator interface {
	// Rank is this worker's position in [0, Size).
	Rank() int

	// Size is the number of cooperating workers.
	Size() int

	// Scatter returns the half-open range of rounds owned by this worker.
	Scatter(total int) (start, end int)

	// Barrier blocks until every worker has called it.
	Barrier(ctx context.Context) error

	// AllReduce sums counts elementwise across all workers. Every worker
	// receives an identical copy of the total.
	AllReduce(ctx context.Context, counts *CoOccurrence) (*CoOccurrence, error)
}

// Local is the single-worker Coordinator: it owns every round and its
// barrier and reduction are no-ops.
type Local struct{}

func (Local) Rank() int                          { return 0 }
func (Local) Size() int                          { return 1 }
func (Local) Scatter(total int) (start, end int) { return 0, total }
func (Local) Barrier(context.Context) error      { return nil }
func (Local) AllReduce(_ context.Context, c *CoOccurrence) (*CoOccurrence, error) {
	return c, nil
}

// Group coordinates size workers running in the same process. Use Member to
// obtain the Coordinator for each rank.
//
// Barrier and AllReduce block until every member arrives. A member that stops
// early, for example on a round error, never arrives, so the context shared
// by the members must be cancelled as soon as any of them fails; RunParallel
// does this with an errgroup context.
type Group struct {
	size int

	mu      sync.Mutex
	arrived int
	release chan struct{}
	sum     *CoOccurrence
	err     error
}

// NewGroup creates a Group for size workers. size must be >= 1.
func NewGroup(size int) *Group {
	return &Group{size: max(size, 1), release: make(chan struct{})}
}

// Member returns the Coordinator for the given rank.
func (g *Group) Member(rank int) Coordinator {
	return &groupMember{group: g, rank: rank}
}

// wait is a reusable barrier. The last worker to arrive runs onRelease while
// holding the lock, then wakes everybody else.
func (g *Group) wait(ctx context.Context, onRelease func()) error {
	g.mu.Lock()
	ch := g.release
	g.arrived++
	if g.arrived == g.size {
		if onRelease != nil {
			onRelease()
		}
		g.arrived = 0
		g.release = make(chan struct{})
		close(ch)
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type groupMember struct {
	group *Group
	rank  int
}

func (m *groupMember) Rank() int { return m.rank }
func (m *groupMember) Size() int { return m.group.size }

func (m *groupMember) Scatter(total int) (start, end int) {
	return partitionRange(total, m.group.size, m.rank)
}

func (m *groupMember) Barrier(ctx context.Context) error {
	return m.group.wait(ctx, nil)
}

func (m *groupMember) AllReduce(ctx context.Context, counts *CoOccurrence) (*CoOccurrence, error) {
	g := m.group

	g.mu.Lock()
	switch {
	case g.err != nil:
	case g.sum == nil:
		g.sum = counts.Clone()
	default:
		g.err = g.sum.Add(counts)
	}
	g.mu.Unlock()

	if err := g.wait(ctx, nil); err != nil {
		return nil, err
	}

	g.mu.Lock()
	total, err := g.sum, g.err
	if err == nil {
		total = total.Clone()
	}
	g.mu.Unlock()

	// Nobody may reset the accumulator before every member has its copy.
	if werr := g.wait(ctx, func() { g.sum, g.err = nil, nil }); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}
	return total, nil
}

// RunParallel runs one consensus clustering split across workers goroutines
// that cooperate through a Group. Every worker clusters a private copy of
// samples; rank 0 builds the consensus matrix, the final partition and the
// reorder, and its final labels are copied back into samples. The first
// worker error cancels the others and is returned.
func RunParallel(ctx context.Context, samples []*Sample, cfg Config, workers int) (*Result, error) {
	if workers < 1 {
		return nil, configErrorf("workers must be >= 1, got %d", workers)
	}
	if workers == 1 {
		cfg.Coordinator = Local{}
		return Run(ctx, samples, cfg)
	}

	cfg.runID = uuid.New()
	if progress := cfg.Progress; progress != nil {
		var mu sync.Mutex
		cfg.Progress = func(label string, current, total int) {
			mu.Lock()
			defer mu.Unlock()
			progress(label, current, total)
		}
	}

	group := NewGroup(workers)
	copies := make([][]*Sample, workers)
	results := make([]*Result, workers)

	g, gctx := errgroup.WithContext(ctx)
	for rank := 0; rank < workers; rank++ {
		rank := rank
		copies[rank] = cloneSamples(samples)
		wcfg := cfg
		wcfg.Coordinator = group.Member(rank)
		g.Go(func() error {
			res, err := Run(gctx, copies[rank], wcfg)
			if err != nil {
				return fmt.Errorf("worker %d: %w", rank, err)
			}
			results[rank] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, s := range copies[0] {
		samples[i].ClusterID = s.ClusterID
	}
	return results[0], nil
}
