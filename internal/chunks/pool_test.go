package chunks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/mediafetch/internal/utils"
)

type timeline struct {
	mu     sync.Mutex
	starts map[int]time.Time
	ends   map[int]time.Time
}

func newTimeline() *timeline {
	return &timeline{starts: map[int]time.Time{}, ends: map[int]time.Time{}}
}

func (tl *timeline) task(delays map[int]time.Duration) Task {
	return func(ctx context.Context, c Chunk) error {
		tl.mu.Lock()
		tl.starts[c.Index] = time.Now()
		tl.mu.Unlock()
		time.Sleep(delays[c.Index])
		tl.mu.Lock()
		tl.ends[c.Index] = time.Now()
		tl.mu.Unlock()
		return nil
	}
}

func testChunks(n int) []Chunk {
	chunks := make([]Chunk, n)
	for i := range chunks {
		chunks[i] = Chunk{Index: i, Start: int64(i) * 10, End: int64(i)*10 + 9}
	}
	return chunks
}

func TestCohortStall(t *testing.T) {
	tl := newTimeline()
	delays := map[int]time.Duration{0: 250 * time.Millisecond, 1: 50 * time.Millisecond, 2: 50 * time.Millisecond}
	require.NoError(t, RunPool(context.Background(), testChunks(3), 2, utils.PoolModeCohort, tl.task(delays)))

	assert.False(t, tl.starts[2].Before(tl.ends[0]), "chunk 2 started before chunk 0 finished")
	assert.False(t, tl.starts[2].Before(tl.ends[1]), "chunk 2 started before chunk 1 finished")
}

func TestRefillStartsOnFreeSlot(t *testing.T) {
	tl := newTimeline()
	delays := map[int]time.Duration{0: 300 * time.Millisecond, 1: 20 * time.Millisecond, 2: 20 * time.Millisecond}
	require.NoError(t, RunPool(context.Background(), testChunks(3), 2, utils.PoolModeRefill, tl.task(delays)))

	assert.True(t, tl.starts[2].Before(tl.ends[0]), "refill pool should not wait for the slow chunk")
}

func TestPoolBoundsConcurrency(t *testing.T) {
	for _, mode := range []string{utils.PoolModeCohort, utils.PoolModeRefill} {
		var active, peak atomic.Int32
		err := RunPool(context.Background(), testChunks(9), 3, mode, func(ctx context.Context, c Chunk) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			return nil
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, peak.Load(), int32(3), mode)
	}
}

func TestPoolFailureStopsLaterCohorts(t *testing.T) {
	var started atomic.Int32
	boom := errors.New("boom")
	err := RunPool(context.Background(), testChunks(6), 2, utils.PoolModeCohort, func(ctx context.Context, c Chunk) error {
		started.Add(1)
		if c.Index == 1 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	var chunkErr *utils.ChunkError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, 1, chunkErr.Index)
	assert.Equal(t, int32(2), started.Load())
}

func TestPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var started atomic.Int32
	err := RunPool(ctx, testChunks(4), 2, utils.PoolModeCohort, func(ctx context.Context, c Chunk) error {
		started.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, started.Load())
}
