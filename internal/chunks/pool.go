package chunks

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/utils"
	"golang.org/x/sync/errgroup"
)

type Task func(ctx context.Context, c Chunk) error

// RunPool executes task once per chunk with at most threads in flight.
//
// In cohort mode (the default) chunks are dispatched in batches of threads
// and the next batch only starts once every task of the current one has
// returned, so one slow chunk holds back the whole batch. Refill mode starts
// a new task as soon as any slot frees. The first failure cancels the
// siblings and is returned as a *utils.ChunkError.
func RunPool(ctx context.Context, chunks []Chunk, threads int, mode string, task Task) error {
	if threads < 1 {
		threads = 1
	}
	if mode == utils.PoolModeRefill {
		return runRefill(ctx, chunks, threads, task)
	}
	return runCohorts(ctx, chunks, threads, task)
}

func runCohorts(ctx context.Context, chunks []Chunk, threads int, task Task) error {
	for start := 0; start < len(chunks); start += threads {
		if err := ctx.Err(); err != nil {
			return err
		}
		cohort := chunks[start:min(start+threads, len(chunks))]
		log.Debug().Str("op", "chunks/pool").Msgf("dispatching cohort of %d chunk(s) starting at %d", len(cohort), cohort[0].Index)
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range cohort {
			g.Go(func() error {
				return runTask(gctx, c, task)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

func runRefill(ctx context.Context, chunks []Chunk, threads int, task Task) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for _, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return runTask(gctx, c, task)
		})
	}
	return g.Wait()
}

func runTask(ctx context.Context, c Chunk, task Task) error {
	if err := task(ctx, c); err != nil {
		return &utils.ChunkError{Index: c.Index, Err: err}
	}
	return nil
}
