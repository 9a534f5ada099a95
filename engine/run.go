package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seiflotfy/sketchkit/sketcherr"
)

// ReturnsCountFunc is the first of the two process_fn shapes
// allowed: it mutates sk directly (Add/Update/UpdateCounts) and reports
// how many records item represented.
type ReturnsCountFunc[Item any] func(item Item, sk *Sketches) (nRecords uint64, err error)

// YieldsBatchesFunc is the second process_fn shape: rather than touch sk
// itself, it calls emit for each batch of keys it wants folded in and
// reports the total record count. This replaces
// the source language's single reflectively-dispatched callback with
// these two explicit, statically-typed shapes, selected by calling
// RunReturnsCount or RunYieldsBatches rather than by runtime inspection.
type YieldsBatchesFunc[Item any] func(item Item, emit func(Batch)) (nRecords uint64, err error)

// RunReturnsCount runs a parallel_add session using the ReturnsCount
// calling convention.
func RunReturnsCount[Item any](ctx context.Context, items []Item, nWorkers int, baseSeed uint64, req Request, fn ReturnsCountFunc[Item]) (*Result, error) {
	return run(ctx, items, nWorkers, baseSeed, req, func(sk *Sketches, item Item) (uint64, error) {
		return fn(item, sk)
	})
}

// RunYieldsBatches runs a parallel_add session using the YieldsBatches
// calling convention.
func RunYieldsBatches[Item any](ctx context.Context, items []Item, nWorkers int, baseSeed uint64, req Request, fn YieldsBatchesFunc[Item]) (*Result, error) {
	return run(ctx, items, nWorkers, baseSeed, req, func(sk *Sketches, item Item) (uint64, error) {
		return fn(item, func(b Batch) { sk.ingest(b) })
	})
}

// run implements the shared body of both calling conventions: construct
// one private Sketches per worker, fan items out over a bounded
// multi-producer/single-consumer queue (here: one producer, nWorkers
// consumers), abort on first error, then reduce via tournamentMerge.
func run[Item any](ctx context.Context, items []Item, nWorkers int, baseSeed uint64, req Request, process func(sk *Sketches, item Item) (uint64, error)) (*Result, error) {
	if nWorkers <= 0 {
		return nil, sketcherr.NewConfigError("n_workers", "must be > 0")
	}
	if req.empty() {
		return nil, sketcherr.NewConfigError("request", "at least one of cms, hh, hll must be requested")
	}

	sessionID := uuid.New().String()
	log.Info().
		Str("session", sessionID).
		Int("workers", nWorkers).
		Int("items", len(items)).
		Msg("engine: starting parallel_add session")

	workers := make([]*Sketches, nWorkers)
	for i := range workers {
		sk, err := req.build(i, baseSeed)
		if err != nil {
			return nil, err
		}
		workers[i] = sk
	}

	g, gctx := errgroup.WithContext(ctx)
	itemCh := make(chan Item, nWorkers)

	g.Go(func() error {
		defer close(itemCh)
		for _, it := range items {
			select {
			case itemCh <- it:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < nWorkers; w++ {
		w := w
		g.Go(func() error {
			sk := workers[w]
			for {
				select {
				case item, ok := <-itemCh:
					if !ok {
						return nil
					}
					n, err := process(sk, item)
					if err != nil {
						log.Error().Str("session", sessionID).Int("worker", w).Err(err).Msg("engine: worker process_fn failed")
						return sketcherr.NewWorkerError(w, err)
					}
					sk.creditRecords(n)
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Str("session", sessionID).Err(err).Msg("engine: session aborted")
		return nil, err
	}

	final, err := tournamentMerge(ctx, workers)
	if err != nil {
		log.Error().Str("session", sessionID).Err(err).Msg("engine: merge tournament failed")
		return nil, err
	}

	log.Info().Str("session", sessionID).Msg("engine: parallel_add session complete")
	return &Result{CMS: final.CMS, HH: final.HH, HLL: final.HLL, SessionID: sessionID}, nil
}

// tournamentMerge reduces W worker sketch sets to one via ⌈log2 W⌉
// rounds of pairwise merges, pairing index i with
// i+⌈W/2⌉ each round so results are reproducible regardless of
// scheduling order. Within a round, disjoint pairs merge concurrently;
// an odd leftover element passes through to the next round unmerged.
func tournamentMerge(ctx context.Context, round []*Sketches) (*Sketches, error) {
	for len(round) > 1 {
		half := (len(round) + 1) / 2
		paired := len(round) - half
		next := make([]*Sketches, half)

		g, _ := errgroup.WithContext(ctx)
		for i := 0; i < paired; i++ {
			i := i
			next[i] = round[i]
			partner := round[i+half]
			g.Go(func() error {
				return next[i].merge(partner)
			})
		}
		for i := paired; i < half; i++ {
			next[i] = round[i]
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
		round = next
	}
	return round[0], nil
}
