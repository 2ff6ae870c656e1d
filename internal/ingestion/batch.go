package ingestion

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/stockpulse/internal/logger"
)

const maxParallel = 8

// Outcome is the result of one symbol in a batch.
type Outcome struct {
	Symbol  string
	Summary Summary
	Err     error
}

// IngestSymbols runs Ingest for every symbol with bounded parallelism.
//
// parallel is clamped to 1..8; zero or less means min(NumCPU, 8). A failing
// symbol does not stop the others; only a cancelled ctx aborts the batch, in
// which case the outcomes gathered so far are returned with ctx's error.
// Outcomes are in input order.
func (p *Pipeline) IngestSymbols(ctx context.Context, symbols []string, days, parallel int) ([]Outcome, error) {
	limit := clampParallel(parallel)
	logger.L().Info().Int("symbols", len(symbols)).Int("max_parallel", limit).Msg("batch ingestion start")

	started := time.Now()
	outcomes := make([]Outcome, len(symbols))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{Symbol: sym, Err: err}
				return err
			}
			sum, err := p.Ingest(ctx, sym, days)
			outcomes[i] = Outcome{Symbol: sym, Summary: sum, Err: err}
			if err != nil {
				logger.L().Error().Int("idx", i+1).Int("total", len(symbols)).Str("symbol", sym).Err(err).Msg("symbol failed")
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	logger.L().Info().Int("symbols", len(symbols)).Int("failed", failed).Dur("elapsed", time.Since(started)).Msg("batch ingestion done")
	return outcomes, err
}

func clampParallel(parallel int) int {
	if parallel <= 0 {
		if c := runtime.NumCPU(); c < maxParallel {
			return c
		}
		return maxParallel
	}
	if parallel > maxParallel {
		return maxParallel
	}
	return parallel
}
