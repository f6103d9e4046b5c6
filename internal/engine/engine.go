// Package engine runs the local half of a benchmark run: it fans a process
// block out over a fixed set of worker goroutines that sum series terms at
// working precision, and it drives a run end to end through validation,
// partitioning, computation, cross-process reduction and finalization.
package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hpcbench/picalc/internal/bignum"
	apperrors "github.com/hpcbench/picalc/internal/errors"
	"github.com/hpcbench/picalc/internal/partition"
	"github.com/hpcbench/picalc/internal/series"
)

// Engine sums a block of series terms with a fixed number of worker
// goroutines. The distribution decides how the block's indices are spread
// over the workers: contiguous sub-blocks or a cyclic walk, matching what
// the series variant was benchmarked with.
type Engine struct {
	Backend bignum.Backend
	Series  series.Series
	Dist    series.Distribution
	Threads int
}

// workerSpan describes the indices one worker owns: the bootstrap index,
// the advance stride and the number of terms.
type workerSpan struct {
	start  int
	stride int
	count  int
}

func (e *Engine) spans(block partition.Block) []workerSpan {
	spans := make([]workerSpan, 0, e.Threads)
	for tid := 0; tid < e.Threads; tid++ {
		switch e.Dist {
		case series.Blocks:
			sub := partition.ThreadBlock(block, tid, e.Threads)
			spans = append(spans, workerSpan{start: sub.Start, stride: 1, count: sub.Len()})
		default:
			cyc := partition.ThreadCycle(block, tid, e.Threads)
			spans = append(spans, workerSpan{start: cyc.First, stride: cyc.Stride, count: cyc.Len()})
		}
	}
	return spans
}

// ComputeLocal sums every term of block and returns the process-local
// partial sum at the backend's working precision.
//
// Each worker bootstraps its own term generator at its first index,
// accumulates into a private sum, and merges into the shared sum under a
// mutex once it finishes. Merge order is the only scheduling artifact and
// it stays far below the reported digits at working precision. The context
// is checked on every iteration; the first failure cancels the remaining
// workers.
func (e *Engine) ComputeLocal(ctx context.Context, block partition.Block, reporter ProgressReporter) (bignum.Value, error) {
	if reporter == nil {
		reporter = func(float64) {}
	}
	sum := e.Backend.New()
	total := block.Len()
	if total == 0 {
		reporter(1.0)
		return sum, nil
	}

	reportEvery := int64(total / 100)
	if reportEvery == 0 {
		reportEvery = 1
	}

	var (
		mu   sync.Mutex
		done atomic.Int64
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, span := range e.spans(block) {
		if span.count == 0 {
			continue
		}
		g.Go(func() error {
			local := e.Backend.New()
			term := e.Series.NewTerm(e.Backend, span.start, span.stride)
			for i := 0; i < span.count; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				term.AddInto(local)
				if i+1 < span.count {
					term.Advance()
				}
				if d := done.Add(1); d%reportEvery == 0 || d == int64(total) {
					reporter(float64(d) / float64(total))
				}
			}
			mu.Lock()
			sum.Add(sum, local)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.ComputationError{Cause: err}
	}
	return sum, nil
}
