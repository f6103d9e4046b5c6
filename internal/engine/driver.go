package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/hpcbench/picalc/internal/bignum"
	"github.com/hpcbench/picalc/internal/digits"
	apperrors "github.com/hpcbench/picalc/internal/errors"
	"github.com/hpcbench/picalc/internal/partition"
	"github.com/hpcbench/picalc/internal/series"
	"github.com/hpcbench/picalc/pkg/models"
)

// Phase tracks the lifecycle of one run through the driver.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseValidated
	PhaseComputing
	PhaseFinalized
	PhaseDone
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidated:
		return "validated"
	case PhaseComputing:
		return "computing"
	case PhaseFinalized:
		return "finalized"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// workingPrecisionFactor is the number of working-precision bits carried
// per requested decimal digit. A digit needs about 3.33 bits; the rest
// absorbs the rounding drift of accumulating millions of strided terms.
const workingPrecisionFactor = 8

// Reducer combines partial sums across the processes of a run. Reduce is
// collective: it returns on the coordinator with the global sum once every
// participant's buffer has been folded in, and on the other ranks with a
// nil value once the coordinator has confirmed completion.
type Reducer interface {
	Reduce(ctx context.Context, local bignum.Value) (bignum.Value, error)
}

// Loopback is the single-process Reducer: the local sum already is the
// global sum.
type Loopback struct{}

// Reduce implements Reducer.
func (Loopback) Reduce(_ context.Context, local bignum.Value) (bignum.Value, error) {
	return local, nil
}

// Driver owns one run end to end: validation, working-precision setup,
// partitioning, local computation, cross-process reduction and
// finalization. Every process of a run constructs it from identical
// parameters, so a rank that fails validation knows its peers are failing
// the same way and can abort before the collective region without
// stranding anyone.
//
// A Driver is single-use: Run may be called once.
type Driver struct {
	Backend   bignum.Backend
	Variant   series.Variant
	Precision int
	Threads   int
	NumProcs  int
	Rank      int

	// Reducer combines partials across processes. Nil selects Loopback,
	// which is only valid for single-process runs.
	Reducer Reducer

	// Observers, when set, receives progress notifications for Slot.
	Observers *ProgressSubject
	Slot      int

	phase atomic.Int32
}

// Phase returns the driver's current lifecycle phase.
func (d *Driver) Phase() Phase {
	return Phase(d.phase.Load())
}

// IsCoordinator reports whether this process assembles and reports the
// global result.
func (d *Driver) IsCoordinator() bool {
	return d.Rank == 0
}

func (d *Driver) transition(from, to Phase) error {
	if !d.phase.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("cannot enter phase %s from %s", to, d.Phase())
	}
	return nil
}

// Validate checks the run parameters without side effects. It covers the
// abort conditions every rank can detect on its own: non-positive
// precision, a bad topology, and a partition too fine for the iteration
// count.
func (d *Driver) Validate() error {
	if d.Backend == nil || d.Variant.Series == nil {
		return apperrors.NewConfigError("driver needs a backend and a series")
	}
	if d.Precision <= 0 {
		return apperrors.NewInvalidPrecision(d.Precision)
	}
	if d.Threads < 1 {
		return apperrors.NewConfigError("thread count must be at least 1, got %d", d.Threads)
	}
	if d.NumProcs < 1 {
		return apperrors.NewConfigError("process count must be at least 1, got %d", d.NumProcs)
	}
	if d.Rank < 0 || d.Rank >= d.NumProcs {
		return apperrors.NewConfigError("rank %d is out of range for %d processes", d.Rank, d.NumProcs)
	}
	if d.NumProcs > 1 && d.Reducer == nil {
		return apperrors.NewConfigError("multi-process runs need a reducer")
	}
	iterations := d.Variant.Series.Iterations(d.Precision)
	if !partition.Feasible(iterations, d.NumProcs, d.Threads) {
		return apperrors.NewInfeasiblePartition(iterations, d.NumProcs, d.Threads)
	}
	return nil
}

// Run executes the full computation. On the coordinator it returns the
// assembled result; on every other rank it returns (nil, nil) once its
// partial sum has been folded into the coordinator's. The context bounds
// the whole run, including the wait for peers inside the reduction.
func (d *Driver) Run(ctx context.Context) (result *models.Result, err error) {
	tracer := otel.Tracer("picalc")
	ctx, span := tracer.Start(ctx, "Compute")
	defer span.End()

	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		status := "success"
		if err != nil {
			status = "error"
		}
		computationsTotal.WithLabelValues(d.Variant.Name, status).Inc()
		computationDuration.WithLabelValues(d.Variant.Name).Observe(duration)
		log.Debug().
			Str("algorithm", d.Variant.Name).
			Int("precision", d.Precision).
			Int("rank", d.Rank).
			Float64("duration_seconds", duration).
			Str("status", status).
			Msg("computation finished")
	}()

	if err = d.Validate(); err != nil {
		return nil, err
	}
	if err = d.transition(PhaseIdle, PhaseValidated); err != nil {
		return nil, err
	}

	d.Backend.SetWorkingPrecision(uint(d.Precision) * workingPrecisionFactor)
	iterations := d.Variant.Series.Iterations(d.Precision)
	block := partition.ProcessBlock(iterations, d.NumProcs, d.Rank)

	if err = d.transition(PhaseValidated, PhaseComputing); err != nil {
		return nil, err
	}

	eng := &Engine{
		Backend: d.Backend,
		Series:  d.Variant.Series,
		Dist:    d.Variant.Threads,
		Threads: d.Threads,
	}
	var reporter ProgressReporter
	if d.Observers != nil {
		reporter = d.Observers.AsProgressReporter(d.Slot)
	}
	local, err := eng.ComputeLocal(ctx, block, reporter)
	if err != nil {
		return nil, err
	}

	reducer := d.Reducer
	if reducer == nil {
		reducer = Loopback{}
	}
	global, err := reducer.Reduce(ctx, local)
	if err != nil {
		return nil, err
	}

	if !d.IsCoordinator() {
		if err = d.transition(PhaseComputing, PhaseDone); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err = d.transition(PhaseComputing, PhaseFinalized); err != nil {
		return nil, err
	}
	d.Variant.Series.Finalize(d.Backend, global)
	text := global.Text(d.Precision)

	res := &models.Result{
		Library:    d.Backend.Name(),
		Algorithm:  d.Variant.Name,
		Label:      d.Variant.Label,
		Precision:  d.Precision,
		Iterations: iterations,
		Procs:      d.NumProcs,
		Threads:    d.Threads,
		Decimals:   digits.CountMatching(text),
		Pi:         text,
	}
	res.SetDuration(time.Since(start))

	if err = d.transition(PhaseFinalized, PhaseDone); err != nil {
		return nil, err
	}
	return res, nil
}
