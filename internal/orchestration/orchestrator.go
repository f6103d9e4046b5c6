package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hpcbench/picalc/internal/bignum"
	"github.com/hpcbench/picalc/internal/cli"
	"github.com/hpcbench/picalc/internal/config"
	"github.com/hpcbench/picalc/internal/engine"
	apperrors "github.com/hpcbench/picalc/internal/errors"
	"github.com/hpcbench/picalc/internal/series"
	"github.com/hpcbench/picalc/internal/ui"
	"github.com/hpcbench/picalc/pkg/models"
)

// VariantRun encapsulates the outcome of a single series variant execution.
// It serves as a standardized container for results from different variants,
// facilitating comparison and reporting.
type VariantRun struct {
	// Name is the registry name of the variant (e.g., "chudnovsky").
	Name string
	// Label is the human-readable variant description.
	Label string
	// Result is the completed benchmark record. It is nil if an error
	// occurred, and nil on non-coordinator ranks of a distributed run.
	Result *models.Result
	// Duration is the time taken to complete the run.
	Duration time.Duration
	// Err contains any error that occurred during the run.
	Err error
}

// ProgressBufferMultiplier defines the buffer size multiplier for the progress
// channel. A larger buffer reduces the likelihood of blocking computation
// goroutines when the UI is slow to consume updates.
const ProgressBufferMultiplier = 5

// ExecuteVariants orchestrates the concurrent execution of one or more
// series variants within this process.
//
// It manages the lifecycle of the computation goroutines, collects their
// results, and coordinates the display of progress updates. Each variant
// gets a fresh backend instance so concurrent summations never share
// mutable state.
//
// Parameters:
//   - ctx: The context for managing cancellation and deadlines.
//   - variants: The series variants to execute, one slot each.
//   - cfg: The application configuration (precision, topology, library).
//   - reducer: The cross-process reducer for distributed runs. May be nil
//     for purely local runs; comparison mode always runs locally.
//   - out: The io.Writer for displaying progress updates.
//
// Returns:
//   - []VariantRun: A slice containing the outcome of each variant.
func ExecuteVariants(ctx context.Context, variants []series.Variant, cfg config.AppConfig, reducer engine.Reducer, out io.Writer) []VariantRun {
	g, ctx := errgroup.WithContext(ctx)
	runs := make([]VariantRun, len(variants))
	progressChan := make(chan engine.ProgressUpdate, len(variants)*ProgressBufferMultiplier)

	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go cli.DisplayProgress(&displayWg, progressChan, len(variants), out)

	observers := engine.NewProgressSubject()
	observers.Register(engine.NewChannelObserver(progressChan))
	observers.Register(engine.NewMetricsObserver())

	for i, v := range variants {
		idx, variant := i, v
		g.Go(func() error {
			runs[idx] = VariantRun{Name: variant.Name, Label: variant.Label}

			backend, err := bignum.GlobalFactory().Create(cfg.Library)
			if err != nil {
				runs[idx].Err = err
				return nil
			}

			driver := &engine.Driver{
				Backend:   backend,
				Variant:   variant,
				Precision: cfg.Precision,
				Threads:   cfg.Threads,
				NumProcs:  cfg.Procs,
				Rank:      cfg.Rank,
				Reducer:   reducer,
				Observers: observers,
				Slot:      idx,
			}

			startTime := time.Now()
			res, err := driver.Run(ctx)
			runs[idx].Result = res
			runs[idx].Duration = time.Since(startTime)
			runs[idx].Err = err
			return nil
		})
	}

	g.Wait()
	close(progressChan)
	displayWg.Wait()

	return runs
}

// ExecuteDistributed runs a single variant as one process of a
// multi-process run.
//
// Unlike ExecuteVariants it takes the backend from the caller instead of
// creating one: the partial sums crossing the broker must be marshaled by
// the backend that computed them, so the reducer and the driver have to
// share the instance.
//
// Parameters:
//   - ctx: The context for managing cancellation and deadlines.
//   - variant: The series variant to execute.
//   - cfg: The application configuration (precision, topology, library).
//   - backend: The arithmetic backend, shared with the reducer.
//   - reducer: The cross-process reducer bound to the same backend.
//   - out: The io.Writer for displaying progress updates.
//
// Returns:
//   - VariantRun: The outcome of this rank's share of the run. On
//     non-coordinator ranks the Result field is nil.
func ExecuteDistributed(ctx context.Context, variant series.Variant, cfg config.AppConfig, backend bignum.Backend, reducer engine.Reducer, out io.Writer) VariantRun {
	progressChan := make(chan engine.ProgressUpdate, ProgressBufferMultiplier)

	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go cli.DisplayProgress(&displayWg, progressChan, 1, out)

	observers := engine.NewProgressSubject()
	observers.Register(engine.NewChannelObserver(progressChan))
	observers.Register(engine.NewMetricsObserver())

	driver := &engine.Driver{
		Backend:   backend,
		Variant:   variant,
		Precision: cfg.Precision,
		Threads:   cfg.Threads,
		NumProcs:  cfg.Procs,
		Rank:      cfg.Rank,
		Reducer:   reducer,
		Observers: observers,
	}

	run := VariantRun{Name: variant.Name, Label: variant.Label}
	startTime := time.Now()
	res, err := driver.Run(ctx)
	run.Result = res
	run.Duration = time.Since(startTime)
	run.Err = err

	close(progressChan)
	displayWg.Wait()

	return run
}

// AnalyzeComparisonResults processes the outcomes from multiple variants and
// generates a summary report.
//
// It sorts the runs by execution time, validates digit consistency across
// successful runs, and displays a comparative table. It handles the logic
// for determining global success or failure based on the individual
// outcomes. In CSV, JSON or quiet mode the table is replaced by the
// corresponding machine-readable rendering.
//
// Parameters:
//   - runs: The slice of variant outcomes to analyze.
//   - cfg: The application configuration.
//   - out: The io.Writer for the summary report.
//
// Returns:
//   - int: An exit code indicating success (0) or the type of failure.
func AnalyzeComparisonResults(runs []VariantRun, cfg config.AppConfig, out io.Writer) int {
	sort.Slice(runs, func(i, j int) bool {
		if (runs[i].Err == nil) != (runs[j].Err == nil) {
			return runs[i].Err == nil
		}
		return runs[i].Duration < runs[j].Duration
	})

	var reference *models.Result
	var firstError error
	successCount := 0

	machineMode := cfg.Quiet || cfg.CSVOutput || cfg.JSONOutput
	var tw *tabwriter.Writer
	if !machineMode {
		fmt.Fprintf(out, "\n--- Comparison Summary ---\n")
		tw = tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintf(tw, "%sSeries%s\t%sDuration%s\t%sDecimals%s\t%sStatus%s\n",
			ui.ColorUnderline(), ui.ColorReset(), ui.ColorUnderline(), ui.ColorReset(),
			ui.ColorUnderline(), ui.ColorReset(), ui.ColorUnderline(), ui.ColorReset())
	}

	for _, run := range runs {
		var status string
		decimals := "-"
		if run.Err != nil {
			status = fmt.Sprintf("%s❌ Failure (%v)%s", ui.ColorRed(), run.Err, ui.ColorReset())
			if firstError == nil {
				firstError = run.Err
			}
		} else {
			status = fmt.Sprintf("%s✅ Success%s", ui.ColorGreen(), ui.ColorReset())
			decimals = fmt.Sprintf("%d", run.Result.Decimals)
			successCount++
			if reference == nil {
				reference = run.Result
			}
		}
		if tw == nil {
			continue
		}
		duration := cli.FormatExecutionDuration(run.Duration)
		if run.Duration == 0 {
			duration = "< 1µs"
		}
		fmt.Fprintf(tw, "%s%s%s\t%s%s%s\t%s\t%s\n",
			ui.ColorBlue(), run.Name, ui.ColorReset(),
			ui.ColorYellow(), duration, ui.ColorReset(),
			decimals,
			status)
	}
	if tw != nil {
		if err := tw.Flush(); err != nil {
			fmt.Fprintf(out, "Warning: failed to flush tabwriter: %v\n", err)
		}
	}

	if successCount == 0 {
		if !machineMode {
			fmt.Fprintf(out, "\nGlobal Status: Failure. No series could complete the computation.\n")
		}
		return apperrors.HandleComputationError(firstError, 0, out, cli.CLIColorProvider{})
	}

	for _, run := range runs {
		if run.Err == nil && run.Result.Pi != reference.Pi {
			detail := fmt.Sprintf("%s and %s disagree on the computed digits (%d vs %d verified decimals)",
				reference.Algorithm, run.Name, reference.Decimals, run.Result.Decimals)
			fmt.Fprintf(out, "\nGlobal Status: CRITICAL ERROR! %s.\n", detail)
			return apperrors.ExitErrorMismatch
		}
	}

	switch {
	case cfg.Quiet:
		cli.DisplayQuietResult(out, reference)
	case cfg.CSVOutput:
		fmt.Fprintln(out, models.CSVHeader)
		for _, run := range runs {
			if run.Err == nil {
				fmt.Fprintln(out, run.Result.CSVRow())
			}
		}
	case cfg.JSONOutput:
		records := make([]*models.Result, 0, len(runs))
		for _, run := range runs {
			if run.Err == nil {
				records = append(records, run.Result)
			}
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			fmt.Fprintf(out, "Failed to encode results: %v\n", err)
			return apperrors.ExitErrorGeneric
		}
		fmt.Fprintln(out, string(data))
	default:
		fmt.Fprintf(out, "\nGlobal Status: Success. All series agree on the computed digits.\n")
		cli.DisplayResult(reference, cfg.Verbose, out)
	}
	return apperrors.ExitSuccess
}
