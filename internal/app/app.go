package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hpcbench/picalc/internal/bignum"
	"github.com/hpcbench/picalc/internal/cli"
	"github.com/hpcbench/picalc/internal/cluster"
	"github.com/hpcbench/picalc/internal/config"
	apperrors "github.com/hpcbench/picalc/internal/errors"
	"github.com/hpcbench/picalc/internal/logging"
	"github.com/hpcbench/picalc/internal/orchestration"
	"github.com/hpcbench/picalc/internal/series"
	"github.com/hpcbench/picalc/internal/server"
	"github.com/hpcbench/picalc/internal/ui"
)

// Application represents one picalc process instance. It encapsulates the
// parsed configuration and runs the benchmark in the configured mode:
// a local run, a single-process comparison across every series, or one
// rank of a distributed run.
type Application struct {
	// Config holds the parsed application configuration.
	Config config.AppConfig
	// Factory provides access to the arithmetic backend implementations.
	// Uses the interface type for better testability and dependency injection.
	Factory bignum.Factory
	// ErrWriter is the writer for error output (typically os.Stderr).
	ErrWriter io.Writer
}

// New creates a new Application instance by parsing command-line arguments.
// It validates the configuration and returns an error if parsing or validation fails.
//
// Parameters:
//   - args: The command-line arguments (typically os.Args).
//   - errWriter: The writer for error output.
//
// Returns:
//   - *Application: A new application instance.
//   - error: An error if configuration parsing or validation fails.
func New(args []string, errWriter io.Writer) (*Application, error) {
	factory := bignum.GlobalFactory()
	availableLibs := factory.List()

	// args[0] is program name, args[1:] are the actual arguments
	programName := "picalc"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter, availableLibs)
	if err != nil {
		return nil, err
	}

	return &Application{
		Config:    cfg,
		Factory:   factory,
		ErrWriter: errWriter,
	}, nil
}

// Run executes the application based on the configured mode.
// It dispatches to the appropriate handler (completion, version, benchmark).
//
// Parameters:
//   - ctx: The context for managing cancellation and timeouts.
//   - out: The writer for standard output.
//
// Returns:
//   - int: An exit code (0 for success, non-zero for errors).
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	// Handle completion script generation
	if a.Config.Completion != "" {
		return a.runCompletion(out)
	}

	if a.Config.ShowVersion {
		PrintVersion(out)
		return apperrors.ExitSuccess
	}

	// Initialize CLI theme (respects -no-color flag and NO_COLOR env var)
	ui.InitTheme(a.Config.NoColor)

	return a.runBenchmark(ctx, out)
}

// runCompletion generates shell completion scripts.
func (a *Application) runCompletion(out io.Writer) int {
	if err := cli.GenerateCompletion(out, a.Config.Completion, series.Names(), a.Factory.List()); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error generating completion: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	return apperrors.ExitSuccess
}

// runBenchmark orchestrates the execution of the configured computation,
// locally or as one rank of a distributed run.
func (a *Application) runBenchmark(ctx context.Context, out io.Writer) int {
	// Setup lifecycle (timeout + signals)
	ctx, cancels := SetupLifecycle(ctx, a.Config.Timeout)
	defer cancels.Cleanup()

	variants, err := cli.VariantsToRun(a.Config)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitCodeFor(err)
	}

	// Result output belongs to the coordinator. Every other rank of a
	// distributed run keeps stdout silent and reports through its exit
	// code alone.
	if a.Config.Rank != 0 {
		out = io.Discard
	}

	machineMode := a.Config.Quiet || a.Config.CSVOutput || a.Config.JSONOutput
	if !machineMode {
		cli.PrintExecutionConfig(a.Config, out)
		cli.PrintExecutionMode(variants, out)
	}

	// The observability server is a sidecar: it lives for the duration of
	// the run and a failure to serve never aborts the computation.
	var srv *server.Server
	if a.Config.MetricsAddr != "" {
		srv = server.NewServer(a.Config)
		go func() {
			if err := srv.Run(ctx); err != nil {
				fmt.Fprintf(a.ErrWriter, "Warning: %v\n", err)
			}
		}()
	}

	// In quiet mode, use a discard writer for progress display
	progressOut := out
	if a.Config.Quiet {
		progressOut = io.Discard
	}

	var runs []orchestration.VariantRun
	if a.Config.Procs > 1 {
		run, err := a.runDistributed(ctx, variants[0], progressOut)
		if err != nil {
			fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
			return apperrors.ExitCodeFor(err)
		}
		runs = []orchestration.VariantRun{run}
	} else {
		runs = orchestration.ExecuteVariants(ctx, variants, a.Config, nil, progressOut)
	}

	if srv != nil {
		for _, run := range runs {
			srv.Record(run.Result)
		}
	}

	if a.Config.CompareMode() {
		return orchestration.AnalyzeComparisonResults(runs, a.Config, out)
	}
	return a.reportSingleRun(runs[0], out)
}

// runDistributed executes one rank of a multi-process run: it connects to
// the broker (starting the embedded one first when requested), binds a
// reducer to a fresh backend and hands both to the engine. The returned
// error covers setup failures only; computation failures travel inside the
// VariantRun.
func (a *Application) runDistributed(ctx context.Context, variant series.Variant, progressOut io.Writer) (orchestration.VariantRun, error) {
	logger := logging.NewRankLogger(os.Stderr, a.Config.Rank)

	if a.Config.EmbedNATS {
		ns, err := cluster.StartEmbedded(a.Config.NATSURL, cluster.DefaultReadyTimeout)
		if err != nil {
			return orchestration.VariantRun{}, err
		}
		// Shutdown runs after the result is rendered; the completion
		// broadcast was flushed to the broker well before that.
		defer ns.Shutdown()
	}

	nc, err := cluster.Connect(a.Config.NATSURL, fmt.Sprintf("picalc-rank-%d", a.Config.Rank))
	if err != nil {
		return orchestration.VariantRun{}, err
	}
	defer nc.Close()

	backend, err := a.Factory.Create(a.Config.Library)
	if err != nil {
		return orchestration.VariantRun{}, err
	}

	runID := a.Config.RunID
	if runID == "" {
		runID = cluster.DeriveRunID(a.Config.Library, variant.Name, a.Config.Precision, a.Config.Procs, a.Config.Threads)
	}
	topo := cluster.Topology{NumProcs: a.Config.Procs, Rank: a.Config.Rank}
	reducer := cluster.NewNATSReducer(nc, backend, topo, runID, logger)

	logger.Info("joining run",
		logging.String("run_id", runID),
		logging.String("algorithm", variant.Name),
		logging.Int("procs", a.Config.Procs))

	return orchestration.ExecuteDistributed(ctx, variant, a.Config, backend, reducer, progressOut), nil
}

// reportSingleRun renders the outcome of a single-variant run and maps it
// to the process exit code.
func (a *Application) reportSingleRun(run orchestration.VariantRun, out io.Writer) int {
	if run.Err != nil {
		return apperrors.HandleComputationError(run.Err, run.Duration, out, cli.CLIColorProvider{})
	}
	if run.Result == nil {
		// A non-coordinator rank: its partial is folded into the
		// coordinator's sum and there is nothing left to report here.
		return apperrors.ExitSuccess
	}

	outputCfg := cli.OutputConfig{
		OutputFile: a.Config.OutputFile,
		CSV:        a.Config.CSVOutput,
		JSON:       a.Config.JSONOutput,
		Quiet:      a.Config.Quiet,
		Verbose:    a.Config.Verbose,
	}
	if err := cli.DisplayResultWithConfig(out, run.Result, outputCfg); err != nil {
		fmt.Fprintf(a.ErrWriter, "Error writing result: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	return apperrors.ExitSuccess
}

// IsHelpError checks if the error is a help flag error (--help was used).
// This is useful for determining if the application should exit with success
// after displaying help text.
//
// Parameters:
//   - err: The error to check.
//
// Returns:
//   - bool: True if the error indicates help was requested.
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
