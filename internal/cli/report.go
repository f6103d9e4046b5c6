package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/hpcbench/picalc/internal/config"
	"github.com/hpcbench/picalc/internal/series"
)

// VariantsToRun resolves the series variants the run executes: every
// registered variant in comparison mode, otherwise the configured one.
//
// Parameters:
//   - cfg: The application configuration containing the algorithm selection.
//
// Returns:
//   - []series.Variant: The variants to execute, in registry order.
//   - error: A configuration error if the selector is unknown.
func VariantsToRun(cfg config.AppConfig) ([]series.Variant, error) {
	if cfg.CompareMode() {
		return series.Variants(), nil
	}
	v, err := cfg.Variant()
	if err != nil {
		return nil, err
	}
	return []series.Variant{v}, nil
}

// PrintExecutionConfig displays the current execution configuration to the
// user: target precision, timeout, arithmetic library, topology, and the
// host environment.
//
// Parameters:
//   - cfg: The application configuration.
//   - out: The writer for standard output.
func PrintExecutionConfig(cfg config.AppConfig, out io.Writer) {
	writeOut(out, "--- Execution Configuration ---\n")
	writeOut(out, "Computing %sPi%s to %s%s%s decimals with a timeout of %s%s%s.\n",
		ColorMagenta(), ColorReset(),
		ColorCyan(), formatNumberString(fmt.Sprintf("%d", cfg.Precision)), ColorReset(),
		ColorYellow(), cfg.Timeout, ColorReset())
	writeOut(out, "Arithmetic library: %s%s%s.\n", ColorGreen(), cfg.Library, ColorReset())
	writeOut(out, "Topology: %s%d%s process(es) of %s%d%s worker thread(s), this process is rank %s%d%s.\n",
		ColorCyan(), cfg.Procs, ColorReset(),
		ColorCyan(), cfg.Threads, ColorReset(),
		ColorCyan(), cfg.Rank, ColorReset())

	env := fmt.Sprintf("Environment: %s%d%s logical processors, Go %s%s%s",
		ColorCyan(), runtime.NumCPU(), ColorReset(),
		ColorCyan(), runtime.Version(), ColorReset())
	if features := CPUFeatures(); features != "" {
		env += fmt.Sprintf(", CPU features: %s%s%s", ColorCyan(), features, ColorReset())
	}
	writeOut(out, "%s.\n", env)
}

// PrintExecutionMode displays the execution mode (single series vs
// comparison).
//
// Parameters:
//   - variants: The series variants that will be executed.
//   - out: The writer for standard output.
func PrintExecutionMode(variants []series.Variant, out io.Writer) {
	var modeDesc string
	if len(variants) > 1 {
		modeDesc = "Comparison of all series"
	} else {
		modeDesc = fmt.Sprintf("Single run with the %s%s%s series",
			ColorGreen(), variants[0].Name, ColorReset())
	}
	writeOut(out, "Execution mode: %s.\n", modeDesc)
	writeOut(out, "\n--- Starting Execution ---\n")
}

// writeOut writes a formatted string to the output writer.
//
// Parameters:
//   - out: The destination writer.
//   - format: The format string (see fmt.Printf).
//   - a: Arguments for the format string.
func writeOut(out io.Writer, format string, a ...any) {
	fmt.Fprintf(out, format, a...)
}
