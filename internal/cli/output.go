// Package cli provides output utilities for rendering benchmark results.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hpcbench/picalc/pkg/models"
)

// OutputConfig holds configuration for result output.
type OutputConfig struct {
	// OutputFile is the path to save the result (empty for no file output).
	OutputFile string
	// CSV renders the result as the benchmark's CSV record.
	CSV bool
	// JSON renders the result as an indented JSON document.
	JSON bool
	// Quiet mode prints only the computed digits.
	Quiet bool
	// Verbose shows the full digit string in the standard display.
	Verbose bool
}

// DisplayResult formats and prints the final benchmark result. It shows
// the run parameters, the verified decimal count and the throughput, then
// the digit string. For large precisions the digits are truncated unless
// verbose is set.
//
// Parameters:
//   - res: The benchmark result.
//   - verbose: If true, prints the full digit string regardless of size.
//   - out: The io.Writer for the output.
func DisplayResult(res *models.Result, verbose bool, out io.Writer) {
	label := res.Label
	if label == "" {
		label = res.Algorithm
	}
	fmt.Fprintf(out, "\n%s--- Benchmark Result ---%s\n", ColorBold(), ColorReset())
	fmt.Fprintf(out, "Library             : %s%s%s\n", ColorCyan(), res.Library, ColorReset())
	fmt.Fprintf(out, "Algorithm           : %s%s%s\n", ColorCyan(), label, ColorReset())
	fmt.Fprintf(out, "Precision requested : %s%s%s decimals in %s%s%s iterations\n",
		ColorCyan(), formatNumberString(fmt.Sprintf("%d", res.Precision)), ColorReset(),
		ColorCyan(), formatNumberString(fmt.Sprintf("%d", res.Iterations)), ColorReset())
	fmt.Fprintf(out, "Topology            : %s%d%s process(es) of %s%d%s thread(s)\n",
		ColorCyan(), res.Procs, ColorReset(), ColorCyan(), res.Threads, ColorReset())
	fmt.Fprintf(out, "Verified decimals   : %s%s%s\n",
		ColorGreen(), formatNumberString(fmt.Sprintf("%d", res.Decimals)), ColorReset())

	durationStr := FormatExecutionDuration(res.Duration)
	if res.Duration == 0 {
		durationStr = "< 1µs"
	}
	fmt.Fprintf(out, "Computation time    : %s%s%s\n", ColorGreen(), durationStr, ColorReset())
	if rate := res.DigitsPerSecond(); rate > 0 {
		fmt.Fprintf(out, "Throughput          : %s%s%s digits/s\n",
			ColorCyan(), formatNumberString(fmt.Sprintf("%.0f", rate)), ColorReset())
	}

	digits := res.Pi
	if len(digits) == 0 {
		return
	}
	if verbose || len(digits) <= TruncationLimit {
		fmt.Fprintf(out, "Pi = %s%s%s\n", ColorGreen(), digits, ColorReset())
		return
	}
	fmt.Fprintf(out, "Pi (truncated) = %s%s...%s%s\n",
		ColorGreen(), digits[:DisplayEdges], digits[len(digits)-DisplayEdges:], ColorReset())
	fmt.Fprintf(out, "(Tip: use the %s-v%s option to display all computed digits)\n",
		ColorYellow(), ColorReset())
}

// DisplayCSV renders the result as a CSV record, optionally preceded by
// the column header.
//
// Parameters:
//   - out: The output writer.
//   - res: The benchmark result.
//   - withHeader: If true, the header row precedes the record.
func DisplayCSV(out io.Writer, res *models.Result, withHeader bool) {
	if withHeader {
		fmt.Fprintln(out, models.CSVHeader)
	}
	fmt.Fprintln(out, res.CSVRow())
}

// DisplayJSON renders the result as an indented JSON document.
//
// Parameters:
//   - out: The output writer.
//   - res: The benchmark result.
//
// Returns:
//   - error: An error if encoding fails.
func DisplayJSON(out io.Writer, res *models.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// FormatQuietResult formats a result for quiet mode output: the digit
// string alone, suitable for scripting.
//
// Parameters:
//   - res: The benchmark result.
//
// Returns:
//   - string: The formatted result string.
func FormatQuietResult(res *models.Result) string {
	return res.Pi
}

// DisplayQuietResult outputs a result in quiet mode (minimal output).
//
// Parameters:
//   - out: The output writer.
//   - res: The benchmark result.
func DisplayQuietResult(out io.Writer, res *models.Result) {
	fmt.Fprintln(out, FormatQuietResult(res))
}

// WriteResultToFile writes a benchmark result to a file: a commented
// header with the run parameters, then the full digit string.
//
// Parameters:
//   - res: The benchmark result.
//   - config: Output configuration naming the file.
//
// Returns:
//   - error: An error if the file cannot be written.
func WriteResultToFile(res *models.Result, config OutputConfig) error {
	if config.OutputFile == "" {
		return nil
	}

	dir := filepath.Dir(config.OutputFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(config.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "# Pi Benchmark Result\n")
	fmt.Fprintf(file, "# Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(file, "# Library: %s\n", res.Library)
	fmt.Fprintf(file, "# Algorithm: %s\n", res.Algorithm)
	fmt.Fprintf(file, "# Precision: %d\n", res.Precision)
	fmt.Fprintf(file, "# Iterations: %d\n", res.Iterations)
	fmt.Fprintf(file, "# Topology: %d processes, %d threads\n", res.Procs, res.Threads)
	fmt.Fprintf(file, "# Verified decimals: %d\n", res.Decimals)
	fmt.Fprintf(file, "# Duration: %s\n", res.Duration)
	fmt.Fprintf(file, "\n")
	fmt.Fprintf(file, "%s\n", res.Pi)

	return nil
}

// DisplayResultWithConfig displays a result with the given output
// configuration. This is the unified dispatcher over the quiet, CSV, JSON
// and standard modes, with optional file export.
//
// Parameters:
//   - out: The output writer.
//   - res: The benchmark result.
//   - config: Output configuration.
//
// Returns:
//   - error: An error if rendering or file output fails.
func DisplayResultWithConfig(out io.Writer, res *models.Result, config OutputConfig) error {
	switch {
	case config.Quiet:
		DisplayQuietResult(out, res)
	case config.JSON:
		if err := DisplayJSON(out, res); err != nil {
			return err
		}
	case config.CSV:
		DisplayCSV(out, res, true)
	default:
		DisplayResult(res, config.Verbose, out)
	}

	if config.OutputFile != "" {
		if err := WriteResultToFile(res, config); err != nil {
			return err
		}
		if !config.Quiet && !config.JSON && !config.CSV {
			fmt.Fprintf(out, "\n%s✓ Result saved to: %s%s%s\n",
				ColorGreen(), ColorCyan(), config.OutputFile, ColorReset())
		}
	}

	return nil
}
