// Package config provides the configuration management for the picalc application.
// It defines the data structure for the configuration, handles the parsing of
// command-line arguments, and performs validation on the configuration values.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	apperrors "github.com/hpcbench/picalc/internal/errors"
	"github.com/hpcbench/picalc/internal/series"
)

const (
	// EnvPrefix is the prefix for all environment variables used by picalc.
	// Environment variables provide an alternative to CLI flags for configuration,
	// following the 12-Factor App methodology. Process launchers use them to
	// inject per-rank topology without rewriting argv.
	EnvPrefix = "PICALC_"
)

// Default configuration values.
// These can be overridden via command-line flags or environment variables.
const (
	// DefaultPrecision is the default number of decimal digits of Pi to target.
	DefaultPrecision = 1000
	// DefaultTimeout is the default computation timeout.
	DefaultTimeout = 5 * time.Minute
	// DefaultLibrary is the default arbitrary-precision backend.
	DefaultLibrary = "big"
	// DefaultAlgo is the default algorithm selection.
	DefaultAlgo = "all"
	// DefaultProcs is the default number of cooperating processes.
	DefaultProcs = 1
	// DefaultNATSURL is the default broker URL for multi-process runs.
	DefaultNATSURL = "nats://127.0.0.1:4222"
)

// AppConfig aggregates the application's configuration parameters, parsed from
// command-line flags. It encapsulates all settings that control the execution,
// from the target precision and algorithm variant, to the process topology of
// a distributed run.
type AppConfig struct {
	// Library selects the arbitrary-precision backend ("big", "apd", and
	// "gmp" when compiled in).
	Library string
	// Algo specifies the algorithm variant: a numeric selector, a variant
	// name, or "all" to compare every variant in a single process.
	Algo string
	// Precision is the number of decimal digits of Pi to target.
	Precision int
	// Threads is the number of worker goroutines per process.
	// Zero resolves to the number of CPUs at parse time.
	Threads int
	// Procs is the number of cooperating processes in the run.
	Procs int
	// Rank identifies this process within the run, in [0, Procs).
	Rank int
	// NATSURL is the broker URL used for cross-process reduction.
	NATSURL string
	// EmbedNATS, if true, starts an in-process broker before connecting.
	// Only the coordinator (rank 0) may host it.
	EmbedNATS bool
	// RunID is the identifier shared by all processes of one run. When
	// empty it is derived from the run parameters, so identically invoked
	// processes agree on it without coordination.
	RunID string
	// Timeout sets the maximum duration for the computation.
	Timeout time.Duration
	// MetricsAddr is the listen address for the HTTP observability server.
	// Empty disables the server.
	MetricsAddr string
	// CSVOutput, if true, prints the result as a CSV row.
	CSVOutput bool
	// JSONOutput, if true, outputs the result in JSON format.
	JSONOutput bool
	// Verbose, if true, instructs the application to display the full digit string.
	Verbose bool
	// Quiet mode - minimal output for scripting purposes.
	// Suppresses progress bars, banners, and informational messages.
	Quiet bool
	// NoColor, if true, disables all color output in the CLI.
	// Also respects the NO_COLOR environment variable.
	NoColor bool
	// OutputFile, if specified, saves the result to this file path.
	OutputFile string
	// Completion, if set, generates shell completion script for the specified shell.
	// Valid values are: "bash", "zsh", "fish", "powershell".
	Completion string
	// ShowVersion, if true, prints version information and exits.
	ShowVersion bool
}

// CompareMode reports whether the configuration asks for the single-process
// comparison of all algorithm variants.
func (c AppConfig) CompareMode() bool { return c.Algo == "all" }

// Variant resolves the configured algorithm selector into its series variant.
// It is not meaningful in comparison mode.
func (c AppConfig) Variant() (series.Variant, error) {
	v, err := series.Lookup(c.Algo)
	if err != nil {
		return series.Variant{}, apperrors.NewInvalidAlgorithm(err)
	}
	return v, nil
}

// Validate checks the semantic consistency of the configuration parameters.
// It ensures that numerical values are within valid ranges, that the chosen
// algorithm and backend are supported, and that the process topology is
// coherent. Every process of a run validates the same inputs, so a failure
// here is guaranteed to occur identically on all ranks.
//
// Parameters:
//   - availableLibs: A slice of strings listing the registered backend names
//     (e.g., ["apd", "big"]). The set varies with build tags.
//
// Returns:
//   - error: An error of type ConfigError if the configuration is invalid,
//     nil otherwise.
func (c AppConfig) Validate(availableLibs []string) error {
	if c.Timeout <= 0 {
		return apperrors.NewConfigError("timeout value must be strictly positive")
	}
	if c.Precision <= 0 {
		return apperrors.NewInvalidPrecision(c.Precision)
	}
	if c.Threads < 1 {
		return apperrors.NewConfigError("thread count must be at least 1, got %d", c.Threads)
	}
	if c.Procs < 1 {
		return apperrors.NewConfigError("process count must be at least 1, got %d", c.Procs)
	}
	if c.Rank < 0 || c.Rank >= c.Procs {
		return apperrors.NewConfigError("rank %d is outside [0, %d)", c.Rank, c.Procs)
	}
	if c.EmbedNATS && c.Rank != 0 {
		return apperrors.NewConfigError("the embedded broker runs on rank 0, not rank %d", c.Rank)
	}
	isLibAvailable := false
	for _, l := range availableLibs {
		if l == c.Library {
			isLibAvailable = true
			break
		}
	}
	if !isLibAvailable {
		return apperrors.NewConfigError("unrecognized library: '%s'. Valid libraries are: [%s]", c.Library, strings.Join(availableLibs, ", "))
	}
	if c.CompareMode() {
		if c.Procs > 1 {
			return apperrors.NewConfigError("algorithm 'all' compares variants within a single process and cannot run with %d processes", c.Procs)
		}
		return nil
	}
	if _, err := c.Variant(); err != nil {
		return err
	}
	return nil
}

// ParseConfig parses the command-line arguments and populates an AppConfig
// struct. It defines all the command-line flags, sets their default values, and
// handles the parsing process. After parsing, it performs validation on the
// resulting configuration.
//
// The function is designed to be testable by allowing the input arguments and
// output writer to be specified.
//
// Parameters:
//   - programName: The name of the program, used in the usage message.
//   - args: A slice of strings representing the command-line arguments
//     (typically os.Args[1:]).
//   - errorWriter: An io.Writer where parsing errors and usage information
//     will be printed.
//   - availableLibs: A slice of registered backend names for validation.
//
// Returns:
//   - AppConfig: The populated configuration struct.
//   - error: An error if flag parsing fails or validation fails.
func ParseConfig(programName string, args []string, errorWriter io.Writer, availableLibs []string) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)
	algoHelp := fmt.Sprintf("Algorithm variant: 'all' (default), a selector 0-%d, or one of [%s].",
		len(series.Variants())-1, strings.Join(series.Names(), ", "))
	libHelp := fmt.Sprintf("Arbitrary-precision backend: one of [%s].", strings.Join(availableLibs, ", "))

	config := AppConfig{}
	fs.StringVar(&config.Library, "lib", DefaultLibrary, libHelp)
	fs.StringVar(&config.Algo, "algorithm", DefaultAlgo, algoHelp)
	fs.StringVar(&config.Algo, "algo", DefaultAlgo, "Alias for -algorithm.")
	fs.IntVar(&config.Precision, "precision", DefaultPrecision, "Number of decimal digits of Pi to target.")
	fs.IntVar(&config.Threads, "threads", 0, "Worker goroutines per process (0 = number of CPUs).")
	fs.IntVar(&config.Procs, "procs", DefaultProcs, "Number of cooperating processes in the run.")
	fs.IntVar(&config.Rank, "rank", 0, "Rank of this process within the run, in [0, procs).")
	fs.StringVar(&config.NATSURL, "nats", DefaultNATSURL, "NATS broker URL for multi-process reduction.")
	fs.BoolVar(&config.EmbedNATS, "embed-nats", false, "Start an embedded NATS broker in this process (rank 0 only).")
	fs.StringVar(&config.RunID, "run", "", "Run identifier shared by all processes (derived from the parameters when empty).")
	fs.DurationVar(&config.Timeout, "timeout", DefaultTimeout, "Maximum execution time for the computation.")
	fs.StringVar(&config.MetricsAddr, "metrics-addr", "", "Listen address for the HTTP metrics endpoint (disabled when empty).")
	fs.BoolVar(&config.CSVOutput, "csv", false, "Output the result as a CSV row.")
	fs.BoolVar(&config.JSONOutput, "json", false, "Output results in JSON format.")
	fs.BoolVar(&config.Verbose, "v", false, "Display the full digit string of the result (can be very long).")
	fs.BoolVar(&config.Quiet, "quiet", false, "Quiet mode - minimal output for scripts.")
	fs.BoolVar(&config.Quiet, "q", false, "Quiet mode (shorthand).")
	fs.BoolVar(&config.NoColor, "no-color", false, "Disable colored output (also respects NO_COLOR env var).")
	fs.StringVar(&config.OutputFile, "output", "", "Output file path for the result.")
	fs.StringVar(&config.OutputFile, "o", "", "Output file path (shorthand).")
	fs.StringVar(&config.Completion, "completion", "", "Generate shell completion script (bash, zsh, fish, powershell).")
	fs.BoolVar(&config.ShowVersion, "version", false, "Print version information and exit.")

	setCustomUsage(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return AppConfig{}, err
		}
		return AppConfig{}, apperrors.ConfigError{Message: err.Error()}
	}

	// Apply environment variable overrides for flags not explicitly set
	applyEnvOverrides(&config, fs)

	config.Algo = strings.ToLower(config.Algo)
	config.Library = strings.ToLower(config.Library)
	if config.Threads == 0 {
		config.Threads = runtime.NumCPU()
	}
	if err := config.Validate(availableLibs); err != nil {
		fmt.Fprintln(errorWriter, "Configuration error:", err)
		fs.Usage()
		return AppConfig{}, err
	}
	return config, nil
}
