// Package config provides the configuration management for the picalc application.
// This file contains environment variable utilities for configuration override.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Environment Variable Utilities
// ─────────────────────────────────────────────────────────────────────────────

// getEnvString returns the value of the environment variable with the given key
// (prefixed with EnvPrefix), or the default value if not set.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as int, or the default value if not set
// or invalid.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvBool returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as bool, or the default value if not set.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}

// getEnvDuration returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as time.Duration, or the default value if not
// set or invalid. Accepts formats like "5m", "30s", "1h30m".
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// isFlagSet checks if a flag was explicitly set on the command line.
// This is used to determine whether to apply environment variable overrides.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > Defaults.
//
// Supported environment variables:
//   - PICALC_LIB: Arbitrary-precision backend (string: big, apd, gmp)
//   - PICALC_ALGORITHM: Algorithm variant (string or numeric selector)
//   - PICALC_PRECISION: Decimal digits of Pi to target (int)
//   - PICALC_THREADS: Worker goroutines per process (int, 0 = CPUs)
//   - PICALC_PROCS: Number of cooperating processes (int)
//   - PICALC_RANK: Rank of this process (int) - launchers inject this per process
//   - PICALC_NATS_URL: Broker URL for multi-process reduction (string)
//   - PICALC_EMBED_NATS: Start an embedded broker on rank 0 (bool)
//   - PICALC_RUN_ID: Shared run identifier (string)
//   - PICALC_TIMEOUT: Computation timeout (duration: "5m", "30s")
//   - PICALC_METRICS_ADDR: Listen address for the metrics endpoint (string)
//   - PICALC_CSV: Enable CSV output (bool)
//   - PICALC_JSON: Enable JSON output (bool)
//   - PICALC_VERBOSE: Display the full digit string (bool)
//   - PICALC_QUIET: Enable quiet mode (bool)
//   - PICALC_NO_COLOR: Disable colored output (bool)
//   - PICALC_OUTPUT: Output file path (string)
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) {
	applyNumericOverrides(config, fs)
	applyDurationOverrides(config, fs)
	applyStringOverrides(config, fs)
	applyBooleanOverrides(config, fs)
}

func applyNumericOverrides(config *AppConfig, fs *flag.FlagSet) {
	if !isFlagSet(fs, "precision") {
		config.Precision = getEnvInt("PRECISION", config.Precision)
	}
	if !isFlagSet(fs, "threads") {
		config.Threads = getEnvInt("THREADS", config.Threads)
	}
	if !isFlagSet(fs, "procs") {
		config.Procs = getEnvInt("PROCS", config.Procs)
	}
	if !isFlagSet(fs, "rank") {
		config.Rank = getEnvInt("RANK", config.Rank)
	}
}

func applyDurationOverrides(config *AppConfig, fs *flag.FlagSet) {
	if !isFlagSet(fs, "timeout") {
		config.Timeout = getEnvDuration("TIMEOUT", config.Timeout)
	}
}

func applyStringOverrides(config *AppConfig, fs *flag.FlagSet) {
	if !isFlagSet(fs, "lib") {
		config.Library = getEnvString("LIB", config.Library)
	}
	if !isFlagSet(fs, "algorithm") && !isFlagSet(fs, "algo") {
		config.Algo = getEnvString("ALGORITHM", config.Algo)
	}
	if !isFlagSet(fs, "nats") {
		config.NATSURL = getEnvString("NATS_URL", config.NATSURL)
	}
	if !isFlagSet(fs, "run") {
		config.RunID = getEnvString("RUN_ID", config.RunID)
	}
	if !isFlagSet(fs, "metrics-addr") {
		config.MetricsAddr = getEnvString("METRICS_ADDR", config.MetricsAddr)
	}
	if !isFlagSet(fs, "output") && !isFlagSet(fs, "o") {
		config.OutputFile = getEnvString("OUTPUT", config.OutputFile)
	}
}

func applyBooleanOverrides(config *AppConfig, fs *flag.FlagSet) {
	if !isFlagSet(fs, "embed-nats") {
		config.EmbedNATS = getEnvBool("EMBED_NATS", config.EmbedNATS)
	}
	if !isFlagSet(fs, "csv") {
		config.CSVOutput = getEnvBool("CSV", config.CSVOutput)
	}
	if !isFlagSet(fs, "json") {
		config.JSONOutput = getEnvBool("JSON", config.JSONOutput)
	}
	if !isFlagSet(fs, "v") {
		config.Verbose = getEnvBool("VERBOSE", config.Verbose)
	}
	if !isFlagSet(fs, "quiet") && !isFlagSet(fs, "q") {
		config.Quiet = getEnvBool("QUIET", config.Quiet)
	}
	if !isFlagSet(fs, "no-color") {
		config.NoColor = getEnvBool("NO_COLOR", config.NoColor)
	}
}
