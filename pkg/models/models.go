// Package models defines the shared data structures of a benchmark run.
//
// These models are used for:
//   - **Result reporting**: one record per run, rendered as text, CSV or JSON.
//   - **HTTP serving**: the observability endpoint serves the latest records.
package models

import (
	"fmt"
	"time"
)

// Result captures what a completed run reports: the parameters it ran with
// and what came out of them. The coordinator process builds one per run; the
// CLI renderers, the comparison mode and the HTTP server all consume the
// same record.
type Result struct {
	// Library is the arbitrary-precision backend the run used.
	Library string `json:"library"`
	// Algorithm is the registry name of the series variant.
	Algorithm string `json:"algorithm"`
	// Label is the human-readable variant description.
	Label string `json:"label,omitempty"`
	// Precision is the requested number of decimal digits.
	Precision int `json:"precision"`
	// Iterations is the number of series terms the run summed.
	Iterations int `json:"iterations"`
	// Procs is the number of cooperating processes.
	Procs int `json:"procs"`
	// Threads is the number of worker goroutines per process.
	Threads int `json:"threads"`
	// Decimals is how many leading decimals agree with the reference.
	Decimals int `json:"decimals"`
	// Duration is the wall-clock time of the computing phase.
	Duration time.Duration `json:"-"`
	// ExecutionSeconds mirrors Duration for serialized consumers,
	// matching the unit the CSV row reports.
	ExecutionSeconds float64 `json:"execution_seconds"`
	// Pi is the rendered value: "3." followed by Precision decimals.
	Pi string `json:"pi,omitempty"`
}

// CSVHeader is the column layout of a result row.
const CSVHeader = "library,algorithm,precision,iterations,procs,threads,decimals,exec_time"

// CSVRow renders the result as one row under CSVHeader.
func (r Result) CSVRow() string {
	return fmt.Sprintf("%s,%s,%d,%d,%d,%d,%d,%.6f",
		r.Library, r.Algorithm, r.Precision, r.Iterations, r.Procs, r.Threads, r.Decimals, r.ExecutionSeconds)
}

// SetDuration records the computing-phase duration in both representations.
func (r *Result) SetDuration(d time.Duration) {
	r.Duration = d
	r.ExecutionSeconds = d.Seconds()
}

// DigitsPerSecond reports the throughput of the run. Zero-duration runs
// (sub-resolution timings in tests) report zero rather than infinity.
func (r Result) DigitsPerSecond() float64 {
	if r.ExecutionSeconds <= 0 {
		return 0
	}
	return float64(r.Decimals) / r.ExecutionSeconds
}
