package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hpcbench/picalc/internal/bignum"
	"github.com/hpcbench/picalc/internal/cluster"
	"github.com/hpcbench/picalc/internal/config"
	apperrors "github.com/hpcbench/picalc/internal/errors"
	"github.com/hpcbench/picalc/internal/testutil"
	"github.com/hpcbench/picalc/pkg/models"
)

// newTestApp builds an Application around a hand-made configuration. The
// fields a parse would resolve (thread count in particular) must be set
// explicitly because ParseConfig is bypassed.
func newTestApp(cfg config.AppConfig, errWriter *bytes.Buffer) *Application {
	return &Application{
		Config:    cfg,
		Factory:   bignum.GlobalFactory(),
		ErrWriter: errWriter,
	}
}

// TestNew tests the New function for creating Application instances.
func TestNew(t *testing.T) {
	t.Parallel()
	t.Run("Valid args create application", func(t *testing.T) {
		t.Parallel()
		var errBuf bytes.Buffer
		args := []string{"picalc", "-precision", "500", "-algo", "bbp"}

		app, err := New(args, &errBuf)

		if err != nil {
			t.Fatalf("New() returned unexpected error: %v", err)
		}
		if app == nil {
			t.Fatal("New() returned nil application")
		}
		if app.Config.Precision != 500 {
			t.Errorf("Expected Precision=500, got %d", app.Config.Precision)
		}
		if app.Config.Algo != "bbp" {
			t.Errorf("Expected Algo=bbp, got %q", app.Config.Algo)
		}
		if app.Factory == nil {
			t.Error("Factory should not be nil")
		}
	})

	t.Run("Invalid args return error", func(t *testing.T) {
		t.Parallel()
		var errBuf bytes.Buffer
		args := []string{"picalc", "-invalid-flag"}

		app, err := New(args, &errBuf)

		if err == nil {
			t.Error("New() should return error for invalid args")
		}
		if app != nil {
			t.Error("New() should return nil application on error")
		}
	})

	t.Run("Unknown library rejected", func(t *testing.T) {
		t.Parallel()
		var errBuf bytes.Buffer
		args := []string{"picalc", "-lib", "quadmath"}

		_, err := New(args, &errBuf)

		if err == nil {
			t.Error("New() should reject a library that is not registered")
		}
	})

	t.Run("Help flag returns error", func(t *testing.T) {
		t.Parallel()
		var errBuf bytes.Buffer
		args := []string{"picalc", "-h"}

		_, err := New(args, &errBuf)

		if err == nil {
			t.Error("New() should return error for help flag")
		}
		if !IsHelpError(err) {
			t.Error("Error should be a help error")
		}
	})

	t.Run("Empty args slice handled correctly", func(t *testing.T) {
		t.Parallel()
		var errBuf bytes.Buffer
		args := []string{}

		app, err := New(args, &errBuf)

		if err != nil {
			t.Errorf("New() should handle empty args without error, got: %v", err)
		}
		if app == nil {
			t.Fatal("New() should return application even with empty args")
		}
		if app.Config.Precision != config.DefaultPrecision {
			t.Errorf("Expected default Precision=%d, got %d", config.DefaultPrecision, app.Config.Precision)
		}
		if app.Config.Threads != runtime.NumCPU() {
			t.Errorf("Expected Threads resolved to %d CPUs, got %d", runtime.NumCPU(), app.Config.Threads)
		}
	})
}

// TestApplicationRun exercises Run end to end with real computations at
// small precisions.
func TestApplicationRun(t *testing.T) {
	t.Parallel()

	t.Run("Single series success", func(t *testing.T) {
		t.Parallel()
		var outBuf bytes.Buffer
		app := newTestApp(config.AppConfig{
			Library:   "big",
			Algo:      "bbp",
			Precision: 120,
			Threads:   2,
			Procs:     1,
			Timeout:   time.Minute,
		}, &bytes.Buffer{})

		exitCode := app.Run(context.Background(), &outBuf)

		if exitCode != apperrors.ExitSuccess {
			t.Errorf("Expected exit code %d, got %d", apperrors.ExitSuccess, exitCode)
		}
		output := testutil.StripAnsiCodes(outBuf.String())
		if !strings.Contains(output, "Benchmark Result") {
			t.Errorf("Output should contain the result block. Output:\n%s", output)
		}
		if !strings.Contains(output, "3.14159265358979323846") {
			t.Errorf("Output should contain the leading digits of Pi. Output:\n%s", output)
		}
	})

	t.Run("Comparison mode success", func(t *testing.T) {
		t.Parallel()
		var outBuf bytes.Buffer
		app := newTestApp(config.AppConfig{
			Library:   "big",
			Algo:      "all",
			Precision: 100,
			Threads:   2,
			Procs:     1,
			Timeout:   time.Minute,
		}, &bytes.Buffer{})

		exitCode := app.Run(context.Background(), &outBuf)

		if exitCode != apperrors.ExitSuccess {
			t.Errorf("Expected exit code %d, got %d", apperrors.ExitSuccess, exitCode)
		}
		output := testutil.StripAnsiCodes(outBuf.String())
		if !strings.Contains(output, "Comparison Summary") {
			t.Errorf("Output should contain 'Comparison Summary'. Output:\n%s", output)
		}
		if !strings.Contains(output, "Global Status: Success") {
			t.Errorf("Output should contain 'Global Status: Success'. Output:\n%s", output)
		}
	})

	t.Run("Timeout failure", func(t *testing.T) {
		var outBuf bytes.Buffer
		app := newTestApp(config.AppConfig{
			Library:   "big",
			Algo:      "bbp",
			Precision: 500_000,
			Threads:   2,
			Procs:     1,
			Timeout:   time.Millisecond,
		}, &bytes.Buffer{})

		exitCode := app.Run(context.Background(), &outBuf)

		if exitCode != apperrors.ExitErrorTimeout {
			t.Errorf("Expected exit code %d (timeout), got %d", apperrors.ExitErrorTimeout, exitCode)
		}
		output := testutil.StripAnsiCodes(outBuf.String())
		if !strings.Contains(output, "Timeout") {
			t.Errorf("Output should mention timeout. Output:\n%s", output)
		}
	})

	t.Run("Context cancellation", func(t *testing.T) {
		t.Parallel()
		var outBuf bytes.Buffer
		app := newTestApp(config.AppConfig{
			Library:   "big",
			Algo:      "bbp",
			Precision: 100_000,
			Threads:   2,
			Procs:     1,
			Timeout:   time.Minute,
		}, &bytes.Buffer{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		exitCode := app.Run(ctx, &outBuf)

		if exitCode != apperrors.ExitErrorCanceled {
			t.Errorf("Expected exit code %d (canceled), got %d", apperrors.ExitErrorCanceled, exitCode)
		}
	})

	t.Run("JSON output mode", func(t *testing.T) {
		t.Parallel()
		var outBuf bytes.Buffer
		app := newTestApp(config.AppConfig{
			Library:    "big",
			Algo:       "bbp",
			Precision:  80,
			Threads:    2,
			Procs:      1,
			Timeout:    time.Minute,
			JSONOutput: true,
		}, &bytes.Buffer{})

		exitCode := app.Run(context.Background(), &outBuf)

		if exitCode != apperrors.ExitSuccess {
			t.Errorf("Expected exit code %d, got %d", apperrors.ExitSuccess, exitCode)
		}
		output := outBuf.String()
		if !strings.Contains(output, `"algorithm": "bbp"`) {
			t.Errorf("JSON output should contain the algorithm field. Output:\n%s", output)
		}
		if !strings.Contains(output, `"pi": "3.14159`) {
			t.Errorf("JSON output should contain the digit string. Output:\n%s", output)
		}
	})

	t.Run("CSV output mode", func(t *testing.T) {
		t.Parallel()
		var outBuf bytes.Buffer
		app := newTestApp(config.AppConfig{
			Library:   "big",
			Algo:      "bellard",
			Precision: 60,
			Threads:   2,
			Procs:     1,
			Timeout:   time.Minute,
			CSVOutput: true,
		}, &bytes.Buffer{})

		exitCode := app.Run(context.Background(), &outBuf)

		if exitCode != apperrors.ExitSuccess {
			t.Errorf("Expected exit code %d, got %d", apperrors.ExitSuccess, exitCode)
		}
		lines := strings.Split(strings.TrimSpace(outBuf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("CSV mode should print the header and one row, got %d lines:\n%s", len(lines), outBuf.String())
		}
		if lines[0] != models.CSVHeader {
			t.Errorf("First line should be the CSV header, got %q", lines[0])
		}
		if !strings.Contains(lines[1], "bellard") {
			t.Errorf("CSV row should name the algorithm, got %q", lines[1])
		}
	})

	t.Run("Quiet mode", func(t *testing.T) {
		t.Parallel()
		var outBuf bytes.Buffer
		app := newTestApp(config.AppConfig{
			Library:   "big",
			Algo:      "chudnovsky",
			Precision: 60,
			Threads:   2,
			Procs:     1,
			Timeout:   time.Minute,
			Quiet:     true,
		}, &bytes.Buffer{})

		exitCode := app.Run(context.Background(), &outBuf)

		if exitCode != apperrors.ExitSuccess {
			t.Errorf("Expected exit code %d, got %d", apperrors.ExitSuccess, exitCode)
		}
		output := strings.TrimSpace(outBuf.String())
		if !strings.HasPrefix(output, "3.14159265358979323846") {
			t.Errorf("Quiet output should be the digit string alone. Output:\n%s", output)
		}
		if strings.Contains(output, "Benchmark Result") {
			t.Errorf("Quiet output should not contain the result block. Output:\n%s", output)
		}
	})

	t.Run("Unknown algorithm is a config error", func(t *testing.T) {
		t.Parallel()
		var outBuf bytes.Buffer
		var errBuf bytes.Buffer
		app := newTestApp(config.AppConfig{
			Library:   "big",
			Algo:      "riemann",
			Precision: 60,
			Threads:   2,
			Procs:     1,
			Timeout:   time.Minute,
		}, &errBuf)

		exitCode := app.Run(context.Background(), &outBuf)

		if exitCode != apperrors.ExitErrorConfig {
			t.Errorf("Expected exit code %d (config), got %d", apperrors.ExitErrorConfig, exitCode)
		}
		if !strings.Contains(errBuf.String(), "riemann") {
			t.Errorf("Error output should name the unknown algorithm. Got:\n%s", errBuf.String())
		}
	})
}

// TestRunOutputFile verifies that -o exports the result alongside the
// standard display.
func TestRunOutputFile(t *testing.T) {
	t.Parallel()
	outputPath := filepath.Join(t.TempDir(), "pi.txt")

	var outBuf bytes.Buffer
	app := newTestApp(config.AppConfig{
		Library:    "big",
		Algo:       "bbp",
		Precision:  60,
		Threads:    2,
		Procs:      1,
		Timeout:    time.Minute,
		OutputFile: outputPath,
	}, &bytes.Buffer{})

	exitCode := app.Run(context.Background(), &outBuf)
	if exitCode != apperrors.ExitSuccess {
		t.Fatalf("Expected exit code %d, got %d", apperrors.ExitSuccess, exitCode)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Output file was not created: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "# Pi Benchmark Result") {
		t.Errorf("Exported file should carry the parameter header. Got:\n%s", content)
	}
	if !strings.Contains(content, "3.14159265358979323846") {
		t.Errorf("Exported file should contain the digits. Got:\n%s", content)
	}

	output := testutil.StripAnsiCodes(outBuf.String())
	if !strings.Contains(output, "Result saved to") {
		t.Errorf("Output should confirm the export. Output:\n%s", output)
	}
}

// TestRunDistributedTwoRanks runs two application instances against one
// broker and checks the coordinator/peer output contract.
func TestRunDistributedTwoRanks(t *testing.T) {
	t.Parallel()

	ns, err := cluster.StartEmbeddedAt("127.0.0.1", -1, cluster.DefaultReadyTimeout)
	if err != nil {
		t.Fatalf("starting broker: %v", err)
	}
	defer ns.Shutdown()

	baseCfg := config.AppConfig{
		Library:   "big",
		Algo:      "bbp",
		Precision: 200,
		Threads:   2,
		Procs:     2,
		NATSURL:   ns.ClientURL(),
		Timeout:   time.Minute,
	}

	var wg sync.WaitGroup
	exitCodes := make([]int, 2)
	outputs := make([]*bytes.Buffer, 2)
	for rank := 0; rank < 2; rank++ {
		cfg := baseCfg
		cfg.Rank = rank
		outputs[rank] = &bytes.Buffer{}
		app := newTestApp(cfg, &bytes.Buffer{})

		wg.Add(1)
		go func(rank int, app *Application) {
			defer wg.Done()
			exitCodes[rank] = app.Run(context.Background(), outputs[rank])
		}(rank, app)
	}
	wg.Wait()

	for rank, code := range exitCodes {
		if code != apperrors.ExitSuccess {
			t.Errorf("rank %d exited with %d, want %d", rank, code, apperrors.ExitSuccess)
		}
	}
	if outputs[1].Len() != 0 {
		t.Errorf("rank 1 should write nothing to stdout, got:\n%s", outputs[1].String())
	}
	coordOut := testutil.StripAnsiCodes(outputs[0].String())
	if !strings.Contains(coordOut, "3.14159265358979323846") {
		t.Errorf("coordinator output should contain the digits. Output:\n%s", coordOut)
	}
}

// TestIsHelpError tests the IsHelpError function.
func TestIsHelpError(t *testing.T) {
	t.Parallel()
	var errBuf bytes.Buffer
	args := []string{"picalc", "-h"}

	_, err := New(args, &errBuf)

	if !IsHelpError(err) {
		t.Error("IsHelpError should return true for help flag error")
	}
}

// TestRunCompletion tests the completion script generation.
func TestRunCompletion(t *testing.T) {
	t.Parallel()
	var outBuf bytes.Buffer
	app := newTestApp(config.AppConfig{Completion: "bash"}, &bytes.Buffer{})

	exitCode := app.Run(context.Background(), &outBuf)

	if exitCode != apperrors.ExitSuccess {
		t.Errorf("Expected exit code %d, got %d", apperrors.ExitSuccess, exitCode)
	}
	output := outBuf.String()
	if !strings.Contains(output, "complete") {
		t.Errorf("Output should contain a bash completion script. Got:\n%s", output)
	}
	if !strings.Contains(output, "bbp") {
		t.Errorf("Completion script should offer the algorithm names. Got:\n%s", output)
	}
	if !strings.Contains(output, "big") {
		t.Errorf("Completion script should offer the library names. Got:\n%s", output)
	}
}

// TestRunCompletionInvalid tests invalid completion shell.
func TestRunCompletionInvalid(t *testing.T) {
	t.Parallel()
	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	app := newTestApp(config.AppConfig{Completion: "invalid-shell"}, &errBuf)

	exitCode := app.Run(context.Background(), &outBuf)

	if exitCode != apperrors.ExitErrorConfig {
		t.Errorf("Expected exit code %d for invalid shell, got %d", apperrors.ExitErrorConfig, exitCode)
	}
}

// TestRunVersion checks the -version dispatch.
func TestRunVersion(t *testing.T) {
	t.Parallel()
	var outBuf bytes.Buffer
	app := newTestApp(config.AppConfig{ShowVersion: true}, &bytes.Buffer{})

	exitCode := app.Run(context.Background(), &outBuf)

	if exitCode != apperrors.ExitSuccess {
		t.Errorf("Expected exit code %d, got %d", apperrors.ExitSuccess, exitCode)
	}
	if !strings.Contains(outBuf.String(), "picalc") {
		t.Errorf("Version output should name the binary. Got:\n%s", outBuf.String())
	}
}

// TestSetupSignals tests the SetupSignals function.
func TestSetupSignals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ctxWithSignals, stop := SetupSignals(ctx)
	defer stop()

	if ctxWithSignals == nil {
		t.Error("Context should not be nil")
	}

	// Stop should not panic when called twice
	stop()
}

// TestSetupLifecycle verifies the combined timeout and signal context.
func TestSetupLifecycle(t *testing.T) {
	t.Parallel()
	ctx, cancels := SetupLifecycle(context.Background(), 10*time.Millisecond)
	defer cancels.Cleanup()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("lifecycle context should expire with the timeout")
	}
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("Expected DeadlineExceeded, got %v", ctx.Err())
	}

	// Cleanup is safe to call more than once
	cancels.Cleanup()
}
