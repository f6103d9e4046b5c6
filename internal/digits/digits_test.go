package digits

import (
	"strings"
	"testing"
)

func TestReference(t *testing.T) {
	t.Parallel()

	got, err := Reference(50)
	if err != nil {
		t.Fatalf("Reference(50) failed: %v", err)
	}
	if got != Canonical50 {
		t.Errorf("Reference(50) = %q, want %q", got, Canonical50)
	}

	if _, err := Reference(Available() + 1); err == nil {
		t.Error("Reference beyond the stored expansion should fail")
	}

	if Available() < 100000 {
		t.Errorf("reference holds %d decimals, want at least 100000", Available())
	}
}

func TestCountMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"ExactPrefix", Canonical50, 50},
		{"WrongIntegerPart", "4.1415926535", 0},
		{"MissingPoint", "31415926535", 0},
		{"Empty", "", 0},
		{"FirstDecimalWrong", "3.2415926535", 0},
		{"TailCorrupted", "3.141592653589793238460000", 20},
		{"SingleDecimal", "3.1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountMatching(tt.text); got != tt.want {
				t.Errorf("CountMatching(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestCountMatchingIgnoresGarbageTail(t *testing.T) {
	t.Parallel()

	// A rendering longer than its accurate portion still counts the
	// accurate prefix; this mirrors how working precision leaves noise
	// past the requested decimals.
	text := Canonical50 + strings.Repeat("7", 30)
	got := CountMatching(text)
	if got < 50 {
		t.Errorf("CountMatching = %d, want at least 50", got)
	}
}
