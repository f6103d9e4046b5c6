// Package digits holds a verified decimal expansion of Pi and counts how
// many decimals of a computed rendering agree with it. The benchmark
// reports that count: elapsed time alone says nothing if the series
// produced garbage.
package digits

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
)

// Canonical50 is the 50-decimal prefix of Pi, the short form quoted by
// the end-to-end checks.
const Canonical50 = "3.14159265358979323846264338327950288419716939937510"

// referenceText is regenerated by cmd/generate-golden.
//
//go:embed testdata/pi.txt
var referenceText string

var (
	refOnce sync.Once
	ref     string
)

func reference() string {
	refOnce.Do(func() {
		ref = strings.TrimSpace(referenceText)
	})
	return ref
}

// Available returns the number of reference decimals shipped with the
// binary. Runs beyond this precision are still computed in full; the
// verified decimal count just saturates here.
func Available() int {
	return len(reference()) - len("3.")
}

// Reference returns Pi rendered to exactly n decimals.
func Reference(n int) (string, error) {
	r := reference()
	if n < 0 || n > Available() {
		return "", fmt.Errorf("digits: %d decimals requested, reference has %d", n, Available())
	}
	return r[:len("3.")+n], nil
}

// CountMatching compares a computed decimal rendering against the
// reference and returns the number of leading decimals that match. The
// text must start with "3." to count at all; a wrong integer part means
// the computation failed outright and scores zero.
func CountMatching(text string) int {
	r := reference()
	if !strings.HasPrefix(text, "3.") {
		return 0
	}
	limit := len(text)
	if len(r) < limit {
		limit = len(r)
	}
	count := 0
	for i := len("3."); i < limit; i++ {
		if text[i] != r[i] {
			break
		}
		count++
	}
	return count
}
