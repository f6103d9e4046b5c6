// Package series implements the three spigot series the benchmark sums:
// BBP, Bellard and Chudnovsky. Each series exposes how many terms a target
// precision needs, a recurrence-driven term generator, and the closing
// transform that turns the converged sum into Pi.
//
// A Term is bootstrapped once per worker at an arbitrary start index using
// closed-form math (integer powers and factorials evaluated exactly on
// big.Int), then advanced in O(1) multiplications per step. The advance
// stride matches the worker's index distribution: 1 for contiguous blocks,
// the thread count for cyclic interleaving. Advancing k times from start
// lands on exactly the same state as bootstrapping at start+k*stride; the
// recurrence tests pin that equivalence, which is what makes partial sums
// from different workers composable.
package series

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hpcbench/picalc/internal/bignum"
)

// Distribution selects how the threads of one process share its block.
type Distribution int

const (
	// Cyclic hands indices to threads round-robin with stride T.
	Cyclic Distribution = iota
	// Blocks gives each thread a contiguous sub-block.
	Blocks
)

func (d Distribution) String() string {
	switch d {
	case Cyclic:
		return "cyclic"
	case Blocks:
		return "blocks"
	default:
		return fmt.Sprintf("Distribution(%d)", int(d))
	}
}

// Series is one of the supported spigot series.
type Series interface {
	// Name returns the short registry name of the series.
	Name() string

	// Iterations returns how many terms a run needs for the target
	// precision, in decimal digits.
	Iterations(precision int) int

	// NewTerm bootstraps a term generator at the given start index.
	// Every Advance moves it stride indices forward. The generator owns
	// private state from b and must stay on one goroutine.
	NewTerm(b bignum.Backend, start, stride int) Term

	// Finalize applies the closing transform to a fully reduced sum,
	// leaving Pi in it.
	Finalize(b bignum.Backend, sum bignum.Value)
}

// Term produces consecutive series terms for one worker.
type Term interface {
	// AddInto evaluates the term at the current index and accumulates it
	// into sum.
	AddInto(sum bignum.Value)

	// Advance moves the recurrence state stride indices forward.
	Advance()
}

// Variant couples a series with the thread distribution its selector
// prescribes. The selector set is closed: the four numeric selectors map
// onto three series, with Chudnovsky appearing twice to benchmark both
// thread policies against each other.
type Variant struct {
	Selector int
	Name     string
	Label    string
	Series   Series
	Threads  Distribution
}

var variants = []Variant{
	{
		Selector: 0,
		Name:     "bbp",
		Label:    "BBP (block processes, cyclic threads)",
		Series:   BBP{},
		Threads:  Cyclic,
	},
	{
		Selector: 1,
		Name:     "bellard",
		Label:    "Bellard (block processes, cyclic threads)",
		Series:   Bellard{},
		Threads:  Cyclic,
	},
	{
		Selector: 2,
		Name:     "chudnovsky",
		Label:    "Chudnovsky (block processes, block threads)",
		Series:   Chudnovsky{},
		Threads:  Blocks,
	},
	{
		Selector: 3,
		Name:     "chudnovsky-cyclic",
		Label:    "Chudnovsky (block processes, cyclic threads)",
		Series:   Chudnovsky{},
		Threads:  Cyclic,
	},
}

// Variants returns all algorithm variants in selector order.
func Variants() []Variant {
	out := make([]Variant, len(variants))
	copy(out, variants)
	return out
}

// Lookup resolves an algorithm selector, accepting both the numeric form
// and the variant name.
func Lookup(selector string) (Variant, error) {
	s := strings.ToLower(strings.TrimSpace(selector))
	if n, err := strconv.Atoi(s); err == nil {
		for _, v := range variants {
			if v.Selector == n {
				return v, nil
			}
		}
		return Variant{}, fmt.Errorf("unknown algorithm selector %d (valid: 0..%d)", n, len(variants)-1)
	}
	for _, v := range variants {
		if v.Name == s {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("unknown algorithm %q (valid: %s)", selector, strings.Join(Names(), ", "))
}

// Names returns the variant names in selector order.
func Names() []string {
	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = v.Name
	}
	return names
}
