// Command generate-golden regenerates the reference decimal expansion of
// Pi embedded by internal/digits. It uses Machin's formula over math/big
// integers, deliberately sharing no code with the benchmark engine: the
// reference the engine is verified against must come from an independent
// computation.
package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
)

// guardDigits absorbs the truncation error the integer divisions
// accumulate across the series terms.
const guardDigits = 10

func main() {
	outputDir := flag.String("out", "internal/digits/testdata", "Output directory for the reference file")
	decimals := flag.Int("decimals", 100000, "Number of decimals to generate")
	flag.Parse()

	if *decimals <= 0 {
		fmt.Fprintf(os.Stderr, "Error: -decimals must be positive, got %d\n", *decimals)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating %d decimals of Pi via Machin's formula...\n", *decimals)
	text := piText(*decimals)

	filename := filepath.Join(*outputDir, "pi.txt")
	if err := os.WriteFile(filename, []byte(text+"\n"), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing reference file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully generated reference file at %s\n", filename)
}

// piText renders Pi to exactly n decimals using
// Pi/4 = 4*arctan(1/5) - arctan(1/239) over scaled integers.
func piText(n int) string {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n+guardDigits)), nil)

	pi := new(big.Int).Mul(big.NewInt(4), arctanInv(5, scale))
	pi.Sub(pi, arctanInv(239, scale))
	pi.Mul(pi, big.NewInt(4))

	s := pi.Text(10)
	// The scaled value reads 3141592... with n+guardDigits digits after
	// the leading 3.
	return s[:1] + "." + s[1:1+n]
}

// arctanInv evaluates arctan(1/x) * scale with the Gregory series
// 1/x - 1/(3x^3) + 1/(5x^5) - ... over scaled integers. The loop ends
// when a term truncates to zero.
func arctanInv(x int64, scale *big.Int) *big.Int {
	bigX := big.NewInt(x)
	xSquared := new(big.Int).Mul(bigX, bigX)

	power := new(big.Int).Quo(scale, bigX)
	sum := new(big.Int).Set(power)
	term := new(big.Int)

	for k := int64(1); power.Sign() != 0; k++ {
		power.Quo(power, xSquared)
		term.Quo(power, big.NewInt(2*k+1))
		if k%2 == 1 {
			sum.Sub(sum, term)
		} else {
			sum.Add(sum, term)
		}
	}
	return sum
}
