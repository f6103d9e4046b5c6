package series

import (
	"math/big"

	"github.com/hpcbench/picalc/internal/bignum"
)

// Chudnovsky constants.
const (
	chudA = 13591409
	chudB = 545140134
	chudC = 640320
	chudD = 426880
	chudE = 10005
)

// Chudnovsky is the Chudnovsky brothers' series, the fastest of the three
// at roughly 14 decimals per term:
//
//	426880*sqrt(10005)            (6n)! * (545140134n + 13591409)
//	------------------ = SUM( ----------------------------------- ),  n >= 0
//	        Pi                   (n!)^3 * (3n)! * (-640320)^(3n)
//
// The term is held as three dependencies with O(1) advances:
//
//	a(n) = (6n)! / ((n!)^3 (3n)!)    a(n+1) = a(n) * (12n+2)(12n+6)(12n+10) / (n+1)^3
//	b(n) = (-640320)^(3n)            b(n+1) = b(n) * (-640320)^3
//	c(n) = 13591409 + 545140134n     c(n+1) = c(n) + 545140134
//
// For a stride s the advances compose: a folds the rational factor s
// times, b multiplies by ((-640320)^3)^s, c adds 545140134*s. The
// bootstrap evaluates all three dependencies exactly on big.Int, so a
// worker can start at any index without walking there.
type Chudnovsky struct{}

func (Chudnovsky) Name() string { return "chudnovsky" }

func (Chudnovsky) Iterations(precision int) int {
	return (precision + 13) / 14
}

func (Chudnovsky) NewTerm(b bignum.Backend, start, stride int) Term {
	t := &chudnovskyTerm{
		j:        uint64(start),
		stride:   uint64(stride),
		depA:     b.New(),
		depB:     b.New(),
		depC:     b.New(),
		stepB:    b.New(),
		dividend: b.New(),
		divisor:  b.New(),
		aux:      b.New(),
	}

	num, den := bootstrapA(int64(start))
	t.depA.SetRatio(num, den)

	base := new(big.Int).Exp(big.NewInt(-chudC), big.NewInt(3), nil)
	t.depB.SetBigInt(new(big.Int).Exp(base, big.NewInt(int64(start)), nil))
	t.stepB.SetBigInt(new(big.Int).Exp(base, big.NewInt(int64(stride)), nil))

	t.depC.SetUint64(chudB)
	t.depC.MulUint64(t.depC, uint64(start))
	t.depC.AddUint64(t.depC, chudA)

	return t
}

// Finalize turns the converged sum into Pi: 426880*sqrt(10005) / sum.
func (Chudnovsky) Finalize(b bignum.Backend, sum bignum.Value) {
	aux := b.New().SetUint64(chudE)
	aux.Sqrt(aux)
	aux.MulUint64(aux, chudD)
	sum.Quo(aux, sum)
}

// bootstrapA returns (6n)! and (n!)^3 * (3n)! as exact integers.
func bootstrapA(n int64) (num, den *big.Int) {
	num = new(big.Int).MulRange(1, 6*n)
	den = new(big.Int).MulRange(1, 3*n)
	cube := new(big.Int).MulRange(1, n)
	cube.Exp(cube, big.NewInt(3), nil)
	den.Mul(den, cube)
	return num, den
}

type chudnovskyTerm struct {
	j      uint64
	stride uint64

	depA  bignum.Value // (6j)! / ((j!)^3 (3j)!)
	depB  bignum.Value // (-640320)^(3j)
	depC  bignum.Value // 13591409 + 545140134*j
	stepB bignum.Value // ((-640320)^3)^stride

	dividend bignum.Value
	divisor  bignum.Value
	aux      bignum.Value
}

func (t *chudnovskyTerm) AddInto(sum bignum.Value) {
	t.aux.Mul(t.depA, t.depC)
	t.aux.Quo(t.aux, t.depB)
	sum.Add(sum, t.aux)
}

func (t *chudnovskyTerm) Advance() {
	// Fold the per-index factor of a once for every index the stride
	// skips over. The three dividend factors stay separate scalar
	// multiplications: their product overflows uint64 for large j.
	for s := uint64(0); s < t.stride; s++ {
		j := t.j + s
		f := 12 * j

		t.dividend.SetUint64(f + 10)
		t.dividend.MulUint64(t.dividend, f+6)
		t.dividend.MulUint64(t.dividend, f+2)
		t.dividend.Mul(t.dividend, t.depA)

		t.divisor.SetUint64(j + 1)
		t.divisor.MulUint64(t.divisor, j+1)
		t.divisor.MulUint64(t.divisor, j+1)

		t.depA.Quo(t.dividend, t.divisor)
	}

	t.depB.Mul(t.depB, t.stepB)
	t.depC.AddUint64(t.depC, chudB*t.stride)
	t.j += t.stride
}
