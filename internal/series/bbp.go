package series

import (
	"math/big"

	"github.com/hpcbench/picalc/internal/bignum"
)

// BBP is the Bailey-Borwein-Plouffe series:
//
//	Pi = SUM( (1/16^k) * ( 4/(8k+1) - 2/(8k+4) - 1/(8k+5) - 1/(8k+6) ) ),  k >= 0
//
// Each term contributes log10(16) ~ 1.2 decimals, so 0.84 terms per digit
// are enough. The sum converges to Pi directly; there is no closing
// transform.
type BBP struct{}

func (BBP) Name() string { return "bbp" }

func (BBP) Iterations(precision int) int {
	return int(float64(precision) * 0.84)
}

func (BBP) NewTerm(b bignum.Backend, start, stride int) Term {
	sixteen := big.NewInt(16)
	t := &bbpTerm{
		k:      uint64(start),
		stride: uint64(stride),
		pw:     b.New(),
		step:   b.New(),
		acc:    b.New(),
		tmp:    b.New(),
	}
	t.pw.SetBigInt(new(big.Int).Exp(sixteen, big.NewInt(int64(start)), nil))
	t.step.SetBigInt(new(big.Int).Exp(sixteen, big.NewInt(int64(stride)), nil))
	return t
}

func (BBP) Finalize(b bignum.Backend, sum bignum.Value) {}

// bbpTerm carries 16^k across iterations; the four harmonic pieces are
// cheap scalar divisions recomputed per index.
type bbpTerm struct {
	k      uint64
	stride uint64
	pw     bignum.Value // 16^k
	step   bignum.Value // 16^stride
	acc    bignum.Value
	tmp    bignum.Value
}

func (t *bbpTerm) AddInto(sum bignum.Value) {
	e := 8 * t.k

	t.acc.SetUint64(4)
	t.acc.QuoUint64(t.acc, e+1)
	t.tmp.SetUint64(2)
	t.tmp.QuoUint64(t.tmp, e+4)
	t.acc.Sub(t.acc, t.tmp)
	t.tmp.SetUint64(1)
	t.tmp.QuoUint64(t.tmp, e+5)
	t.acc.Sub(t.acc, t.tmp)
	t.tmp.SetUint64(1)
	t.tmp.QuoUint64(t.tmp, e+6)
	t.acc.Sub(t.acc, t.tmp)

	t.acc.Quo(t.acc, t.pw)
	sum.Add(sum, t.acc)
}

func (t *bbpTerm) Advance() {
	t.pw.Mul(t.pw, t.step)
	t.k += t.stride
}
