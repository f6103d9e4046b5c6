//go:build gmp

// This file provides a GMP-backed arithmetic backend, conditionally compiled
// with the "gmp" build tag:
//   - Default builds stay pure Go (math/big and apd backends only)
//   - GMP support is opt-in, requiring: go build -tags=gmp
//   - The binary then needs libgmp at run time
//
// System requirements:
//   - Linux: sudo apt-get install libgmp-dev (Debian/Ubuntu)
//   - macOS: brew install gmp
//
// The backend works in fixed point: a value is an integer mantissa scaled
// by 2^shift, with shift equal to the working precision in bits. Additions
// are exact; multiplications and divisions truncate at the scale point,
// which keeps every operation a single GMP call.

package bignum

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ncw/gmp"
)

func init() {
	RegisterBackend("gmp", func() Backend { return &gmpBackend{} })
}

// integerHeadroom is the extra room, in bits, above the scale point. The
// series partial sums stay below 2^25, so 64 bits of integer headroom is
// plenty; Marshal rejects anything larger instead of corrupting a buffer.
const integerHeadroom = 64

type gmpBackend struct {
	prec uint
}

func (b *gmpBackend) Name() string { return "gmp" }

func (b *gmpBackend) SetWorkingPrecision(bits uint) { b.prec = bits }

func (b *gmpBackend) WorkingPrecision() uint { return b.prec }

func (b *gmpBackend) New() Value {
	if b.prec == 0 {
		panic("bignum: gmp backend used before SetWorkingPrecision")
	}
	return &gmpValue{m: new(gmp.Int), shift: b.prec}
}

// gmpValue is a fixed-point number m / 2^shift.
type gmpValue struct {
	m     *gmp.Int
	shift uint

	scratch *gmp.Int
}

func asGmp(x Value) *gmpValue {
	v, ok := x.(*gmpValue)
	if !ok {
		panic(fmt.Sprintf("bignum: gmp backend received a %T value", x))
	}
	return v
}

func (v *gmpValue) temp() *gmp.Int {
	if v.scratch == nil {
		v.scratch = new(gmp.Int)
	}
	return v.scratch
}

func gmpFromBigInt(dst *gmp.Int, n *big.Int) *gmp.Int {
	dst.SetBytes(n.Bytes())
	if n.Sign() < 0 {
		dst.Neg(dst)
	}
	return dst
}

func (v *gmpValue) Set(x Value) Value { v.m.Set(asGmp(x).m); return v }

func (v *gmpValue) SetUint64(u uint64) Value {
	v.m.SetUint64(u)
	v.m.Lsh(v.m, v.shift)
	return v
}

func (v *gmpValue) SetBigInt(n *big.Int) Value {
	gmpFromBigInt(v.m, n)
	v.m.Lsh(v.m, v.shift)
	return v
}

func (v *gmpValue) SetRatio(num, den *big.Int) Value {
	d := gmpFromBigInt(v.temp(), den)
	gmpFromBigInt(v.m, num)
	v.m.Lsh(v.m, v.shift)
	v.m.Quo(v.m, d)
	return v
}

func (v *gmpValue) Add(x, y Value) Value { v.m.Add(asGmp(x).m, asGmp(y).m); return v }
func (v *gmpValue) Sub(x, y Value) Value { v.m.Sub(asGmp(x).m, asGmp(y).m); return v }

func (v *gmpValue) Mul(x, y Value) Value {
	t := v.temp()
	t.Mul(asGmp(x).m, asGmp(y).m)
	v.m.Rsh(t, v.shift)
	return v
}

func (v *gmpValue) Quo(x, y Value) Value {
	t := v.temp()
	t.Lsh(asGmp(x).m, v.shift)
	v.m.Quo(t, asGmp(y).m)
	return v
}

func (v *gmpValue) AddUint64(x Value, u uint64) Value {
	t := v.temp()
	t.SetUint64(u)
	t.Lsh(t, v.shift)
	v.m.Add(asGmp(x).m, t)
	return v
}

func (v *gmpValue) MulUint64(x Value, u uint64) Value {
	t := v.temp()
	t.SetUint64(u)
	v.m.Mul(asGmp(x).m, t)
	return v
}

func (v *gmpValue) QuoUint64(x Value, u uint64) Value {
	t := v.temp()
	t.SetUint64(u)
	v.m.Quo(asGmp(x).m, t)
	return v
}

func (v *gmpValue) Neg(x Value) Value { v.m.Neg(asGmp(x).m); return v }

// Sqrt computes floor(sqrt(m * 2^shift)) by Newton iteration, which is the
// fixed-point square root: (r/2^s)^2 = (m*2^s)/2^2s = m/2^s.
func (v *gmpValue) Sqrt(x Value) Value {
	xs := asGmp(x)
	if xs.m.Sign() < 0 {
		panic("bignum: gmp square root of negative value")
	}
	arg := new(gmp.Int).Lsh(xs.m, v.shift)
	if arg.Sign() == 0 {
		v.m.SetInt64(0)
		return v
	}

	y := new(gmp.Int).SetInt64(1)
	y.Lsh(y, uint(arg.BitLen()/2+1))
	t := new(gmp.Int)
	for {
		t.Quo(arg, y)
		t.Add(t, y)
		t.Rsh(t, 1)
		if t.Cmp(y) >= 0 {
			v.m.Set(y)
			return v
		}
		y.Set(t)
	}
}

func (v *gmpValue) Sign() int       { return v.m.Sign() }
func (v *gmpValue) Cmp(x Value) int { return v.m.Cmp(asGmp(x).m) }

func (v *gmpValue) Text(frac int) string {
	if frac < 0 {
		frac = 0
	}
	abs := new(gmp.Int).Abs(v.m)
	if frac > 0 {
		ten := new(gmp.Int).SetInt64(10)
		pow := new(gmp.Int).Exp(ten, new(gmp.Int).SetInt64(int64(frac)), nil)
		abs.Mul(abs, pow)
	}
	abs.Rsh(abs, v.shift)

	s := abs.String()
	if frac > 0 {
		if len(s) <= frac {
			s = strings.Repeat("0", frac-len(s)+1) + s
		}
		s = s[:len(s)-frac] + "." + s[len(s)-frac:]
	}
	if v.m.Sign() < 0 {
		s = "-" + s
	}
	return s
}

func (b *gmpBackend) BufferSize() int {
	if b.prec == 0 {
		panic("bignum: gmp backend used before SetWorkingPrecision")
	}
	return headerSize + (int(b.prec)+7)/8 + integerHeadroom/8
}

func (b *gmpBackend) Marshal(v Value) ([]byte, error) {
	gv := asGmp(v)
	buf := make([]byte, b.BufferSize())

	if gv.m.Sign() == 0 {
		putHeader(buf, false, true, 0)
		return buf, nil
	}
	if gv.m.BitLen() > int(b.prec)+integerHeadroom {
		return nil, fmt.Errorf("bignum: gmp value exceeds %d bits of integer headroom", integerHeadroom)
	}

	putHeader(buf, gv.m.Sign() < 0, false, 0)
	abs := new(gmp.Int).Abs(gv.m)
	bytes := abs.Bytes()
	copy(buf[len(buf)-len(bytes):], bytes)
	return buf, nil
}

func (b *gmpBackend) Unmarshal(buf []byte) (Value, error) {
	if err := checkBufferSize(b, buf); err != nil {
		return nil, err
	}
	neg, zero, _ := readHeader(buf)

	v := b.New().(*gmpValue)
	if zero {
		return v, nil
	}
	v.m.SetBytes(buf[headerSize:])
	if neg {
		v.m.Neg(v.m)
	}
	return v, nil
}
