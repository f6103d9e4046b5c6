package bignum

import (
	"fmt"
	"math/big"
)

// bigBackend produces binary floating-point values on math/big.Float.
// This is the default backend: pure Go, portable, no system libraries.
type bigBackend struct {
	prec uint
}

func (b *bigBackend) Name() string { return "big" }

func (b *bigBackend) SetWorkingPrecision(bits uint) { b.prec = bits }

func (b *bigBackend) WorkingPrecision() uint { return b.prec }

func (b *bigBackend) New() Value {
	if b.prec == 0 {
		panic("bignum: big backend used before SetWorkingPrecision")
	}
	return &bigValue{f: new(big.Float).SetPrec(b.prec), prec: b.prec}
}

// bigValue wraps a big.Float at the backend working precision. The scratch
// float holds uint64 operands so the hot summation loops do not allocate.
type bigValue struct {
	f       *big.Float
	scratch *big.Float
	prec    uint
}

func asBig(x Value) *bigValue {
	v, ok := x.(*bigValue)
	if !ok {
		panic(fmt.Sprintf("bignum: big backend received a %T value", x))
	}
	return v
}

func (v *bigValue) uintOperand(u uint64) *big.Float {
	if v.scratch == nil {
		v.scratch = new(big.Float).SetPrec(v.prec)
	}
	return v.scratch.SetUint64(u)
}

func (v *bigValue) Set(x Value) Value       { v.f.Set(asBig(x).f); return v }
func (v *bigValue) SetUint64(u uint64) Value { v.f.SetUint64(u); return v }
func (v *bigValue) SetBigInt(n *big.Int) Value { v.f.SetInt(n); return v }

func (v *bigValue) SetRatio(num, den *big.Int) Value {
	fn := new(big.Float).SetPrec(v.prec).SetInt(num)
	fd := new(big.Float).SetPrec(v.prec).SetInt(den)
	v.f.Quo(fn, fd)
	return v
}

func (v *bigValue) Add(x, y Value) Value { v.f.Add(asBig(x).f, asBig(y).f); return v }
func (v *bigValue) Sub(x, y Value) Value { v.f.Sub(asBig(x).f, asBig(y).f); return v }
func (v *bigValue) Mul(x, y Value) Value { v.f.Mul(asBig(x).f, asBig(y).f); return v }
func (v *bigValue) Quo(x, y Value) Value { v.f.Quo(asBig(x).f, asBig(y).f); return v }

func (v *bigValue) AddUint64(x Value, u uint64) Value {
	v.f.Add(asBig(x).f, v.uintOperand(u))
	return v
}

func (v *bigValue) MulUint64(x Value, u uint64) Value {
	v.f.Mul(asBig(x).f, v.uintOperand(u))
	return v
}

func (v *bigValue) QuoUint64(x Value, u uint64) Value {
	v.f.Quo(asBig(x).f, v.uintOperand(u))
	return v
}

func (v *bigValue) Neg(x Value) Value  { v.f.Neg(asBig(x).f); return v }
func (v *bigValue) Sqrt(x Value) Value { v.f.Sqrt(asBig(x).f); return v }

func (v *bigValue) Sign() int        { return v.f.Sign() }
func (v *bigValue) Cmp(x Value) int  { return v.f.Cmp(asBig(x).f) }
func (v *bigValue) Text(frac int) string { return v.f.Text('f', frac) }

func (b *bigBackend) BufferSize() int {
	if b.prec == 0 {
		panic("bignum: big backend used before SetWorkingPrecision")
	}
	return headerSize + int((b.prec+7)/8)
}

// Marshal encodes the value as sign, binary exponent and the mantissa
// scaled to a prec-bit integer. A normalized mantissa in [1/2, 1) carries
// at most prec significant bits, so the scaling is exact by construction.
func (b *bigBackend) Marshal(v Value) ([]byte, error) {
	bv := asBig(v)
	buf := make([]byte, b.BufferSize())

	if bv.f.Sign() == 0 {
		putHeader(buf, false, true, 0)
		return buf, nil
	}

	mant := new(big.Float).SetPrec(b.prec)
	exp := bv.f.MantExp(mant)
	mant.Abs(mant)

	scaled := new(big.Float).SetPrec(b.prec).SetMantExp(mant, int(b.prec))
	mi, acc := scaled.Int(nil)
	if acc != big.Exact {
		return nil, fmt.Errorf("bignum: mantissa scaling lost bits at precision %d", b.prec)
	}

	putHeader(buf, bv.f.Sign() < 0, false, int64(exp))
	mi.FillBytes(buf[headerSize:])
	return buf, nil
}

func (b *bigBackend) Unmarshal(buf []byte) (Value, error) {
	if err := checkBufferSize(b, buf); err != nil {
		return nil, err
	}
	neg, zero, exp := readHeader(buf)

	v := b.New().(*bigValue)
	if zero {
		return v, nil
	}

	mi := new(big.Int).SetBytes(buf[headerSize:])
	v.f.SetInt(mi)
	v.f.SetMantExp(v.f, int(exp)-int(b.prec))
	if neg {
		v.f.Neg(v.f)
	}
	return v, nil
}
