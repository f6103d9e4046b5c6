package bignum

import (
	"fmt"
	"math"
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// digitsToBitsRatio converts between binary and decimal precision:
// one decimal digit carries log2(10) bits.
const digitsToBitsRatio = math.Ln10 / math.Ln2

// apdBackend produces decimal floating-point values on cockroachdb/apd.
// The working precision is configured in bits like every backend; it is
// translated to the equivalent decimal digit count for the apd context.
type apdBackend struct {
	prec   uint
	digits uint32
	ctx    *apd.Context
}

func (b *apdBackend) Name() string { return "apd" }

func (b *apdBackend) SetWorkingPrecision(bits uint) {
	b.prec = bits
	b.digits = uint32(math.Ceil(float64(bits) / digitsToBitsRatio))
	b.ctx = apd.BaseContext.WithPrecision(b.digits)
}

func (b *apdBackend) WorkingPrecision() uint { return b.prec }

func (b *apdBackend) New() Value {
	if b.ctx == nil {
		panic("bignum: apd backend used before SetWorkingPrecision")
	}
	return &apdValue{d: new(apd.Decimal), be: b}
}

type apdValue struct {
	d  *apd.Decimal
	be *apdBackend

	scratch *apd.Decimal
}

func asApd(x Value) *apdValue {
	v, ok := x.(*apdValue)
	if !ok {
		panic(fmt.Sprintf("bignum: apd backend received a %T value", x))
	}
	return v
}

// ctxDo funnels every context operation. Condition flags (inexact and
// rounded are routine at fixed precision) are dropped; a hard error means
// the engine fed an invalid operand, which is a programming error here.
func ctxDo(_ apd.Condition, err error) {
	if err != nil {
		panic(fmt.Sprintf("bignum: apd operation failed: %v", err))
	}
}

func setFromBigInt(d *apd.Decimal, n *big.Int) {
	d.Form = apd.Finite
	d.Exponent = 0
	d.Negative = n.Sign() < 0
	var abs big.Int
	abs.Abs(n)
	d.Coeff.SetMathBigInt(&abs)
}

func (v *apdValue) uintOperand(u uint64) *apd.Decimal {
	if v.scratch == nil {
		v.scratch = new(apd.Decimal)
	}
	var n big.Int
	n.SetUint64(u)
	setFromBigInt(v.scratch, &n)
	return v.scratch
}

func (v *apdValue) Set(x Value) Value        { v.d.Set(asApd(x).d); return v }
func (v *apdValue) SetUint64(u uint64) Value { v.d.Set(v.uintOperand(u)); return v }

func (v *apdValue) SetBigInt(n *big.Int) Value {
	setFromBigInt(v.d, n)
	return v
}

func (v *apdValue) SetRatio(num, den *big.Int) Value {
	var dn, dd apd.Decimal
	setFromBigInt(&dn, num)
	setFromBigInt(&dd, den)
	ctxDo(v.be.ctx.Quo(v.d, &dn, &dd))
	return v
}

func (v *apdValue) Add(x, y Value) Value {
	ctxDo(v.be.ctx.Add(v.d, asApd(x).d, asApd(y).d))
	return v
}

func (v *apdValue) Sub(x, y Value) Value {
	ctxDo(v.be.ctx.Sub(v.d, asApd(x).d, asApd(y).d))
	return v
}

func (v *apdValue) Mul(x, y Value) Value {
	ctxDo(v.be.ctx.Mul(v.d, asApd(x).d, asApd(y).d))
	return v
}

func (v *apdValue) Quo(x, y Value) Value {
	ctxDo(v.be.ctx.Quo(v.d, asApd(x).d, asApd(y).d))
	return v
}

func (v *apdValue) AddUint64(x Value, u uint64) Value {
	ctxDo(v.be.ctx.Add(v.d, asApd(x).d, v.uintOperand(u)))
	return v
}

func (v *apdValue) MulUint64(x Value, u uint64) Value {
	ctxDo(v.be.ctx.Mul(v.d, asApd(x).d, v.uintOperand(u)))
	return v
}

func (v *apdValue) QuoUint64(x Value, u uint64) Value {
	ctxDo(v.be.ctx.Quo(v.d, asApd(x).d, v.uintOperand(u)))
	return v
}

func (v *apdValue) Neg(x Value) Value { v.d.Neg(asApd(x).d); return v }

func (v *apdValue) Sqrt(x Value) Value {
	ctxDo(v.be.ctx.Sqrt(v.d, asApd(x).d))
	return v
}

func (v *apdValue) Sign() int       { return v.d.Sign() }
func (v *apdValue) Cmp(x Value) int { return v.d.Cmp(asApd(x).d) }

func (v *apdValue) Text(frac int) string {
	return padFrac(v.d.Text('f'), frac)
}

// coeffWidth is the byte length that holds any coefficient of at most
// digits+1 decimal digits. The extra digit absorbs the ceil slack of the
// bits-to-digits conversion.
func coeffWidth(digits uint32) int {
	return int(math.Ceil(float64(digits+1)*digitsToBitsRatio/8)) + 1
}

func (b *apdBackend) BufferSize() int {
	if b.ctx == nil {
		panic("bignum: apd backend used before SetWorkingPrecision")
	}
	return headerSize + coeffWidth(b.digits)
}

// Marshal encodes sign, decimal exponent and the coefficient image. The
// value is rounded through the context first so the coefficient is
// guaranteed to fit the fixed width even if the value was set from an
// oversized exact integer.
func (b *apdBackend) Marshal(v Value) ([]byte, error) {
	av := asApd(v)
	buf := make([]byte, b.BufferSize())

	var rounded apd.Decimal
	ctxDo(b.ctx.Round(&rounded, av.d))

	if rounded.IsZero() {
		putHeader(buf, false, true, 0)
		return buf, nil
	}

	putHeader(buf, rounded.Negative, false, int64(rounded.Exponent))
	rounded.Coeff.MathBigInt().FillBytes(buf[headerSize:])
	return buf, nil
}

func (b *apdBackend) Unmarshal(buf []byte) (Value, error) {
	if err := checkBufferSize(b, buf); err != nil {
		return nil, err
	}
	neg, zero, exp := readHeader(buf)

	v := b.New().(*apdValue)
	if zero {
		return v, nil
	}
	if exp < math.MinInt32 || exp > math.MaxInt32 {
		return nil, fmt.Errorf("bignum: apd exponent %d out of range", exp)
	}

	var coeff big.Int
	coeff.SetBytes(buf[headerSize:])
	v.d.Form = apd.Finite
	v.d.Negative = neg
	v.d.Exponent = int32(exp)
	v.d.Coeff.SetMathBigInt(&coeff)
	return v, nil
}
