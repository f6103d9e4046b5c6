// Package bignum defines the arbitrary-precision arithmetic surface used by
// the series engines. Two backends are always available ("big" on math/big,
// "apd" on cockroachdb/apd); a third ("gmp") is compiled in with the gmp
// build tag. All backends expose the same capability set so the summation
// code is written once and benchmarked per library.
//
// Values are mutable and owned by a single goroutine at a time. Sharing is
// done by handing a Value over (merge under a lock, or a marshaled buffer
// across processes), never by concurrent access. Mixing Values produced by
// different backends is a programming error and panics.
package bignum

import "math/big"

// Value is an arbitrary-precision number created by a Backend. The mutating
// methods follow the three-address convention of math/big: the receiver is
// the destination, operands may alias it, and the receiver is returned for
// chaining.
//
// All Values carry the working precision of the Backend that created them.
// Operations round to that precision.
type Value interface {
	// Set assigns x to the receiver.
	Set(x Value) Value

	// SetUint64 assigns the integer u to the receiver.
	SetUint64(u uint64) Value

	// SetBigInt assigns the exact integer n, rounded to working precision.
	SetBigInt(n *big.Int) Value

	// SetRatio assigns num/den, each taken exactly, with a single rounding
	// of the quotient to working precision. den must be non-zero.
	SetRatio(num, den *big.Int) Value

	// Add sets the receiver to x + y.
	Add(x, y Value) Value

	// Sub sets the receiver to x - y.
	Sub(x, y Value) Value

	// Mul sets the receiver to x * y.
	Mul(x, y Value) Value

	// Quo sets the receiver to x / y. y must be non-zero.
	Quo(x, y Value) Value

	// AddUint64 sets the receiver to x + u.
	AddUint64(x Value, u uint64) Value

	// MulUint64 sets the receiver to x * u.
	MulUint64(x Value, u uint64) Value

	// QuoUint64 sets the receiver to x / u. u must be non-zero.
	QuoUint64(x Value, u uint64) Value

	// Neg sets the receiver to -x.
	Neg(x Value) Value

	// Sqrt sets the receiver to the square root of x. x must be >= 0.
	Sqrt(x Value) Value

	// Sign reports -1, 0 or +1 depending on the sign of the value.
	Sign() int

	// Cmp compares the receiver with x and reports -1, 0 or +1.
	Cmp(x Value) int

	// Text renders the value in decimal positional notation with at least
	// frac digits after the decimal point.
	Text(frac int) string
}

// Backend creates Values and moves them across process boundaries.
//
// SetWorkingPrecision must be called exactly once, before the first New and
// before any concurrent use. Backends are otherwise safe for use from
// multiple goroutines: New may be called concurrently once configured.
type Backend interface {
	// Name returns the registry name of the backend ("big", "apd", "gmp").
	Name() string

	// SetWorkingPrecision fixes the precision, in bits, that every Value
	// created afterwards computes at. Calling New before this panics.
	SetWorkingPrecision(bits uint)

	// WorkingPrecision returns the precision set by SetWorkingPrecision,
	// or 0 if it has not been set yet.
	WorkingPrecision() uint

	// New returns a fresh Value initialized to zero.
	New() Value

	// BufferSize returns the exact length, in bytes, of every buffer
	// produced by Marshal at the current working precision. It depends
	// only on the working precision, never on the value being encoded.
	BufferSize() int

	// Marshal encodes v into a transport buffer of length BufferSize.
	Marshal(v Value) ([]byte, error)

	// Unmarshal decodes a buffer previously produced by Marshal on a
	// backend with the same name and working precision.
	Unmarshal(buf []byte) (Value, error)
}
