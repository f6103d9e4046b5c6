package bignum

import (
	"encoding/binary"
	"fmt"
)

// Transport buffer layout, shared by all backends:
//
//	[0]     flags (sign and zero bits)
//	[1:9]   exponent, big-endian two's complement
//	[9:]    mantissa image, fixed width per backend and working precision
//
// The mantissa width is a pure function of the working precision, so every
// process in a run produces buffers of identical length and a receiver can
// size its reads before any value exists.
const (
	flagNegative = 1 << 0
	flagZero     = 1 << 1

	headerSize = 1 + 8
)

func putHeader(buf []byte, negative, zero bool, exponent int64) {
	var flags byte
	if negative {
		flags |= flagNegative
	}
	if zero {
		flags |= flagZero
	}
	buf[0] = flags
	binary.BigEndian.PutUint64(buf[1:headerSize], uint64(exponent))
}

func readHeader(buf []byte) (negative, zero bool, exponent int64) {
	flags := buf[0]
	return flags&flagNegative != 0, flags&flagZero != 0,
		int64(binary.BigEndian.Uint64(buf[1:headerSize]))
}

func checkBufferSize(b Backend, buf []byte) error {
	if len(buf) != b.BufferSize() {
		return fmt.Errorf("bignum: %s buffer is %d bytes, want %d",
			b.Name(), len(buf), b.BufferSize())
	}
	return nil
}

// AddBuffers decodes two transport buffers, adds the values at the working
// precision of b and re-encodes the sum. This is the combining step of the
// cross-process reduction: associative, so partial sums may be folded in
// any arrival order.
func AddBuffers(b Backend, x, y []byte) ([]byte, error) {
	vx, err := b.Unmarshal(x)
	if err != nil {
		return nil, fmt.Errorf("left operand: %w", err)
	}
	vy, err := b.Unmarshal(y)
	if err != nil {
		return nil, fmt.Errorf("right operand: %w", err)
	}
	vx.Add(vx, vy)
	return b.Marshal(vx)
}
