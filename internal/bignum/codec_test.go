package bignum

import (
	"math/big"
	"testing"
)

// codecSamples builds values that stress the transport encoding: zero,
// integers of both signs, a value with a large negative binary exponent
// and a large integer.
func codecSamples(b Backend) map[string]Value {
	tiny := new(big.Int).Exp(big.NewInt(10), big.NewInt(50), nil)
	huge := new(big.Int).Exp(big.NewInt(10), big.NewInt(40), nil)

	return map[string]Value{
		"zero":         b.New(),
		"one":          b.New().SetUint64(1),
		"negative":     b.New().Neg(b.New().SetUint64(7)),
		"pi-ish":       b.New().SetRatio(big.NewInt(355), big.NewInt(113)),
		"tiny":         b.New().SetRatio(big.NewInt(1), tiny),
		"negativeTiny": b.New().SetRatio(big.NewInt(-3), tiny),
		"huge":         b.New().SetBigInt(huge),
	}
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()
	for _, b := range testBackends() {
		t.Run(b.Name(), func(t *testing.T) {
			for name, v := range codecSamples(b) {
				t.Run(name, func(t *testing.T) {
					buf, err := b.Marshal(v)
					if err != nil {
						t.Fatalf("Marshal failed: %v", err)
					}
					if len(buf) != b.BufferSize() {
						t.Fatalf("buffer is %d bytes, want %d", len(buf), b.BufferSize())
					}

					back, err := b.Unmarshal(buf)
					if err != nil {
						t.Fatalf("Unmarshal failed: %v", err)
					}
					if back.Cmp(v) != 0 {
						t.Errorf("round trip changed value: sent %s, got %s",
							v.Text(60), back.Text(60))
					}
				})
			}
		})
	}
}

func TestBufferSizeIndependentOfValue(t *testing.T) {
	t.Parallel()
	for _, b := range testBackends() {
		t.Run(b.Name(), func(t *testing.T) {
			want := b.BufferSize()
			for name, v := range codecSamples(b) {
				buf, err := b.Marshal(v)
				if err != nil {
					t.Fatalf("%s: Marshal failed: %v", name, err)
				}
				if len(buf) != want {
					t.Errorf("%s: buffer is %d bytes, want %d", name, len(buf), want)
				}
			}
		})
	}
}

func TestUnmarshalRejectsWrongSize(t *testing.T) {
	t.Parallel()
	for _, b := range testBackends() {
		t.Run(b.Name(), func(t *testing.T) {
			if _, err := b.Unmarshal(make([]byte, 3)); err == nil {
				t.Error("Unmarshal should reject a short buffer")
			}
			if _, err := b.Unmarshal(make([]byte, b.BufferSize()+1)); err == nil {
				t.Error("Unmarshal should reject an oversized buffer")
			}
		})
	}
}

func TestAddBuffers(t *testing.T) {
	t.Parallel()
	for _, b := range testBackends() {
		t.Run(b.Name(), func(t *testing.T) {
			// Binary- and decimal-exact inputs so every fold order is exact.
			mk := func(num, den int64) []byte {
				buf, err := b.Marshal(b.New().SetRatio(big.NewInt(num), big.NewInt(den)))
				if err != nil {
					t.Fatalf("Marshal failed: %v", err)
				}
				return buf
			}
			a, x, y := mk(3, 2), mk(9, 4), mk(25, 8)

			ax, err := AddBuffers(b, a, x)
			if err != nil {
				t.Fatalf("AddBuffers failed: %v", err)
			}
			left, err := AddBuffers(b, ax, y)
			if err != nil {
				t.Fatalf("AddBuffers failed: %v", err)
			}

			xy, err := AddBuffers(b, x, y)
			if err != nil {
				t.Fatalf("AddBuffers failed: %v", err)
			}
			right, err := AddBuffers(b, a, xy)
			if err != nil {
				t.Fatalf("AddBuffers failed: %v", err)
			}

			vl, err := b.Unmarshal(left)
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			vr, err := b.Unmarshal(right)
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if vl.Cmp(vr) != 0 {
				t.Errorf("fold order changed the sum: %s vs %s", vl.Text(20), vr.Text(20))
			}

			want := b.New().SetRatio(big.NewInt(55), big.NewInt(8))
			if vl.Cmp(want) != 0 {
				t.Errorf("3/2+9/4+25/8 = %s, want %s", vl.Text(20), want.Text(20))
			}
		})
	}
}
