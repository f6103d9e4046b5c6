package bignum

import "strings"

// padFrac extends a plain decimal rendering with trailing zeros until it
// carries at least frac digits after the point. Backends whose natural
// rendering stops at the last significant digit use it to honor the Text
// contract; digits past the working precision are not meaningful and the
// decimal check tolerates that.
func padFrac(s string, frac int) string {
	if frac <= 0 {
		return s
	}
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s + "." + strings.Repeat("0", frac)
	}
	if have := len(s) - dot - 1; have < frac {
		return s + strings.Repeat("0", frac-have)
	}
	return s
}
