// Package rational provides exact p/q arithmetic for musical time.
//
// Symi positions (beats, bar ticks, durations) must stay exact until the
// very last step, where cumulative beats are converted to seconds through
// a piecewise-constant BPM schedule. Floating point beats drift audibly
// over long pieces with odd time signatures, so every stage before the
// time resolver's final seconds conversion passes Rational values around
// instead of float64.
package rational

import (
	"fmt"
	"math/big"
)

// Rational is an exact p/q value, q>0, always kept in lowest terms.
type Rational struct {
	r *big.Rat
}

// Zero is the additive identity, 0/1.
func Zero() Rational {
	return Rational{r: new(big.Rat)}
}

// New builds a normalized Rational from a numerator and denominator.
// Denom must be non-zero; a zero denominator produces Zero() since
// callers in this package always guard against it before constructing
// literals from source text.
func New(num, denom int64) Rational {
	if denom == 0 {
		return Zero()
	}
	return Rational{r: big.NewRat(num, denom)}
}

// FromInt wraps a whole number as num/1.
func FromInt(n int64) Rational {
	return New(n, 1)
}

// Num returns the normalized numerator.
func (a Rational) Num() int64 {
	a.init()
	return a.r.Num().Int64()
}

// Denom returns the normalized (always positive) denominator.
func (a Rational) Denom() int64 {
	a.init()
	return a.r.Denom().Int64()
}

func (a *Rational) init() {
	if a.r == nil {
		a.r = new(big.Rat)
	}
}

// IsZero reports whether the value is exactly 0.
func (a Rational) IsZero() bool {
	a.init()
	return a.r.Sign() == 0
}

// Sign returns -1, 0, or 1.
func (a Rational) Sign() int {
	a.init()
	return a.r.Sign()
}

// Add returns a+b.
func Add(a, b Rational) Rational {
	a.init()
	b.init()
	return Rational{r: new(big.Rat).Add(a.r, b.r)}
}

// Sub returns a-b.
func Sub(a, b Rational) Rational {
	a.init()
	b.init()
	return Rational{r: new(big.Rat).Sub(a.r, b.r)}
}

// Mul returns a*b.
func Mul(a, b Rational) Rational {
	a.init()
	b.init()
	return Rational{r: new(big.Rat).Mul(a.r, b.r)}
}

// Div returns a/b. Dividing by zero returns Zero(); callers that accept
// user-controlled divisors must check IsZero themselves and raise a
// diagnostic rather than relying on this silent fallback.
func Div(a, b Rational) Rational {
	a.init()
	b.init()
	if b.r.Sign() == 0 {
		return Zero()
	}
	return Rational{r: new(big.Rat).Quo(a.r, b.r)}
}

// Neg returns -a.
func Neg(a Rational) Rational {
	a.init()
	return Rational{r: new(big.Rat).Neg(a.r)}
}

// Abs returns |a|.
func Abs(a Rational) Rational {
	a.init()
	return Rational{r: new(big.Rat).Abs(a.r)}
}

// Cmp returns -1, 0, or 1 as a<b, a==b, a>b.
func Cmp(a, b Rational) int {
	a.init()
	b.init()
	return a.r.Cmp(b.r)
}

// Less reports a<b.
func Less(a, b Rational) bool { return Cmp(a, b) < 0 }

// Equal reports a==b.
func Equal(a, b Rational) bool { return Cmp(a, b) == 0 }

// Float64 converts to float64 for the final seconds conversion or for
// display; never use this mid-pipeline to accumulate positions.
func (a Rational) Float64() float64 {
	a.init()
	f, _ := a.r.Float64()
	return f
}

// ReduceTo rescales a to an equivalent fraction with the given
// denominator when that denominator is a multiple of a's reduced
// denominator (used to express a bar-relative tick position against a
// quantize grid). If the target denominator isn't reachable exactly,
// the original value is returned unchanged.
func (a Rational) ReduceTo(denom int64) Rational {
	a.init()
	if denom <= 0 {
		return a
	}
	d := a.Denom()
	if d == 0 || denom%d != 0 {
		return a
	}
	factor := denom / d
	return New(a.Num()*factor, denom)
}

// String renders "num/denom".
func (a Rational) String() string {
	a.init()
	return fmt.Sprintf("%d/%d", a.Num(), a.Denom())
}

// Pair returns (numerator, denominator) for event/tick serialization.
func (a Rational) Pair() (int64, int64) {
	return a.Num(), a.Denom()
}
