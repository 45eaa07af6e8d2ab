package event

import "math/big"

// Frac is an exact fraction of a whole note. The zero value is zero.
// Values are immutable; every operation returns a new Frac.
type Frac struct {
	r *big.Rat
}

// NewFrac returns num/den
func NewFrac(num, den int64) Frac {
	return Frac{r: big.NewRat(num, den)}
}

// FracOf returns the exact value of a float. Durations written as binary
// fractions (0.25, 0.375) convert without loss.
func FracOf(f float64) Frac {
	r := new(big.Rat)
	if f == 0 || r.SetFloat64(f) == nil {
		return Frac{}
	}
	return Frac{r: r}
}

func (f Frac) rat() *big.Rat {
	if f.r == nil {
		return new(big.Rat)
	}
	return f.r
}

// Float returns the nearest float64
func (f Frac) Float() float64 {
	v, _ := f.rat().Float64()
	return v
}

// Add returns f+g
func (f Frac) Add(g Frac) Frac {
	return Frac{r: new(big.Rat).Add(f.rat(), g.rat())}
}

// Sub returns f-g
func (f Frac) Sub(g Frac) Frac {
	return Frac{r: new(big.Rat).Sub(f.rat(), g.rat())}
}

// Mul returns f*g
func (f Frac) Mul(g Frac) Frac {
	return Frac{r: new(big.Rat).Mul(f.rat(), g.rat())}
}

// Div returns f split into k equal parts
func (f Frac) Div(k int) Frac {
	return Frac{r: new(big.Rat).Quo(f.rat(), big.NewRat(int64(k), 1))}
}

// Cmp compares f and g like big.Rat.Cmp
func (f Frac) Cmp(g Frac) int {
	return f.rat().Cmp(g.rat())
}

// Equal reports whether f and g are the same value
func (f Frac) Equal(g Frac) bool {
	return f.Cmp(g) == 0
}

// Sign returns -1, 0 or +1
func (f Frac) Sign() int {
	return f.rat().Sign()
}

// String formats the fraction as "a/b", or "a" for whole values
func (f Frac) String() string {
	return f.rat().RatString()
}
