package sequence

import (
	"strconv"
	"strings"
)

// Generator is an external numeral stream. Pull returns false once the
// stream is exhausted.
type Generator interface {
	Pull() (int, bool)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func() (int, bool)

// Pull calls f
func (f GeneratorFunc) Pull() (int, bool) {
	return f()
}

type sliceGenerator struct {
	values []int
	pos    int
}

func (g *sliceGenerator) Pull() (int, bool) {
	if g.pos >= len(g.values) {
		return 0, false
	}
	v := g.values[g.pos]
	g.pos++
	return v, true
}

// FromSlice yields the given numerals once each
func FromSlice(values ...int) Generator {
	return &sliceGenerator{values: append([]int(nil), values...)}
}

// DigitRewriter spells a numeral as space separated degrees: 312 becomes
// "3 1 2" and -21 becomes "-2 -1". A "{}" in the text is replaced by the
// degrees, otherwise the degrees replace the whole text.
func DigitRewriter(text string, n int) string {
	digits := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign = "-"
		digits = digits[1:]
	}
	parts := make([]string, len(digits))
	for i, d := range digits {
		parts[i] = sign + string(d)
	}
	spelled := strings.Join(parts, " ")
	if strings.Contains(text, "{}") {
		return strings.ReplaceAll(text, "{}", spelled)
	}
	return spelled
}
