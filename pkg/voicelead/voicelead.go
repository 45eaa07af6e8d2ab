// Package voicelead revoices chords to minimize melodic movement
package voicelead

import "slices"

// maxPermute bounds the exhaustive search; larger chords fall back to a
// nearest-note placement per tone
const maxPermute = 6

// Leader finds the voicing of a target chord closest to a source chord
type Leader struct{}

// New creates a voice leader
func New() *Leader {
	return &Leader{}
}

// Lead returns the notes of to, moved by octaves so the total movement from
// the notes of from is as small as possible. Pitch classes are preserved and
// the result is sorted ascending.
func (l *Leader) Lead(from, to []int) []int {
	if len(from) == 0 || len(to) == 0 {
		return slices.Clone(to)
	}
	src := slices.Clone(from)
	slices.Sort(src)

	var out []int
	if len(src) == len(to) && len(to) <= maxPermute {
		out = bestAssignment(src, to)
	} else {
		out = make([]int, len(to))
		for i, n := range to {
			out[i] = nearestAny(src, n)
		}
	}
	slices.Sort(out)
	return out
}

// place moves note by octaves to the position nearest target; a tritone
// resolves upward
func place(target, note int) (int, int) {
	d := ((note-target)%12 + 12) % 12
	if d > 6 {
		d -= 12
	}
	return target + d, abs(d)
}

func nearestAny(src []int, note int) int {
	best, bestCost := 0, -1
	for _, s := range src {
		n, c := place(s, note)
		if bestCost < 0 || c < bestCost {
			best, bestCost = n, c
		}
	}
	return best
}

func bestAssignment(src, to []int) []int {
	idx := make([]int, len(to))
	for i := range idx {
		idx[i] = i
	}
	var best []int
	bestCost := -1
	permute(idx, 0, func(p []int) {
		cost := 0
		cand := make([]int, len(p))
		for voice, j := range p {
			n, c := place(src[voice], to[j])
			cand[voice] = n
			cost += c
		}
		if bestCost < 0 || cost < bestCost {
			best, bestCost = cand, cost
		}
	})
	return best
}

func permute(a []int, k int, visit func([]int)) {
	if k == len(a) {
		visit(a)
		return
	}
	for i := k; i < len(a); i++ {
		a[k], a[i] = a[i], a[k]
		permute(a, k+1, visit)
		a[k], a[i] = a[i], a[k]
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
