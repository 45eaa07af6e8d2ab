// Package tonnetz implements a parameterized neo-Riemannian operator algebra
// over pitch-class chords, plus generation of closed chord cycles.
//
// All functions are pure. Chords are plain []int pitch-class tuples and are
// never mutated in place.
package tonnetz

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Space holds the semitone steps of a Tonnetz lattice
type Space struct {
	Minor  int // minor-third step (m)
	Major  int // major-third step (M)
	Fourth int // fourth step (f); its complement is the fifth
}

// DefaultSpace reproduces common-practice triads
var DefaultSpace = Space{Minor: 3, Major: 4, Fourth: 5}

// Fifth returns the perfect-fifth step P = 12 - f
func (s Space) Fifth() int {
	return 12 - s.Fourth
}

// Third returns the third interval for a quality
func (s Space) Third(q Quality) int {
	if q == Major {
		return s.Major
	}
	return s.Minor
}

// Validate checks that the steps describe a usable lattice
func (s Space) Validate() error {
	for _, v := range []int{s.Minor, s.Major, s.Fourth} {
		if v < 1 || v > 11 {
			return newError(CodeInvalidSpace, fmt.Sprintf("step %d outside 1..11 in %v", v, s), "", nil)
		}
	}
	if s.Minor == s.Major {
		return newError(CodeInvalidSpace, fmt.Sprintf("minor and major steps are both %d", s.Minor), "", nil)
	}
	return nil
}

func (s Space) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s.Minor, s.Major, s.Fourth)
}

// Quality is the major/minor character of a chord
type Quality int

const (
	Major Quality = iota
	Minor
)

func (q Quality) String() string {
	if q == Major {
		return "major"
	}
	return "minor"
}

func (q Quality) flip() Quality {
	if q == Major {
		return Minor
	}
	return Major
}

// PitchClass normalizes n into [0,12)
func PitchClass[T constraints.Integer](n T) T {
	return mod(n, 12)
}

func mod[T constraints.Integer](n, m T) T {
	r := n % m
	if r < 0 {
		r += m
	}
	return r
}

// Normalized returns a copy of chord with every tone reduced into [0,12)
func Normalized(chord []int) []int {
	out := make([]int, len(chord))
	for i, n := range chord {
		out[i] = PitchClass(n)
	}
	return out
}

// qualityOfInterval classifies the distance between two tones
func qualityOfInterval(from, to int, space Space) (Quality, bool) {
	switch mod(to-from, 12) {
	case mod(space.Major, 12):
		return Major, true
	case mod(space.Minor, 12):
		return Minor, true
	}
	return Major, false
}

// QualityOf derives the quality of a chord from its first two tones
func QualityOf(chord []int, space Space) (Quality, error) {
	if len(chord) < 2 {
		return Major, newError(CodeInvalidChord, "chord needs at least two tones", "", chord)
	}
	q, ok := qualityOfInterval(chord[0], chord[1], space)
	if !ok {
		return Major, newError(CodeInvalidChord,
			fmt.Sprintf("interval %d is neither a major nor a minor third in %v", mod(chord[1]-chord[0], 12), space), "", chord)
	}
	return q, nil
}

// Normalize rotates a voiced chord into analytic root position: a rotation
// whose second tone is a third and third tone a fifth above the first.
// The chord is returned reduced but unrotated when no such rotation exists.
func Normalize(chord []int, space Space) []int {
	pcs := Normalized(chord)
	if len(pcs) < 3 {
		return pcs
	}
	for shift := range pcs {
		rot := append(append([]int{}, pcs[shift:]...), pcs[:shift]...)
		if _, ok := qualityOfInterval(rot[0], rot[1], space); !ok {
			continue
		}
		if mod(rot[2]-rot[0], 12) == mod(space.Fifth(), 12) {
			return rot
		}
	}
	return pcs
}
