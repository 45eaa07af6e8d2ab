package tonnetz

import (
	"fmt"
	"slices"
	"strings"
)

// MaxCycleSteps bounds cycle generation for spaces without a closed orbit
const MaxCycleSteps = 24

// CycleKind names a closed chord cycle
type CycleKind string

const (
	Hexatonic CycleKind = "hexatonic"
	Octatonic CycleKind = "octatonic"
	Ennea     CycleKind = "ennea"
)

// Step schedules, applied round-robin from the seed.
// The ennea cycle cannot alternate two involutions (such an orbit always has
// even length), so its third step is the composite "p23 l12".
var schedules = map[CycleKind][]string{
	Hexatonic: {"p", "l"},
	Octatonic: {"p", "r"},
	Ennea:     {"p12", "p23", "p23 l12"},
}

// ParseCycleKind accepts the long and short cycle names
func ParseCycleKind(s string) (CycleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hexatonic", "hexa":
		return Hexatonic, nil
	case "octatonic", "octa":
		return Octatonic, nil
	case "ennea", "enneatonic":
		return Ennea, nil
	}
	return "", newError(CodeInvalidOperator, fmt.Sprintf("unknown cycle kind %q", s), "", nil)
}

// Seed returns the first chord of a cycle: a major triad, or a dominant
// seventh for the ennea cycle
func Seed(root int, kind CycleKind, space Space) []int {
	r := PitchClass(root)
	seed := []int{r, mod(r+space.Major, 12), mod(r+space.Fifth(), 12)}
	if kind == Ennea {
		seed = append(seed, mod(r+space.Fifth()+space.Minor, 12))
	}
	return seed
}

// Cycle generates the closed orbit of chords starting at root. The seed
// comes first and the closing repeat is excluded.
func Cycle(root int, kind CycleKind, space Space) ([][]int, error) {
	sched, ok := schedules[kind]
	if !ok {
		return nil, newError(CodeInvalidOperator, fmt.Sprintf("unknown cycle kind %q", kind), "", nil)
	}
	steps := make([][]Op, len(sched))
	for i, s := range sched {
		ops, err := ParseOps(s)
		if err != nil {
			return nil, err
		}
		steps[i] = ops
	}

	seed := Seed(root, kind, space)
	chords := [][]int{seed}
	cur := seed
	for i := range MaxCycleSteps {
		next, err := Apply(cur, steps[i%len(steps)], space)
		if err != nil {
			return nil, err
		}
		if slices.Equal(next, seed) {
			return chords, nil
		}
		chords = append(chords, next)
		cur = next
	}
	return nil, newError(CodeCycleDidNotClose,
		fmt.Sprintf("%s cycle did not close within %d steps in %v", kind, MaxCycleSteps, space), "", seed)
}
