// Package scale converts between scale degrees and absolute pitch.
//
// A scale is a list of steps in semitones (fractional steps come from Scala
// tunings). Degree 0 sits on the key root; degrees past the last step wrap
// into the next period.
package scale

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
	"golang.org/x/text/cases"
)

// ErrUnknownScale is returned when a name is neither a known scale nor a
// parsable Scala string
var ErrUnknownScale = errors.New("unknown scale")

// ErrUnknownKey is returned for unparsable key names
var ErrUnknownKey = errors.New("unknown key")

// DefaultName is the scale used when none is given
const DefaultName = "major"

var named = map[string][]float64{
	"major":            {2, 2, 1, 2, 2, 2, 1},
	"minor":            {2, 1, 2, 2, 1, 2, 2},
	"ionian":           {2, 2, 1, 2, 2, 2, 1},
	"dorian":           {2, 1, 2, 2, 2, 1, 2},
	"phrygian":         {1, 2, 2, 2, 1, 2, 2},
	"lydian":           {2, 2, 2, 1, 2, 2, 1},
	"mixolydian":       {2, 2, 1, 2, 2, 1, 2},
	"aeolian":          {2, 1, 2, 2, 1, 2, 2},
	"locrian":          {1, 2, 2, 1, 2, 2, 2},
	"harmonic_minor":   {2, 1, 2, 2, 1, 3, 1},
	"melodic_minor":    {2, 1, 2, 2, 2, 2, 1},
	"major_pentatonic": {2, 2, 3, 2, 3},
	"minor_pentatonic": {3, 2, 2, 3, 2},
	"blues":            {3, 2, 1, 1, 3, 2},
	"whole_tone":       {2, 2, 2, 2, 2, 2},
	"chromatic":        {1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
	"diminished":       {2, 1, 2, 1, 2, 1, 2, 1},
	"augmented":        {3, 1, 3, 1, 3, 1},
}

var folder = cases.Fold()

// canonical folds case and separators so "Harmonic Minor" finds harmonic_minor
func canonical(name string) string {
	s := folder.String(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// Names returns the known scale names in sorted order
func Names() []string {
	out := make([]string, 0, len(named))
	for k := range named {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the steps of a named scale or of a Scala pitch list
func Resolve(nameOrScala string) ([]float64, error) {
	if strings.TrimSpace(nameOrScala) == "" {
		nameOrScala = DefaultName
	}
	if steps, ok := named[canonical(nameOrScala)]; ok {
		return append([]float64(nil), steps...), nil
	}
	steps, err := ParseScala(nameOrScala)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownScale, nameOrScala, err)
	}
	return steps, nil
}

// ParseScala reads a whitespace separated Scala pitch list. Values with a
// dot are cents, values with a slash or bare integers are ratios. The last
// value is the period.
func ParseScala(text string) ([]float64, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, errors.New("empty pitch list")
	}
	steps := make([]float64, 0, len(fields))
	prev := 0.0
	for _, f := range fields {
		cents, err := scalaCents(f)
		if err != nil {
			return nil, err
		}
		if cents <= prev {
			return nil, fmt.Errorf("pitch %q does not ascend", f)
		}
		steps = append(steps, (cents-prev)/100)
		prev = cents
	}
	return steps, nil
}

func scalaCents(f string) (float64, error) {
	switch {
	case strings.Contains(f, "."):
		return strconv.ParseFloat(f, 64)
	case strings.Contains(f, "/"):
		num, den, _ := strings.Cut(f, "/")
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("bad ratio %q", f)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("bad ratio %q", f)
		}
		return ratioCents(n / d)
	default:
		n, err := strconv.Atoi(f)
		if err != nil {
			return 0, fmt.Errorf("bad pitch %q", f)
		}
		return ratioCents(float64(n))
	}
}

func ratioCents(r float64) (float64, error) {
	if r <= 0 {
		return 0, fmt.Errorf("ratio %g is not positive", r)
	}
	return 1200 * math.Log2(r), nil
}

var letterOffsets = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

// KeyRoot returns the MIDI note of a key name in the middle octave:
// "C" is 60, "F#" 66, "Bb" 70. A bare MIDI number is accepted as is.
func KeyRoot(name string) (int, error) {
	s := folder.String(strings.TrimSpace(name))
	if s == "" {
		return 60, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("%w %q: outside 0..127", ErrUnknownKey, name)
		}
		return n, nil
	}
	off, ok := letterOffsets[s[0]]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownKey, name)
	}
	for _, c := range s[1:] {
		switch c {
		case '#', 's':
			off++
		case 'b':
			off--
		default:
			return 0, fmt.Errorf("%w %q", ErrUnknownKey, name)
		}
	}
	return 60 + off, nil
}

func floorDiv[T constraints.Integer](a, b T) T {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func period(steps []float64) float64 {
	var p float64
	for _, s := range steps {
		p += s
	}
	return p
}

// PitchFromDegree maps a degree to a MIDI note and a bend in cents
func PitchFromDegree(keyRoot, degree int, steps []float64) (int, float64) {
	if len(steps) == 0 {
		return keyRoot + degree, 0
	}
	n := len(steps)
	oct := floorDiv(degree, n)
	idx := degree - oct*n
	semis := float64(oct) * period(steps)
	for _, s := range steps[:idx] {
		semis += s
	}
	abs := float64(keyRoot) + semis
	note := math.Floor(abs + 1e-9)
	bend := math.Round((abs-note)*100*1e6) / 1e6
	return int(note), bend
}

// DegreeFromNote returns the highest degree whose pitch does not exceed note
func DegreeFromNote(keyRoot, note int, steps []float64) int {
	if len(steps) == 0 {
		return note - keyRoot
	}
	p := period(steps)
	oct := int(math.Floor(float64(note-keyRoot) / p))
	degree := oct * len(steps)
	pos := float64(oct) * p
	for _, s := range steps {
		if float64(keyRoot)+pos+s > float64(note)+1e-9 {
			break
		}
		pos += s
		degree++
	}
	return degree
}

// Octave returns the octave a degree falls into relative to degree 0
func Octave(degree int, steps []float64) int {
	if len(steps) == 0 {
		return floorDiv(degree, 12)
	}
	return floorDiv(degree, len(steps))
}

// Freq converts a MIDI note plus bend to Hz (A4 = 440)
func Freq(note int, bend float64) float64 {
	return 440 * math.Pow(2, (float64(note)+bend/100-69)/12)
}
