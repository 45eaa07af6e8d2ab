// Package chord realizes pitch-class chords into octave-placed notes
package chord

import (
	"fmt"
	"slices"
	"sort"

	"github.com/james-see/tonseq/pkg/event"
	"github.com/james-see/tonseq/pkg/scale"
)

// intervals of the named chord types, in semitones above the root
var types = map[string][]int{
	"major": {0, 4, 7},
	"minor": {0, 3, 7},
	"dim":   {0, 3, 6},
	"aug":   {0, 4, 8},
	"sus2":  {0, 2, 7},
	"sus4":  {0, 5, 7},
	"7":     {0, 4, 7, 10},
	"maj7":  {0, 4, 7, 11},
	"m7":    {0, 3, 7, 10},
	"m7b5":  {0, 3, 6, 10},
	"dim7":  {0, 3, 6, 9},
	"mmaj7": {0, 3, 7, 11},
	"6":     {0, 4, 7, 9},
	"m6":    {0, 3, 7, 9},
	"9":     {0, 4, 7, 10, 14},
	"add9":  {0, 4, 7, 14},
}

var aliases = map[string]string{
	"M": "major", "maj": "major", "m": "minor", "min": "minor",
	"dom7": "7", "M7": "maj7", "min7": "m7", "ø": "m7b5", "o": "dim", "o7": "dim7", "+": "aug",
}

// Intervals returns the semitone offsets of a named chord type
func Intervals(name string) ([]int, bool) {
	if a, ok := aliases[name]; ok {
		name = a
	}
	iv, ok := types[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(iv), true
}

// Types returns the known chord type names
func Types() []string {
	out := make([]string, 0, len(types))
	for k := range types {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Builder realizes pitch classes as notes in a key
type Builder struct{}

// NewBuilder creates a chord builder
func NewBuilder() *Builder {
	return &Builder{}
}

// FromPitchClasses places the first pitch class in the given octave (0 is
// the octave starting at middle C) and stacks every following one at the
// nearest note above its predecessor.
func (b *Builder) FromPitchClasses(pcs []int, key, scaleName string, octave int) (*event.Chord, error) {
	if len(pcs) == 0 {
		return nil, fmt.Errorf("no pitch classes to realize")
	}
	notes := make([]int, len(pcs))
	notes[0] = 12*(octave+5) + ((pcs[0]%12)+12)%12
	for i := 1; i < len(pcs); i++ {
		n := notes[i-1] + 1
		for ((n%12)+12)%12 != ((pcs[i]%12)+12)%12 {
			n++
		}
		notes[i] = n
	}
	return b.FromNotes(notes, key, scaleName)
}

// FromNotes wraps already placed MIDI notes as a chord, filling in degree,
// octave and frequency from the key and scale
func (b *Builder) FromNotes(notes []int, key, scaleName string) (*event.Chord, error) {
	root, err := scale.KeyRoot(key)
	if err != nil {
		return nil, err
	}
	steps, err := scale.Resolve(scaleName)
	if err != nil {
		return nil, err
	}
	c := &event.Chord{Pitches: make([]event.Pitch, len(notes))}
	for i, n := range notes {
		c.Pitches[i] = PitchOf(n, root, steps)
	}
	return c, nil
}

// PitchOf describes a MIDI note relative to a key root and scale steps
func PitchOf(note, keyRoot int, steps []float64) event.Pitch {
	degree := scale.DegreeFromNote(keyRoot, note, steps)
	return event.Pitch{
		Degree: degree,
		Octave: scale.Octave(degree, steps),
		Note:   note,
		Freq:   scale.Freq(note, 0),
	}
}

// Invert moves the lowest pitch up an octave n times, or the highest pitch
// down an octave for negative n. perOctave is the number of scale degrees in
// one octave. The result is sorted by note.
func Invert(ps []event.Pitch, n, perOctave int) []event.Pitch {
	out := slices.Clone(ps)
	if len(out) == 0 {
		return out
	}
	byNote := func(a, b event.Pitch) int { return a.Note - b.Note }
	slices.SortStableFunc(out, byNote)
	for ; n > 0; n-- {
		out[0] = shift(out[0], 1, perOctave)
		slices.SortStableFunc(out, byNote)
	}
	for ; n < 0; n++ {
		last := len(out) - 1
		out[last] = shift(out[last], -1, perOctave)
		slices.SortStableFunc(out, byNote)
	}
	return out
}

func shift(p event.Pitch, octaves, perOctave int) event.Pitch {
	p.Note += 12 * octaves
	p.Octave += octaves
	p.Degree += perOctave * octaves
	p.Freq = scale.Freq(p.Note, p.Bend)
	return p
}
