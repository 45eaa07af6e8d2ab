package sequence

import (
	"fmt"
	"slices"

	"github.com/james-see/tonseq/pkg/chord"
	"github.com/james-see/tonseq/pkg/event"
	"github.com/james-see/tonseq/pkg/tonnetz"
)

// octaveOf returns the octave offset from middle C of a MIDI note
func octaveOf(note int) int {
	o := note / 12
	if note < 0 && note%12 != 0 {
		o--
	}
	return o - 5
}

func lowest(c *event.Chord) int {
	return slices.Min(c.Notes())
}

func (e *Engine) realize(pcs []int, octave int, dur event.Frac) (*event.Chord, error) {
	c, err := e.builder.FromPitchClasses(pcs, e.opts.Key, e.opts.Scale, octave)
	if err != nil {
		return nil, err
	}
	c.Dur = dur
	return c, nil
}

// Tonnetz transforms every triad and tetrad the operators can address
func (e *Engine) Tonnetz(ops string, space tonnetz.Space) *Engine {
	return e.tonnetz("tonnetz", ops, space, 3, 4)
}

// TriadTonnetz transforms every three-note chord
func (e *Engine) TriadTonnetz(ops string, space tonnetz.Space) *Engine {
	return e.tonnetz("triadTonnetz", ops, space, 3)
}

// TetraTonnetz transforms every four-note chord
func (e *Engine) TetraTonnetz(ops string, space tonnetz.Space) *Engine {
	return e.tonnetz("tetraTonnetz", ops, space, 4)
}

func (e *Engine) tonnetz(name, ops string, space tonnetz.Space, sizes ...int) *Engine {
	parsed, err := tonnetz.ParseOps(ops)
	if err == nil {
		err = space.Validate()
	}
	if err != nil {
		return e.reject(name, err)
	}

	return e.transform(name, func(e *Engine, events []event.Event) ([]event.Event, error) {
		out := slices.Clone(events)
		for i, ev := range out {
			c, ok := ev.(*event.Chord)
			if !ok || !slices.Contains(sizes, len(c.Pitches)) || !tonnetz.Addresses(parsed, len(c.Pitches)) {
				continue
			}
			pcs := tonnetz.Normalize(c.Notes(), space)
			res, err := tonnetz.Apply(pcs, parsed, space)
			if err != nil {
				e.logger.Debug("chord passed through", "op", name, "ops", ops, "notes", c.Notes(), "error", err)
				continue
			}
			realized, err := e.realize(res, octaveOf(lowest(c)), c.Dur)
			if err != nil {
				return nil, err
			}
			out[i] = realized
		}
		return out, nil
	})
}

// chordIntervals resolves a chord type, building major, minor and dominant
// seventh chords from the Tonnetz space
func chordIntervals(chordType string, space tonnetz.Space) ([]int, error) {
	switch chordType {
	case "M", "major":
		return []int{0, space.Major, space.Fifth()}, nil
	case "m", "minor":
		return []int{0, space.Minor, space.Fifth()}, nil
	case "7", "dom7":
		return []int{0, space.Major, space.Fifth(), space.Fifth() + space.Minor}, nil
	}
	iv, ok := chord.Intervals(chordType)
	if !ok {
		return nil, fmt.Errorf("unknown chord type %q", chordType)
	}
	return iv, nil
}

// TonnetzChords replaces every pitch with a chord of the given type rooted
// on it
func (e *Engine) TonnetzChords(chordType string, space tonnetz.Space) *Engine {
	const name = "tonnetzChords"
	if err := space.Validate(); err != nil {
		return e.reject(name, err)
	}
	iv, err := chordIntervals(chordType, space)
	if err != nil {
		return e.reject(name, err)
	}

	return e.transform(name, func(e *Engine, events []event.Event) ([]event.Event, error) {
		out := slices.Clone(events)
		for i, ev := range out {
			p, ok := ev.(*event.Pitch)
			if !ok {
				continue
			}
			pcs := make([]int, len(iv))
			for j, v := range iv {
				pcs[j] = tonnetz.PitchClass(p.Note + v)
			}
			c, err := e.realize(pcs, octaveOf(p.Note), p.Dur)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	})
}

// HexaCycle replaces every pitch with the hexatonic cycle rooted on it
func (e *Engine) HexaCycle(space tonnetz.Space) *Engine {
	return e.cycle("hexaCycle", tonnetz.Hexatonic, space)
}

// OctaCycle replaces every pitch with the octatonic cycle rooted on it
func (e *Engine) OctaCycle(space tonnetz.Space) *Engine {
	return e.cycle("octaCycle", tonnetz.Octatonic, space)
}

// EnneaCycle replaces every pitch with the nine seventh chords of the
// ennea cycle rooted on it
func (e *Engine) EnneaCycle(space tonnetz.Space) *Engine {
	return e.cycle("enneaCycle", tonnetz.Ennea, space)
}

func (e *Engine) cycle(name string, kind tonnetz.CycleKind, space tonnetz.Space) *Engine {
	// orbits are transposition invariant, so one root decides closure
	if _, err := tonnetz.Cycle(0, kind, space); err != nil {
		return e.reject(name, err)
	}

	return e.transform(name, func(e *Engine, events []event.Event) ([]event.Event, error) {
		out := make([]event.Event, 0, len(events))
		for _, ev := range events {
			p, ok := ev.(*event.Pitch)
			if !ok {
				out = append(out, ev)
				continue
			}
			chords, err := tonnetz.Cycle(p.Note, kind, space)
			if err != nil {
				return nil, err
			}
			for _, pcs := range chords {
				c, err := e.realize(pcs, octaveOf(p.Note), p.Dur)
				if err != nil {
					return nil, err
				}
				out = append(out, c)
			}
		}
		return out, nil
	})
}
