// Package event defines the events a sequence is made of
package event

import "slices"

// Kind tags the concrete event type
type Kind int

const (
	KindPitch Kind = iota
	KindChord
	KindRest
	KindSound
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindPitch:
		return "pitch"
	case KindChord:
		return "chord"
	case KindRest:
		return "rest"
	case KindSound:
		return "sound"
	case KindGroup:
		return "group"
	}
	return "unknown"
}

// Field names a value that can be collected from an event
type Field string

const (
	FieldPitch    Field = "pitch"
	FieldNote     Field = "note"
	FieldFreq     Field = "freq"
	FieldDuration Field = "duration"
	FieldOctave   Field = "octave"
	FieldBend     Field = "bend"
)

// Event is one item of a sequence
type Event interface {
	Kind() Kind
	// Duration is the float view of Length
	Duration() float64
	Length() Frac
	SetLength(d Frac)
	// Collect returns the values of a field: one per sounding tone, the
	// duration alone for FieldDuration, nothing for fields the event lacks.
	Collect(f Field) []float64
	Clone() Event
}

// Pitch is a single note
type Pitch struct {
	Degree int     // scale degree
	Octave int     // octave relative to the key root
	Note   int     // MIDI note
	Bend   float64 // cents
	Freq   float64 // Hz
	Dur    Frac    // fraction of a whole note
}

func (p *Pitch) Kind() Kind        { return KindPitch }
func (p *Pitch) Duration() float64 { return p.Dur.Float() }
func (p *Pitch) Length() Frac      { return p.Dur }
func (p *Pitch) SetLength(d Frac)  { p.Dur = d }

func (p *Pitch) Clone() Event {
	c := *p
	return &c
}

func (p *Pitch) Collect(f Field) []float64 {
	if f == FieldDuration {
		return []float64{p.Dur.Float()}
	}
	return []float64{p.value(f)}
}

func (p *Pitch) value(f Field) float64 {
	switch f {
	case FieldPitch:
		return float64(p.Degree)
	case FieldNote:
		return float64(p.Note)
	case FieldFreq:
		return p.Freq
	case FieldOctave:
		return float64(p.Octave)
	case FieldBend:
		return p.Bend
	}
	return 0
}

// Chord is a set of simultaneous pitches sharing one duration
type Chord struct {
	Pitches []Pitch
	Dur     Frac
}

func (c *Chord) Kind() Kind        { return KindChord }
func (c *Chord) Duration() float64 { return c.Dur.Float() }
func (c *Chord) Length() Frac      { return c.Dur }
func (c *Chord) SetLength(d Frac)  { c.Dur = d }

func (c *Chord) Clone() Event {
	return &Chord{Pitches: slices.Clone(c.Pitches), Dur: c.Dur}
}

func (c *Chord) Collect(f Field) []float64 {
	if f == FieldDuration {
		return []float64{c.Dur.Float()}
	}
	out := make([]float64, len(c.Pitches))
	for i := range c.Pitches {
		out[i] = c.Pitches[i].value(f)
	}
	return out
}

// Notes returns the MIDI notes of the chord
func (c *Chord) Notes() []int {
	out := make([]int, len(c.Pitches))
	for i, p := range c.Pitches {
		out[i] = p.Note
	}
	return out
}

// PitchClasses returns the chord's notes reduced into [0,12)
func (c *Chord) PitchClasses() []int {
	out := c.Notes()
	for i, n := range out {
		out[i] = ((n % 12) + 12) % 12
	}
	return out
}

// Rest is silence
type Rest struct {
	Dur Frac
}

func (r *Rest) Kind() Kind        { return KindRest }
func (r *Rest) Duration() float64 { return r.Dur.Float() }
func (r *Rest) Length() Frac      { return r.Dur }
func (r *Rest) SetLength(d Frac)  { r.Dur = d }
func (r *Rest) Clone() Event {
	c := *r
	return &c
}

func (r *Rest) Collect(f Field) []float64 {
	if f == FieldDuration {
		return []float64{r.Dur.Float()}
	}
	return nil
}

// Sound is a named sample trigger such as "bd" or "hh"
type Sound struct {
	Name string
	Dur  Frac
}

func (s *Sound) Kind() Kind        { return KindSound }
func (s *Sound) Duration() float64 { return s.Dur.Float() }
func (s *Sound) Length() Frac      { return s.Dur }
func (s *Sound) SetLength(d Frac)  { s.Dur = d }
func (s *Sound) Clone() Event {
	c := *s
	return &c
}

func (s *Sound) Collect(f Field) []float64 {
	if f == FieldDuration {
		return []float64{s.Dur.Float()}
	}
	return nil
}

// Group holds the children of one subdivided time slot. Groups only exist
// between evaluation and subdivision resolution.
type Group struct {
	Children []Event
	Dur      Frac
}

func (g *Group) Kind() Kind        { return KindGroup }
func (g *Group) Duration() float64 { return g.Dur.Float() }
func (g *Group) Length() Frac      { return g.Dur }
func (g *Group) SetLength(d Frac)  { g.Dur = d }

func (g *Group) Clone() Event {
	return &Group{Children: CloneAll(g.Children), Dur: g.Dur}
}

func (g *Group) Collect(f Field) []float64 {
	if f == FieldDuration {
		return []float64{g.Dur.Float()}
	}
	return nil
}

// CloneAll deep-copies a list of events
func CloneAll(events []Event) []Event {
	if events == nil {
		return nil
	}
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out
}

// TotalLength sums event durations exactly
func TotalLength(events []Event) Frac {
	var d Frac
	for _, e := range events {
		d = d.Add(e.Length())
	}
	return d
}

// TotalDuration is TotalLength as a float
func TotalDuration(events []Event) float64 {
	return TotalLength(events).Float()
}
