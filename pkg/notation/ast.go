// Package notation parses the pattern language into an AST and evaluates
// it into events.
//
// Items are separated by whitespace:
//
//	0 1 -2      scale degrees
//	024         a chord (a run of degrees)
//	^0 _1       octave up / down (repeatable)
//	q0 e 1 2    durations w h q e s t, sticky; "q." is dotted
//	r qr        rests
//	[0 1 [2 3]] subdivision of one slot
//	ii v7       roman numeral triads and sevenths
//	bd hh       sound names
package notation

import (
	"fmt"

	"github.com/james-see/tonseq/pkg/chord"
	"github.com/james-see/tonseq/pkg/event"
	"github.com/james-see/tonseq/pkg/scale"
)

// DefaultDuration is a quarter note
const DefaultDuration = 0.25

// Options control parsing and evaluation
type Options struct {
	Key       string
	Scale     string
	Octave    int
	Duration  float64
	Inversion int
}

// AST is a parsed pattern. It is never modified after parsing.
type AST struct {
	Text  string
	Nodes []Node
}

// Node is one parsed item
type Node interface {
	// Eval returns the events of the node, or nil when it produces none
	Eval(ctx *Context) []event.Event
}

// Context carries resolved evaluation parameters
type Context struct {
	Key       string
	Scale     string
	KeyRoot   int
	Steps     []float64
	Octave    int
	Inversion int
}

// NewContext resolves key and scale names
func NewContext(opts Options) (*Context, error) {
	root, err := scale.KeyRoot(opts.Key)
	if err != nil {
		return nil, err
	}
	steps, err := scale.Resolve(opts.Scale)
	if err != nil {
		return nil, err
	}
	return &Context{
		Key:       opts.Key,
		Scale:     opts.Scale,
		KeyRoot:   root,
		Steps:     steps,
		Octave:    opts.Octave,
		Inversion: opts.Inversion,
	}, nil
}

// Evaluate flattens the AST into events
func (a *AST) Evaluate(opts Options) ([]event.Event, error) {
	ctx, err := NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", a.Text, err)
	}
	return evalAll(a.Nodes, ctx), nil
}

func evalAll(nodes []Node, ctx *Context) []event.Event {
	var out []event.Event
	for _, n := range nodes {
		out = append(out, n.Eval(ctx)...)
	}
	return out
}

func (ctx *Context) pitch(degree, octave int, dur float64) event.Pitch {
	note, bend := scale.PitchFromDegree(ctx.KeyRoot+12*(ctx.Octave+octave), degree, ctx.Steps)
	return event.Pitch{
		Degree: degree,
		Octave: ctx.Octave + octave + scale.Octave(degree, ctx.Steps),
		Note:   note,
		Bend:   bend,
		Freq:   scale.Freq(note, bend),
		Dur:    event.FracOf(dur),
	}
}

func (ctx *Context) chord(degrees []int, octave int, dur float64) *event.Chord {
	ps := make([]event.Pitch, len(degrees))
	for i, d := range degrees {
		ps[i] = ctx.pitch(d, octave, 0)
	}
	return ctx.voiced(ps, dur)
}

func (ctx *Context) voiced(ps []event.Pitch, dur float64) *event.Chord {
	if ctx.Inversion != 0 {
		ps = chord.Invert(ps, ctx.Inversion, len(ctx.Steps))
	}
	return &event.Chord{Pitches: ps, Dur: event.FracOf(dur)}
}

// Degree is a single scale degree
type Degree struct {
	Value  int
	Octave int
	Dur    float64
}

func (n *Degree) Eval(ctx *Context) []event.Event {
	p := ctx.pitch(n.Value, n.Octave, n.Dur)
	return []event.Event{&p}
}

// Chord is a run of degrees sounding together
type Chord struct {
	Degrees []int
	Octave  int
	Dur     float64
}

func (n *Chord) Eval(ctx *Context) []event.Event {
	return []event.Event{ctx.chord(n.Degrees, n.Octave, n.Dur)}
}

// Roman is a diatonic triad on a degree. The seventh form stacks a minor
// seventh over the root, so i7 is a dominant seventh in a major key.
type Roman struct {
	Degree  int
	Seventh bool
	Octave  int
	Dur     float64
}

func (n *Roman) Eval(ctx *Context) []event.Event {
	degrees := []int{n.Degree, n.Degree + 2, n.Degree + 4}
	if !n.Seventh {
		return []event.Event{ctx.chord(degrees, n.Octave, n.Dur)}
	}
	ps := make([]event.Pitch, 0, 4)
	for _, d := range degrees {
		ps = append(ps, ctx.pitch(d, n.Octave, 0))
	}
	seventh := ctx.pitch(n.Degree+6, n.Octave, 0)
	seventh.Note = ps[0].Note + 10
	seventh.Bend = ps[0].Bend
	seventh.Freq = scale.Freq(seventh.Note, seventh.Bend)
	return []event.Event{ctx.voiced(append(ps, seventh), n.Dur)}
}

// Rest is silence
type Rest struct {
	Dur float64
}

func (n *Rest) Eval(*Context) []event.Event {
	return []event.Event{&event.Rest{Dur: event.FracOf(n.Dur)}}
}

// Sound is a named sample
type Sound struct {
	Name string
	Dur  float64
}

func (n *Sound) Eval(*Context) []event.Event {
	return []event.Event{&event.Sound{Name: n.Name, Dur: event.FracOf(n.Dur)}}
}

// DurationMark changes the running duration and produces no event
type DurationMark struct {
	Dur float64
}

func (n *DurationMark) Eval(*Context) []event.Event {
	return nil
}

// Subdivision splits one slot among its children
type Subdivision struct {
	Children []Node
	Dur      float64
}

func (n *Subdivision) Eval(ctx *Context) []event.Event {
	children := evalAll(n.Children, ctx)
	if len(children) == 0 {
		return []event.Event{&event.Rest{Dur: event.FracOf(n.Dur)}}
	}
	return []event.Event{&event.Group{Children: children, Dur: event.FracOf(n.Dur)}}
}
