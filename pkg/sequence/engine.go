// Package sequence evaluates patterns into event sequences, iterates them
// and applies harmonic transformations.
//
// An Engine is mutated in place: every transformation method changes the
// receiver and returns it for chaining. Engines are not safe for concurrent
// use; take a Clone before mutating an engine somebody else holds.
//
// Transformations that cannot start (an unknown operator, a cycle that does
// not close) leave the engine untouched and are reported by Err. A chord a
// transformation cannot handle is passed through unchanged.
package sequence

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/james-see/tonseq/pkg/chord"
	"github.com/james-see/tonseq/pkg/event"
	"github.com/james-see/tonseq/pkg/notation"
	"github.com/james-see/tonseq/pkg/voicelead"
)

// State is the lifecycle stage of an engine
type State int

const (
	StateUnparsed State = iota
	StateParsed
	StateEvaluated
	StateIterating
	StateEmpty
)

func (s State) String() string {
	switch s {
	case StateUnparsed:
		return "unparsed"
	case StateParsed:
		return "parsed"
	case StateEvaluated:
		return "evaluated"
	case StateIterating:
		return "iterating"
	case StateEmpty:
		return "empty"
	}
	return "unknown"
}

// transformation is a standing transformation, reapplied after every
// re-evaluation. apply must not modify the events it is given.
type transformation struct {
	name  string
	apply func(e *Engine, events []event.Event) ([]event.Event, error)
}

// Engine owns a parsed pattern, its materialized events and a cursor
type Engine struct {
	id       uuid.UUID
	template string
	text     string
	opts     Options
	ast      *notation.AST
	events   []event.Event
	state    State
	err      error

	index   int
	counter int

	standing []transformation

	gen          Generator
	genExhausted bool
	rewrite      Rewriter

	parser  Parser
	builder ChordBuilder
	leader  VoiceLeader
	logger  *slog.Logger
}

// New parses and evaluates text. A pattern that fails to parse or evaluate
// is logged and yields an empty engine; Err reports why.
func New(text string, opts Options, options ...Option) *Engine {
	e := &Engine{
		id:       uuid.New(),
		template: text,
		text:     text,
		opts:     opts.withDefaults(),
		index:    -1,
		state:    StateUnparsed,
		rewrite:  DigitRewriter,
		parser:   notation.Parser{},
		builder:  chord.NewBuilder(),
		leader:   voicelead.New(),
		logger:   slog.Default(),
	}
	for _, o := range options {
		o(e)
	}
	e.load()
	return e
}

// Pattern is New with the default collaborators
func Pattern(text string, opts Options) *Engine {
	return New(text, opts)
}

func (e *Engine) load() {
	ast, err := e.parser.Parse(e.text, e.opts.notation())
	if err != nil {
		e.settleEmpty("pattern parse failed", err)
		return
	}
	e.ast = ast
	e.state = StateParsed
	if err := e.evaluate(); err != nil {
		e.settleEmpty("pattern evaluation failed", err)
		return
	}
	e.state = StateEvaluated
}

func (e *Engine) settleEmpty(msg string, err error) {
	e.logger.Error(msg, "pattern", e.text, "error", err)
	e.ast = nil
	e.events = nil
	e.err = err
	e.state = StateEmpty
}

// evaluate rebuilds the events from the AST in a fixed order: evaluation,
// subdivision resolution, the Retrograde option, then standing
// transformations in the order they were first applied. The engine is only
// modified when every step succeeds.
func (e *Engine) evaluate() error {
	events, err := e.ast.Evaluate(e.opts.notation())
	if err != nil {
		return err
	}
	events = Resolve(events)
	if e.opts.Retrograde {
		slices.Reverse(events)
	}
	for _, t := range e.standing {
		events, err = t.apply(e, events)
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
	}
	e.events = events
	return nil
}

// transform applies and records a standing transformation
func (e *Engine) transform(name string, apply func(e *Engine, events []event.Event) ([]event.Event, error)) *Engine {
	if e.state == StateEmpty {
		return e
	}
	events, err := apply(e, e.events)
	if err != nil {
		return e.reject(name, err)
	}
	e.events = events
	e.standing = append(e.standing, transformation{name: name, apply: apply})
	return e
}

func (e *Engine) reject(name string, err error) *Engine {
	e.logger.Warn("transformation rejected", "op", name, "pattern", e.text, "error", err)
	e.err = fmt.Errorf("%s: %w", name, err)
	return e
}

// Next returns the event under the cursor and advances it. After Len*Redo
// calls the cursor wraps; if a generator is attached its next numeral
// rewrites and re-evaluates the pattern. An empty engine returns false and
// does not advance.
func (e *Engine) Next() (event.Event, bool) {
	if len(e.events) == 0 {
		return nil, false
	}
	if e.index < 0 {
		e.index = 0
		e.state = StateIterating
	}
	ev := e.events[e.index%len(e.events)].Clone()
	e.index++
	e.counter++
	if e.opts.Redo > 0 && e.index >= len(e.events)*e.opts.Redo {
		e.index = 0
		e.closeLoop()
	}
	return ev, true
}

func (e *Engine) closeLoop() {
	if e.gen == nil || e.genExhausted {
		return
	}
	n, ok := e.gen.Pull()
	if !ok {
		e.genExhausted = true
		e.logger.Info("numeral generator exhausted, repeating last sequence", "pattern", e.text)
		return
	}
	text := e.rewrite(e.template, n)
	ast, err := e.parser.Parse(text, e.opts.notation())
	if err != nil {
		e.logger.Error("rewritten pattern parse failed", "pattern", text, "numeral", n, "error", err)
		return
	}
	prevAST, prevText := e.ast, e.text
	e.ast, e.text = ast, text
	if err := e.evaluate(); err != nil {
		e.ast, e.text = prevAST, prevText
		e.logger.Error("rewritten pattern evaluation failed", "pattern", text, "numeral", n, "error", err)
	}
}

// ApplyOptions re-evaluates the parsed pattern with changed options and
// reapplies standing transformations. Values equal to the current ones are
// ignored; if nothing changes the events are left as they are.
func (e *Engine) ApplyOptions(o Overlay) *Engine {
	if e.ast == nil {
		return e
	}
	next := e.opts
	if o.Key != nil {
		next.Key = *o.Key
	}
	if o.Scale != nil {
		next.Scale = *o.Scale
	}
	if o.Octave != nil {
		next.Octave = *o.Octave
	}
	if o.Inversion != nil {
		next.Inversion = *o.Inversion
	}
	if next == e.opts {
		return e
	}
	prev := e.opts
	e.opts = next
	if err := e.evaluate(); err != nil {
		e.opts = prev
		return e.reject("options", err)
	}
	return e
}

// Scale re-evaluates in another scale
func (e *Engine) Scale(name string) *Engine {
	return e.ApplyOptions(Overlay{Scale: &name})
}

// Key re-evaluates in another key
func (e *Engine) Key(name string) *Engine {
	return e.ApplyOptions(Overlay{Key: &name})
}

// Octave re-evaluates with another octave offset
func (e *Engine) Octave(n int) *Engine {
	return e.ApplyOptions(Overlay{Octave: &n})
}

// Invert re-evaluates with chords in the given inversion
func (e *Engine) Invert(n int) *Engine {
	return e.ApplyOptions(Overlay{Inversion: &n})
}

// Retrograde reverses the event order
func (e *Engine) Retrograde() *Engine {
	return e.transform("retrograde", func(_ *Engine, events []event.Event) ([]event.Event, error) {
		out := slices.Clone(events)
		slices.Reverse(out)
		return out, nil
	})
}

// Lead revoices every chord to move as little as possible from the chord
// before it; other events between two chords are ignored.
func (e *Engine) Lead() *Engine {
	return e.transform("lead", func(e *Engine, events []event.Event) ([]event.Event, error) {
		out := slices.Clone(events)
		var prev *event.Chord
		for i, ev := range out {
			c, ok := ev.(*event.Chord)
			if !ok {
				continue
			}
			if prev != nil {
				led, err := e.builder.FromNotes(e.leader.Lead(prev.Notes(), c.Notes()), e.opts.Key, e.opts.Scale)
				if err != nil {
					return nil, err
				}
				led.Dur = c.Dur
				out[i] = led
				c = led
			}
			prev = c
		}
		return out, nil
	})
}

// Clone returns an independent copy of the events, options, standing
// transformations and cursor. The AST is shared since it is never modified.
// The generator stays with the original.
func (e *Engine) Clone() *Engine {
	c := *e
	c.id = uuid.New()
	c.events = event.CloneAll(e.events)
	c.standing = slices.Clone(e.standing)
	c.gen = nil
	c.genExhausted = false
	return &c
}

// ID identifies the engine
func (e *Engine) ID() uuid.UUID { return e.id }

// Text returns the pattern text currently evaluated
func (e *Engine) Text() string { return e.text }

// Options returns the evaluation options in effect
func (e *Engine) Options() Options { return e.opts }

// State returns the lifecycle stage
func (e *Engine) State() State { return e.state }

// Err returns the most recent construction or transformation error
func (e *Engine) Err() error { return e.err }

// Len returns the number of materialized events
func (e *Engine) Len() int { return len(e.events) }

// Index returns the cursor, -1 before the first Next
func (e *Engine) Index() int { return e.index }

// Counter returns how many events Next has returned
func (e *Engine) Counter() int { return e.counter }

// GeneratorExhausted reports whether the attached generator ran dry
func (e *Engine) GeneratorExhausted() bool { return e.genExhausted }

// Events returns copies of the materialized events
func (e *Engine) Events() []event.Event {
	return event.CloneAll(e.events)
}

// Duration returns the total duration of the sequence
func (e *Engine) Duration() float64 {
	return event.TotalDuration(e.events)
}

// Length returns the exact total duration
func (e *Engine) Length() event.Frac {
	return event.TotalLength(e.events)
}

// Collect returns a field of every event, aligned with the event list
func (e *Engine) Collect(f event.Field) [][]float64 {
	out := make([][]float64, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Collect(f)
	}
	return out
}

func (e *Engine) collectInts(f event.Field) [][]int {
	out := make([][]int, len(e.events))
	for i, ev := range e.events {
		vals := ev.Collect(f)
		if vals == nil {
			continue
		}
		out[i] = make([]int, len(vals))
		for j, v := range vals {
			out[i][j] = int(v)
		}
	}
	return out
}

// Notes returns the MIDI notes of every event
func (e *Engine) Notes() [][]int { return e.collectInts(event.FieldNote) }

// Pitches returns the scale degrees of every event
func (e *Engine) Pitches() [][]int { return e.collectInts(event.FieldPitch) }

// Octaves returns the octaves of every event
func (e *Engine) Octaves() [][]int { return e.collectInts(event.FieldOctave) }

// Freqs returns the frequencies of every event
func (e *Engine) Freqs() [][]float64 { return e.Collect(event.FieldFreq) }

// Durations returns the duration of every event
func (e *Engine) Durations() []float64 {
	out := make([]float64, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Duration()
	}
	return out
}
