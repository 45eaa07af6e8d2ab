package sequence

import (
	"log/slog"

	"github.com/james-see/tonseq/pkg/event"
	"github.com/james-see/tonseq/pkg/notation"
)

// Options configure how a pattern is evaluated. Options is comparable so it
// can be part of a cache key.
type Options struct {
	Key        string  // key name, default "C"
	Scale      string  // scale name or Scala pitch list, default "major"
	Octave     int     // octave offset from middle C
	Duration   float64 // default duration, quarter note when zero
	Inversion  int     // chord inversion applied during evaluation
	Redo       int     // passes before loop closure; zero means one, negative never closes
	Retrograde bool    // evaluate in reverse order
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = "C"
	}
	if o.Scale == "" {
		o.Scale = "major"
	}
	if o.Duration <= 0 {
		o.Duration = notation.DefaultDuration
	}
	if o.Redo == 0 {
		o.Redo = 1
	}
	return o
}

func (o Options) notation() notation.Options {
	return notation.Options{
		Key:       o.Key,
		Scale:     o.Scale,
		Octave:    o.Octave,
		Duration:  o.Duration,
		Inversion: o.Inversion,
	}
}

// Overlay changes some evaluation options of an existing engine. Nil fields
// are left alone.
type Overlay struct {
	Key       *string
	Scale     *string
	Octave    *int
	Inversion *int
}

// Parser turns pattern text into an AST
type Parser interface {
	Parse(text string, opts notation.Options) (*notation.AST, error)
}

// ChordBuilder realizes chords into sounding notes
type ChordBuilder interface {
	FromPitchClasses(pcs []int, key, scaleName string, octave int) (*event.Chord, error)
	FromNotes(notes []int, key, scaleName string) (*event.Chord, error)
}

// VoiceLeader revoices a chord close to a previous one
type VoiceLeader interface {
	Lead(from, to []int) []int
}

// Rewriter builds new pattern text from the original text and a numeral
type Rewriter func(text string, n int) string

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger for parse failures and rejected transformations
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParser replaces the notation parser
func WithParser(p Parser) Option {
	return func(e *Engine) {
		e.parser = p
	}
}

// WithChordBuilder replaces the chord builder
func WithChordBuilder(b ChordBuilder) Option {
	return func(e *Engine) {
		e.builder = b
	}
}

// WithVoiceLeader replaces the voice leader
func WithVoiceLeader(v VoiceLeader) Option {
	return func(e *Engine) {
		e.leader = v
	}
}

// WithGenerator attaches a numeral stream pulled at every loop closure
func WithGenerator(g Generator) Option {
	return func(e *Engine) {
		e.gen = g
	}
}

// WithRewriter sets how a pulled numeral becomes pattern text
func WithRewriter(r Rewriter) Option {
	return func(e *Engine) {
		e.rewrite = r
	}
}
