package sequence

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/tonseq/pkg/event"
	"github.com/james-see/tonseq/pkg/notation"
	"github.com/james-see/tonseq/pkg/tonnetz"
)

var defaultSpace = tonnetz.DefaultSpace

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type countingParser struct {
	calls int
}

func (p *countingParser) Parse(text string, opts notation.Options) (*notation.AST, error) {
	p.calls++
	return notation.Parse(text, opts)
}

func nextNotes(t *testing.T, e *Engine, n int) []int {
	t.Helper()
	out := make([]int, n)
	for i := range n {
		ev, ok := e.Next()
		require.True(t, ok)
		out[i] = int(ev.Collect(event.FieldNote)[0])
	}
	return out
}

func TestNew(t *testing.T) {
	e := New("0 1 2", Options{}, quiet())
	require.NoError(t, e.Err())
	assert.Equal(t, StateEvaluated, e.State())
	assert.Equal(t, 3, e.Len())
	assert.Equal(t, [][]int{{60}, {62}, {64}}, e.Notes())
	assert.Equal(t, [][]int{{0}, {1}, {2}}, e.Pitches())
	assert.Equal(t, [][]int{{0}, {0}, {0}}, e.Octaves())
	assert.Equal(t, []float64{0.25, 0.25, 0.25}, e.Durations())
	assert.Equal(t, 0.75, e.Duration())
	assert.InDelta(t, 261.6256, e.Freqs()[0][0], 1e-4)
	assert.Equal(t, -1, e.Index())
	assert.Equal(t, "0 1 2", e.Text())
	assert.Equal(t, DefaultOptions(), e.Options())
}

func TestNewParseFailureSettlesEmpty(t *testing.T) {
	var buf bytes.Buffer
	e := New("0 ]", Options{}, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	assert.Equal(t, StateEmpty, e.State())
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, 0.0, e.Duration())
	var pe *notation.ParseError
	assert.True(t, errors.As(e.Err(), &pe))
	assert.Contains(t, buf.String(), "pattern parse failed")
	assert.Contains(t, buf.String(), "level=ERROR")

	ev, ok := e.Next()
	assert.Nil(t, ev)
	assert.False(t, ok)
	assert.Equal(t, -1, e.Index())
	assert.Equal(t, 0, e.Counter())

	// transformations on an empty engine are no-ops
	e.Retrograde().Key("D").TriadTonnetz("p", defaultSpace)
	assert.Equal(t, 0, e.Len())
}

func TestNewEvaluationFailureSettlesEmpty(t *testing.T) {
	e := New("0", Options{Key: "H"}, quiet())
	assert.Equal(t, StateEmpty, e.State())
	assert.Error(t, e.Err())
}

func TestNextWrapsWithRedo(t *testing.T) {
	pulls := 0
	gen := GeneratorFunc(func() (int, bool) {
		pulls++
		return 0, false
	})
	e := New("0 1 2", Options{Redo: 2}, WithGenerator(gen), quiet())

	assert.Equal(t, []int{60, 62, 64, 60, 62}, nextNotes(t, e, 5))
	assert.Equal(t, 0, pulls)
	assert.Equal(t, StateIterating, e.State())

	assert.Equal(t, []int{64}, nextNotes(t, e, 1))
	assert.Equal(t, 1, pulls)
	assert.Equal(t, 0, e.Index())
	assert.Equal(t, 6, e.Counter())
	assert.True(t, e.GeneratorExhausted())

	// exhausted generators are not pulled again
	assert.Equal(t, []int{60, 62, 64, 60, 62, 64}, nextNotes(t, e, 6))
	assert.Equal(t, 1, pulls)
}

func TestNextDefaultRedo(t *testing.T) {
	pulls := 0
	gen := GeneratorFunc(func() (int, bool) {
		pulls++
		return 0, false
	})
	e := New("0 1 2", Options{}, WithGenerator(gen), quiet())
	nextNotes(t, e, 3)
	assert.Equal(t, 1, pulls)
}

func TestNextNegativeRedoNeverCloses(t *testing.T) {
	pulls := 0
	gen := GeneratorFunc(func() (int, bool) {
		pulls++
		return 1, true
	})
	e := New("0 1", Options{Redo: -1}, WithGenerator(gen), quiet())
	assert.Equal(t, []int{60, 62, 60, 62, 60}, nextNotes(t, e, 5))
	assert.Equal(t, 0, pulls)
	assert.Equal(t, 5, e.Index())
}

func TestGeneratorRewritesPattern(t *testing.T) {
	e := New("0 1 2", Options{Redo: 2}, WithGenerator(FromSlice(7, 42)), quiet())

	assert.Equal(t, []int{60, 62, 64, 60, 62, 64}, nextNotes(t, e, 6))
	assert.Equal(t, "7", e.Text())
	assert.Equal(t, 1, e.Len())

	assert.Equal(t, []int{72, 72}, nextNotes(t, e, 2))
	assert.Equal(t, "4 2", e.Text())

	assert.Equal(t, []int{67, 64, 67, 64}, nextNotes(t, e, 4))
	assert.True(t, e.GeneratorExhausted())
	assert.Equal(t, []int{67, 64}, nextNotes(t, e, 2))
}

func TestGeneratorKeepsStandingTransformations(t *testing.T) {
	e := New("0 1", Options{}, WithGenerator(FromSlice(12)), quiet()).Retrograde()
	assert.Equal(t, []int{62, 60}, nextNotes(t, e, 2))
	assert.Equal(t, "1 2", e.Text())
	assert.Equal(t, [][]int{{64}, {62}}, e.Notes())
}

func TestCustomRewriter(t *testing.T) {
	rw := func(text string, n int) string {
		return text + " " + strconv.Itoa(n)
	}
	e := New("0", Options{}, WithGenerator(FromSlice(4)), WithRewriter(rw), quiet())
	nextNotes(t, e, 1)
	assert.Equal(t, "0 4", e.Text())
	assert.Equal(t, [][]int{{60}, {67}}, e.Notes())
}

func TestRewrittenPatternThatFailsKeepsSequence(t *testing.T) {
	rw := func(string, int) string { return "0 ]" }
	e := New("0 1", Options{}, WithGenerator(FromSlice(1)), WithRewriter(rw), quiet())
	nextNotes(t, e, 2)
	assert.Equal(t, "0 1", e.Text())
	assert.Equal(t, [][]int{{60}, {62}}, e.Notes())
	assert.False(t, e.GeneratorExhausted())
}

func TestNextReturnsCopies(t *testing.T) {
	e := New("0", Options{}, quiet())
	ev, ok := e.Next()
	require.True(t, ok)
	ev.(*event.Pitch).Note = 99
	assert.Equal(t, [][]int{{60}}, e.Notes())
}

func TestRetrograde(t *testing.T) {
	e := New("0 1 2", Options{}, quiet())
	e.Retrograde()
	assert.Equal(t, [][]int{{64}, {62}, {60}}, e.Notes())
	e.Retrograde()
	assert.Equal(t, [][]int{{60}, {62}, {64}}, e.Notes())

	r := New("0 1 2", Options{Retrograde: true}, quiet())
	assert.Equal(t, [][]int{{64}, {62}, {60}}, r.Notes())
}

func TestApplyOptions(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		apply func(e *Engine) *Engine
		want  [][]int
	}{
		{"key", "0 1 2", func(e *Engine) *Engine { return e.Key("D") }, [][]int{{62}, {64}, {66}}},
		{"scale", "0 1 2", func(e *Engine) *Engine { return e.Scale("minor") }, [][]int{{60}, {62}, {63}}},
		{"octave", "0 1 2", func(e *Engine) *Engine { return e.Octave(1) }, [][]int{{72}, {74}, {76}}},
		{"invert", "024", func(e *Engine) *Engine { return e.Invert(1) }, [][]int{{64, 67, 72}}},
		{"retrograde survives", "0 1 2", func(e *Engine) *Engine { return e.Retrograde().Key("D") }, [][]int{{66}, {64}, {62}}},
		{"overlay", "0 1", func(e *Engine) *Engine {
			k, o := "F", -1
			return e.ApplyOptions(Overlay{Key: &k, Octave: &o})
		}, [][]int{{53}, {55}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.text, Options{}, quiet())
			got := tt.apply(e)
			assert.Same(t, e, got)
			require.NoError(t, e.Err())
			assert.Equal(t, tt.want, e.Notes())
		})
	}
}

func TestApplyOptionsDoesNotReparse(t *testing.T) {
	p := &countingParser{}
	e := New("0 1 2", Options{}, WithParser(p), quiet())
	e.Key("D").Scale("minor").Octave(1)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, [][]int{{74}, {76}, {77}}, e.Notes())
}

func TestApplyOptionsUnchangedIsNoop(t *testing.T) {
	e := New("0 1 2", Options{}, quiet())
	before := e.Events()
	e.Key("C").Scale("major").Octave(0)
	assert.Equal(t, before, e.Events())
}

func TestApplyOptionsFailureLeavesEngine(t *testing.T) {
	e := New("0 1 2", Options{}, quiet()).Retrograde()
	e.Key("H")
	assert.Error(t, e.Err())
	assert.Equal(t, "C", e.Options().Key)
	assert.Equal(t, [][]int{{64}, {62}, {60}}, e.Notes())
}

func TestLead(t *testing.T) {
	e := New("024 r 358 024", Options{}, quiet()).Lead()
	require.NoError(t, e.Err())
	assert.Equal(t, [][]int{{60, 64, 67}, nil, {60, 65, 69}, {60, 64, 67}}, e.Notes())
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, e.Durations())
}

func TestClone(t *testing.T) {
	e := New("024 0", Options{}, WithGenerator(FromSlice(1)), quiet()).TriadTonnetz("p", defaultSpace)
	c := e.Clone()
	assert.NotEqual(t, e.ID(), c.ID())

	c.Retrograde().Key("D")
	assert.Equal(t, [][]int{{62}, {62, 65, 69}}, c.Notes())
	assert.Equal(t, [][]int{{60, 63, 67}, {60}}, e.Notes())

	nextNotes(t, c, 2)
	assert.Equal(t, -1, e.Index())
	assert.Equal(t, "024 0", c.Text())
}
