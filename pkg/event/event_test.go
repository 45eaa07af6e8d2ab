package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollect(t *testing.T) {
	p := &Pitch{Degree: 2, Octave: 0, Note: 64, Freq: 329.63, Dur: NewFrac(1, 4)}
	c := &Chord{Pitches: []Pitch{{Degree: 0, Note: 60}, {Degree: 2, Note: 64}, {Degree: 4, Note: 67}}, Dur: NewFrac(1, 2)}
	r := &Rest{Dur: NewFrac(1, 8)}
	s := &Sound{Name: "bd", Dur: NewFrac(1, 4)}

	tests := []struct {
		name  string
		ev    Event
		field Field
		want  []float64
	}{
		{"pitch note", p, FieldNote, []float64{64}},
		{"pitch degree", p, FieldPitch, []float64{2}},
		{"pitch duration", p, FieldDuration, []float64{0.25}},
		{"chord notes", c, FieldNote, []float64{60, 64, 67}},
		{"chord degrees", c, FieldPitch, []float64{0, 2, 4}},
		{"chord duration", c, FieldDuration, []float64{0.5}},
		{"rest note", r, FieldNote, nil},
		{"rest duration", r, FieldDuration, []float64{0.125}},
		{"sound note", s, FieldNote, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.Collect(tt.field))
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := &Chord{Pitches: []Pitch{{Note: 60}, {Note: 64}}, Dur: NewFrac(1, 4)}
	cp := c.Clone().(*Chord)
	cp.Pitches[0].Note = 61
	cp.SetLength(NewFrac(1, 1))
	assert.Equal(t, 60, c.Pitches[0].Note)
	assert.Equal(t, 0.25, c.Duration())

	g := &Group{Children: []Event{&Pitch{Note: 60}}, Dur: NewFrac(1, 4)}
	gc := g.Clone().(*Group)
	gc.Children[0].(*Pitch).Note = 62
	assert.Equal(t, 60, g.Children[0].(*Pitch).Note)
}

func TestChordPitchClasses(t *testing.T) {
	c := &Chord{Pitches: []Pitch{{Note: 64}, {Note: 67}, {Note: 72}}}
	assert.Equal(t, []int{64, 67, 72}, c.Notes())
	assert.Equal(t, []int{4, 7, 0}, c.PitchClasses())
}

func TestTotalDuration(t *testing.T) {
	events := []Event{&Pitch{Dur: NewFrac(1, 4)}, &Rest{Dur: NewFrac(1, 2)}, &Sound{Dur: NewFrac(1, 4)}}
	assert.Equal(t, 1.0, TotalDuration(events))
	assert.Equal(t, "1", TotalLength(events).String())
	assert.Equal(t, "chord", KindChord.String())
	assert.Nil(t, CloneAll(nil))
}

func TestFracIsExact(t *testing.T) {
	seventh := NewFrac(1, 4).Div(7)
	var sum Frac
	for range 7 {
		sum = sum.Add(seventh)
	}
	assert.True(t, sum.Equal(NewFrac(1, 4)))
	assert.Equal(t, "1/28", seventh.String())
	assert.Equal(t, 0.25, sum.Float())

	tests := []struct {
		in   float64
		want string
	}{
		{0.25, "1/4"},
		{0.375, "3/8"},
		{1, "1"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := FracOf(tt.in).String(); got != tt.want {
			t.Errorf("FracOf(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFracZeroValue(t *testing.T) {
	var z Frac
	assert.Equal(t, 0, z.Sign())
	assert.Equal(t, 0.0, z.Float())
	assert.Equal(t, "3/8", z.Add(NewFrac(3, 8)).String())
	assert.Equal(t, -1, z.Cmp(NewFrac(1, 8)))
	assert.Equal(t, "1/8", NewFrac(1, 4).Sub(NewFrac(1, 8)).String())
	assert.Equal(t, "3/8", NewFrac(1, 4).Mul(NewFrac(3, 2)).String())
}
