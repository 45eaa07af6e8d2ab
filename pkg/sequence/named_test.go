package sequence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyByName(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		text string
		want [][]int
	}{
		{"triadTonnetz", "p", "024", [][]int{{60, 63, 67}}},
		{"tonnetz", "p", "024 0246", [][]int{{60, 63, 67}, {60, 64, 67, 71}}},
		{"tetraTonnetz", "p12", "0246", [][]int{{60, 63, 67, 71}}},
		{"tonnetzChords", "m", "0", [][]int{{60, 63, 67}}},
		{"retrograde", "", "0 1", [][]int{{62}, {60}}},
		{"lead", "", "024 358", [][]int{{60, 64, 67}, {60, 65, 69}}},
		{"key", "D", "0", [][]int{{62}}},
		{"scale", "minor", "2", [][]int{{63}}},
		{"octave", "-1", "0", [][]int{{48}}},
		{"invert", "1", "024", [][]int{{64, 67, 72}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.text, Options{}, quiet()).Apply(tt.name, tt.arg, defaultSpace)
			assert.NoError(t, e.Err())
			assert.Equal(t, tt.want, e.Notes())
		})
	}
}

func TestApplyCyclesByName(t *testing.T) {
	for name, n := range map[string]int{"hexaCycle": 6, "octaCycle": 8, "enneaCycle": 9} {
		e := New("0", Options{}, quiet()).Apply(name, "", defaultSpace)
		assert.NoError(t, e.Err())
		assert.Equal(t, n, e.Len(), name)
	}
}

func TestApplyRejects(t *testing.T) {
	e := New("0", Options{}, quiet()).Apply("shuffle", "", defaultSpace)
	assert.True(t, errors.Is(e.Err(), ErrUnknownTransformation))

	e = New("0", Options{}, quiet()).Apply("octave", "up", defaultSpace)
	assert.Error(t, e.Err())
	assert.Equal(t, [][]int{{60}}, e.Notes())
}
