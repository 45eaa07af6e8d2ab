package notation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		want []Node
	}{
		{"0 1 -2", []Node{
			&Degree{Value: 0, Dur: 0.25},
			&Degree{Value: 1, Dur: 0.25},
			&Degree{Value: -2, Dur: 0.25},
		}},
		{"q0 e1 2", []Node{
			&Degree{Value: 0, Dur: 0.25},
			&Degree{Value: 1, Dur: 0.125},
			&Degree{Value: 2, Dur: 0.125},
		}},
		{"e 0", []Node{
			&DurationMark{Dur: 0.125},
			&Degree{Value: 0, Dur: 0.125},
		}},
		{"h.0", []Node{&Degree{Value: 0, Dur: 0.75}}},
		{"024", []Node{&Chord{Degrees: []int{0, 2, 4}, Dur: 0.25}}},
		{"^0 __1", []Node{
			&Degree{Value: 0, Octave: 1, Dur: 0.25},
			&Degree{Value: 1, Octave: -2, Dur: 0.25},
		}},
		{"0 [1 2]", []Node{
			&Degree{Value: 0, Dur: 0.25},
			&Subdivision{Dur: 0.25, Children: []Node{
				&Degree{Value: 1, Dur: 0.25},
				&Degree{Value: 2, Dur: 0.25},
			}},
		}},
		{"h[0 e1] 2", []Node{
			&Subdivision{Dur: 0.5, Children: []Node{
				&Degree{Value: 0, Dur: 0.5},
				&Degree{Value: 1, Dur: 0.125},
			}},
			&Degree{Value: 2, Dur: 0.5},
		}},
		{"ii V7", []Node{
			&Roman{Degree: 1, Dur: 0.25},
			&Roman{Degree: 4, Seventh: true, Dur: 0.25},
		}},
		{"r qr", []Node{&Rest{Dur: 0.25}, &Rest{Dur: 0.25}}},
		{"bd hh", []Node{&Sound{Name: "bd", Dur: 0.25}, &Sound{Name: "hh", Dur: 0.25}}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ast, err := Parse(tt.text, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ast.Nodes)
			assert.Equal(t, tt.text, ast.Text)
		})
	}
}

func TestParseDefaultDuration(t *testing.T) {
	ast, err := Parse("0", Options{Duration: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []Node{&Degree{Value: 0, Dur: 0.5}}, ast.Nodes)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		text string
		pos  int
	}{
		{"0 ]", 2},
		{"0 [1 2", 2},
		{"0 % 1", 2},
		{"^", 0},
		{"x", 0},
		{"-", 0},
		{"0a", 1},
		{"^bd", 1},
		{"v9", 1},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ast, err := Parse(tt.text, Options{})
			assert.Nil(t, ast)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "Parse(%q) error = %v, want *ParseError", tt.text, err)
			assert.Equal(t, tt.pos, pe.Pos)
			assert.Contains(t, pe.Error(), "parse error")
		})
	}
}

func TestParserImplementsCollaborator(t *testing.T) {
	var p Parser
	ast, err := p.Parse("0 1", Options{})
	require.NoError(t, err)
	assert.Len(t, ast.Nodes, 2)
}
