package sequence

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/james-see/tonseq/pkg/tonnetz"
)

// ErrUnknownTransformation is recorded by Apply for names it does not know
var ErrUnknownTransformation = errors.New("unknown transformation")

// Transformations lists the names Apply understands
var Transformations = []string{
	"tonnetz", "triadTonnetz", "tetraTonnetz", "tonnetzChords",
	"hexaCycle", "octaCycle", "enneaCycle",
	"retrograde", "lead",
	"key", "scale", "octave", "invert",
}

// Apply runs a transformation by name. arg carries the operator string,
// chord type or option value the transformation takes; space is used by the
// Tonnetz family only.
func (e *Engine) Apply(name, arg string, space tonnetz.Space) *Engine {
	switch name {
	case "tonnetz":
		return e.Tonnetz(arg, space)
	case "triadTonnetz":
		return e.TriadTonnetz(arg, space)
	case "tetraTonnetz":
		return e.TetraTonnetz(arg, space)
	case "tonnetzChords":
		return e.TonnetzChords(arg, space)
	case "hexaCycle":
		return e.HexaCycle(space)
	case "octaCycle":
		return e.OctaCycle(space)
	case "enneaCycle":
		return e.EnneaCycle(space)
	case "retrograde":
		return e.Retrograde()
	case "lead":
		return e.Lead()
	case "key":
		return e.Key(arg)
	case "scale":
		return e.Scale(arg)
	case "octave", "invert":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return e.reject(name, fmt.Errorf("%q is not an integer", arg))
		}
		if name == "octave" {
			return e.Octave(n)
		}
		return e.Invert(n)
	}
	return e.reject(name, ErrUnknownTransformation)
}
