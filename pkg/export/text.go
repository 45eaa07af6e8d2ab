package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/james-see/tonseq/pkg/event"
	"github.com/james-see/tonseq/pkg/sequence"
)

// EventJSON is the JSON form of one event
type EventJSON struct {
	Kind     string    `json:"kind"`
	Duration float64   `json:"duration"`
	Notes    []int     `json:"notes,omitempty"`
	Degrees  []int     `json:"degrees,omitempty"`
	Freqs    []float64 `json:"freqs,omitempty"`
	Bends    []float64 `json:"bends,omitempty"`
	Sound    string    `json:"sound,omitempty"`
}

// SequenceJSON is the JSON form of a sequence
type SequenceJSON struct {
	Name     string      `json:"name,omitempty"`
	Duration float64     `json:"duration"`
	Events   []EventJSON `json:"events"`
}

func ints(vals []float64) []int {
	if len(vals) == 0 {
		return nil
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(v)
	}
	return out
}

func nonZero(vals []float64) []float64 {
	for _, v := range vals {
		if v != 0 {
			return vals
		}
	}
	return nil
}

// Encode converts events to their JSON form
func Encode(name string, events []event.Event) SequenceJSON {
	flat := sequence.Resolve(events)
	out := SequenceJSON{Name: name, Duration: event.TotalDuration(flat), Events: make([]EventJSON, len(flat))}
	for i, ev := range flat {
		j := EventJSON{
			Kind:     ev.Kind().String(),
			Duration: ev.Duration(),
			Notes:    ints(ev.Collect(event.FieldNote)),
			Degrees:  ints(ev.Collect(event.FieldPitch)),
			Freqs:    ev.Collect(event.FieldFreq),
			Bends:    nonZero(ev.Collect(event.FieldBend)),
		}
		if s, ok := ev.(*event.Sound); ok {
			j.Sound = s.Name
		}
		out.Events[i] = j
	}
	return out
}

// JSON renders events as indented JSON
func (x *Exporter) JSON(name string, events []event.Event) ([]byte, error) {
	data, err := json.MarshalIndent(Encode(name, events), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Text renders one line per event: the MIDI notes, "r" for a rest or the
// sound name, then the duration
func (x *Exporter) Text(events []event.Event) []byte {
	var b strings.Builder
	for _, ev := range sequence.Resolve(events) {
		switch e := ev.(type) {
		case *event.Rest:
			b.WriteString("r")
		case *event.Sound:
			b.WriteString(e.Name)
		default:
			notes := ints(ev.Collect(event.FieldNote))
			for i, n := range notes {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(strconv.Itoa(n))
			}
		}
		b.WriteByte('\t')
		b.WriteString(strconv.FormatFloat(ev.Duration(), 'g', -1, 64))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
