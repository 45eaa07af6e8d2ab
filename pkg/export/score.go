// Package export renders evaluated sequences as Standard MIDI Files, JSON
// and plain text
package export

import (
	"math"
	"strings"

	"github.com/james-see/tonseq/pkg/event"
	"github.com/james-see/tonseq/pkg/sequence"
)

const (
	DrumChannel    uint8 = 9
	DefaultChannel uint8 = 0

	// pitch bend range in cents either side of the note
	BendRange = 200.0
)

// Note is one sounding tone placed in ticks
type Note struct {
	Key      uint8
	Velocity uint8
	Channel  uint8
	Start    uint32
	Length   uint32
	Bend     int16 // 14-bit signed pitch bend, zero when in tune
}

// Score is a flattened, tick-quantized sequence
type Score struct {
	Name       string
	Tempo      float64 // beats per minute
	Resolution uint16  // ticks per quarter note
	Notes      []Note
	Length     uint32 // total ticks including trailing rests
}

// GM percussion keys for sound names
var drumKeys = map[string]uint8{
	"bd": 36, "kick": 36,
	"rim": 37, "rs": 37,
	"sd": 38, "sn": 38, "snare": 38,
	"cp": 39, "clap": 39,
	"lt": 45,
	"hh": 42, "ch": 42,
	"oh": 46,
	"mt": 47,
	"cr": 49, "crash": 49,
	"ht": 50,
	"rd": 51, "ride": 51,
	"cb": 56, "cowbell": 56,
}

// DrumKey returns the General MIDI percussion key for a sound name
func DrumKey(name string) (uint8, bool) {
	k, ok := drumKeys[strings.ToLower(name)]
	return k, ok
}

// bendValue converts cents to a pitch bend value
func bendValue(cents float64) int16 {
	v := math.Round(cents / BendRange * 8191)
	return int16(max(-8192, min(8191, v)))
}

// ticks converts a duration in whole notes
func ticks(dur float64, resolution uint16) uint32 {
	if dur <= 0 {
		return 0
	}
	return uint32(math.Round(dur * 4 * float64(resolution)))
}

func clampKey(n int) uint8 {
	return uint8(max(0, min(127, n)))
}

// Build places events on a tick grid. Groups are resolved first; sounds
// without a percussion key are dropped.
func (x *Exporter) Build(name string, events []event.Event) *Score {
	sc := &Score{Name: name, Tempo: x.tempo, Resolution: x.resolution}
	var at event.Frac
	for _, ev := range sequence.Resolve(events) {
		start := ticks(at.Float(), x.resolution)
		at = at.Add(ev.Length())
		end := ticks(at.Float(), x.resolution)
		length := end - start
		if x.gate < 1 {
			length = max(1, uint32(float64(length)*x.gate))
		}

		switch e := ev.(type) {
		case *event.Pitch:
			sc.Notes = append(sc.Notes, x.note(*e, start, length))
		case *event.Chord:
			for _, p := range e.Pitches {
				sc.Notes = append(sc.Notes, x.note(p, start, length))
			}
		case *event.Sound:
			key, ok := DrumKey(e.Name)
			if !ok {
				x.logger.Debug("sound has no percussion key", "sound", e.Name)
				continue
			}
			sc.Notes = append(sc.Notes, Note{
				Key:      key,
				Velocity: x.velocity,
				Channel:  DrumChannel,
				Start:    start,
				Length:   length,
			})
		}
	}
	sc.Length = ticks(at, x.resolution)
	return sc
}

func (x *Exporter) note(p event.Pitch, start, length uint32) Note {
	return Note{
		Key:      clampKey(p.Note),
		Velocity: x.velocity,
		Channel:  x.channel,
		Start:    start,
		Length:   length,
		Bend:     bendValue(p.Bend),
	}
}
