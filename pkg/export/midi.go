package export

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type timed struct {
	tick  uint32
	order int // offs before bends before ons at the same tick
	msg   []byte
}

// MIDI encodes a score as a single-track Standard MIDI File
func (x *Exporter) MIDI(sc *Score) ([]byte, error) {
	if sc == nil {
		return nil, errors.New("nil score")
	}
	tempo := sc.Tempo
	if tempo <= 0 {
		tempo = x.tempo
	}
	resolution := sc.Resolution
	if resolution == 0 {
		resolution = x.resolution
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(resolution)

	var track smf.Track
	if sc.Name != "" {
		track.Add(0, trackName(sc.Name))
	}

	// Tempo meta event (FF 51 03 tttttt)
	microsecondsPerBeat := uint32(60000000.0 / tempo)
	track.Add(0, smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(microsecondsPerBeat >> 16),
		byte(microsecondsPerBeat >> 8),
		byte(microsecondsPerBeat),
	}))
	// 4/4
	track.Add(0, smf.Message([]byte{0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08}))

	var evs []timed
	bent := map[uint8]int16{}
	for _, n := range sc.Notes {
		if n.Channel != DrumChannel && bent[n.Channel] != n.Bend {
			evs = append(evs, timed{n.Start, 1, midi.Pitchbend(n.Channel, n.Bend)})
			bent[n.Channel] = n.Bend
		}
		evs = append(evs,
			timed{n.Start, 2, midi.NoteOn(n.Channel, n.Key, n.Velocity)},
			timed{n.Start + n.Length, 0, midi.NoteOff(n.Channel, n.Key)},
		)
	}
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].tick != evs[j].tick {
			return evs[i].tick < evs[j].tick
		}
		return evs[i].order < evs[j].order
	})

	var current uint32
	for _, ev := range evs {
		track.Add(ev.tick-current, ev.msg)
		current = ev.tick
	}

	// pad trailing rests so the file keeps the pattern length
	var tail uint32
	if sc.Length > current {
		tail = sc.Length - current
	}
	track.Close(tail)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadMIDI parses a Standard MIDI File back into a score. Note-ons are
// paired with the next matching note-off on the same channel and key.
func ReadMIDI(data []byte) (*Score, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	sc := &Score{Tempo: 120.0}
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		sc.Resolution = mt.Resolution()
	}

	type voice struct {
		channel, key uint8
	}
	for _, track := range s.Tracks {
		open := map[voice]int{}
		bend := map[uint8]int16{}
		var tick uint32
		for _, ev := range track {
			tick += ev.Delta
			msg := midi.Message(ev.Message)

			// FF 03 len text
			if len(msg) >= 3 && msg[0] == 0xFF && msg[1] == 0x03 && int(msg[2]) == len(msg)-3 {
				sc.Name = string(msg[3:])
			}
			// FF 51 03 tttttt
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				mpb := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				if mpb > 0 {
					sc.Tempo = 60000000.0 / float64(mpb)
				}
			}

			var ch, key, vel uint8
			var rel int16
			var abs uint16
			switch {
			case msg.GetPitchBend(&ch, &rel, &abs):
				bend[ch] = rel
			case msg.GetNoteStart(&ch, &key, &vel):
				open[voice{ch, key}] = len(sc.Notes)
				sc.Notes = append(sc.Notes, Note{
					Key:      key,
					Velocity: vel,
					Channel:  ch,
					Start:    tick,
					Bend:     bend[ch],
				})
			case msg.GetNoteEnd(&ch, &key):
				if i, ok := open[voice{ch, key}]; ok {
					sc.Notes[i].Length = tick - sc.Notes[i].Start
					delete(open, voice{ch, key})
				}
			}
		}
		sc.Length = max(sc.Length, tick)
	}
	return sc, nil
}

// trackName builds a sequence/track name meta event (FF 03 len text). Names
// are cut to 127 bytes so the length fits one variable-length byte.
func trackName(name string) smf.Message {
	if len(name) > 127 {
		name = name[:127]
	}
	return smf.Message(append([]byte{0xFF, 0x03, byte(len(name))}, name...))
}
