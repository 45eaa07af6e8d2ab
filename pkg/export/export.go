package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/tonseq/pkg/event"
)

// Format represents an output format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatJSON    Format = "json"
	FormatText    Format = "text"
	FormatUnknown Format = "unknown"
)

// ErrUnknownFormat is returned when no format matches
var ErrUnknownFormat = errors.New("unknown export format")

// DetectFormat detects the format of a file based on its extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mid", ".midi":
		return FormatMIDI
	case ".json":
		return FormatJSON
	case ".txt":
		return FormatText
	default:
		return FormatUnknown
	}
}

// ParseFormat resolves a format name as given on a command line
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "midi", "mid", "smf":
		return FormatMIDI, nil
	case "json":
		return FormatJSON, nil
	case "text", "txt":
		return FormatText, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Formats lists the supported formats
func Formats() []Format {
	return []Format{FormatMIDI, FormatJSON, FormatText}
}

// Exporter renders events
type Exporter struct {
	resolution uint16
	tempo      float64
	velocity   uint8
	channel    uint8
	gate       float64
	logger     *slog.Logger
}

// Option configures an Exporter
type Option func(*Exporter)

// WithTempo sets the tempo in beats per minute
func WithTempo(bpm float64) Option {
	return func(x *Exporter) {
		if bpm > 0 {
			x.tempo = bpm
		}
	}
}

// WithResolution sets the ticks per quarter note
func WithResolution(tpq uint16) Option {
	return func(x *Exporter) {
		if tpq > 0 {
			x.resolution = tpq
		}
	}
}

// WithVelocity sets the note-on velocity
func WithVelocity(v uint8) Option {
	return func(x *Exporter) {
		x.velocity = min(v, 127)
	}
}

// WithChannel sets the channel for pitched notes
func WithChannel(ch uint8) Option {
	return func(x *Exporter) {
		x.channel = ch & 0x0F
	}
}

// WithGate shortens notes to a fraction of their slot
func WithGate(g float64) Option {
	return func(x *Exporter) {
		if g > 0 && g <= 1 {
			x.gate = g
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(x *Exporter) {
		x.logger = l
	}
}

// New creates an Exporter
func New(opts ...Option) *Exporter {
	x := &Exporter{
		resolution: 480,
		tempo:      120.0,
		velocity:   100,
		channel:    DefaultChannel,
		gate:       1,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Render encodes events in the given format
func (x *Exporter) Render(f Format, name string, events []event.Event) ([]byte, error) {
	switch f {
	case FormatMIDI:
		return x.MIDI(x.Build(name, events))
	case FormatJSON:
		return x.JSON(name, events)
	case FormatText:
		return x.Text(events), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// WriteFile renders events in the format implied by path
func (x *Exporter) WriteFile(path, name string, events []event.Event) error {
	f := DetectFormat(path)
	if f == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}
	data, err := x.Render(f, name, events)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	x.logger.Info("pattern exported", "path", path, "format", f, "events", len(events))
	return nil
}
