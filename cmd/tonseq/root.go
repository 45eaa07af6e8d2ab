package main

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/james-see/tonseq/pkg/config"
	"github.com/james-see/tonseq/pkg/sequence"
	"github.com/james-see/tonseq/pkg/tonnetz"
)

// rootOptions holds global flags for all commands
type rootOptions struct {
	ConfigPath string
	Key        string
	Scale      string
	Octave     int
	Space      string
	Verbose    bool
	Format     string // "text" | "json"

	cfg    *config.Config
	space  tonnetz.Space
	logger *slog.Logger
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tonseq",
		Short: "Note patterns and Tonnetz transformations",
		Long: `tonseq evaluates compact note patterns into sequences of pitches and
chords, and transforms chords on the Tonnetz.

Examples:
  tonseq eval "0 2 4 [5 7] 024"
  tonseq eval "024 246" -t triadTonnetz=l
  tonseq transform "p r l" 0 4 7
  tonseq cycle hexatonic
  tonseq export "0 4 7 024" -o pattern.mid
  tonseq tui "024 358"
  tonseq serve --port 8080`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	pf.StringVarP(&opts.Key, "key", "k", "", "key (C, F#, Bb or a MIDI note)")
	pf.StringVarP(&opts.Scale, "scale", "s", "", "scale name or Scala step list")
	pf.IntVar(&opts.Octave, "octave", 0, "octave offset from middle C")
	pf.StringVar(&opts.Space, "space", "", "Tonnetz space as minor,major,fourth")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newEvalCommand(opts))
	cmd.AddCommand(newTransformCommand(opts))
	cmd.AddCommand(newCycleCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newScalesCommand(opts))
	cmd.AddCommand(newTUICommand(opts))
	cmd.AddCommand(newServeCommand(opts))

	return cmd
}

// resolve loads the config and lays command line flags over it
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	if !slices.Contains(validFormats, o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, validFormats)
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("key") {
		cfg.Key = o.Key
	}
	if flags.Changed("scale") {
		cfg.Scale = o.Scale
	}
	if flags.Changed("octave") {
		cfg.Octave = o.Octave
	}
	if flags.Changed("space") {
		steps, err := parseInts(strings.ReplaceAll(o.Space, ",", " "))
		if err != nil {
			return fmt.Errorf("--space: %w", err)
		}
		cfg.Space = steps
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.cfg = cfg
	o.space, _ = cfg.TonnetzSpace()
	level, _ := cfg.Level()
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)
	return nil
}

func (o *rootOptions) sequenceOptions() sequence.Options {
	return o.cfg.SequenceOptions()
}

func (o *rootOptions) engine(text string, retrograde bool, steps []string) (*sequence.Engine, error) {
	so := o.sequenceOptions()
	so.Retrograde = retrograde
	e := sequence.New(text, so, sequence.WithLogger(o.logger))
	if err := e.Err(); err != nil {
		return nil, err
	}
	for _, s := range steps {
		name, arg, _ := strings.Cut(s, "=")
		if err := e.Apply(name, arg, o.space).Err(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func parseInts(s string) ([]int, error) {
	fields := strings.Fields(s)
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", f)
		}
		out[i] = n
	}
	return out, nil
}

func joinInts(w io.Writer, vals []int) {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}
