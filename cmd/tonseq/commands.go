package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/james-see/tonseq/pkg/api"
	"github.com/james-see/tonseq/pkg/cache"
	"github.com/james-see/tonseq/pkg/export"
	"github.com/james-see/tonseq/pkg/scale"
	"github.com/james-see/tonseq/pkg/sequence"
	"github.com/james-see/tonseq/pkg/tonnetz"
	"github.com/james-see/tonseq/pkg/tui"
)

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newEvalCommand(opts *rootOptions) *cobra.Command {
	var (
		steps      []string
		retrograde bool
	)
	cmd := &cobra.Command{
		Use:   "eval <pattern>",
		Short: "Evaluate a pattern and print its events",
		Long: `Evaluates a pattern and prints one line per event: its MIDI notes (or
"r" for a rest, or the sound name) and its duration in whole notes.

Transformations run in the order given, as name=argument:
  -t triadTonnetz=p -t retrograde -t key=D`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.engine(args[0], retrograde, steps)
			if err != nil {
				return err
			}
			x := export.New(export.WithLogger(opts.logger))
			if opts.Format == "json" {
				return writeJSON(cmd, export.Encode(e.Text(), e.Events()))
			}
			_, err = cmd.OutOrStdout().Write(x.Text(e.Events()))
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&steps, "transform", "t", nil, "transformation as name=arg (repeatable)")
	cmd.Flags().BoolVarP(&retrograde, "retrograde", "r", false, "evaluate in reverse order")
	return cmd
}

func newTransformCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "transform <operators> <pitch-class>...",
		Short: "Apply Tonnetz operators to a chord",
		Long: `Applies Tonnetz operators to pitch classes. Operators are the letters
p r l f n s h t, optionally qualified with two one-based positions (p12, l23).

  tonseq transform "p r l" 0 4 7
  tonseq transform p12 0 4 7 10`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chord, err := parseInts(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			out, err := tonnetz.Transform(chord, args[0], opts.space)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd, map[string][]int{"chord": out})
			}
			joinInts(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newCycleCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle <hexatonic|octatonic|ennea> [root]",
		Short: "Print the chords of a Tonnetz cycle",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := tonnetz.ParseCycleKind(args[0])
			if err != nil {
				return err
			}
			root := 0
			if len(args) == 2 {
				if root, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("root %q is not an integer", args[1])
				}
			}
			chords, err := tonnetz.Cycle(root, kind, opts.space)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd, map[string]any{"kind": kind, "chords": chords})
			}
			for _, c := range chords {
				joinInts(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var (
		steps      []string
		retrograde bool
		output     string
		tempo      float64
	)
	cmd := &cobra.Command{
		Use:   "export <pattern>",
		Short: "Write a pattern to a MIDI, JSON or text file",
		Long:  `Writes the evaluated pattern in the format implied by the output extension (.mid, .json, .txt).`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.engine(args[0], retrograde, steps)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("tempo") {
				tempo = opts.cfg.Tempo
			}
			x := export.New(export.WithTempo(tempo), export.WithLogger(opts.logger))
			if err := x.WriteFile(output, e.Text(), e.Events()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d events -> %s\n", e.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (required)")
	_ = cmd.MarkFlagRequired("output")
	cmd.Flags().StringArrayVarP(&steps, "transform", "t", nil, "transformation as name=arg (repeatable)")
	cmd.Flags().BoolVarP(&retrograde, "retrograde", "r", false, "evaluate in reverse order")
	cmd.Flags().Float64Var(&tempo, "tempo", 120, "tempo in beats per minute")
	return cmd
}

func newScalesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scales",
		Short: "List named scales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := scale.Names()
			if opts.Format == "json" {
				return writeJSON(cmd, map[string][]string{"scales": names})
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newTUICommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [pattern]",
		Short: "Launch the interactive pattern editor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "0 2 4 024"
			if len(args) == 1 {
				pattern = args[0]
			}
			return tui.Run(tui.Options{
				Pattern:  pattern,
				Sequence: opts.sequenceOptions(),
				Space:    opts.space,
				Tempo:    opts.cfg.Tempo,
				Logger:   opts.logger,
			})
		},
	}
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = opts.cfg.Server.Port
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := newServer(opts)
			fmt.Fprintf(cmd.OutOrStdout(), "Starting API server on port %d...\n", port)
			return srv.ListenAndServe(ctx, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Server port")
	return cmd
}

func newServer(opts *rootOptions) *api.Server {
	c := cache.New(
		cache.WithCapacity(opts.cfg.Cache.Capacity),
		cache.WithTTL(opts.cfg.Cache.TTL),
		cache.WithLogger(opts.logger),
		cache.WithEngineOptions(sequence.WithLogger(opts.logger)),
	)
	return api.NewServer(c,
		api.WithSpace(opts.space),
		api.WithDefaults(opts.sequenceOptions()),
		api.WithExporter(export.New(export.WithTempo(opts.cfg.Tempo), export.WithLogger(opts.logger))),
		api.WithSessionTTL(opts.cfg.Server.SessionTTL),
		api.WithMaxSessions(opts.cfg.Server.MaxSessions),
		api.WithLogger(opts.logger),
	)
}
