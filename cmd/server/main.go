// Package main is the entry point for the tonseq API server
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/james-see/tonseq/pkg/api"
	"github.com/james-see/tonseq/pkg/cache"
	"github.com/james-see/tonseq/pkg/config"
	"github.com/james-see/tonseq/pkg/export"
	"github.com/james-see/tonseq/pkg/sequence"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	space, _ := cfg.TonnetzSpace()

	c := cache.New(
		cache.WithCapacity(cfg.Cache.Capacity),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithLogger(logger),
		cache.WithEngineOptions(sequence.WithLogger(logger)),
	)
	srv := api.NewServer(c,
		api.WithSpace(space),
		api.WithDefaults(cfg.SequenceOptions()),
		api.WithExporter(export.New(export.WithTempo(cfg.Tempo), export.WithLogger(logger))),
		api.WithSessionTTL(cfg.Server.SessionTTL),
		api.WithMaxSessions(cfg.Server.MaxSessions),
		api.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting tonseq API server on port %d...\n", cfg.Server.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)
	return srv.ListenAndServe(ctx, cfg.Server.Port)
}
