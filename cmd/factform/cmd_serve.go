package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dlovans/factform/internal/metrics"
	"github.com/dlovans/factform/internal/server"
	"github.com/dlovans/factform/internal/session"
	"github.com/dlovans/factform/pkg/factgraph"
)

var (
	listenFlag string
	watchFlag  bool
)

// serveCmd serves form sessions over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve form sessions over HTTP",
	Long: `Serves one mounted form per session. Sessions are kept in SQLite when
session.database is set, so interviews survive restarts. Prometheus
metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if listenFlag != "" {
		cfg.Listen = listenFlag
	}
	if watchFlag {
		cfg.Watch = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dict, err := factgraph.LoadDictionary(cfg.Dictionary)
	if err != nil {
		return err
	}
	page, err := os.ReadFile(cfg.Page)
	if err != nil {
		return err
	}
	ops, err := cfg.BuildOperators()
	if err != nil {
		return err
	}

	var sessions *session.Store
	if cfg.Session.Database != "" {
		if sessions, err = session.Open(cfg.Session.Database); err != nil {
			return err
		}
		defer sessions.Close()
	}

	srv, err := server.New(server.Options{
		Page:       page,
		Dictionary: dict,
		Operators:  ops,
		Messages:   cfg.Messages,
		Sessions:   sessions,
		Metrics:    metrics.New(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch {
		go func() {
			if err := srv.WatchPage(ctx, cfg.Page); err != nil {
				logger.Error("Page watcher stopped", zap.Error(err))
			}
		}()
	}
	return srv.ListenAndServe(ctx, cfg.Listen)
}
