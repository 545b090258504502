package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perbu/campusrag/pkg/bootstrap"
	"github.com/perbu/campusrag/pkg/index"
	"github.com/perbu/campusrag/pkg/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API",
	Long: `Serve the chat API.

The index is loaded from index.dir, or built from data.chunks_dir and
persisted when no artifacts exist. With index.watch set, artifacts
rewritten by generate-index are picked up without a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	if err := stack.EnsureIndex(ctx, cfg.Data.ChunksDir, logger); err != nil {
		return err
	}

	if cfg.Index.Watch {
		go func() {
			if err := stack.Index.Watch(ctx, index.DefaultDebounce); err != nil {
				logger.Error("index watcher stopped", "error", err)
			}
		}()
	}

	srv := server.New(server.Options{
		Answerer: stack.Orchestrator,
		History:  stack.History,
		Persona:  stack.Persona,
		Index:    stack.Index,
		Cache:    stack.Cache,
		Logger:   logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
