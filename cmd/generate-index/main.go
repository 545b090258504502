// Command generate-index builds the vector index from the chunk directory and
// writes the artifact pair that ragbot serves. A running ragbot with
// index.watch enabled swaps the new index in without a restart.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perbu/campusrag/pkg/bootstrap"
	"github.com/perbu/campusrag/pkg/config"
	"github.com/perbu/campusrag/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	configPath string
	chunksDir  string
	indexDir   string
)

var rootCmd = &cobra.Command{
	Use:           "generate-index",
	Short:         "Build and persist the chunk index",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $CAMPUSRAG_CONFIG)")
	rootCmd.Flags().StringVar(&chunksDir, "chunks", "", "chunk JSON directory (overrides data.chunks_dir)")
	rootCmd.Flags().StringVar(&indexDir, "out", "", "artifact directory (overrides index.dir)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if chunksDir != "" {
		cfg.Data.ChunksDir = chunksDir
	}
	if indexDir != "" {
		cfg.Index.Dir = indexDir
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	// An interrupt cancels in-flight embedding requests. Nothing is
	// persisted, so the previous artifacts stay in place.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Step 1: Initializing embedder...")
	r, err := bootstrap.NewRetrieval(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer r.Close()
	fmt.Fprintf(out, "  ✓ %s (dim=%d)\n\n", r.Embedder.ModelInfo(), r.Embedder.Dimension())

	fmt.Fprintf(out, "Step 2: Embedding chunks from %s...\n", cfg.Data.ChunksDir)
	start := time.Now()
	if err := r.BuildFromChunks(ctx, cfg.Data.ChunksDir, logger); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("interrupted, existing index left unchanged: %w", context.Cause(ctx))
		}
		return err
	}

	info := r.Index.Info()
	fmt.Fprintf(out, "  ✓ Indexed %d chunks in %s\n\n", info.Count, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "Done! Artifacts written to %s (version %d).\n", cfg.Index.Dir, info.Version)
	return nil
}
