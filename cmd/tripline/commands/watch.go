package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/tripline/loader"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/pipeline"
	"github.com/teranos/tripline/sym"
)

// WatchCmd re-runs the pipeline when the source file changes
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: sym.Pipeline + " Re-run the pipeline when the source file changes",
	Long: sym.Pipeline + ` watch — Run once, then again after each change to the source

Changes are debounced by watch.debounce_ms. Runs never overlap; a failed run
is reported and watching continues. Stop with Ctrl+C.

Examples:
  tripline watch
  tripline watch --source data/latest.csv`,
	RunE: runWatch,
}

func init() {
	addPipelineFlags(WatchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyPipelineFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	path, err := loader.ResolvePath(cfg.SourcePaths())
	if err != nil {
		return err
	}
	// Pin the resolved path so every run reads the watched file
	cfg.Source.Path = path
	cfg.Source.FallbackPaths = nil

	database, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	runner, err := pipeline.FromConfig(cfg, store, pipeline.Options{Emitter: newEmitter(cmd)})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := func(ctx context.Context) error {
		_, err := runner.Run(ctx)
		return err
	}

	if err := run(ctx); err != nil {
		logger.Errorw("Initial run failed", logger.FieldError, err.Error())
	}

	debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
	return pipeline.Watch(ctx, path, debounce, run, logger.ComponentLogger("watch"))
}
