package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/tripline/am"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/pipeline"
	"github.com/teranos/tripline/sym"
)

// RunCmd runs the pipeline once
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: sym.Pipeline + " Run the training pipeline once",
	Long: sym.Pipeline + ` run — Load, clean, train and register

Stages run strictly in order. The first failing stage stops the pipeline and
its error is reported; a registration failure marks the run FAILED.

Examples:
  tripline run
  tripline run --source data/yellow_tripdata_2023-04.parquet
  tripline run --sample-cap 0 --seed 7    # train on every retained row
  tripline run --progress json            # machine-readable progress events`,
	RunE: runRun,
}

var (
	runSourceFlag    string
	runSampleCapFlag int
	runSeedFlag      uint64
	runProgressFlag  string
	runDBFlag        string
	runExperiment    string
)

func init() {
	addPipelineFlags(RunCmd)
}

// addPipelineFlags registers the overrides shared by run and watch
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runSourceFlag, "source", "", "Override source.path")
	cmd.Flags().IntVar(&runSampleCapFlag, "sample-cap", -1, "Override train.sample_cap (0 trains on every row)")
	cmd.Flags().Uint64Var(&runSeedFlag, "seed", 0, "Override train.seed")
	cmd.Flags().StringVar(&runProgressFlag, "progress", "cli", "Progress output: cli, json, none")
	cmd.Flags().StringVar(&runDBFlag, "db", "", "Override tracking.database_path")
	cmd.Flags().StringVar(&runExperiment, "experiment", "", "Override tracking.experiment_name")
}

// applyPipelineFlags copies set flags over the loaded configuration
func applyPipelineFlags(cmd *cobra.Command, cfg *am.Config) {
	if runSourceFlag != "" {
		cfg.Source.Path = runSourceFlag
		cfg.Source.FallbackPaths = nil
	}
	if runSampleCapFlag >= 0 {
		cfg.Train.SampleCap = runSampleCapFlag
	}
	if cmd.Flags().Changed("seed") {
		cfg.Train.Seed = runSeedFlag
	}
	if runDBFlag != "" {
		cfg.Tracking.DatabasePath = runDBFlag
	}
	if runExperiment != "" {
		cfg.Tracking.ExperimentName = runExperiment
	}
}

func newEmitter(cmd *cobra.Command) pipeline.ProgressEmitter {
	switch runProgressFlag {
	case "json":
		return pipeline.NewJSONEmitterTo(cmd.OutOrStdout())
	case "none":
		return pipeline.NopEmitter{}
	default:
		verbosity, _ := cmd.Flags().GetCount("verbose")
		return pipeline.NewCLIEmitter(verbosity)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyPipelineFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

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

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Infow("Run finished",
		logger.FieldRunID, res.Registration.RunID,
		logger.FieldModelName, res.Registration.ModelName,
		logger.FieldVersion, res.Registration.ModelVersion,
	)
	return nil
}
