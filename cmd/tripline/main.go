package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/tripline/cmd/tripline/commands"
	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/logger"
)

var rootCmd = &cobra.Command{
	Use:   "tripline",
	Short: "tripline - NYC taxi trip duration training pipeline",
	Long: `tripline - Train and register a trip duration model from NYC taxi records.

One run loads a monthly trip file, filters trips by duration, fits a linear
regression on pickup zone, dropoff zone and distance, and records the run and
a new model version in the local tracking database.

Available commands:
  run          - Run the full pipeline once
  watch        - Re-run the pipeline whenever the source file changes
  experiments  - List experiments
  runs         - List runs of an experiment
  models       - List registered model versions
  predict      - Predict a trip duration with a registered model
  am           - Show and validate configuration
  version      - Show version information

Examples:
  tripline run                     # Train on the configured source
  tripline run --source trips.csv  # Train on another file
  tripline predict 161 236 2.5     # Predict with the latest model version
  tripline am show --format yaml   # Show effective configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().String("config", "", "Path to a tripline.toml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON lines")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.ExperimentsCmd)
	rootCmd.AddCommand(commands.RunsCmd)
	rootCmd.AddCommand(commands.ModelsCmd)
	rootCmd.AddCommand(commands.PredictCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
