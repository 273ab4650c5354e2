package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/predict"
	"github.com/teranos/tripline/sym"
)

// PredictCmd predicts one trip duration
var PredictCmd = &cobra.Command{
	Use:   "predict <pickup-zone> <dropoff-zone> <distance>",
	Short: sym.Predict + " Predict a trip duration in minutes",
	Long: sym.Predict + ` predict — Predict with a registered model version

Uses the latest version of tracking.model_name unless --version is given.
Zones the model never saw fall back to the intercept and distance terms.

Examples:
  tripline predict 161 236 2.5
  tripline predict 43 151 1.8 --version 2`,
	Args: cobra.ExactArgs(3),
	RunE: runPredict,
}

var (
	predictVersionFlag int
	predictModelFlag   string
)

func init() {
	PredictCmd.Flags().IntVar(&predictVersionFlag, "version", 0, "Model version (default: latest)")
	PredictCmd.Flags().StringVar(&predictModelFlag, "model", "", "Model name (default: tracking.model_name)")
	PredictCmd.Flags().BoolVarP(&jsonOutputFlag, "json", "j", false, "Output as JSON")
}

func runPredict(cmd *cobra.Command, args []string) error {
	distance, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return errors.WithHint(errors.Newf("invalid distance %q", args[2]), "distance is in miles, e.g. 2.5")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	name := cfg.Tracking.ModelName
	if predictModelFlag != "" {
		name = predictModelFlag
	}

	database, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	p, err := predict.Load(store, name, predictVersionFlag, logger.ComponentLogger("predict"))
	if err != nil {
		return err
	}

	t := predict.Trip{PickupZone: args[0], DropoffZone: args[1], Distance: distance}
	minutes, err := p.Predict(t)
	if err != nil {
		return err
	}

	if jsonOutputFlag {
		return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
			"model_name":       p.ModelName,
			"version":          p.Version,
			"run_id":           p.RunID,
			"trip":             t,
			"duration_minutes": minutes,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%.2f minutes (%s v%d)\n", minutes, p.ModelName, p.Version)
	return nil
}
