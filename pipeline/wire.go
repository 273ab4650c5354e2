package pipeline

import (
	"strconv"

	"github.com/teranos/tripline/am"
	"github.com/teranos/tripline/clean"
	"github.com/teranos/tripline/loader"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/registry"
	"github.com/teranos/tripline/train"
	"github.com/teranos/tripline/trip"
)

// FromConfig wires the production stages from configuration and a tracking store
func FromConfig(cfg *am.Config, store registry.Store, opts Options) (*Runner, error) {
	cleaner, err := clean.New(clean.Bounds{
		Min: cfg.Clean.MinDurationMinutes,
		Max: cfg.Clean.MaxDurationMinutes,
	}, logger.ComponentLogger("clean"))
	if err != nil {
		return nil, err
	}

	ld := loader.New(cfg.SourcePaths(), logger.ComponentLogger("loader"))
	trainer := train.New(train.Options{
		SampleCap: cfg.Train.SampleCap,
		Seed:      cfg.Train.Seed,
	}, logger.ComponentLogger("train"))
	registrar := registry.New(store, registry.Config{
		ExperimentName: cfg.Tracking.ExperimentName,
		ModelName:      cfg.Tracking.ModelName,
	}, logger.ComponentLogger("registry"))

	if opts.Logger == nil {
		opts.Logger = logger.ComponentLogger("pipeline")
	}

	return New(Stages{
		Load: ld.Load,
		Clean: func(ds *trip.Dataset) (*trip.PreparedDataset, error) {
			out, _, err := cleaner.Clean(ds)
			return out, err
		},
		Train:    trainer.Train,
		Register: registrar.Register,
	}, opts), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
