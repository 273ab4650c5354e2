// Package predict serves duration predictions from registered model versions.
package predict

import (
	"math"

	"go.uber.org/zap"

	"github.com/teranos/tripline/artifact"
	"github.com/teranos/tripline/clean"
	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/tracking"
	"github.com/teranos/tripline/train"
	"github.com/teranos/tripline/trip"
)

// Source is the part of the tracking store predictions read from
type Source interface {
	GetModelVersion(name string, version int) (*tracking.ModelVersion, error)
	LatestModelVersion(name string) (*tracking.ModelVersion, error)
}

// Trip is one prediction request
type Trip struct {
	PickupZone  string  `json:"pickup_zone"`
	DropoffZone string  `json:"dropoff_zone"`
	Distance    float64 `json:"trip_distance"`
}

// Predictor predicts trip durations with one loaded model version
type Predictor struct {
	ModelName string
	Version   int
	RunID     string

	model  *train.TrainedModel
	logger *zap.SugaredLogger
}

// Load fetches and decodes a model version. Version 0 selects the latest.
func Load(src Source, name string, version int, log *zap.SugaredLogger) (*Predictor, error) {
	log = logger.OrNop(log)
	if version < 0 {
		return nil, errors.Newf("invalid model version %d", version)
	}

	var mv *tracking.ModelVersion
	var err error
	if version == 0 {
		mv, err = src.LatestModelVersion(name)
	} else {
		mv, err = src.GetModelVersion(name, version)
	}
	if err != nil {
		return nil, err
	}

	m, err := artifact.DecodeModel(mv.Artifact)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode model %s version %d", mv.ModelName, mv.Version)
	}

	log.Debugw("Model loaded",
		logger.FieldModelName, mv.ModelName,
		logger.FieldVersion, mv.Version,
		logger.FieldRunID, mv.RunID,
		logger.FieldFeatures, m.FeatureCount,
	)

	return &Predictor{
		ModelName: mv.ModelName,
		Version:   mv.Version,
		RunID:     mv.RunID,
		model:     m,
		logger:    log,
	}, nil
}

// FromModel wraps an in-memory model
func FromModel(m *train.TrainedModel) *Predictor {
	return &Predictor{model: m, logger: logger.OrNop(nil)}
}

// Predict returns the predicted duration in minutes. Zones the model never saw
// contribute nothing beyond the intercept and distance terms.
func (p *Predictor) Predict(t Trip) (float64, error) {
	if math.IsNaN(t.Distance) || math.IsInf(t.Distance, 0) || t.Distance < 0 {
		return 0, errors.Newf("invalid trip distance %v", t.Distance)
	}
	pu := clean.NormalizeZone(trip.ZoneID(t.PickupZone))
	do := clean.NormalizeZone(trip.ZoneID(t.DropoffZone))
	return p.model.PredictMapping(train.Mapping(pu, do, t.Distance)), nil
}

// PredictAll predicts each trip in order and stops at the first invalid one
func (p *Predictor) PredictAll(trips []Trip) ([]float64, error) {
	out := make([]float64, 0, len(trips))
	for i, t := range trips {
		y, err := p.Predict(t)
		if err != nil {
			return nil, errors.Wrapf(err, "trip %d", i)
		}
		out = append(out, y)
	}
	return out, nil
}

// Intercept returns the loaded model's intercept
func (p *Predictor) Intercept() float64 {
	return p.model.Intercept()
}
