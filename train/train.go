// Package train fits the trip duration model on a prepared dataset.
package train

import (
	"math/rand/v2"
	"sort"

	"go.uber.org/zap"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/features"
	"github.com/teranos/tripline/linreg"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/sym"
	"github.com/teranos/tripline/trip"
)

// Attribute names fed to the encoder
const (
	AttrPickupZone  = "PULocationID"
	AttrDropoffZone = "DOLocationID"
	AttrDistance    = "trip_distance"
)

// Defaults for Options
const (
	DefaultSampleCap = 100000
	DefaultSeed      = 42
)

// Options controls subsampling before the fit
type Options struct {
	SampleCap int    // 0 means no cap
	Seed      uint64 // seeds the subsample draw
}

// DefaultOptions returns the production subsampling settings
func DefaultOptions() Options {
	return Options{SampleCap: DefaultSampleCap, Seed: DefaultSeed}
}

// TrainedModel pairs a fitted model with the encoder that produced its columns
type TrainedModel struct {
	Encoder      *features.Encoder
	Model        *linreg.Model
	FeatureCount int
	SampleCount  int
	TrainRMSE    float64
}

// Intercept returns the fitted intercept
func (m *TrainedModel) Intercept() float64 { return m.Model.Intercept() }

// PredictMapping predicts a duration in minutes for an attribute mapping
func (m *TrainedModel) PredictMapping(row features.Mapping) float64 {
	return m.Model.Predict(m.Encoder.Transform(row))
}

// Predict predicts a duration in minutes for a prepared record
func (m *TrainedModel) Predict(r trip.PreparedRecord) float64 {
	return m.PredictMapping(RecordMapping(r))
}

// Mapping builds the encoder input for one trip
func Mapping(pickupZone, dropoffZone string, distance float64) features.Mapping {
	return features.Mapping{
		AttrPickupZone:  features.String(pickupZone),
		AttrDropoffZone: features.String(dropoffZone),
		AttrDistance:    features.Number(distance),
	}
}

// RecordMapping builds the encoder input for a prepared record
func RecordMapping(r trip.PreparedRecord) features.Mapping {
	return Mapping(r.PickupZone, r.DropoffZone, r.TripDistance)
}

// Trainer fits TrainedModels
type Trainer struct {
	opts   Options
	logger *zap.SugaredLogger
}

// New creates a trainer
func New(opts Options, log *zap.SugaredLogger) *Trainer {
	return &Trainer{opts: opts, logger: logger.OrNop(log)}
}

// Train subsamples, encodes and fits. The same dataset and seed always
// produce the same model.
func (t *Trainer) Train(ds *trip.PreparedDataset) (*TrainedModel, error) {
	if ds.Len() == 0 {
		return nil, errors.NewTrainingError("cannot train on an empty dataset")
	}
	if t.opts.SampleCap < 0 {
		return nil, errors.NewTrainingError("sample cap must be >= 0, got %d", t.opts.SampleCap)
	}

	records := Subsample(ds.Records, t.opts.SampleCap, t.opts.Seed)
	if len(records) < ds.Len() {
		t.logger.Debugw("Subsampled training set",
			logger.FieldTotalCount, ds.Len(),
			logger.FieldSamples, len(records),
		)
	}

	rows := make([]features.Mapping, len(records))
	y := make([]float64, len(records))
	for i, r := range records {
		rows[i] = RecordMapping(r)
		y[i] = r.Duration
	}

	enc, err := features.Fit(rows)
	if err != nil {
		return nil, errors.WrapTraining(err, "fit encoder")
	}
	x := enc.TransformAll(rows)

	model, err := linreg.Fit(x, enc.Width(), y)
	if err != nil {
		return nil, errors.WrapTraining(err, "fit linear regression")
	}

	trained := &TrainedModel{
		Encoder:      enc,
		Model:        model,
		FeatureCount: enc.Width(),
		SampleCount:  len(records),
		TrainRMSE:    model.RMSE(x, y),
	}

	t.logger.Infow("Model fitted",
		logger.FieldIntercept, trained.Intercept(),
		logger.FieldFeatures, trained.FeatureCount,
		logger.FieldSamples, trained.SampleCount,
		logger.FieldSymbol, sym.Train,
	)
	return trained, nil
}

// Subsample returns exactly sampleCap records drawn uniformly without
// replacement when there are more than sampleCap, keeping input order.
// Otherwise it returns records unchanged. A zero cap disables sampling.
func Subsample(records []trip.PreparedRecord, sampleCap int, seed uint64) []trip.PreparedRecord {
	if sampleCap <= 0 || len(records) <= sampleCap {
		return records
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	// Partial Fisher-Yates: the first sampleCap slots end up a uniform draw
	for i := 0; i < sampleCap; i++ {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	picked := idx[:sampleCap]
	sort.Ints(picked)

	out := make([]trip.PreparedRecord, sampleCap)
	for i, k := range picked {
		out[i] = records[k]
	}
	return out
}
