// Package registry persists a trained model and its metadata as a new run
// and model version in the tracking store.
package registry

import (
	"math"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/teranos/tripline/artifact"
	"github.com/teranos/tripline/db"
	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/sym"
	"github.com/teranos/tripline/tracking"
	"github.com/teranos/tripline/train"
)

// Parameter values recorded on every run
const (
	ModelType      = "LinearRegression"
	VectorizerType = "DictVectorizer"
)

// Defaults for Config
const (
	DefaultExperimentName = "taxi-duration-prediction"
	DefaultModelName      = "taxi-duration-model"
)

// Store is the part of the tracking store the registrar writes to
type Store interface {
	GetOrCreateExperiment(name string) (*tracking.Experiment, error)
	StartRun(experimentID int64) (*tracking.Run, error)
	LogParam(runID, key, value string) error
	LogMetric(runID, key string, value float64) error
	CreateModelVersion(in tracking.NewModelVersion) (*tracking.ModelVersion, error)
	EndRun(runID string, status tracking.RunStatus) error
}

// Config names the experiment and registered model
type Config struct {
	ExperimentName string
	ModelName      string
	TempDir        string // where the artifact is staged; "" uses os.TempDir
}

// Result describes a successful registration
type Result struct {
	ModelSize    int64 // bytes of the serialized artifact
	Intercept    float64
	ExperimentID int64
	RunID        string
	ModelName    string
	ModelVersion int
}

// ExampleTrip is one row of the stored input example
type ExampleTrip struct {
	PickupZone  string
	DropoffZone string
	Distance    float64
}

// ExampleTrips are encoded with the model's own encoder and stored with every version
var ExampleTrips = []ExampleTrip{
	{PickupZone: "161", DropoffZone: "236", Distance: 2.5},
	{PickupZone: "43", DropoffZone: "151", Distance: 1.8},
}

// Registrar records trained models in a tracking store
type Registrar struct {
	store  Store
	cfg    Config
	logger *zap.SugaredLogger
}

// New creates a registrar. Empty names fall back to the defaults.
func New(store Store, cfg Config, log *zap.SugaredLogger) *Registrar {
	if cfg.ExperimentName == "" {
		cfg.ExperimentName = DefaultExperimentName
	}
	if cfg.ModelName == "" {
		cfg.ModelName = DefaultModelName
	}
	return &Registrar{store: store, cfg: cfg, logger: logger.OrNop(log)}
}

// Register logs the model under a new run and registers a new model version.
// Every call creates a new run. On failure after the run started, the run is
// ended FAILED and a registration error is returned.
func (r *Registrar) Register(m *train.TrainedModel) (*Result, error) {
	if m == nil || m.Encoder == nil || m.Model == nil {
		return nil, errors.NewRegistrationError("cannot register a nil model")
	}

	exp, err := r.store.GetOrCreateExperiment(r.cfg.ExperimentName)
	if err != nil {
		return nil, errors.WrapRegistration(err, "get or create experiment")
	}

	run, err := r.store.StartRun(exp.ID)
	if err != nil {
		return nil, errors.WrapRegistration(err, "start run")
	}

	result, err := r.logRun(run, m)
	if err != nil {
		r.failRun(run.ID, err)
		return nil, errors.WrapRegistration(err, "run "+run.ID)
	}
	result.ExperimentID = exp.ID

	if err := r.store.EndRun(run.ID, tracking.RunFinished); err != nil {
		r.failRun(run.ID, err)
		return nil, errors.WrapRegistration(err, "end run")
	}

	r.logger.Infow("Model registered",
		logger.FieldRunID, run.ID,
		logger.FieldModelName, result.ModelName,
		logger.FieldVersion, result.ModelVersion,
		logger.FieldSize, result.ModelSize,
		logger.FieldSymbol, sym.Register,
	)
	return result, nil
}

func (r *Registrar) logRun(run *tracking.Run, m *train.TrainedModel) (*Result, error) {
	params := [][2]string{
		{"model_type", ModelType},
		{"vectorizer_type", VectorizerType},
		{"n_features", strconv.Itoa(m.FeatureCount)},
		{"training_samples", strconv.Itoa(m.SampleCount)},
	}
	for _, p := range params {
		if err := r.store.LogParam(run.ID, p[0], p[1]); err != nil {
			return nil, err
		}
	}
	if err := r.store.LogMetric(run.ID, "intercept", m.Intercept()); err != nil {
		return nil, err
	}
	if err := r.store.LogMetric(run.ID, "training_rmse", m.TrainRMSE); err != nil {
		return nil, err
	}

	data, size, err := r.stageArtifact(m, run.StartedAt)
	if err != nil {
		return nil, err
	}

	example, predictions := InputExample(m)
	for _, p := range predictions {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, errors.Newf("input example prediction is not finite: %v", p)
		}
	}
	signature := InferSignature(example)

	descriptor, err := Descriptor(run.ID, m, signature, size, predictions)
	if err != nil {
		return nil, err
	}

	mv, err := r.store.CreateModelVersion(tracking.NewModelVersion{
		ModelName:    r.cfg.ModelName,
		RunID:        run.ID,
		Artifact:     data,
		ArtifactSize: size,
		Descriptor:   descriptor,
		Signature:    signature,
		InputExample: example,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		ModelSize:    size,
		Intercept:    m.Intercept(),
		RunID:        run.ID,
		ModelName:    mv.ModelName,
		ModelVersion: mv.Version,
	}, nil
}

// stageArtifact serializes the model to a temporary file and measures it.
// The file is removed before returning, whatever happens. The artifact is
// stamped with the run start so its size depends only on the model.
func (r *Registrar) stageArtifact(m *train.TrainedModel, startedAt time.Time) ([]byte, int64, error) {
	data, err := artifact.Encode(m, startedAt)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.CreateTemp(r.cfg.TempDir, "tripline-model-*.msgpack")
	if err != nil {
		return nil, 0, errors.Wrap(err, "create artifact file")
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, 0, errors.Wrap(err, "write artifact file")
	}
	if err := f.Close(); err != nil {
		return nil, 0, errors.Wrap(err, "close artifact file")
	}

	info, err := os.Stat(f.Name())
	if err != nil {
		return nil, 0, errors.Wrap(err, "stat artifact file")
	}

	r.logger.Debugw("Artifact staged", logger.FieldPath, f.Name(), logger.FieldSize, info.Size())
	return data, info.Size(), nil
}

// failRun ends a run FAILED. Best effort: a failure here is only logged.
func (r *Registrar) failRun(runID string, cause error) {
	r.logger.Errorw("Registration failed",
		logger.FieldRunID, runID,
		logger.FieldError, cause.Error(),
	)
	if err := r.store.EndRun(runID, tracking.RunFailed); err != nil {
		if db.IsDatabaseClosed(err) {
			r.logger.Debugw("Tracking store closed, run left RUNNING", logger.FieldRunID, runID)
			return
		}
		r.logger.Warnw("Could not mark run failed",
			logger.FieldRunID, runID,
			logger.FieldError, err.Error(),
		)
	}
}

// InputExample encodes ExampleTrips densely with the model's encoder and
// returns the model's predictions for them
func InputExample(m *train.TrainedModel) (tracking.InputExample, []float64) {
	width := m.Encoder.Width()
	example := tracking.InputExample{
		Columns: m.Encoder.FeatureNames(),
		Data:    make([][]float64, len(ExampleTrips)),
	}
	predictions := make([]float64, len(ExampleTrips))
	for i, e := range ExampleTrips {
		mapping := train.Mapping(e.PickupZone, e.DropoffZone, e.Distance)
		vec := m.Encoder.Transform(mapping)
		example.Data[i] = vec.Dense(width)
		predictions[i] = m.Model.Predict(vec)
	}
	return example, predictions
}

// InferSignature derives the tensor signature from a dense example batch.
// Predictions are one scalar per row.
func InferSignature(example tracking.InputExample) tracking.Signature {
	cols := len(example.Columns)
	if len(example.Data) > 0 {
		cols = len(example.Data[0])
	}
	return tracking.Signature{
		Inputs:  []tracking.TensorSpec{{Type: "tensor", DType: "float64", Shape: []int{-1, cols}}},
		Outputs: []tracking.TensorSpec{{Type: "tensor", DType: "float64", Shape: []int{-1}}},
	}
}

type flavor struct {
	ModelType      string `yaml:"model_type"`
	VectorizerType string `yaml:"vectorizer_type"`
	FormatVersion  string `yaml:"format_version"`
	Data           string `yaml:"data"`
}

type descriptor struct {
	ArtifactPath       string             `yaml:"artifact_path"`
	Flavors            map[string]flavor  `yaml:"flavors"`
	RunID              string             `yaml:"run_id"`
	UTCTimeCreated     string             `yaml:"utc_time_created"`
	ModelSizeBytes     int64              `yaml:"model_size_bytes"`
	Signature          tracking.Signature `yaml:"signature"`
	FeatureCount       int                `yaml:"n_features"`
	ExamplePredictions []float64          `yaml:"example_predictions"`
}

// Descriptor renders the MLmodel-style YAML stored with a model version
func Descriptor(runID string, m *train.TrainedModel, sig tracking.Signature, size int64, predictions []float64) (string, error) {
	d := descriptor{
		ArtifactPath: "model",
		Flavors: map[string]flavor{
			"tripline": {
				ModelType:      ModelType,
				VectorizerType: VectorizerType,
				FormatVersion:  artifact.FormatVersion,
				Data:           "model.msgpack",
			},
		},
		RunID:              runID,
		UTCTimeCreated:     time.Now().UTC().Format("2006-01-02 15:04:05.000000"),
		ModelSizeBytes:     size,
		Signature:          sig,
		FeatureCount:       m.FeatureCount,
		ExamplePredictions: predictions,
	}
	out, err := yaml.Marshal(d)
	if err != nil {
		return "", errors.Wrap(err, "render model descriptor")
	}
	return string(out), nil
}
