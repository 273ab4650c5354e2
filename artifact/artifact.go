// Package artifact serializes trained models, encoder included, so a
// registered version can be loaded back for prediction.
package artifact

import (
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/features"
	"github.com/teranos/tripline/linreg"
	"github.com/teranos/tripline/train"
)

// FormatVersion is written into every artifact
const FormatVersion = "1.0.0"

// SupportedFormats is the range of artifact versions Decode accepts
const SupportedFormats = "^1"

// Artifact is the on-disk form of a TrainedModel
type Artifact struct {
	FormatVersion string    `msgpack:"format_version"`
	FeatureNames  []string  `msgpack:"feature_names"`
	Coef          []float64 `msgpack:"coef"`
	Intercept     float64   `msgpack:"intercept"`
	SampleCount   int       `msgpack:"sample_count"`
	TrainRMSE     float64   `msgpack:"train_rmse"`
	CreatedAt     time.Time `msgpack:"created_at"`
}

// FromModel captures a trained model. createdAt is stored at second
// precision so equal models under equal timestamps encode to equal bytes.
func FromModel(m *train.TrainedModel, createdAt time.Time) (*Artifact, error) {
	if m == nil || m.Encoder == nil || m.Model == nil {
		return nil, errors.New("artifact: model is incomplete")
	}
	return &Artifact{
		FormatVersion: FormatVersion,
		FeatureNames:  m.Encoder.FeatureNames(),
		Coef:          m.Model.Coef(),
		Intercept:     m.Intercept(),
		SampleCount:   m.SampleCount,
		TrainRMSE:     m.TrainRMSE,
		CreatedAt:     createdAt.UTC().Truncate(time.Second),
	}, nil
}

// Encode serializes a trained model
func Encode(m *train.TrainedModel, createdAt time.Time) ([]byte, error) {
	a, err := FromModel(m, createdAt)
	if err != nil {
		return nil, err
	}
	data, err := msgpack.Marshal(a)
	if err != nil {
		return nil, errors.Wrap(err, "artifact: marshal")
	}
	return data, nil
}

// Decode parses an artifact and checks its format version
func Decode(data []byte) (*Artifact, error) {
	var a Artifact
	if err := msgpack.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(err, "artifact: unmarshal")
	}
	if err := checkFormat(a.FormatVersion); err != nil {
		return nil, err
	}
	if len(a.FeatureNames) != len(a.Coef) {
		return nil, errors.Newf("artifact: %d feature names but %d coefficients", len(a.FeatureNames), len(a.Coef))
	}
	return &a, nil
}

func checkFormat(v string) error {
	version, err := semver.NewVersion(v)
	if err != nil {
		return errors.Wrapf(err, "artifact: invalid format version %q", v)
	}
	constraint, err := semver.NewConstraint(SupportedFormats)
	if err != nil {
		return errors.Wrap(err, "artifact: invalid format constraint")
	}
	if !constraint.Check(version) {
		return errors.WithHint(
			errors.Newf("artifact: format version %s not supported (want %s)", version, SupportedFormats),
			"re-run the pipeline to register a model with this tripline build",
		)
	}
	return nil
}

// Model rebuilds the trained model, encoder included
func (a *Artifact) Model() (*train.TrainedModel, error) {
	enc, err := features.FromNames(a.FeatureNames)
	if err != nil {
		return nil, errors.Wrap(err, "artifact: rebuild encoder")
	}
	return &train.TrainedModel{
		Encoder:      enc,
		Model:        linreg.New(a.Coef, a.Intercept),
		FeatureCount: enc.Width(),
		SampleCount:  a.SampleCount,
		TrainRMSE:    a.TrainRMSE,
	}, nil
}

// DecodeModel is Decode followed by Model
func DecodeModel(data []byte) (*train.TrainedModel, error) {
	a, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return a.Model()
}
