package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/tripline/am"
	"github.com/teranos/tripline/errors"
	tripltest "github.com/teranos/tripline/internal/testing"
	"github.com/teranos/tripline/linreg"
	"github.com/teranos/tripline/registry"
	"github.com/teranos/tripline/tracking"
	"github.com/teranos/tripline/train"
	"github.com/teranos/tripline/trip"
)

const tripsCSV = `VendorID,tpep_pickup_datetime,tpep_dropoff_datetime,trip_distance,PULocationID,DOLocationID
1,2023-03-01 00:06:43,2023-03-01 00:16:43,2.5,161,236
2,2023-03-01 00:08:25,2023-03-01 00:39:30,1.8,43,151
1,2023-03-01 00:15:00,2023-03-01 00:14:00,3.2,79,145
1,2023-03-01 01:00:00,2023-03-01 01:12:00,3.0,79,145
`

// recordingStages returns stages that log their call order
func recordingStages(calls *[]string) Stages {
	return Stages{
		Load: func() (*trip.Dataset, error) {
			*calls = append(*calls, "load")
			return &trip.Dataset{Records: make([]trip.TripRecord, 5)}, nil
		},
		Clean: func(*trip.Dataset) (*trip.PreparedDataset, error) {
			*calls = append(*calls, "clean")
			return &trip.PreparedDataset{Records: make([]trip.PreparedRecord, 3)}, nil
		},
		Train: func(*trip.PreparedDataset) (*train.TrainedModel, error) {
			*calls = append(*calls, "train")
			return &train.TrainedModel{Model: linreg.New([]float64{1}, 12.5), FeatureCount: 1}, nil
		},
		Register: func(*train.TrainedModel) (*registry.Result, error) {
			*calls = append(*calls, "register")
			return &registry.Result{RunID: "r1", ModelVersion: 1}, nil
		},
	}
}

func TestRunOrder(t *testing.T) {
	var calls []string
	r := New(recordingStages(&calls), Options{})
	r.memStats = func() (MemorySnapshot, error) { return MemorySnapshot{}, nil }

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"load", "clean", "train", "register"}, calls)
	assert.Equal(t, 5, res.RecordsLoaded)
	assert.Equal(t, 3, res.RecordsRetained)
	assert.Equal(t, "r1", res.Registration.RunID)
	require.Len(t, res.Timings, 4)
	assert.Equal(t, "register", res.Timings[3].Stage)
}

func TestRunStopsAtFirstError(t *testing.T) {
	var calls []string
	stages := recordingStages(&calls)
	cause := errors.NewTrainingError("no records to train on")
	stages.Train = func(*trip.PreparedDataset) (*train.TrainedModel, error) {
		calls = append(calls, "train")
		return nil, cause
	}

	var buf bytes.Buffer
	res, err := New(stages, Options{Emitter: NewJSONEmitterTo(&buf)}).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, cause, err)
	assert.True(t, errors.IsTrainingError(err))
	assert.Equal(t, []string{"load", "clean", "train"}, calls)

	assert.Contains(t, buf.String(), `"type":"error"`)
	assert.NotContains(t, buf.String(), `"type":"complete"`)
}

func TestRunRejectsMissingStageOutput(t *testing.T) {
	var calls []string
	stages := recordingStages(&calls)
	stages.Train = func(*trip.PreparedDataset) (*train.TrainedModel, error) { return nil, nil }

	_, err := New(stages, Options{}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTrainingError(err))
	assert.NotContains(t, calls, "register")

	calls = nil
	stages = recordingStages(&calls)
	stages.Register = func(*train.TrainedModel) (*registry.Result, error) { return nil, nil }

	var buf bytes.Buffer
	_, err = New(stages, Options{Emitter: NewJSONEmitterTo(&buf)}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsRegistrationError(err))
	assert.NotContains(t, buf.String(), `"type":"complete"`)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(recordingStages(&calls), Options{}).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, calls)
}

func TestRunRequiresAllStages(t *testing.T) {
	var calls []string
	stages := recordingStages(&calls)
	stages.Clean = nil

	_, err := New(stages, Options{}).Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, calls)
}

func TestRunLogsStageTelemetry(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var calls []string
	r := New(recordingStages(&calls), Options{Logger: zap.New(core).Sugar()})
	r.memStats = func() (MemorySnapshot, error) {
		return MemorySnapshot{AvailableBytes: 512 * 1024 * 1024, UsedPercent: 40}, nil
	}

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	complete := logs.FilterMessage("Stage complete").All()
	require.Len(t, complete, 4)
	fields := complete[0].ContextMap()
	assert.Equal(t, "load", fields["stage"])
	assert.Equal(t, uint64(512), fields["mem_available"])
	assert.Contains(t, fields, "duration_ms")
}

func TestJSONEmitterEvents(t *testing.T) {
	var buf bytes.Buffer
	e := NewJSONEmitterTo(&buf)
	e.EmitStage("load", "reading")
	e.EmitProgress(3, map[string]interface{}{"unit": "records loaded"})
	e.EmitComplete(map[string]interface{}{"run_id": "abc"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var ev ProgressEvent
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, "progress", ev.Type)
	assert.Equal(t, float64(3), ev.Data["count"])
	assert.Equal(t, "records loaded", ev.Data["unit"])
	assert.False(t, ev.Timestamp.IsZero())
}

func testConfig(t *testing.T) *am.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trips.csv")
	require.NoError(t, os.WriteFile(path, []byte(tripsCSV), 0644))

	return &am.Config{
		Source: am.SourceConfig{Path: path},
		Clean:  am.CleanConfig{MinDurationMinutes: 1, MaxDurationMinutes: 60},
		Train:  am.TrainConfig{SampleCap: 100, Seed: 42},
		Tracking: am.TrackingConfig{
			ExperimentName: "exp",
			ModelName:      "model",
		},
	}
}

func TestFromConfigEndToEnd(t *testing.T) {
	store := tracking.NewStore(tripltest.CreateTestDB(t), nil)
	cfg := testConfig(t)

	var buf bytes.Buffer
	r, err := FromConfig(cfg, store, Options{Emitter: NewJSONEmitterTo(&buf)})
	require.NoError(t, err)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, res.RecordsLoaded)
	assert.Equal(t, 3, res.RecordsRetained)
	assert.Equal(t, "model", res.Registration.ModelName)
	assert.Equal(t, 1, res.Registration.ModelVersion)
	assert.Greater(t, res.Registration.ModelSize, int64(0))

	run, err := store.GetRun(res.Registration.RunID)
	require.NoError(t, err)
	assert.Equal(t, tracking.RunFinished, run.Status)

	assert.Contains(t, buf.String(), `"type":"complete"`)

	// Second run registers a new version under the same experiment
	res2, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res2.Registration.ModelVersion)
	assert.Equal(t, res.Registration.ExperimentID, res2.Registration.ExperimentID)
}

func TestFromConfigMissingSource(t *testing.T) {
	store := tracking.NewStore(tripltest.CreateTestDB(t), nil)
	cfg := testConfig(t)
	cfg.Source.Path = filepath.Join(t.TempDir(), "missing.parquet")

	r, err := FromConfig(cfg, store, Options{})
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsDataSourceError(err))

	experiments, err := store.ListExperiments()
	require.NoError(t, err)
	assert.Empty(t, experiments)
}

func TestFromConfigInvalidBounds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Clean.MinDurationMinutes = 90

	_, err := FromConfig(cfg, nil, Options{})
	require.Error(t, err)
}
