// Package tracking records experiments, runs, parameters, metrics and
// registered model versions in SQLite.
package tracking

import "time"

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	RunRunning  RunStatus = "RUNNING"
	RunFinished RunStatus = "FINISHED"
	RunFailed   RunStatus = "FAILED"
)

// Terminal reports whether the status ends a run
func (s RunStatus) Terminal() bool {
	return s == RunFinished || s == RunFailed
}

// Experiment groups runs under a unique name
type Experiment struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Run is one registration attempt within an experiment
type Run struct {
	ID           string     `json:"id" yaml:"id"`
	ExperimentID int64      `json:"experiment_id" yaml:"experiment_id"`
	Status       RunStatus  `json:"status" yaml:"status"`
	StartedAt    time.Time  `json:"started_at" yaml:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
}

// TensorSpec describes one tensor in a model signature
type TensorSpec struct {
	Type  string `json:"type" yaml:"type"`
	DType string `json:"dtype" yaml:"dtype"`
	Shape []int  `json:"shape" yaml:"shape"`
}

// Signature is the input/output schema of a registered model
type Signature struct {
	Inputs  []TensorSpec `json:"inputs" yaml:"inputs"`
	Outputs []TensorSpec `json:"outputs" yaml:"outputs"`
}

// InputExample is a small dense batch stored alongside a model version
type InputExample struct {
	Columns []string    `json:"columns" yaml:"columns"`
	Data    [][]float64 `json:"data" yaml:"data"`
}

// NewModelVersion is the input to CreateModelVersion
type NewModelVersion struct {
	ModelName    string
	RunID        string
	Artifact     []byte
	ArtifactSize int64
	Descriptor   string // MLmodel-style YAML
	Signature    Signature
	InputExample InputExample
}

// ModelVersion is a registered model version. Artifact is only populated by
// GetModelVersion and LatestModelVersion.
type ModelVersion struct {
	ModelName    string       `json:"model_name" yaml:"model_name"`
	Version      int          `json:"version" yaml:"version"`
	RunID        string       `json:"run_id" yaml:"run_id"`
	ArtifactSize int64        `json:"artifact_size" yaml:"artifact_size"`
	Descriptor   string       `json:"-" yaml:"-"`
	Signature    Signature    `json:"signature" yaml:"signature"`
	InputExample InputExample `json:"input_example" yaml:"input_example"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
	Artifact     []byte       `json:"-" yaml:"-"`
}
