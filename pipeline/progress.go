package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/tripline/sym"
)

// ProgressEmitter receives progress updates while the pipeline runs.
//
// Implementations include:
// - CLIEmitter: Pretty-printed terminal output using pterm
// - JSONEmitter: Newline-delimited JSON events for scripts and CI
// - NopEmitter: Discards everything
type ProgressEmitter interface {
	// EmitStage announces the start of a stage
	EmitStage(stage string, message string)

	// EmitProgress reports a count produced by a stage, with optional metadata
	EmitProgress(count int, metadata map[string]interface{})

	// EmitComplete announces successful completion with a summary
	EmitComplete(summary map[string]interface{})

	// EmitError announces the error that stopped the pipeline
	EmitError(stage string, err error)

	// EmitInfo emits a general informational message
	EmitInfo(message string)
}

// ProgressEvent is one structured JSON progress event
type ProgressEvent struct {
	Type      string                 `json:"type"` // "stage", "progress", "complete", "error", "info"
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// CLIEmitter outputs pretty-printed progress to the terminal using pterm
type CLIEmitter struct {
	verbosity int
}

// NewCLIEmitter creates a CLI progress emitter for terminal output
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

// EmitStage prints a stage announcement
func (e *CLIEmitter) EmitStage(stage string, message string) {
	pterm.Printf("%s %s: %s\n", sym.ForStage(stage), pterm.LightCyan(stage), message)
}

// EmitProgress prints a stage count
func (e *CLIEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	unit := "records"
	if u, ok := metadata["unit"].(string); ok {
		unit = u
	}
	pterm.Printf("  %s %s\n", pterm.Green(fmt.Sprintf("%d", count)), unit)
}

// EmitComplete prints the completion summary in key order
func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	pterm.Success.Println("Pipeline complete")
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pterm.Printf("  %s: %v\n", k, summary[k])
	}
}

// EmitError prints an error
func (e *CLIEmitter) EmitError(stage string, err error) {
	pterm.Error.Printf("Error in %s: %v\n", stage, err)
}

// EmitInfo prints an informational message at -v and above
func (e *CLIEmitter) EmitInfo(message string) {
	if e.verbosity >= 1 {
		pterm.Info.Println(message)
	}
}

// JSONEmitter writes one JSON event per line
type JSONEmitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONEmitter creates a JSON emitter writing to stdout
func NewJSONEmitter() *JSONEmitter {
	return NewJSONEmitterTo(os.Stdout)
}

// NewJSONEmitterTo creates a JSON emitter writing to w
func NewJSONEmitterTo(w io.Writer) *JSONEmitter {
	return &JSONEmitter{encoder: json.NewEncoder(w)}
}

func (e *JSONEmitter) emit(eventType string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.encoder.Encode(ProgressEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

// EmitStage emits a stage event
func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{
		"stage":   stage,
		"message": message,
	})
}

// EmitProgress emits a progress event, metadata merged into data
func (e *JSONEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	data := map[string]interface{}{"count": count}
	for k, v := range metadata {
		data[k] = v
	}
	e.emit("progress", data)
}

// EmitComplete emits a completion event
func (e *JSONEmitter) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

// EmitError emits an error event
func (e *JSONEmitter) EmitError(stage string, err error) {
	e.emit("error", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
}

// EmitInfo emits an info event
func (e *JSONEmitter) EmitInfo(message string) {
	e.emit("info", map[string]interface{}{"message": message})
}

// NopEmitter discards all progress
type NopEmitter struct{}

func (NopEmitter) EmitStage(string, string) {}
func (NopEmitter) EmitProgress(int, map[string]interface{}) {}
func (NopEmitter) EmitComplete(map[string]interface{}) {}
func (NopEmitter) EmitError(string, error) {}
func (NopEmitter) EmitInfo(string) {}
