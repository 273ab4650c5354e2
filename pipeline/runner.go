// Package pipeline runs the load, clean, train and register stages in order.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/registry"
	"github.com/teranos/tripline/sym"
	"github.com/teranos/tripline/train"
	"github.com/teranos/tripline/trip"
)

// Stages are the four pipeline steps. Each consumes exactly what the previous produces.
type Stages struct {
	Load     func() (*trip.Dataset, error)
	Clean    func(*trip.Dataset) (*trip.PreparedDataset, error)
	Train    func(*trip.PreparedDataset) (*train.TrainedModel, error)
	Register func(*train.TrainedModel) (*registry.Result, error)
}

// Options configures a Runner
type Options struct {
	Emitter ProgressEmitter    // nil discards progress
	Logger  *zap.SugaredLogger // nil discards logs
}

// StageTiming is how long one stage took
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Result summarizes a successful run
type Result struct {
	RecordsLoaded   int
	RecordsRetained int
	Model           *train.TrainedModel
	Registration    *registry.Result
	Timings         []StageTiming
}

// Summary renders the result for EmitComplete and CLI output
func (r *Result) Summary() map[string]interface{} {
	return map[string]interface{}{
		"records_loaded":   r.RecordsLoaded,
		"records_retained": r.RecordsRetained,
		"records_removed":  r.RecordsLoaded - r.RecordsRetained,
		"features":         r.Model.FeatureCount,
		"intercept":        r.Registration.Intercept,
		"model_size":       r.Registration.ModelSize,
		"run_id":           r.Registration.RunID,
		"model_version":    r.Registration.ModelVersion,
	}
}

// Runner executes Stages strictly in sequence
type Runner struct {
	stages   Stages
	emitter  ProgressEmitter
	logger   *zap.SugaredLogger
	memStats func() (MemorySnapshot, error)
}

// New creates a runner
func New(stages Stages, opts Options) *Runner {
	emitter := opts.Emitter
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Runner{
		stages:   stages,
		emitter:  emitter,
		logger:   logger.OrNop(opts.Logger),
		memStats: readMemory,
	}
}

// Run executes all four stages and stops at the first error, which is returned
// unchanged. The context is checked between stages only.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.stages.Load == nil || r.stages.Clean == nil || r.stages.Train == nil || r.stages.Register == nil {
		return nil, errors.New("pipeline: all four stages are required")
	}

	res := &Result{}

	ds, err := runStage(ctx, r, res, sym.StageLoad, "reading trip records", struct{}{},
		func(struct{}) (*trip.Dataset, error) { return r.stages.Load() })
	if err != nil {
		return nil, err
	}
	res.RecordsLoaded = ds.Len()
	r.emitter.EmitProgress(ds.Len(), map[string]interface{}{"stage": sym.StageLoad, "unit": "records loaded"})

	prepared, err := runStage(ctx, r, res, sym.StageClean, "filtering by duration", ds, r.stages.Clean)
	if err != nil {
		return nil, err
	}
	res.RecordsRetained = prepared.Len()
	r.emitter.EmitProgress(prepared.Len(), map[string]interface{}{"stage": sym.StageClean, "unit": "records retained"})

	model, err := runStage(ctx, r, res, sym.StageTrain, "fitting linear regression", prepared, r.stages.Train)
	if err != nil {
		return nil, err
	}
	if model == nil {
		err := errors.NewTrainingError("train stage returned no model")
		r.emitter.EmitError(sym.StageTrain, err)
		return nil, err
	}
	res.Model = model
	r.emitter.EmitInfo("model intercept " + formatFloat(model.Intercept()))

	reg, err := runStage(ctx, r, res, sym.StageRegister, "recording run and model version", model, r.stages.Register)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		err := errors.NewRegistrationError("register stage returned no result")
		r.emitter.EmitError(sym.StageRegister, err)
		return nil, err
	}
	res.Registration = reg

	r.emitter.EmitComplete(res.Summary())
	return res, nil
}

// runStage wraps one stage with events, timing and memory telemetry
func runStage[In, Out any](ctx context.Context, r *Runner, res *Result, stage, message string, in In, fn func(In) (Out, error)) (Out, error) {
	var zero Out
	if err := ctx.Err(); err != nil {
		r.emitter.EmitError(stage, err)
		return zero, errors.Wrapf(err, "pipeline cancelled before %s", stage)
	}

	r.emitter.EmitStage(stage, message)
	log := r.logger.With(logger.FieldStage, stage)
	log.Debugw("Stage started", logger.FieldSymbol, sym.ForStage(stage))

	start := time.Now()
	out, err := fn(in)
	elapsed := time.Since(start)
	res.Timings = append(res.Timings, StageTiming{Stage: stage, Duration: elapsed})

	if err != nil {
		r.emitter.EmitError(stage, err)
		log.Errorw("Stage failed",
			logger.FieldDurationMS, elapsed.Milliseconds(),
			logger.FieldError, err.Error(),
			logger.FieldErrorKind, errors.Kind(err),
		)
		return zero, err
	}

	fields := []interface{}{logger.FieldDurationMS, elapsed.Milliseconds()}
	if snap, memErr := r.memStats(); memErr == nil {
		fields = append(fields,
			logger.FieldMemAvailable, snap.AvailableMB(),
			logger.FieldMemUsedPct, snap.UsedPercent,
		)
	}
	log.Infow("Stage complete", fields...)
	return out, nil
}
