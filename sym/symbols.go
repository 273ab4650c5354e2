// Package sym defines the glyphs tripline uses to mark pipeline stages and
// system components in CLI and log output. These are stable across commands.
package sym

// Stage glyphs, one per pipeline stage.
const (
	Load     = "⨳" // load: read the source dataset
	Clean    = "≋" // clean: derive duration, filter out-of-range trips
	Train    = "∑" // train: encode features, fit the linear model
	Register = "⊕" // register: persist run + model version
)

// System glyphs.
const (
	Pipeline = "꩜" // pipeline runner
	DB       = "⊔" // tracking database
	AM       = "≡" // configuration
	Predict  = "⟶" // offline prediction
)

// Stage names as used by the pipeline runner and in log fields.
const (
	StageLoad     = "load"
	StageClean    = "clean"
	StageTrain    = "train"
	StageRegister = "register"
)

var stageGlyphs = map[string]string{
	StageLoad:     Load,
	StageClean:    Clean,
	StageTrain:    Train,
	StageRegister: Register,
}

// Stages lists the stage names in execution order.
func Stages() []string {
	return []string{StageLoad, StageClean, StageTrain, StageRegister}
}

// ForStage returns the glyph for a stage name, or the pipeline glyph when the
// name is unknown.
func ForStage(stage string) string {
	if g, ok := stageGlyphs[stage]; ok {
		return g
	}
	return Pipeline
}
