package logger

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// palette holds the ANSI colors for one theme
type palette struct {
	fg        string
	time      string
	accent    string
	secondary string
	number    string
	id        string
	warn      string
	warnBg    string
	err       string
	errBg     string
}

// Everforest Dark: natural forest greens
var everforest = palette{
	fg:        "\x1b[38;5;223m",
	time:      "\x1b[38;5;107m",
	accent:    "\x1b[38;5;108m",
	secondary: "\x1b[38;5;208m",
	number:    "\x1b[38;5;108m",
	id:        "\x1b[38;5;109m",
	warn:      "\x1b[38;5;179m",
	warnBg:    "\x1b[48;5;58m",
	err:       "\x1b[38;5;167m",
	errBg:     "\x1b[48;5;52m",
}

// Gruvbox Dark: warm, muted
var gruvbox = palette{
	fg:        "\x1b[38;5;223m",
	time:      "\x1b[38;5;108m",
	accent:    "\x1b[38;5;142m",
	secondary: "\x1b[38;5;208m",
	number:    "\x1b[38;5;175m",
	id:        "\x1b[38;5;109m",
	warn:      "\x1b[38;5;214m",
	warnBg:    "\x1b[48;5;58m",
	err:       "\x1b[38;5;167m",
	errBg:     "\x1b[48;5;88m",
}

var currentTheme = "everforest"

// SetTheme configures the color scheme for log output.
// Unknown themes are ignored.
func SetTheme(theme string) {
	if theme == "everforest" || theme == "gruvbox" {
		currentTheme = theme
	}
}

func colors() palette {
	if currentTheme == "gruvbox" {
		return gruvbox
	}
	return everforest
}

var bracketPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// colorizeMessage colors bracketed stage markers like [train] and leaves the
// rest of the message in the base foreground color.
func colorizeMessage(msg string) string {
	c := colors()
	var result strings.Builder
	lastIndex := 0

	for _, match := range bracketPattern.FindAllStringIndex(msg, -1) {
		if before := msg[lastIndex:match[0]]; before != "" {
			result.WriteString(c.fg + before + colorReset)
		}
		result.WriteString(c.secondary + msg[match[0]:match[1]] + colorReset)
		lastIndex = match[1]
	}

	if remaining := msg[lastIndex:]; remaining != "" {
		result.WriteString(c.fg + remaining + colorReset)
	}
	return result.String()
}

// minimalEncoder implements a calm, compact console encoder with theme support
// Format: "13:04:35  train  Model fitted  24.77 intercept (516 features)"
type minimalEncoder struct {
	zapcore.Encoder // base encoder for fields added via With()
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{
		Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{Encoder: enc.Encoder.Clone()}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	c := colors()
	final := buffer.NewPool().Get()

	final.AppendString(c.time)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level only for WARN and above
	if ent.Level > zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(c.accent)
		final.AppendString(ent.LoggerName)
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(colorizeMessage(ent.Message))

	if values := extractFieldValues(fields); values != "" {
		final.AppendString("  ")
		final.AppendString(values)
	}

	final.AppendString("\n")
	return final, nil
}

func levelColorString(level zapcore.Level) string {
	c := colors()
	switch level {
	case zapcore.WarnLevel:
		return colorBold + c.warnBg + c.warn + "WARN" + colorReset
	default:
		return colorBold + c.errBg + c.err + level.CapitalString() + colorReset
	}
}

// getFieldValue extracts the value from a zap field, handling different field types
func getFieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.Float64Type:
		return fmt.Sprintf("%.4g", math.Float64frombits(uint64(field.Integer)))
	case zapcore.DurationType:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
	}
	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}

// extractFieldValues renders the fields the console cares about and drops the rest.
// Input:  {"count": 3403766, "path": "data/x.parquet", "duration_ms": 812}
// Output: "data/x.parquet 3403766 rows 812ms"
func extractFieldValues(fields []zapcore.Field) string {
	c := colors()
	var values []string

	for _, field := range fields {
		val := getFieldValue(field)
		if val == "" {
			continue
		}
		switch field.Key {
		case FieldRunID, FieldPath:
			values = append(values, c.id+val+colorReset)
		case FieldCount:
			values = append(values, c.number+val+colorReset+" rows")
		case FieldRemoved:
			values = append(values, c.number+val+colorReset+" removed")
		case FieldFeatures:
			values = append(values, c.number+val+colorReset+" features")
		case FieldSamples:
			values = append(values, c.number+val+colorReset+" samples")
		case FieldIntercept:
			values = append(values, "intercept "+c.number+val+colorReset)
		case FieldSize:
			values = append(values, c.number+val+colorReset+" bytes")
		case FieldDurationMS:
			values = append(values, c.number+val+colorReset+"ms")
		case FieldError:
			values = append(values, c.err+val+colorReset)
		}
	}

	return strings.Join(values, " ")
}
