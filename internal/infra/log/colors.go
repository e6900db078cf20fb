package log

import (
	"regexp"

	"go.uber.org/zap/zapcore"
)

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripColors(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(colorCyan + "DEBUG" + colorReset)
	case zapcore.InfoLevel:
		enc.AppendString(colorBlue + "INFO" + colorReset)
	case zapcore.WarnLevel:
		enc.AppendString(colorYellow + "WARN" + colorReset)
	case zapcore.ErrorLevel:
		enc.AppendString(colorRed + "ERROR" + colorReset)
	case zapcore.FatalLevel:
		enc.AppendString(colorRed + "FATAL" + colorReset)
	default:
		enc.AppendString(colorWhite + level.CapitalString() + colorReset)
	}
}

// AccountTag renders "[name]" in the account color.
func AccountTag(name string) string {
	return colorMagenta + "[" + name + "]" + colorReset
}

// Done colors completed-task text (earnings).
func Done(s string) string { return colorGreen + s + colorReset }

// Info colors secondary detail (epochs, counts).
func Info(s string) string { return colorCyan + s + colorReset }

// Failed colors error text.
func Failed(s string) string { return colorRed + s + colorReset }
