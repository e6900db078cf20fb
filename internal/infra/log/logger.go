package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Logger writes to logs/app.log (everything, with fields).
// consoleLogger writes human-readable lines to stdout (messages only).
var Logger *zap.Logger
var consoleLogger *zap.Logger

// Options controls where log output goes.
type Options struct {
	Dir         string
	FileEnabled bool
	Debug       bool
}

func init() {
	Logger = zap.NewNop()
	consoleLogger = newConsoleLogger(colorable.NewColorableStdout(), zapcore.InfoLevel)
}

// Init rebuilds both loggers. Call it once before starting account loops.
func Init(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}
	consoleLogger = newConsoleLogger(colorable.NewColorableStdout(), level)

	if !opts.FileEnabled {
		Logger = zap.NewNop()
		return nil
	}

	dir := opts.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	fileCore := zapcore.NewCore(
		&lineEncoder{Encoder: zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())},
		getLogFileWriter(filepath.Join(dir, "app.log")),
		zapcore.DebugLevel,
	)
	Logger = zap.New(fileCore)
	return nil
}

// SetConsoleOutput redirects console lines, mostly useful in tests.
func SetConsoleOutput(w io.Writer) {
	consoleLogger = newConsoleLogger(w, zapcore.DebugLevel)
}

// Sync flushes both loggers.
func Sync() {
	_ = Logger.Sync()
	_ = consoleLogger.Sync()
}

func newConsoleLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = customLevelEncoder
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cfg.CallerKey = zapcore.OmitKey
	cfg.NameKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

// GenerateRequestID returns a short id used to pair request/response lines.
func GenerateRequestID() string {
	return uuid.NewString()[:8]
}

// LogRequest records an outgoing HTTP request (file only)
func LogRequest(requestID, method, endpoint string, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
	}, fields...)
	Logger.Debug("HTTP request", allFields...)
}

// LogResponse records an HTTP response (file only)
func LogResponse(requestID string, statusCode int, durationMs int64, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("request_id", requestID),
		zap.Int("status_code", statusCode),
		zap.Int64("duration_ms", durationMs),
	}, fields...)

	if statusCode >= 200 && statusCode < 300 {
		Logger.Debug("HTTP response", allFields...)
	} else {
		Logger.Error("HTTP response", allFields...)
	}
}

// LogInfo prints an informational line.
func LogInfo(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)
	consoleLogger.Info(message)
}

// LogSuccess prints a green check line, with the elapsed time when a duration_ms field is present.
func LogSuccess(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)

	if durationMs := extractDuration(fields); durationMs > 0 {
		consoleLogger.Info(fmt.Sprintf("%s✓%s %s (%dms)", colorGreen, colorReset, message, durationMs))
	} else {
		consoleLogger.Info(colorGreen + "✓" + colorReset + " " + message)
	}
}

// LogError prints a red cross line.
func LogError(message string, fields ...zap.Field) {
	Logger.Error(message, fields...)
	consoleLogger.Error(colorRed + "✗" + colorReset + " " + message)
}

func LogWarn(message string, fields ...zap.Field) {
	Logger.Warn(message, fields...)
	consoleLogger.Warn(message)
}

// LogDebug goes to the file, and to the console only in debug mode.
func LogDebug(message string, fields ...zap.Field) {
	Logger.Debug(message, fields...)
	consoleLogger.Debug(message)
}

func extractDuration(fields []zap.Field) int64 {
	for _, field := range fields {
		if field.Key == "duration_ms" && field.Type == zapcore.Int64Type {
			return field.Integer
		}
	}
	return 0
}

const (
	// MaxLogFileSize caps app.log; the file is truncated once it grows past it.
	MaxLogFileSize = 50 * 1024 * 1024
)

type truncatingWriter struct {
	mu   sync.Mutex
	file *os.File
	path string
}

func (w *truncatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := w.file.Stat()
	if err == nil && info.Size() > MaxLogFileSize {
		w.file.Close()
		w.file, err = os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return 0, fmt.Errorf("failed to truncate log file: %w", err)
		}
	}

	return w.file.Write(p)
}

func (w *truncatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

func getLogFileWriter(path string) zapcore.WriteSyncer {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v, falling back to stderr\n", path, err)
		return zapcore.AddSync(os.Stderr)
	}
	return &truncatingWriter{file: file, path: path}
}

var linePool = buffer.NewPool()

// lineEncoder writes "<time>     <LEVEL> <msg>\t{json fields}".
type lineEncoder struct {
	zapcore.Encoder
}

func (e *lineEncoder) Clone() zapcore.Encoder {
	return &lineEncoder{Encoder: e.Encoder.Clone()}
}

func (e *lineEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := linePool.Get()

	buf.AppendString(entry.Time.Format("2006-01-02 15:04:05"))
	buf.AppendString("     ")
	buf.AppendString(entry.Level.CapitalString())
	buf.AppendString(" ")
	buf.AppendString(stripColors(entry.Message))

	if len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, field := range fields {
			field.AddTo(enc)
		}
		if jsonData, err := json.Marshal(enc.Fields); err == nil {
			buf.AppendString("\t")
			buf.Write(jsonData)
		}
	}

	buf.AppendString("\n")
	return buf, nil
}
