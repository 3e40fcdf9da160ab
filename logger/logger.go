// Package logger builds the zap logger used by perfz and forwards reported
// traces to it.
//
//	log, err := logger.New(logger.Config{Level: logger.Info})
//	if err != nil {
//		return err
//	}
//	monitor.SetLogger(log)
//	monitor.OnTraceComplete(logger.TraceHandler(log))
package logger

import (
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zoobzio/perfz"
)

// Log levels accepted by Config.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config selects the logger level and service label.
type Config struct {
	// Level is one of debug, info, warning or error. Anything else means info.
	Level string
	// ServiceName is attached to every entry when set.
	ServiceName string
}

// FromPerfz derives a logger config from a monitor config.
func FromPerfz(cfg perfz.Config) Config {
	return Config{Level: cfg.LogLevel, ServiceName: cfg.ServiceName}
}

// ParseLevel maps a config level to a zap level.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case Debug:
		return zap.DebugLevel
	case Warning:
		return zap.WarnLevel
	case Error:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// New builds a JSON production logger writing to stderr.
func New(cfg Config) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	fields := map[string]interface{}{
		"pid": os.Getpid(),
	}
	if cfg.ServiceName != "" {
		fields["service"] = cfg.ServiceName
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(cfg.Level)),
		Encoding:         "json",
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    fields,
	}
	return zc.Build(zap.AddCaller())
}

// TraceHandler returns a handler that logs each reported trace at info level.
func TraceHandler(log *zap.Logger) perfz.TraceHandler {
	return func(s perfz.Snapshot) {
		log.Info("trace completed", Fields(s)...)
	}
}

// Fields converts a snapshot into structured log fields.
// Counters and attributes are emitted in key order.
func Fields(s perfz.Snapshot) []zap.Field {
	fields := []zap.Field{
		zap.String("trace", s.Name),
		zap.Bool("auto", s.Auto),
	}
	if s.StartTimeUs != nil {
		fields = append(fields, zap.Int64("start_time_us", *s.StartTimeUs))
	}
	if s.DurationUs != nil {
		fields = append(fields, zap.Int64("duration_us", *s.DurationUs))
	}
	if len(s.Counters) > 0 {
		fields = append(fields, zap.Object("counters", counters(s.Counters)))
	}
	if len(s.Attributes) > 0 {
		fields = append(fields, zap.Object("attributes", attributes(s.Attributes)))
	}
	return fields
}

type counters map[string]int64

func (c counters) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, k := range sortedKeys(c) {
		enc.AddInt64(k, c[k])
	}
	return nil
}

type attributes map[string]string

func (a attributes) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, k := range sortedKeys(a) {
		enc.AddString(k, a[k])
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
