package praxis

import (
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig configures NewLogger.
type LogConfig struct {
	// Debug lowers the console level to debug. Otherwise only warnings
	// and errors reach the console.
	Debug bool

	// Path is a file to append JSON logs to. Defaults to stderr.
	Path string
}

// NewLogger builds a production JSON logger. Event names are the log
// messages (ai.scenario.start, ai.retry, ...).
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if cfg.Debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.Sampling = nil
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.MessageKey = "event"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Path != "" {
		config.OutputPaths = []string{cfg.Path}
	}
	return config.Build()
}

// eventSink receives persisted events.
type eventSink interface {
	AppendEvent(e Event, limit int) error
}

// TeeEvents returns a logger that also records info-and-above entries in
// the store's event log, keeping the most recent limit events.
func TeeEvents(logger *zap.Logger, sink eventSink, limit int) *zap.Logger {
	if limit <= 0 {
		limit = DefaultEventLogLimit
	}
	events := &eventCore{LevelEnabler: zapcore.InfoLevel, sink: sink, limit: limit}
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, events)
	}))
}

// eventCore is a zapcore.Core writing entries to an eventSink.
type eventCore struct {
	zapcore.LevelEnabler
	sink   eventSink
	limit  int
	fields []zapcore.Field
}

func (c *eventCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *eventCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *eventCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	e := Event{
		Level:     ent.Level.String(),
		Name:      ent.Message,
		Timestamp: ent.Time.UTC(),
	}
	if len(enc.Fields) > 0 {
		e.Fields = enc.Fields
	}

	err := c.sink.AppendEvent(e, c.limit)
	if errors.Is(err, ErrStoreClosed) {
		// Teardown events after the store closes are dropped.
		return nil
	}
	return err
}

func (c *eventCore) Sync() error { return nil }
