package logger

import (
	"go.uber.org/zap/zapcore"
)

// queueCore is a zapcore.Core that forwards every logged entry into the
// ingest queue as a LOG record under a fixed stream suffix, so the proxy's
// own logs are uploaded alongside the ECUs' when UPLOAD_LOGGING_SERVER_LOGS
// is enabled. It never fails or blocks: enqueue is best-effort, matching
// every other producer's back-pressure behavior.
type queueCore struct {
	zapcore.LevelEnabler
	enqueue      func(message string, timestampMs int64) bool
	streamSuffix string
	fields       []zapcore.Field
}

// NewQueueCore wraps enqueue (typically a closure over a queue.Queue's
// TryEnqueue, pre-bound to queue.LOG and the configured stream suffix) as
// a zapcore.Core suitable for zap.New(zapcore.NewTee(base, queueCore)).
func NewQueueCore(enabler zapcore.LevelEnabler, streamSuffix string, enqueue func(message string, timestampMs int64) bool) zapcore.Core {
	return &queueCore{LevelEnabler: enabler, enqueue: enqueue, streamSuffix: streamSuffix}
}

func (c *queueCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &queueCore{LevelEnabler: c.LevelEnabler, enqueue: c.enqueue, streamSuffix: c.streamSuffix, fields: merged}
}

func (c *queueCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *queueCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LevelKey:   "level",
		LineEnding: "",
	})
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)

	buf, err := enc.EncodeEntry(entry, all)
	if err != nil {
		return err
	}
	defer buf.Free()

	c.enqueue(buf.String(), entry.Time.UnixMilli())
	return nil
}

func (c *queueCore) Sync() error {
	return nil
}
