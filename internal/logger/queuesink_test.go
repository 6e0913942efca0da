package logger

import (
	"testing"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestQueueCoreForwardsEntries(t *testing.T) {
	g := NewWithT(t)

	var captured []string
	enqueue := func(message string, timestampMs int64) bool {
		captured = append(captured, message)
		g.Expect(timestampMs).To(BeNumerically(">", 0))
		return true
	}

	core := NewQueueCore(zapcore.InfoLevel, "logprox", enqueue)
	log := zap.New(core)
	log.Info("hello world")
	log.Sync()

	g.Expect(captured).To(HaveLen(1))
	g.Expect(captured[0]).To(ContainSubstring("hello world"))
}

func TestQueueCoreRespectsLevel(t *testing.T) {
	g := NewWithT(t)

	calls := 0
	enqueue := func(message string, timestampMs int64) bool {
		calls++
		return true
	}

	core := NewQueueCore(zapcore.WarnLevel, "logprox", enqueue)
	log := zap.New(core)
	log.Info("should not be forwarded")
	log.Warn("should be forwarded")

	g.Expect(calls).To(Equal(1))
}

func TestQueueCoreWithFields(t *testing.T) {
	g := NewWithT(t)

	var captured []string
	enqueue := func(message string, timestampMs int64) bool {
		captured = append(captured, message)
		return true
	}

	core := NewQueueCore(zapcore.InfoLevel, "logprox", enqueue).With([]zapcore.Field{zap.String("component", "uploader")})
	log := zap.New(core)
	log.Info("draining queue")

	g.Expect(captured).To(HaveLen(1))
	g.Expect(captured[0]).To(ContainSubstring("draining queue"))
	g.Expect(captured[0]).To(ContainSubstring("uploader"))
}
