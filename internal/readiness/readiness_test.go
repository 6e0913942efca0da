package readiness

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNotifyWithoutSocketDoesNotPanic(t *testing.T) {
	old, had := os.LookupEnv("NOTIFY_SOCKET")
	os.Unsetenv("NOTIFY_SOCKET")
	defer func() {
		if had {
			os.Setenv("NOTIFY_SOCKET", old)
		}
	}()

	done := make(chan struct{})
	go func() {
		Notify(context.Background(), time.Millisecond, zap.NewNop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify did not return")
	}
}

func TestNotifyCancelledContextReturnsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		Notify(ctx, time.Hour, zap.NewNop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify did not return promptly on cancelled context")
	}
}
