// Package readiness sends the systemd sd-notify readiness datagram once
// the server's listeners are up.
package readiness

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"
)

// Notify waits delay, then sends READY=1 to NOTIFY_SOCKET if set. Failures
// are logged at Warn and otherwise ignored, matching spec §6: a leading
// "@" in the socket path (abstract socket) is translated internally by
// daemon.SdNotify.
func Notify(ctx context.Context, delay time.Duration, logger *zap.Logger) {
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return
	}

	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("sd-notify failed", zap.Error(err))
		return
	}
	if !sent {
		logger.Debug("NOTIFY_SOCKET not set, skipping readiness notification")
	}
}
