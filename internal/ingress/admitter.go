// Package ingress holds the admission logic (ECU allow-listing and
// enqueue) shared by the HTTP and gRPC front ends.
package ingress

import (
	"time"

	"github.com/otaclient/iot-logging-proxy/internal/queue"
)

// Admitter validates and enqueues incoming records on behalf of both
// protocol front ends, so the allow-list and empty-message rules are
// defined exactly once.
type Admitter struct {
	queue   *queue.Queue
	allowed map[string]struct{} // nil means filtering is disabled
	nowFunc func() time.Time
}

// NewAdmitter builds an Admitter. A nil or empty allowed set disables ECU
// filtering: every ID is accepted.
func NewAdmitter(q *queue.Queue, allowed []string) *Admitter {
	a := &Admitter{queue: q, nowFunc: time.Now}
	if len(allowed) > 0 {
		a.allowed = make(map[string]struct{}, len(allowed))
		for _, id := range allowed {
			a.allowed[id] = struct{}{}
		}
	}
	return a
}

// Result reports the outcome of an admission attempt.
type Result int

const (
	Admitted Result = iota
	RejectedEmptyMessage
	RejectedNotAllowed
	RejectedQueueFull
)

// Admit validates ecuID and message, assigns a server timestamp when
// timestampMs is zero, and enqueues. It never blocks.
func (a *Admitter) Admit(groupType queue.GroupType, ecuID, message string, timestampMs int64) Result {
	if message == "" {
		return RejectedEmptyMessage
	}
	if !a.isAllowed(ecuID) {
		return RejectedNotAllowed
	}

	if timestampMs == 0 {
		timestampMs = a.nowFunc().UnixMilli()
	}

	record := queue.Record{
		GroupType:    groupType,
		StreamSuffix: ecuID,
		Msg:          queue.LogMessage{TimestampMs: timestampMs, Message: message},
	}

	if !a.queue.TryEnqueue(record) {
		return RejectedQueueFull
	}
	return Admitted
}

func (a *Admitter) isAllowed(ecuID string) bool {
	if a.allowed == nil {
		return true
	}
	_, ok := a.allowed[ecuID]
	return ok
}
