// Package queue implements the bounded multi-producer/single-consumer
// buffer that sits between the ingress handlers and the uploader.
package queue

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GroupType selects which remote log group a Record is destined for.
type GroupType int

const (
	LOG GroupType = iota
	METRICS
)

func (g GroupType) String() string {
	if g == METRICS {
		return "METRICS"
	}
	return "LOG"
}

// LogMessage is a single producer-supplied line plus its timestamp.
type LogMessage struct {
	TimestampMs int64
	Message     string
}

// Record is one queued unit: a destination key (GroupType, stream suffix)
// plus the message itself.
type Record struct {
	GroupType    GroupType
	StreamSuffix string
	Msg          LogMessage
}

// Queue is a bounded FIFO shared by every ingress handler (writers) and the
// uploader (the single reader). It wraps a buffered channel, which already
// gives native multi-producer/single-consumer semantics and a non-blocking
// send/receive via select.
type Queue struct {
	records chan Record

	depth prometheus.Gauge
	drops prometheus.Counter
}

// New creates a Queue with the given capacity (MAX_LOGS_BACKLOG).
func New(capacity int, reg prometheus.Registerer) *Queue {
	q := &Queue{
		records: make(chan Record, capacity),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logprox_queue_depth",
			Help: "Current number of records buffered in the ingest queue.",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logprox_queue_drops_total",
			Help: "Total number of records dropped because the queue was full.",
		}),
	}
	if reg != nil {
		reg.MustRegister(q.depth, q.drops)
	}
	return q
}

// TryEnqueue performs a non-blocking send. It returns false, and counts a
// drop, when the queue is at capacity.
func (q *Queue) TryEnqueue(r Record) bool {
	select {
	case q.records <- r:
		q.depth.Set(float64(len(q.records)))
		return true
	default:
		q.drops.Inc()
		return false
	}
}

// DrainUpTo performs a non-blocking receive loop, returning at most n
// records and stopping early once the queue is empty.
func (q *Queue) DrainUpTo(n int) []Record {
	out := make([]Record, 0, n)
	for len(out) < n {
		select {
		case r := <-q.records:
			out = append(out, r)
		default:
			q.depth.Set(float64(len(q.records)))
			return out
		}
	}
	q.depth.Set(float64(len(q.records)))
	return out
}

// Len reports the number of records currently buffered.
func (q *Queue) Len() int {
	return len(q.records)
}
