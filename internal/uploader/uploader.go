// Package uploader implements the background worker that drains the
// ingest queue, groups records by destination, and uploads them to the
// cloud log client.
package uploader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/otaclient/iot-logging-proxy/internal/cloudlog"
	"github.com/otaclient/iot-logging-proxy/internal/identity"
	"github.com/otaclient/iot-logging-proxy/internal/logger"
	"github.com/otaclient/iot-logging-proxy/internal/queue"
)

// Client is the subset of internal/cloudlog.Client the uploader depends
// on, so tests can substitute a fake.
type Client interface {
	CreateLogGroup(ctx context.Context, name string) error
	PutLogEvents(ctx context.Context, group, stream string, events []cloudlog.LogEvent) error
}

// Metrics is the subset of internal/metrics.Registry the uploader reports
// upload attempts/failures to. Optional: a nil Metrics disables reporting.
type Metrics interface {
	ObserveUploadAttempt(group string)
	ObserveUploadFailure(group string)
}

// Config holds the batching parameters from spec §4.E / §6.
type Config struct {
	MaxPerMerge int
	MaxPerPut   int
	Interval    time.Duration
}

// Uploader is the single long-running worker that owns the upload loop.
type Uploader struct {
	queue    *queue.Queue
	client   Client
	identity *identity.DeviceIdentity
	cfg      Config
	logger   *zap.Logger
	metrics  Metrics
}

// New builds an Uploader. cfg.MaxPerMerge and cfg.MaxPerPut are each
// expected to be positive; the per-cycle drain cap is their minimum.
func New(q *queue.Queue, client Client, id *identity.DeviceIdentity, cfg Config, log *zap.Logger) *Uploader {
	return &Uploader{queue: q, client: client, identity: id, cfg: cfg, logger: log}
}

// WithMetrics attaches a Metrics recorder the upload loop reports
// attempts and failures to.
func (u *Uploader) WithMetrics(m Metrics) *Uploader {
	u.metrics = m
	return u
}

func (u *Uploader) drainCap() int {
	if u.cfg.MaxPerPut < u.cfg.MaxPerMerge {
		return u.cfg.MaxPerPut
	}
	return u.cfg.MaxPerMerge
}

// Run ensures both log groups exist, then loops: drain, group, upload,
// sleep. It returns an error if either log group cannot be created;
// otherwise it returns nil when ctx is cancelled. Upload errors inside the
// loop are logged and never terminate it.
func (u *Uploader) Run(ctx context.Context) error {
	log := u.logger
	if ctxLog := logger.FromContext(ctx); ctxLog != nil {
		log = ctxLog
	}

	if err := u.client.CreateLogGroup(ctx, u.identity.LogGroup()); err != nil {
		return fmt.Errorf("initializing log group: %w", err)
	}
	if err := u.client.CreateLogGroup(ctx, u.identity.MetricsLogGroup()); err != nil {
		return fmt.Errorf("initializing metrics log group: %w", err)
	}

	ticker := time.NewTicker(u.cfg.Interval)
	defer ticker.Stop()

	for {
		u.runCycle(ctx, log)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (u *Uploader) runCycle(ctx context.Context, log *zap.Logger) {
	records := u.queue.DrainUpTo(u.drainCap())
	if len(records) == 0 {
		return
	}

	batches := groupByDestination(records)
	now := time.Now().UTC()

	for key, events := range batches {
		group := u.groupName(key.groupType)
		stream := streamName(now, u.identity.ThingName, key.streamSuffix)

		if u.metrics != nil {
			u.metrics.ObserveUploadAttempt(group)
		}

		if err := u.client.PutLogEvents(ctx, group, stream, events); err != nil {
			if u.metrics != nil {
				u.metrics.ObserveUploadFailure(group)
			}
			log.Error("put log events failed, dropping batch",
				zap.String("group", group),
				zap.String("stream", stream),
				zap.Int("count", len(events)),
				zap.Error(err))
		}
	}
}

func (u *Uploader) groupName(gt queue.GroupType) string {
	if gt == queue.METRICS {
		return u.identity.MetricsLogGroup()
	}
	return u.identity.LogGroup()
}

type destinationKey struct {
	groupType    queue.GroupType
	streamSuffix string
}

// groupByDestination buckets records by (group_type, stream_suffix),
// preserving per-key insertion order.
func groupByDestination(records []queue.Record) map[destinationKey][]cloudlog.LogEvent {
	out := make(map[destinationKey][]cloudlog.LogEvent)
	for _, r := range records {
		key := destinationKey{groupType: r.GroupType, streamSuffix: r.StreamSuffix}
		out[key] = append(out[key], cloudlog.LogEvent{TimestampMs: r.Msg.TimestampMs, Message: r.Msg.Message})
	}
	return out
}

// streamName composes "{YYYY}/{MM}/{DD}/{thing_name}/{stream_suffix}" using
// the UTC date of the upload instant, not of any individual message.
func streamName(uploadTime time.Time, thingName, suffix string) string {
	return fmt.Sprintf("%04d/%02d/%02d/%s/%s", uploadTime.Year(), uploadTime.Month(), uploadTime.Day(), thingName, suffix)
}
