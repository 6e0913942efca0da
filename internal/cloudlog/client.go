package cloudlog

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"go.uber.org/zap"

	"github.com/otaclient/iot-logging-proxy/internal/creds"
	"github.com/otaclient/iot-logging-proxy/internal/retry"
)

// LogEvent is one record handed to PutLogEvents.
type LogEvent struct {
	TimestampMs int64
	Message     string
}

// stopOnNonTransient is the Retrier HandleError for create/put operations:
// transient failures (and the internal "stream not found, retry in
// progress" signal, which surfaces as nil) keep retrying; anything else
// (authorization failures) stops the loop immediately.
func stopOnNonTransient(err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *TransientError, *StreamNotFoundError:
		return nil
	default:
		return err
	}
}

var createRetry = retry.Retrier{
	Backoff:     retry.Backoff{Duration: 2 * time.Second, Factor: 2, Cap: 32 * time.Second, Steps: 16},
	HandleError: stopOnNonTransient,
}

var putRetry = retry.Retrier{
	Backoff:     retry.Backoff{Duration: 2 * time.Second, Factor: 2, Cap: 32 * time.Second, Steps: 6},
	HandleError: stopOnNonTransient,
}

// Client is a retrying wrapper over the three cloud log API operations the
// uploader needs.
type Client struct {
	sdk    *cloudwatchlogs.Client
	logger *zap.Logger
}

// New builds a Client backed by the given credential provider and region.
func New(region string, credsProvider creds.Provider, logger *zap.Logger) *Client {
	cfg := aws.Config{
		Region:      region,
		Credentials: newCredsAdapter(credsProvider),
	}
	return &Client{sdk: cloudwatchlogs.NewFromConfig(cfg), logger: logger}
}

// CreateLogGroup is idempotent: ResourceAlreadyExistsException counts as
// success.
func (c *Client) CreateLogGroup(ctx context.Context, name string) error {
	return createRetry.Do(ctx, func(ctx context.Context) (bool, error) {
		_, err := c.sdk.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: &name})
		return handleCreate(err)
	})
}

// CreateLogStream is idempotent: ResourceAlreadyExistsException counts as
// success.
func (c *Client) CreateLogStream(ctx context.Context, group, name string) error {
	return createRetry.Do(ctx, func(ctx context.Context) (bool, error) {
		_, err := c.sdk.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
			LogGroupName:  &group,
			LogStreamName: &name,
		})
		return handleCreate(err)
	})
}

func handleCreate(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if isResourceAlreadyExists(err) {
		return true, nil
	}
	return false, classify(err)
}

// PutLogEvents uploads events to group/stream. On ResourceNotFoundException
// it creates the stream once and retries the put within the same call.
func (c *Client) PutLogEvents(ctx context.Context, group, stream string, events []LogEvent) error {
	retried := false
	return putRetry.Do(ctx, func(ctx context.Context) (bool, error) {
		_, err := c.sdk.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  &group,
			LogStreamName: &stream,
			LogEvents:     toInputEvents(events),
		})
		if err == nil {
			return true, nil
		}

		if isResourceNotFound(err) && !retried {
			retried = true
			c.logger.Warn("log stream missing, creating and retrying", zap.String("group", group), zap.String("stream", stream),
				zap.Error(&StreamNotFoundError{baseError{message: "stream not found", cause: err}}))
			if createErr := c.CreateLogStream(ctx, group, stream); createErr != nil {
				return false, classify(createErr)
			}
			return false, nil
		}

		return false, classify(err)
	})
}

func toInputEvents(events []LogEvent) []types.InputLogEvent {
	out := make([]types.InputLogEvent, len(events))
	for i, e := range events {
		ts := e.TimestampMs
		msg := e.Message
		out[i] = types.InputLogEvent{Timestamp: &ts, Message: &msg}
	}
	return out
}
