package cloudlog

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

type baseError struct {
	message string
	cause   error
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error {
	return e.cause
}

// TransientError wraps 5xx responses, timeouts, and connection resets from
// the cloud log API. Retried per the client's own backoff policy.
type TransientError struct {
	baseError
}

// StreamNotFoundError reports that PutLogEvents failed because the target
// stream does not exist; the caller creates it and retries once.
type StreamNotFoundError struct {
	baseError
}

func isResourceAlreadyExists(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceAlreadyExistsException"
}

func isResourceNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException"
}

// classify wraps a raw SDK error into TransientError when it looks
// retriable (5xx, or a plain transport error with no API error code), and
// leaves anything else (4xx authorization failures) as-is so it bubbles up
// immediately.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorFault() == smithy.FaultServer {
			return &TransientError{baseError{message: "cloud log API transient failure", cause: err}}
		}
		return err
	}

	return &TransientError{baseError{message: "cloud log API transport failure", cause: err}}
}
