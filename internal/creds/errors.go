// Package creds implements the mTLS credential provider: it fetches
// short-lived cloud credentials from the IoT Core Credential Provider
// endpoint named by a device identity, caches them, and refreshes them
// before they expire.
package creds

import (
	"errors"
	"fmt"
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

// CredentialFetchFailedError reports a non-2xx response from the
// credential endpoint. The response body is deliberately never attached:
// it may carry sensitive material.
type CredentialFetchFailedError struct {
	baseError
	Status int
}

// TlsSetupFailedError wraps a failure to construct the mTLS client or its
// request (certificate or CA load, certificate pre-flight validation,
// PKCS#11 session setup, or building the HTTP request). Handshake failures
// surface from the HTTP client as plain transport errors instead.
type TlsSetupFailedError struct {
	baseError
}

// IsRetriable reports whether err belongs to a class the credential
// provider's own retry loop should retry: transport-level failures and
// TLS/PKCS#11 setup failures. A CredentialFetchFailedError with a 4xx
// status is never retriable.
func IsRetriable(err error) bool {
	var fetchErr *CredentialFetchFailedError
	if errors.As(err, &fetchErr) {
		return fetchErr.Status >= 500
	}

	var tlsErr *TlsSetupFailedError
	if errors.As(err, &tlsErr) {
		return true
	}

	// Anything else reaching here (network dial/timeout errors) is a
	// transport failure and is retriable.
	return err != nil
}
