package creds

import "time"

// Credential is a short-lived set of cloud credentials minted by the
// credential provider. It is never persisted to disk.
type Credential struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
	ExpiresAt    time.Time
}

// Expired reports whether the credential is no longer usable at now,
// applying a safety margin before the real expiry so that callers never
// hand out a credential that expires mid-request.
func (c Credential) Expired(now time.Time, margin time.Duration) bool {
	return !now.Before(c.ExpiresAt.Add(-margin))
}
