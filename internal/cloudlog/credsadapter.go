// Package cloudlog is a thin, retrying client over the remote
// CloudWatch-Logs-shaped log API: CreateLogGroup, CreateLogStream, and
// PutLogEvents.
package cloudlog

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/otaclient/iot-logging-proxy/internal/creds"
)

// credsAdapter implements aws.CredentialsProvider around a
// creds.Provider, so the AWS SDK client can be built from the same
// mTLS-refreshed credential source the rest of this system uses.
type credsAdapter struct {
	provider creds.Provider
}

func newCredsAdapter(p creds.Provider) aws.CredentialsProvider {
	return &credsAdapter{provider: p}
}

func (a *credsAdapter) Retrieve(ctx context.Context) (aws.Credentials, error) {
	c, err := a.provider.GetCredentials(ctx)
	if err != nil {
		return aws.Credentials{}, err
	}
	return aws.Credentials{
		AccessKeyID:     c.AccessKey,
		SecretAccessKey: c.SecretKey,
		SessionToken:    c.SessionToken,
		CanExpire:       true,
		Expires:         c.ExpiresAt,
	}, nil
}
