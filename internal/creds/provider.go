package creds

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/otaclient/iot-logging-proxy/internal/certificate"
	"github.com/otaclient/iot-logging-proxy/internal/identity"
	"github.com/otaclient/iot-logging-proxy/internal/network"
	"github.com/otaclient/iot-logging-proxy/internal/retry"
)

// ExpiryMargin is the safety window applied before a credential's real
// expiry; a credential within this margin of expiring is treated as
// already expired.
const ExpiryMargin = 5 * time.Minute

const fetchTimeout = 10 * time.Second

// reachabilityCheckTimeout bounds the pre-flight connectivity check done
// before each refresh; it is a lightweight sanity check, not the refresh
// itself, so it gets its own short budget.
const reachabilityCheckTimeout = 3 * time.Second

// maxConsecutiveRefreshFailures caps how many retriable fetch failures may
// occur back to back, counted across refreshes. Once the cap is exceeded, a
// refresh returns after its first failed fetch instead of retrying, until a
// successful fetch resets the count.
const maxConsecutiveRefreshFailures = 10

// Provider mints and caches short-lived credentials for a device identity.
type Provider interface {
	GetCredentials(ctx context.Context) (Credential, error)
	// WithMetrics attaches a Metrics recorder the provider reports refresh
	// attempts to, returning the same Provider for chaining.
	WithMetrics(m Metrics) Provider
}

// Metrics is the subset of internal/metrics.Registry the provider reports
// refresh attempts to. Optional: a nil Metrics disables reporting.
type Metrics interface {
	ObserveCredentialRefresh()
}

// provider is the default Provider implementation: an mTLS HTTP client
// against the identity's refresh URL, with a cached credential and
// single-flight refresh coalescing.
type provider struct {
	identity *identity.DeviceIdentity
	client   *http.Client
	logger   *zap.Logger

	mu         sync.Mutex
	cached     Credential
	refreshing bool
	waiters    []chan error

	metrics               Metrics
	refreshFailureHandler retry.HandleError
}

// WithMetrics attaches a Metrics recorder the provider reports refresh
// attempts to.
func (p *provider) WithMetrics(m Metrics) Provider {
	p.metrics = m
	return p
}

// NewProvider builds a Provider for the given identity, constructing the
// mTLS client from either its file-based or PKCS#11-based key material.
func NewProvider(id *identity.DeviceIdentity, logger *zap.Logger) (Provider, error) {
	tlsConfig, err := buildTLSConfig(id)
	if err != nil {
		return nil, err
	}

	if network.IsProxyEnabled() {
		logger.Info("proxy configuration detected in environment, routing credential requests through it")
	}

	return &provider{
		identity: id,
		logger:   logger,
		client: &http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsConfig, Proxy: network.ProxyFunc()},
			Timeout:   fetchTimeout,
		},
		refreshFailureHandler: retry.NewMaxConsecutiveErrorHandler(maxConsecutiveRefreshFailures),
	}, nil
}

func buildTLSConfig(id *identity.DeviceIdentity) (*tls.Config, error) {
	var cert tls.Certificate
	var err error

	if id.PKCS11 != nil && (identity.IsPKCS11Ref(id.PrivateKeyRef) || identity.IsPKCS11Ref(id.CertificateRef)) {
		cert, err = loadKeyPairFromToken(id.PKCS11, id.PrivateKeyRef, id.CertificateRef)
	} else {
		cert, err = tls.LoadX509KeyPair(id.CertificateRef, id.PrivateKeyRef)
		if err != nil {
			err = &TlsSetupFailedError{baseError{message: "loading device key pair", cause: err}}
		}
	}
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	var caData []byte
	if id.CAPath != "" {
		var readErr error
		caData, readErr = os.ReadFile(id.CAPath)
		if readErr != nil {
			return nil, &TlsSetupFailedError{baseError{message: "reading CA bundle", cause: readErr}}
		}
		if !pool.AppendCertsFromPEM(caData) {
			return nil, &TlsSetupFailedError{baseError{message: "parsing CA bundle"}}
		}
	}

	// Fail fast on a malformed or expired device certificate before handing
	// it to the TLS stack. This only checks format/expiry, not the chain:
	// id.CAPath is the trust root used to verify the remote server, not to
	// verify our own leaf.
	if len(cert.Certificate) > 0 {
		if err := certificate.ValidateDER(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]}), nil); err != nil {
			return nil, &TlsSetupFailedError{baseError{message: "device certificate failed pre-flight validation", cause: err}}
		}
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// GetCredentials returns the cached credential if it is still valid,
// otherwise performs (or waits for) a single in-flight refresh.
func (p *provider) GetCredentials(ctx context.Context) (Credential, error) {
	p.mu.Lock()
	if !p.cached.Expired(time.Now(), ExpiryMargin) {
		cred := p.cached
		p.mu.Unlock()
		return cred, nil
	}

	if p.refreshing {
		done := make(chan error, 1)
		p.waiters = append(p.waiters, done)
		p.mu.Unlock()

		select {
		case err := <-done:
			if err != nil {
				return Credential{}, err
			}
			p.mu.Lock()
			cred := p.cached
			p.mu.Unlock()
			return cred, nil
		case <-ctx.Done():
			return Credential{}, ctx.Err()
		}
	}

	p.refreshing = true
	p.mu.Unlock()

	cred, err := p.refresh(ctx)

	p.mu.Lock()
	waiters := p.waiters
	p.waiters = nil
	p.refreshing = false
	if err == nil {
		p.cached = cred
	}
	p.mu.Unlock()

	for _, w := range waiters {
		w <- err
	}

	if err != nil {
		return Credential{}, err
	}
	return cred, nil
}

type refreshResponse struct {
	Credentials struct {
		AccessKeyID     string `json:"accessKeyId"`
		SecretAccessKey string `json:"secretAccessKey"`
		SessionToken    string `json:"sessionToken"`
		Expiration      string `json:"expiration"`
	} `json:"credentials"`
}

func (p *provider) refresh(ctx context.Context) (Credential, error) {
	if p.metrics != nil {
		p.metrics.ObserveCredentialRefresh()
	}

	if targetURL, err := url.Parse(p.identity.RefreshURL()); err == nil {
		checkErr := retry.NetworkRequest(ctx, func(ctx context.Context) error {
			return network.CheckConnectionToHost(ctx, *targetURL)
		}, retry.WithTimeout(reachabilityCheckTimeout), retry.WithBackoffDuration(200*time.Millisecond))
		if checkErr != nil {
			p.logger.Warn("credential endpoint reachability check failed", zap.Error(checkErr))
		}
	}

	r := retry.Retrier{
		Timeout: fetchTimeout,
		Backoff: retry.Backoff{Duration: 500 * time.Millisecond, Factor: 2, Cap: 5 * time.Second, Steps: 5},
		HandleError: func(err error) error {
			if err == nil {
				// Reset the consecutive-failure count on success too; it
				// is fed only non-nil errors otherwise.
				_ = p.refreshFailureHandler(nil)
				return nil
			}
			if !IsRetriable(err) {
				return err
			}
			return p.refreshFailureHandler(err)
		},
	}

	var cred Credential
	err := r.Do(ctx, func(ctx context.Context) (bool, error) {
		c, err := p.fetchOnce(ctx)
		if err != nil {
			return false, err
		}
		cred = c
		return true, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return cred, nil
}

func (p *provider) fetchOnce(ctx context.Context) (Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.identity.RefreshURL(), nil)
	if err != nil {
		return Credential{}, &TlsSetupFailedError{baseError{message: "building credential request", cause: err}}
	}
	req.Header.Set("x-amzn-iot-thingname", p.identity.ThingName)

	resp, err := p.client.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("fetching credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// intentionally not reading/forwarding the body: it may contain
		// sensitive data.
		io.Copy(io.Discard, resp.Body)
		return Credential{}, &CredentialFetchFailedError{
			baseError: baseError{message: fmt.Sprintf("credential endpoint returned status %d", resp.StatusCode)},
			Status:    resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credential{}, fmt.Errorf("reading credential response: %w", err)
	}

	var parsed refreshResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Credential{}, fmt.Errorf("parsing credential response: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339, parsed.Credentials.Expiration)
	if err != nil {
		return Credential{}, fmt.Errorf("parsing credential expiration: %w", err)
	}

	return Credential{
		AccessKey:    parsed.Credentials.AccessKeyID,
		SecretKey:    parsed.Credentials.SecretAccessKey,
		SessionToken: parsed.Credentials.SessionToken,
		ExpiresAt:    expiresAt,
	}, nil
}
