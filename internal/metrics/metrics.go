// Package metrics wires the ambient Prometheus registry exposed at
// GET /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the process-wide collector registry. The upload
// attempt/failure and credential refresh counters are registered by New;
// the queue registers its own depth/drop collectors against it at
// construction time.
type Registry struct {
	*prometheus.Registry

	UploadAttempts   *prometheus.CounterVec
	UploadFailures   *prometheus.CounterVec
	CredentialRefresh prometheus.Counter
}

// New builds a Registry with the process-level counters pre-registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		Registry: reg,
		UploadAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logprox_upload_attempts_total",
			Help: "Total number of PutLogEvents attempts, labeled by log group.",
		}, []string{"log_group"}),
		UploadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logprox_upload_failures_total",
			Help: "Total number of PutLogEvents attempts that ultimately failed, labeled by log group.",
		}, []string{"log_group"}),
		CredentialRefresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "logprox_credential_refresh_total",
			Help: "Total number of credential refresh attempts.",
		}),
	}

	reg.MustRegister(r.UploadAttempts, r.UploadFailures, r.CredentialRefresh)
	return r
}

// Handler returns the GET /metrics HTTP handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}

// ObserveUploadAttempt records one PutLogEvents attempt against group.
func (r *Registry) ObserveUploadAttempt(group string) {
	r.UploadAttempts.WithLabelValues(group).Inc()
}

// ObserveUploadFailure records one PutLogEvents attempt against group that
// ultimately failed and was dropped.
func (r *Registry) ObserveUploadFailure(group string) {
	r.UploadFailures.WithLabelValues(group).Inc()
}

// ObserveCredentialRefresh records one credential-provider refresh attempt.
func (r *Registry) ObserveCredentialRefresh() {
	r.CredentialRefresh.Inc()
}
