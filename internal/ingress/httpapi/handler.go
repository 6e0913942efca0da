// Package httpapi is the HTTP front end: a single POST /{ecu_id} route
// accepting a raw text log line.
package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/otaclient/iot-logging-proxy/internal/ingress"
	"github.com/otaclient/iot-logging-proxy/internal/queue"
)

// maxBodyBytes bounds the size of a single log line accepted over HTTP.
const maxBodyBytes = 1 << 20

// NewRouter builds the HTTP ingress router: POST /{ecu_id} plus whatever
// additional handlers (metrics) the caller mounts on the returned router.
func NewRouter(admitter *ingress.Admitter, log *zap.Logger) chi.Router {
	r := chi.NewRouter()
	r.Post("/{ecu_id}", putLogHandler(admitter, log))
	return r
}

func putLogHandler(admitter *ingress.Admitter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ecuID := chi.URLParam(r, "ecu_id")

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			log.Warn("reading request body failed", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		result := admitter.Admit(queue.LOG, ecuID, string(body), 0)
		switch result {
		case ingress.Admitted:
			w.WriteHeader(http.StatusOK)
		case ingress.RejectedQueueFull:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}
}
