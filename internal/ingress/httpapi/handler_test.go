package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/otaclient/iot-logging-proxy/internal/ingress"
	"github.com/otaclient/iot-logging-proxy/internal/queue"
)

// scenario 1: happy HTTP
func TestHappyHTTP(t *testing.T) {
	g := NewWithT(t)

	q := queue.New(8, nil)
	admitter := ingress.NewAdmitter(q, []string{"main", "sub1"})
	router := NewRouter(admitter, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/main", strings.NewReader("hello"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	g.Expect(w.Code).To(Equal(http.StatusOK))

	drained := q.DrainUpTo(1)
	g.Expect(drained).To(HaveLen(1))
	g.Expect(drained[0].GroupType).To(Equal(queue.LOG))
	g.Expect(drained[0].StreamSuffix).To(Equal("main"))
	g.Expect(drained[0].Msg.Message).To(Equal("hello"))
}

// scenario 2: HTTP disallowed
func TestHTTPDisallowed(t *testing.T) {
	g := NewWithT(t)

	q := queue.New(8, nil)
	admitter := ingress.NewAdmitter(q, []string{"main"})
	router := NewRouter(admitter, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/bad", strings.NewReader("x"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	g.Expect(w.Code).To(Equal(http.StatusBadRequest))
	g.Expect(q.Len()).To(Equal(0))
}

// scenario 3: HTTP empty body
func TestHTTPEmptyBody(t *testing.T) {
	g := NewWithT(t)

	q := queue.New(8, nil)
	admitter := ingress.NewAdmitter(q, nil)
	router := NewRouter(admitter, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/main", strings.NewReader(""))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	g.Expect(w.Code).To(Equal(http.StatusBadRequest))
}

// scenario 5 (HTTP half): queue full
func TestHTTPQueueFull(t *testing.T) {
	g := NewWithT(t)

	q := queue.New(4, nil)
	admitter := ingress.NewAdmitter(q, nil)
	router := NewRouter(admitter, zap.NewNop())

	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/main", strings.NewReader("m"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		g.Expect(w.Code).To(Equal(http.StatusOK))
	}

	req := httptest.NewRequest(http.MethodPost, "/main", strings.NewReader("m"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	g.Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
}
