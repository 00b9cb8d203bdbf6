package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	m := New()

	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Get("/api/{role}/getOrderById", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/getOrderById?id=1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/{role}/getOrderById", http.MethodGet, "404")))
}

func TestObserveGatewayAndOperations(t *testing.T) {
	m := New()

	m.ObserveGateway("getOrderById", time.Now(), nil)
	m.ObserveGateway("getOrderById", time.Now(), errors.New("boom"))
	m.RecordOperation("saveRawMaterials", "invalid")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayRequests.WithLabelValues("getOrderById", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayRequests.WithLabelValues("getOrderById", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkflowOperations.WithLabelValues("saveRawMaterials", "invalid")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveGateway("x", time.Now(), nil)
		m.RecordOperation("x", "success")
	})
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New()
	m.RecordOperation("sendToWarehouse", "success")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "crm_workflow_operations_total"))
}
