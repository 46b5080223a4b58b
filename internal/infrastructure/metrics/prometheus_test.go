package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveUseCase(t *testing.T) {
	r := NewRecorder()

	r.ObserveUseCase("reserve_turn", "success", 10*time.Millisecond)
	r.ObserveUseCase("reserve_turn", "success", 20*time.Millisecond)
	r.ObserveUseCase("reserve_turn", "error", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.usecaseRequests.WithLabelValues("reserve_turn", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.usecaseRequests.WithLabelValues("reserve_turn", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.usecaseDurations))
}

func TestRecorder_ListenerGaugeAndFailures(t *testing.T) {
	r := NewRecorder()

	r.ListenerGauge().Set(3)
	r.PublishFailed("rabbitmq")

	assert.Equal(t, 3.0, testutil.ToFloat64(r.listeners))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.publishFailures.WithLabelValues("rabbitmq")))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveUseCase("list_turns", "success", time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `taketurn_usecase_requests_total{outcome="success",use_case="list_turns"} 1`)
	assert.Contains(t, body, "taketurn_fanout_listeners 0")
}
