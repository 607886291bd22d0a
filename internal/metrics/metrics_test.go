package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/tOgg1/missiv/internal/models"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.MivAppended("reply")
	m.MivAppended("reply")
	m.MivAppended("ack")
	m.MivsRead(3)
	m.MivsRead(0)
	m.MivForgotten()
	m.ConversationCreated()
	m.ConversationArchived()
	m.BasketQueried(models.BasketIn)
	m.OperationFailed("reply", models.ErrConversationArchived)
	m.OperationFailed("reply", nil)
	m.OperationFailed("reply", errors.New("disk on fire"))
	m.NotificationPublished(models.EventTypeMivReceived)
	m.NotificationRead()

	require.Equal(t, 2.0, testutil.ToFloat64(m.mivsAppended.WithLabelValues("reply")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.mivsAppended.WithLabelValues("ack")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.mivsRead))
	require.Equal(t, 1.0, testutil.ToFloat64(m.mivsForgotten))
	require.Equal(t, 1.0, testutil.ToFloat64(m.conversationsCreated))
	require.Equal(t, 1.0, testutil.ToFloat64(m.conversationsArchived))
	require.Equal(t, 1.0, testutil.ToFloat64(m.basketQueries.WithLabelValues("IN")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operationErrors.WithLabelValues("reply", models.CodeConversationArchived)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operationErrors.WithLabelValues("reply", models.CodeInternal)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("miv.received")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.notificationsRead))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.MivAppended("first")
	m.MivsRead(1)
	m.MivForgotten()
	m.ConversationCreated()
	m.ConversationArchived()
	m.BasketQueried(models.BasketSent)
	m.OperationFailed("x", errors.New("x"))
	m.NotificationPublished(models.EventTypeMivRead)
	m.NotificationRead()
	m.ObserveHTTP("/x", "GET", 200, time.Millisecond)
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.ObserveHTTP("/api/baskets/{basket}", http.MethodGet, http.StatusOK, 5*time.Millisecond)
	m.ConversationCreated()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "missiv_http_request_duration_seconds_count"))
	require.True(t, strings.Contains(body, `route="/api/baskets/{basket}"`))
	require.True(t, strings.Contains(body, "missiv_conversations_created_total 1"))
	require.True(t, strings.Contains(body, "go_goroutines"))
}
