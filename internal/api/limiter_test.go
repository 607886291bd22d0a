package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterPoolDropsIdleBuckets(t *testing.T) {
	p := newLimiterPool(1, 1)
	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }

	require.True(t, p.Allow(deskA))
	require.False(t, p.Allow(deskA))
	require.True(t, p.Allow(deskB))
	require.Equal(t, 2, p.size())

	// deskA stays busy while deskB goes quiet.
	clock = clock.Add(p.idle / 2)
	p.Allow(deskA)
	clock = clock.Add(p.idle / 2)
	p.Allow(deskA)
	require.Equal(t, 1, p.size())

	clock = clock.Add(2 * p.idle)
	require.True(t, p.Allow(deskC))
	require.Equal(t, 1, p.size())
}

func TestLimiterPoolIdleCoversRefill(t *testing.T) {
	require.Equal(t, minLimiterIdle, newLimiterPool(5, 10).idle)
	require.Equal(t, 1000*time.Second, newLimiterPool(0.001, 1).idle)
}

func TestLimitedSkipsMalformedDesks(t *testing.T) {
	a := &API{limiter: newLimiterPool(0.001, 1)}
	ok := a.limited(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	for _, desk := range []string{"junk-1", "junk-2", "", "12345"} {
		rec := httptest.NewRecorder()
		ok(rec, httptest.NewRequest(http.MethodPost, "/api/conversations?desk_id="+desk, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	require.Zero(t, a.limiter.size())

	rec := httptest.NewRecorder()
	ok(rec, httptest.NewRequest(http.MethodPost, "/api/conversations?desk_id="+deskA, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = httptest.NewRecorder()
	ok(rec, httptest.NewRequest(http.MethodPost, "/api/conversations?desk_id="+deskA, nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, 1, a.limiter.size())
}
