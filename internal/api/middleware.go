package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/tOgg1/missiv/internal/logging"
	"github.com/tOgg1/missiv/internal/models"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// observe writes the access log and records request latency under the
// route template, never the raw path.
func (a *API) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		a.metrics.ObserveHTTP(route, r.Method, rec.status, elapsed)

		event := a.logger.Debug()
		if rec.status >= http.StatusInternalServerError {
			event = a.logger.Error()
		}
		event.
			Str("method", r.Method).
			Str("url", logging.RedactURL(r.URL)).
			Str("route", route).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("duration", elapsed).
			Msg("http request")
	})
}

// limited applies the per-desk token bucket. Only well-formed desk ids get
// a bucket; anything else passes through and fails validation in the
// handler.
func (a *API) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		desk := deskParam(r)
		if models.ValidateDeskID(desk) == nil && !a.limiter.Allow(desk) {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded", Code: codeRateLimited})
			return
		}
		next(w, r)
	}
}
