package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	applog "foco/internal/log"
	"foco/internal/middleware/trace"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}).Write(w)
}

// handleReady checks the templates and the remote store. A missing remote
// is reported but does not make the service unready: the device snapshot
// keeps serving.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.deps.Gateway.Ping(ctx); err != nil {
		checks["remote"] = fmt.Sprintf("degraded: %v", err)
	} else {
		checks["remote"] = "ok"
	}

	checks["public_cache"] = map[string]any{"entries": s.deps.PublicCache.Size()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	cacheHits, cacheMisses := s.deps.PublicCache.Stats()

	counters := []struct {
		name, help, kind string
		value            int64
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests},
		{"http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors},
		{"records_saved_total", "Writes that reached the remote store", "counter", atomic.LoadInt64(&s.appMetrics.recordsSaved)},
		{"pending_writes_total", "Writes kept only on the device", "counter", atomic.LoadInt64(&s.appMetrics.pendingWrites)},
		{"shadow_sync_errors_total", "Public shadow writes that failed", "counter", atomic.LoadInt64(&s.appMetrics.shadowErrors)},
		{"sign_ins_total", "Successful sign ins and sign ups", "counter", atomic.LoadInt64(&s.appMetrics.signIns)},
		{"public_cache_hits_total", "Public ledger cache hits", "counter", cacheHits},
		{"public_cache_misses_total", "Public ledger cache misses", "counter", cacheMisses},
		{"public_cache_entries", "Current public ledger cache entries", "gauge", int64(s.deps.PublicCache.Size())},
		{"rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount},
		{"suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests},
	}

	w.WriteHeader(http.StatusOK)
	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", c.name, c.help, c.name, c.kind, c.name, c.value)
	}
	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

// writeResult sends data with status, or maps err. Failed remote writes
// still carry data since the device copy was updated.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, status int, data any, err error) {
	if err == nil {
		if r.Method != http.MethodGet {
			atomic.AddInt64(&s.appMetrics.recordsSaved, 1)
			s.events.LogRecordSaved(r.Context(), userID(r), recordKind(r), r.PathValue("id"), r.Method)
		}
		if status == http.StatusNoContent {
			NewResponse().Status(status).Write(w)
			return
		}
		NewResponse().Status(status).JSON(data).Write(w)
		return
	}
	s.logFailure(r, err)
	ErrorFor(err, data).Write(w)
}

func recordKind(r *http.Request) string {
	if strings.HasPrefix(r.URL.Path, "/api/ledgers") {
		return "ledger"
	}
	return "transaction"
}

func (s *Server) logFailure(r *http.Request, err error) {
	resp := ErrorFor(err, nil)
	switch {
	case resp.statusCode == http.StatusBadGateway:
		atomic.AddInt64(&s.appMetrics.pendingWrites, 1)
		s.log(r).WarnContext(r.Context(), "Write kept on device only", applog.FieldError, err, applog.FieldPath, r.URL.Path)
	case resp.statusCode == http.StatusAccepted:
		atomic.AddInt64(&s.appMetrics.shadowErrors, 1)
		s.log(r).WarnContext(r.Context(), "Public shadow out of sync", applog.FieldError, err, applog.FieldPath, r.URL.Path)
	case resp.statusCode >= 500:
		fields := applog.NewFields().WithRequestID(trace.GetRequestID(r.Context())).WithUser(userID(r))
		s.events.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, r.Method+" "+r.URL.Path, fields)
	default:
		s.log(r).InfoContext(r.Context(), "Request rejected", applog.FieldError, err, applog.FieldStatusCode, resp.statusCode)
	}
}

func decodeOrFail(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := DecodeJSON(r, dst); err != nil {
		BadRequestError("Formato de requisição inválido.").Write(w)
		return false
	}
	return true
}
