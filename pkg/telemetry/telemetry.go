// Package telemetry provides low-overhead request timing. Every request
// feeds the Prometheus metrics; only slow or explicitly sampled requests
// produce a log line with span detail.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hiretalk/pkg/logger"
)

var (
	requestCtr uint64
	spanCtr    uint64
	// sampleRateDenom of 0 disables trace sampling; N samples 1 in N.
	sampleRateDenom int64 = 1000
	slowThreshold         = 200 * time.Millisecond
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hiretalk_http_requests_total",
		Help: "HTTP requests by method and status class.",
	}, []string{"method", "class"})
	httpDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hiretalk_http_request_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	})
)

type ctxKeyType struct{}

// Span records one timed operation relative to request start.
type Span struct {
	ID       string
	Op       string
	StartMs  int64
	Duration int64
}

type trace struct {
	requestID string
	op        string
	startTime time.Time
	mu        sync.Mutex
	spans     []Span
}

// Middleware wraps next with timing, metrics and sampled tracing.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := genRequestID()

		var tr *trace
		if shouldSample(r) {
			tr = &trace{requestID: reqID, op: r.URL.Path, startTime: start}
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyType{}, tr))
		}

		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)

		dur := time.Since(start)
		httpDuration.Observe(dur.Seconds())
		httpRequests.WithLabelValues(r.Method, statusClass(srw.status)).Inc()

		if tr != nil {
			tr.mu.Lock()
			spans := make([]string, 0, len(tr.spans))
			for _, sp := range tr.spans {
				spans = append(spans, fmt.Sprintf("%s=%dms", sp.Op, sp.Duration))
			}
			tr.mu.Unlock()
			logger.Info("request_trace",
				"request_id", reqID,
				"op", tr.op,
				"duration_ms", dur.Milliseconds(),
				"status", srw.status,
				"spans", strings.Join(spans, " "))
			return
		}
		if dur > slowThreshold {
			logger.Warn("request_slow",
				"request_id", reqID,
				"path", r.URL.Path,
				"duration_ms", dur.Milliseconds(),
				"status", srw.status)
		}
	})
}

// StartSpan records a timed operation on a sampled request. It returns
// the end function; for unsampled requests both are free.
func StartSpan(ctx context.Context, name string) func() {
	v := ctx.Value(ctxKeyType{})
	if v == nil {
		return func() {}
	}
	tr, ok := v.(*trace)
	if !ok {
		return func() {}
	}
	startRel := time.Since(tr.startTime).Milliseconds()
	id := genSpanID()
	tr.mu.Lock()
	tr.spans = append(tr.spans, Span{ID: id, Op: name, StartMs: startRel})
	idx := len(tr.spans) - 1
	tr.mu.Unlock()
	return func() {
		endRel := time.Since(tr.startTime).Milliseconds()
		tr.mu.Lock()
		if idx < len(tr.spans) {
			tr.spans[idx].Duration = endRel - tr.spans[idx].StartMs
		}
		tr.mu.Unlock()
	}
}

// SetSampleRate configures 1-in-N trace sampling. Zero disables it.
func SetSampleRate(denom int64) {
	if denom < 0 {
		denom = 0
	}
	atomic.StoreInt64(&sampleRateDenom, denom)
}

// SetSlowThreshold sets the latency above which unsampled requests still
// get a log line.
func SetSlowThreshold(d time.Duration) {
	if d > 0 {
		slowThreshold = d
	}
}

// shouldSample forces sampling for X-Debug-Telemetry: 1, otherwise
// samples deterministically 1 in N.
func shouldSample(r *http.Request) bool {
	if r.Header.Get("X-Debug-Telemetry") == "1" {
		return true
	}
	denom := atomic.LoadInt64(&sampleRateDenom)
	if denom <= 0 {
		return false
	}
	if denom == 1 {
		return true
	}
	n := int64(atomic.AddUint64(&requestCtr, 1))
	return n%denom == 0
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func genRequestID() string {
	n := atomic.AddUint64(&requestCtr, 1)
	return fmt.Sprintf("r-%s-%d", time.Now().Format("20060102T150405"), n)
}

func genSpanID() string {
	return fmt.Sprintf("s-%d", atomic.AddUint64(&spanCtr, 1))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
