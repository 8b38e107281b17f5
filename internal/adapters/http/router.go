package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dmarkin/fusionrag/internal/core/ports"
)

// RunRecorder receives one observation per finished retrieval session.
type RunRecorder interface {
	RecordRetrievalRun(service, outcome, queryType string, iterations, items int, duration time.Duration)
}

type Options struct {
	// MetricsHandler, when set, is mounted at /metrics.
	MetricsHandler http.Handler

	// Runs, when set, records session outcomes under ServiceName.
	Runs        RunRecorder
	ServiceName string

	// RateLimitRPS <= 0 disables API rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// MaxConcurrent <= 0 disables the backpressure gate.
	MaxConcurrent  int
	AcquireTimeout time.Duration
}

type Router struct {
	service ports.RetrievalService
	opts    Options
}

func NewRouter(service ports.RetrievalService, opts Options) *Router {
	return &Router{service: service, opts: opts}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/retrieve", rt.retrieve)
	if rt.opts.MetricsHandler != nil {
		mux.Handle("/metrics", rt.opts.MetricsHandler)
	}

	var handler http.Handler = mux
	if rt.opts.MaxConcurrent > 0 {
		timeout := rt.opts.AcquireTimeout
		if timeout <= 0 {
			timeout = 100 * time.Millisecond
		}
		handler = backpressureMiddleware(handler, rt.opts.MaxConcurrent, timeout)
	}
	if rt.opts.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	result, err := rt.service.Retrieve(r.Context(), ports.RetrieveRequest{
		Query: req.Query,
		TopK:  req.TopK,
	})
	if err != nil {
		rt.recordRun("failed", "", 0, 0, 0)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	outcome := "sufficient"
	if result.Degraded {
		outcome = "degraded"
	}
	rt.recordRun(outcome, string(result.QueryType), result.Iterations, len(result.Items),
		time.Duration(result.Timings.TotalMS)*time.Millisecond)

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) recordRun(outcome, queryType string, iterations, items int, duration time.Duration) {
	if rt.opts.Runs == nil {
		return
	}
	service := rt.opts.ServiceName
	if service == "" {
		service = "api"
	}
	rt.opts.Runs.RecordRetrievalRun(service, outcome, queryType, iterations, items, duration)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
