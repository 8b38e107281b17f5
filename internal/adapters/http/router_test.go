package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmarkin/fusionrag/internal/core/domain"
	"github.com/dmarkin/fusionrag/internal/core/ports"
)

type serviceFake struct {
	gotReq ports.RetrieveRequest
	result *domain.RunResult
	err    error
}

func (f *serviceFake) Retrieve(_ context.Context, req ports.RetrieveRequest) (*domain.RunResult, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func postRetrieve(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/retrieve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestRetrieveSuccess(t *testing.T) {
	svc := &serviceFake{result: &domain.RunResult{
		SessionID:  "s-1",
		QueryType:  domain.QueryTypeFactual,
		Items:      []domain.FusedItem{{ID: "doc-1", Score: 0.03}},
		Iterations: 1,
	}}
	handler := NewRouter(svc, Options{}).Handler()

	res := postRetrieve(t, handler, `{"query": "what is raft", "top_k": 5}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if svc.gotReq.Query != "what is raft" || svc.gotReq.TopK != 5 {
		t.Fatalf("unexpected request %+v", svc.gotReq)
	}

	var resp struct {
		SessionID string `json:"session_id"`
		QueryType string `json:"query_type"`
		Items     []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "s-1" || resp.QueryType != "factual" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "doc-1" {
		t.Fatalf("unexpected items %+v", resp.Items)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestRetrieveValidation(t *testing.T) {
	handler := NewRouter(&serviceFake{}, Options{}).Handler()

	cases := map[string]string{
		"empty query": `{"query": "", "top_k": 5}`,
		"blank query": `{"query": "   "}`,
		"bad json":    `{"query":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if res := postRetrieve(t, handler, body); res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", res.Code)
			}
		})
	}
}

func TestRetrieveMethodNotAllowed(t *testing.T) {
	handler := NewRouter(&serviceFake{}, Options{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/retrieve", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestRetrieveErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid parameter", domain.WrapError(domain.ErrInvalidParameter, "retrieve", errors.New("bad top_k")), http.StatusBadRequest},
		{"all sources down", domain.WrapError(domain.ErrAllSourcesUnavailable, "retrieve", errors.New("every fetch failed")), http.StatusBadGateway},
		{"temporary", domain.WrapError(domain.ErrTemporary, "retrieve", errors.New("overloaded")), http.StatusServiceUnavailable},
		{"unmapped type", domain.WrapError(domain.ErrUnmappedQueryType, "retrieve", errors.New("no routes")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewRouter(&serviceFake{err: tc.err}, Options{}).Handler()
			if res := postRetrieve(t, handler, `{"query": "q"}`); res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	handler := NewRouter(&serviceFake{}, Options{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	handler := NewRouter(&serviceFake{result: &domain.RunResult{}}, Options{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	}).Handler()

	req1 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, req1)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(bytes.NewReader(res2.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("decode overload response: %v", err)
	}
	if resp["error"] == "" {
		t.Fatalf("expected overload error message in response")
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("timed out waiting for first request completion")
	}
}
