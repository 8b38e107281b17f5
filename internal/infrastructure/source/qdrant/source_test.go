package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type embedderFake struct {
	vector []float32
	err    error
	calls  int
}

func (f *embedderFake) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

func TestFetchReturnsRankedList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/passages/points/search" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		var req struct {
			Vector []float32 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Limit != 5 {
			t.Fatalf("unexpected limit %d", req.Limit)
		}
		if len(req.Vector) != 2 {
			t.Fatalf("unexpected vector %v", req.Vector)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": "p1", "score": 0.91, "payload": map[string]any{"item_id": "doc-7", "text": "raft overview"}},
				{"id": "p2", "score": 0.84, "payload": map[string]any{"text": "no item id here"}},
			},
		})
	}))
	defer srv.Close()

	src := New(srv.URL, "passages", &embedderFake{vector: []float32{0.5, 0.5}})
	list, err := src.Fetch(context.Background(), "raft", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if list.Source != "vector" || list.Query != "raft" {
		t.Fatalf("unexpected list metadata %+v", list)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(list.Items))
	}
	if list.Items[0].ID != "doc-7" || list.Items[0].Score != 0.91 {
		t.Fatalf("unexpected first item %+v", list.Items[0])
	}
	// Falls back to the point ID when the payload carries no item_id.
	if list.Items[1].ID != "p2" {
		t.Fatalf("unexpected fallback id %q", list.Items[1].ID)
	}
}

func TestFetchEmbedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("search must not be called when embedding fails")
	}))
	defer srv.Close()

	src := New(srv.URL, "passages", &embedderFake{err: errors.New("model down")})
	if _, err := src.Fetch(context.Background(), "q", 5); err == nil {
		t.Fatal("expected embed error")
	}
}

func TestFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := New(srv.URL, "passages", &embedderFake{vector: []float32{1}})
	if _, err := src.Fetch(context.Background(), "q", 5); err == nil {
		t.Fatal("expected status error")
	}
}
