package variant

import (
	"context"
	"errors"
	"testing"

	"github.com/dmarkin/fusionrag/internal/core/domain"
)

type sourceFake struct {
	gotQuery string
	items    []domain.ScoredItem
	err      error
}

func (f *sourceFake) Name() string { return "vector" }

func (f *sourceFake) Fetch(_ context.Context, query string, _ int) (domain.RankedList, error) {
	f.gotQuery = query
	if f.err != nil {
		return domain.RankedList{}, f.err
	}
	return domain.RankedList{Source: "vector", Query: query, Items: f.items}, nil
}

type rewriterFake struct {
	out string
	err error
}

func (f *rewriterFake) Rewrite(_ context.Context, _ string, _ []string) (string, error) {
	return f.out, f.err
}

func TestFetchDelegatesRewrittenQuery(t *testing.T) {
	inner := &sourceFake{items: []domain.ScoredItem{{ID: "a", Score: 0.9}}}
	src := New(inner, &rewriterFake{out: "distributed consensus protocol"})

	list, err := src.Fetch(context.Background(), "raft", 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if inner.gotQuery != "distributed consensus protocol" {
		t.Fatalf("inner source got %q", inner.gotQuery)
	}
	if list.Source != "vector+variant" {
		t.Fatalf("unexpected source name %q", list.Source)
	}
	// The list is attributed to the caller's query, not the rewrite.
	if list.Query != "raft" {
		t.Fatalf("unexpected list query %q", list.Query)
	}
}

func TestFetchFallsBackWhenRewriteFails(t *testing.T) {
	cases := map[string]*rewriterFake{
		"rewrite error":  {err: errors.New("model down")},
		"empty variant":  {out: ""},
		"identical text": {out: "raft"},
	}
	for name, rewriter := range cases {
		t.Run(name, func(t *testing.T) {
			inner := &sourceFake{}
			src := New(inner, rewriter)

			if _, err := src.Fetch(context.Background(), "raft", 10); err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if inner.gotQuery != "raft" {
				t.Fatalf("expected original query fallback, got %q", inner.gotQuery)
			}
		})
	}
}

func TestFetchPropagatesSourceError(t *testing.T) {
	inner := &sourceFake{err: errors.New("unreachable")}
	src := New(inner, &rewriterFake{out: "other phrasing"})

	if _, err := src.Fetch(context.Background(), "raft", 10); err == nil {
		t.Fatal("expected source error")
	}
}
