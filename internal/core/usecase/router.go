package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmarkin/fusionrag/internal/core/domain"
	"github.com/dmarkin/fusionrag/internal/core/ports"
)

// Routes maps each query type onto the candidate source set the refinement
// controller starts from. Keeping this mapping in sync with the QueryType
// enum is a configuration invariant; a missing entry is a bug, not a runtime
// condition to recover from.
type Routes map[domain.QueryType][]ports.CandidateSource

// Router classifies incoming queries and selects the matching source set.
// Classification is rule-based by default; an optional external delegate
// takes precedence, with keyword rules as its fallback.
type Router struct {
	routes   Routes
	delegate ports.QueryClassifier
	fallback domain.QueryType
}

func NewRouter(routes Routes, delegate ports.QueryClassifier, fallback domain.QueryType) (*Router, error) {
	if len(routes) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new router", fmt.Errorf("at least one route is required"))
	}
	if _, ok := domain.ParseQueryType(string(fallback)); !ok {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new router", fmt.Errorf("fallback type %q is not a known query type", fallback))
	}
	return &Router{
		routes:   routes,
		delegate: delegate,
		fallback: fallback,
	}, nil
}

var summarizationKeywords = []string{
	"summarize", "summarise", "summary", "overview", "tl;dr", "recap", "outline",
}

// Classify always returns exactly one member of the closed QueryType set.
func (r *Router) Classify(ctx context.Context, query string) domain.QueryType {
	if r.delegate != nil {
		raw, err := r.delegate.ClassifyQuery(ctx, query)
		if err == nil {
			if qt, ok := domain.ParseQueryType(raw); ok {
				return qt
			}
			slog.Warn("classifier returned unknown type, using rules", "raw", raw)
		} else {
			slog.Warn("classifier delegate failed, using rules", "error", err)
		}
	}

	lowered := strings.ToLower(query)
	for _, kw := range summarizationKeywords {
		if strings.Contains(lowered, kw) {
			return domain.QueryTypeSummarization
		}
	}
	if strings.TrimSpace(lowered) == "" {
		return r.fallback
	}
	if isQuestionLike(lowered) {
		return domain.QueryTypeFactual
	}
	return r.fallback
}

// Select is a pure lookup; an unmapped type fails with ErrUnmappedQueryType.
func (r *Router) Select(qt domain.QueryType) ([]ports.CandidateSource, error) {
	set, ok := r.routes[qt]
	if !ok || len(set) == 0 {
		return nil, domain.WrapError(domain.ErrUnmappedQueryType, "router select", fmt.Errorf("no sources configured for query type %q", qt))
	}
	return set, nil
}

func isQuestionLike(q string) bool {
	if strings.Contains(q, "?") {
		return true
	}
	for _, prefix := range []string{"what", "when", "where", "who", "why", "how", "which", "is ", "are ", "does ", "do ", "can "} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}
