package ports

import (
	"context"

	"github.com/dmarkin/fusionrag/internal/core/domain"
)

// CandidateSource wraps one heterogeneous retrieval backend behind a uniform
// fetch contract. Fetch returns at most limit items; fewer matches than limit
// is not an error. A backend that cannot be reached fails with
// domain.ErrSourceUnavailable.
type CandidateSource interface {
	Name() string
	Fetch(ctx context.Context, query string, limit int) (domain.RankedList, error)
}

// Embedder builds a vector for query text. Used by dense-vector sources.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// QueryRewriter produces one reformulated query variant, given the original
// query and the variants already tried.
type QueryRewriter interface {
	Rewrite(ctx context.Context, query string, used []string) (string, error)
}

// SufficiencyJudge asks an external model whether the fused candidates
// contain enough information to answer the query.
type SufficiencyJudge interface {
	Judge(ctx context.Context, query string, items []domain.FusedItem) (domain.Verdict, error)
}

// QueryClassifier delegates query-type classification to an external model.
// The returned string is matched against the closed QueryType set; anything
// unrecognized falls back to the configured default.
type QueryClassifier interface {
	ClassifyQuery(ctx context.Context, query string) (string, error)
}

// EventPublisher emits retrieval session outcome events for offline
// evaluation. Publishing is best effort and never fails a run.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, result *domain.RunResult) error
}
