package ports

import (
	"context"

	"github.com/dmarkin/fusionrag/internal/core/domain"
)

// RetrieveRequest carries one inbound retrieval query.
type RetrieveRequest struct {
	Query string
	TopK  int
}

// RetrievalService classifies a query, drives the refinement loop, and
// returns the final fused ranking.
type RetrievalService interface {
	Retrieve(ctx context.Context, req RetrieveRequest) (*domain.RunResult, error)
}
