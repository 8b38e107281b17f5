package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmarkin/fusionrag/internal/core/domain"
	"github.com/dmarkin/fusionrag/internal/core/ports"
)

// RetrieveUseCase is the inbound retrieval service: it classifies the query,
// selects the matching source set, drives the refinement controller, and
// reports the session outcome. Source-level failures never reach the caller;
// the only caller-visible failures are an unmapped query type, all sources
// down, or cancellation.
type RetrieveUseCase struct {
	router     *Router
	controller *RefineController
	events     ports.EventPublisher
	topK       int
}

func NewRetrieveUseCase(router *Router, controller *RefineController, events ports.EventPublisher, topK int) (*RetrieveUseCase, error) {
	if router == nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new retrieve usecase", fmt.Errorf("router is required"))
	}
	if controller == nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new retrieve usecase", fmt.Errorf("refine controller is required"))
	}
	if topK <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new retrieve usecase", fmt.Errorf("top k returned must be positive, got %d", topK))
	}
	return &RetrieveUseCase{
		router:     router,
		controller: controller,
		events:     events,
		topK:       topK,
	}, nil
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, req ports.RetrieveRequest) (*domain.RunResult, error) {
	if req.Query == "" {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "retrieve", fmt.Errorf("query is required"))
	}
	topK := req.TopK
	if topK <= 0 || topK > uc.topK {
		topK = uc.topK
	}

	sessionID := uuid.NewString()
	start := time.Now()

	queryType := uc.router.Classify(ctx, req.Query)
	sources, err := uc.router.Select(queryType)
	if err != nil {
		return nil, err
	}

	outcome, err := uc.controller.Run(ctx, req.Query, sources)
	if err != nil {
		return nil, err
	}

	items := outcome.Fused
	if len(items) > topK {
		items = items[:topK]
	}

	result := &domain.RunResult{
		SessionID:  sessionID,
		QueryType:  queryType,
		Items:      items,
		Degraded:   outcome.Degraded,
		Iterations: outcome.Iterations,
		Timings: domain.RunTimings{
			TotalMS:   time.Since(start).Milliseconds(),
			PerSource: outcome.PerSourceMS,
		},
		StartedAt: start,
	}

	slog.Info("retrieval session finished",
		"session_id", sessionID,
		"query_type", queryType,
		"iterations", result.Iterations,
		"degraded", result.Degraded,
		"items", len(result.Items),
		"total_ms", result.Timings.TotalMS,
	)

	uc.publishOutcome(ctx, result)
	return result, nil
}

// publishOutcome is best effort: evaluation events never fail a run.
func (uc *RetrieveUseCase) publishOutcome(ctx context.Context, result *domain.RunResult) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishRunCompleted(ctx, result); err != nil {
		slog.Warn("publish run event failed", "session_id", result.SessionID, "error", err)
	}
}
