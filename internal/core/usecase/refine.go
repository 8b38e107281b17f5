package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmarkin/fusionrag/internal/core/domain"
	"github.com/dmarkin/fusionrag/internal/core/ports"
)

// RefineConfig bounds one refinement run.
type RefineConfig struct {
	IterationBudget  int
	PerSourceTimeout time.Duration
	FetchLimit       int
	CriticTopN       int
}

func (c RefineConfig) validate() error {
	if c.IterationBudget < 1 {
		return fmt.Errorf("iteration budget must be >= 1, got %d", c.IterationBudget)
	}
	if c.PerSourceTimeout <= 0 {
		return fmt.Errorf("per-source timeout must be positive, got %v", c.PerSourceTimeout)
	}
	if c.FetchLimit <= 0 {
		return fmt.Errorf("fetch limit must be positive, got %d", c.FetchLimit)
	}
	return nil
}

// RefineOutcome is the terminal state of one refinement run. Degraded means
// the budget ran out before the critic reported sufficiency; Fused still
// carries the final iteration's fusion so the caller is never empty-handed.
type RefineOutcome struct {
	Fused       domain.FusionResult
	Degraded    bool
	Iterations  int
	PerSourceMS map[string]int64
}

// RefineController drives the retrieve -> fuse -> critique loop. Each run
// owns a fresh query context; the controller itself is stateless across runs
// and safe for concurrent use.
type RefineController struct {
	fusion   *FusionEngine
	critic   Critic
	rewriter ports.QueryRewriter
	cfg      RefineConfig
}

// NewRefineController validates configuration up front; a nil rewriter
// disables reformulation, in which case an insufficient verdict ends the run
// after the first iteration instead of refetching identical candidates.
func NewRefineController(fusion *FusionEngine, critic Critic, rewriter ports.QueryRewriter, cfg RefineConfig) (*RefineController, error) {
	if fusion == nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new refine controller", fmt.Errorf("fusion engine is required"))
	}
	if critic == nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new refine controller", fmt.Errorf("critic is required"))
	}
	if err := cfg.validate(); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new refine controller", err)
	}
	return &RefineController{
		fusion:   fusion,
		critic:   critic,
		rewriter: rewriter,
		cfg:      cfg,
	}, nil
}

// Run executes at most IterationBudget iterations of fetch/fuse/critique for
// the query against the active source set.
func (rc *RefineController) Run(ctx context.Context, query string, sources []ports.CandidateSource) (*RefineOutcome, error) {
	if len(sources) == 0 {
		return nil, domain.WrapError(domain.ErrAllSourcesUnavailable, "refine run", fmt.Errorf("active source set is empty"))
	}

	qc := newQueryContext(query, rc.cfg.IterationBudget)
	timings := make(map[string]int64, len(sources))

	for qc.iteration = 1; qc.iteration <= qc.budget; qc.iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lists, failed, total := rc.fetchAll(ctx, qc.queries(), sources, timings)
		if failed == total {
			return nil, domain.WrapError(domain.ErrAllSourcesUnavailable, "refine run", fmt.Errorf("all %d fetches failed in iteration %d", total, qc.iteration))
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		qc.record(rc.fusion.Fuse(lists))

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		verdict, err := rc.critic.Assess(ctx, qc.original, qc.lastFused(), rc.cfg.CriticTopN)
		if err != nil {
			// A failed critique never assumes sufficiency.
			slog.Warn("critic unavailable, treating verdict as insufficient",
				"iteration", qc.iteration, "error", err)
			verdict = domain.Verdict{Sufficient: false, Rationale: "critic unavailable"}
		}

		if verdict.Sufficient {
			return &RefineOutcome{
				Fused:       qc.lastFused(),
				Iterations:  qc.iteration,
				PerSourceMS: timings,
			}, nil
		}

		slog.Info("insufficient candidates",
			"iteration", qc.iteration,
			"budget", qc.budget,
			"rationale", verdict.Rationale,
		)

		if qc.iteration == qc.budget {
			break
		}
		if !rc.reformulate(ctx, qc) {
			break
		}
	}

	return &RefineOutcome{
		Fused:       qc.lastFused(),
		Degraded:    true,
		Iterations:  qc.iteration,
		PerSourceMS: timings,
	}, nil
}

// fetchAll fans out one Fetch per (query text, source) pair and waits for
// every fetch to return or fail; there is no early exit on first result.
// List indexes are query-major so the index of an existing pair stays stable
// when a later iteration appends a new variant.
func (rc *RefineController) fetchAll(ctx context.Context, queries []string, sources []ports.CandidateSource, timings map[string]int64) (lists []domain.RankedList, failed, total int) {
	total = len(queries) * len(sources)
	lists = make([]domain.RankedList, total)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)

	for qIdx, q := range queries {
		for sIdx, src := range sources {
			idx := qIdx*len(sources) + sIdx
			wg.Add(1)
			go func(idx int, q string, src ports.CandidateSource) {
				defer wg.Done()

				fetchCtx, cancel := context.WithTimeout(ctx, rc.cfg.PerSourceTimeout)
				defer cancel()

				start := time.Now()
				list, err := src.Fetch(fetchCtx, q, rc.cfg.FetchLimit)
				elapsed := time.Since(start).Milliseconds()

				mu.Lock()
				if prev, ok := timings[src.Name()]; !ok || elapsed > prev {
					timings[src.Name()] = elapsed
				}
				mu.Unlock()

				if err != nil {
					slog.Warn("source fetch failed",
						"source", src.Name(),
						"error", err,
					)
					mu.Lock()
					failures++
					mu.Unlock()
					lists[idx] = domain.RankedList{Source: src.Name(), Query: q}
					return
				}
				list.Source = src.Name()
				list.Query = q
				lists[idx] = list
			}(idx, q, src)
		}
	}

	wg.Wait()
	return lists, failures, total
}

// reformulate asks the rewriter for one additional query variant. The
// original query is always retained; reformulation only adds. Returns false
// when no further iteration would retrieve anything new.
func (rc *RefineController) reformulate(ctx context.Context, qc *queryContext) bool {
	if rc.rewriter == nil {
		return false
	}
	variant, err := rc.rewriter.Rewrite(ctx, qc.original, qc.variants)
	if err != nil {
		slog.Warn("query rewrite failed, ending run with best effort", "error", err)
		return false
	}
	if variant == "" || variant == qc.original {
		return false
	}
	for _, used := range qc.variants {
		if variant == used {
			return false
		}
	}
	qc.addVariant(variant)
	return true
}
