package usecase

import (
	"context"
	"fmt"

	"github.com/dmarkin/fusionrag/internal/core/domain"
	"github.com/dmarkin/fusionrag/internal/core/ports"
)

// Critic decides whether a fused result set is sufficient to answer a query.
type Critic interface {
	Assess(ctx context.Context, query string, fused domain.FusionResult, topN int) (domain.Verdict, error)
}

// ThresholdCritic is the deterministic strategy: sufficient iff the best
// source-local score among the top-N fused items reaches the configured
// minimum. Scores are read back from the contributions of the originating
// ranked lists, not from fused RRF scores.
type ThresholdCritic struct {
	min float64
}

func NewThresholdCritic(min float64) (*ThresholdCritic, error) {
	if min < 0 || min > 1 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new threshold critic", fmt.Errorf("sufficiency threshold must be in [0,1], got %v", min))
	}
	return &ThresholdCritic{min: min}, nil
}

func (c *ThresholdCritic) Assess(_ context.Context, _ string, fused domain.FusionResult, topN int) (domain.Verdict, error) {
	if len(fused) == 0 {
		return domain.Verdict{Sufficient: false, Rationale: "no candidates retrieved"}, nil
	}
	if topN <= 0 || topN > len(fused) {
		topN = len(fused)
	}

	best := 0.0
	for _, item := range fused[:topN] {
		for _, contribution := range item.Contributions {
			if contribution.RawScore > best {
				best = contribution.RawScore
			}
		}
	}

	if best >= c.min {
		return domain.Verdict{
			Sufficient: true,
			Rationale:  fmt.Sprintf("best source score %.3f meets threshold %.3f", best, c.min),
			Confidence: best,
		}, nil
	}
	return domain.Verdict{
		Sufficient: false,
		Rationale:  fmt.Sprintf("best source score %.3f below threshold %.3f", best, c.min),
		Confidence: best,
	}, nil
}

// JudgmentCritic delegates to an external model. The judge adapter already
// fails closed on malformed responses; a transport error is reported to the
// controller, which treats it as an insufficient verdict.
type JudgmentCritic struct {
	judge ports.SufficiencyJudge
}

func NewJudgmentCritic(judge ports.SufficiencyJudge) (*JudgmentCritic, error) {
	if judge == nil {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new judgment critic", fmt.Errorf("sufficiency judge is required"))
	}
	return &JudgmentCritic{judge: judge}, nil
}

func (c *JudgmentCritic) Assess(ctx context.Context, query string, fused domain.FusionResult, topN int) (domain.Verdict, error) {
	if len(fused) == 0 {
		return domain.Verdict{Sufficient: false, Rationale: "no candidates retrieved"}, nil
	}
	if topN <= 0 || topN > len(fused) {
		topN = len(fused)
	}
	return c.judge.Judge(ctx, query, fused[:topN])
}
