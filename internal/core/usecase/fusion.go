package usecase

import (
	"fmt"
	"sort"

	"github.com/dmarkin/fusionrag/internal/core/domain"
)

// FusionEngine merges ranked lists from heterogeneous sources with
// Reciprocal Rank Fusion. Rank position is the only signal; source-local
// scores are carried along for the critic but never summed across sources.
type FusionEngine struct {
	k int
}

func NewFusionEngine(k int) (*FusionEngine, error) {
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidParameter, "new fusion engine", fmt.Errorf("fusion k must be positive, got %d", k))
	}
	return &FusionEngine{k: k}, nil
}

// Fuse accumulates 1/(k+rank) per list appearance and orders the merged
// items by fused score. Empty input and empty lists are fine. Output order
// is fully deterministic: score desc, contributing list count desc, first
// list index asc, item ID asc.
func (f *FusionEngine) Fuse(lists []domain.RankedList) domain.FusionResult {
	if len(lists) == 0 {
		return nil
	}

	acc := make(map[string]*domain.FusedItem)
	for listIdx, list := range lists {
		for i, item := range list.Items {
			rank := i + 1
			weight := 1.0 / float64(f.k+rank)

			fused, ok := acc[item.ID]
			if !ok {
				fused = &domain.FusedItem{
					ID:        item.ID,
					Payload:   item.Payload,
					FirstList: listIdx,
				}
				acc[item.ID] = fused
			} else if fused.Payload == nil && item.Payload != nil {
				fused.Payload = item.Payload
			}

			fused.Score += weight
			fused.Sources++
			fused.Contributions = append(fused.Contributions, domain.Contribution{
				List:     listIdx,
				Source:   list.Source,
				Rank:     rank,
				RawScore: item.Score,
			})
		}
	}

	out := make(domain.FusionResult, 0, len(acc))
	for _, fused := range acc {
		out = append(out, *fused)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Sources != out[j].Sources {
			return out[i].Sources > out[j].Sources
		}
		if out[i].FirstList != out[j].FirstList {
			return out[i].FirstList < out[j].FirstList
		}
		return out[i].ID < out[j].ID
	})

	return out
}
