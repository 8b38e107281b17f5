package usecase

import "github.com/dmarkin/fusionrag/internal/core/domain"

// queryContext is the mutable state of one retrieval session. It is owned
// exclusively by the RefineController that created it and is discarded when
// the run terminates; no two runs ever share one.
type queryContext struct {
	original  string
	variants  []string
	iteration int
	budget    int
	history   []domain.FusionResult
}

func newQueryContext(query string, budget int) *queryContext {
	return &queryContext{
		original: query,
		budget:   budget,
	}
}

// queries returns the original query followed by every accumulated variant.
// Reformulation only adds query texts, it never replaces the original.
func (qc *queryContext) queries() []string {
	out := make([]string, 0, 1+len(qc.variants))
	out = append(out, qc.original)
	out = append(out, qc.variants...)
	return out
}

func (qc *queryContext) addVariant(v string) {
	qc.variants = append(qc.variants, v)
}

func (qc *queryContext) record(fused domain.FusionResult) {
	qc.history = append(qc.history, fused)
}

// lastFused returns the most recent fusion, or nil before the first one.
func (qc *queryContext) lastFused() domain.FusionResult {
	if len(qc.history) == 0 {
		return nil
	}
	return qc.history[len(qc.history)-1]
}
