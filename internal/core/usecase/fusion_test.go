package usecase

import (
	"math"
	"reflect"
	"testing"

	"github.com/dmarkin/fusionrag/internal/core/domain"
)

func rankedList(source string, ids ...string) domain.RankedList {
	items := make([]domain.ScoredItem, 0, len(ids))
	for i, id := range ids {
		items = append(items, domain.ScoredItem{ID: id, Score: 1.0 - float64(i)*0.1})
	}
	return domain.RankedList{Source: source, Items: items}
}

func fusedIDs(result domain.FusionResult) []string {
	ids := make([]string, 0, len(result))
	for _, item := range result {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestNewFusionEngineRejectsNonPositiveK(t *testing.T) {
	for _, k := range []int{0, -1, -60} {
		if _, err := NewFusionEngine(k); !domain.IsKind(err, domain.ErrInvalidParameter) {
			t.Fatalf("k=%d: expected ErrInvalidParameter, got %v", k, err)
		}
	}
}

func TestFuseTwoListScenario(t *testing.T) {
	engine, err := NewFusionEngine(60)
	if err != nil {
		t.Fatalf("NewFusionEngine() error = %v", err)
	}

	fused := engine.Fuse([]domain.RankedList{
		rankedList("vector", "a", "b", "c"),
		rankedList("lexical", "b", "d", "a"),
	})

	// b holds ranks 2 and 1, the two best combined positions.
	want := []string{"b", "a", "d", "c"}
	if got := fusedIDs(fused); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}

	// Constant folding evaluates the expected sum in exact precision, so
	// allow one ulp of drift against the runtime accumulation.
	wantB := 1.0/62 + 1.0/61
	if math.Abs(fused[0].Score-wantB) > 1e-12 {
		t.Fatalf("expected b score %v, got %v", wantB, fused[0].Score)
	}
	if fused[0].Sources != 2 {
		t.Fatalf("expected b in 2 lists, got %d", fused[0].Sources)
	}
}

func TestFuseIsDeterministic(t *testing.T) {
	engine, _ := NewFusionEngine(60)
	lists := []domain.RankedList{
		rankedList("s0", "x", "y", "z"),
		rankedList("s1", "y", "x", "w"),
		rankedList("s2", "w", "z"),
	}

	first := engine.Fuse(lists)
	for i := 0; i < 20; i++ {
		if got := engine.Fuse(lists); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced different output: %v vs %v", i, fusedIDs(got), fusedIDs(first))
		}
	}
}

func TestFuseCompleteness(t *testing.T) {
	engine, _ := NewFusionEngine(60)
	lists := []domain.RankedList{
		rankedList("s0", "a", "b", "c"),
		rankedList("s1", "c", "d"),
		{Source: "s2"},
	}

	fused := engine.Fuse(lists)
	seen := make(map[string]int)
	for _, item := range fused {
		seen[item.ID]++
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if seen[id] != 1 {
			t.Fatalf("expected %q exactly once, got %d", id, seen[id])
		}
	}
	if len(fused) != 4 {
		t.Fatalf("expected 4 fused items, got %d", len(fused))
	}
}

func TestFuseMorePresenceNeverScoresLower(t *testing.T) {
	engine, _ := NewFusionEngine(60)
	// "both" appears in two lists at rank 1; "solo" appears in one at rank 1.
	fused := engine.Fuse([]domain.RankedList{
		rankedList("s0", "both", "solo2"),
		rankedList("s1", "both", "solo"),
	})

	scores := make(map[string]float64, len(fused))
	for _, item := range fused {
		scores[item.ID] = item.Score
	}
	if scores["both"] < scores["solo"] || scores["both"] < scores["solo2"] {
		t.Fatalf("item in more lists scored lower: %v", scores)
	}
	if fused[0].ID != "both" {
		t.Fatalf("expected both first, got %s", fused[0].ID)
	}
}

func TestFuseTieBreakOrder(t *testing.T) {
	engine, _ := NewFusionEngine(60)
	// Four single-appearance items all at rank 1 in their own list: equal
	// fused score and list count, so order falls to first list index.
	fused := engine.Fuse([]domain.RankedList{
		rankedList("s0", "delta"),
		rankedList("s1", "alpha"),
		rankedList("s2", "mike"),
	})
	want := []string{"delta", "alpha", "mike"}
	if got := fusedIDs(fused); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected first-list tie-break %v, got %v", want, got)
	}

	// Equal score, list count, and first list index: item ID decides.
	fused = engine.Fuse([]domain.RankedList{
		{Source: "s0", Items: []domain.ScoredItem{{ID: "zeta", Score: 0.5}, {ID: "beta", Score: 0.5}}},
		{Source: "s1", Items: []domain.ScoredItem{{ID: "beta", Score: 0.5}, {ID: "zeta", Score: 0.5}}},
	})
	if fused[0].ID != "beta" {
		t.Fatalf("expected ID tie-break to put beta first, got %s", fused[0].ID)
	}
}

func TestFuseDegenerateInputs(t *testing.T) {
	engine, _ := NewFusionEngine(60)
	if got := engine.Fuse(nil); len(got) != 0 {
		t.Fatalf("expected empty result for nil input, got %d items", len(got))
	}
	if got := engine.Fuse([]domain.RankedList{{Source: "s0"}, {Source: "s1"}}); len(got) != 0 {
		t.Fatalf("expected empty result for empty lists, got %d items", len(got))
	}
}
