package domain

import "time"

// ScoredItem is one retrievable unit as ranked by a single source. Score is
// source-local: lexical ranks and cosine similarities live on different
// scales and must never be compared across sources.
type ScoredItem struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Payload any     `json:"payload,omitempty"`
}

// RankedList is the ordered output of one source for one query text,
// rank 1 first. Producers guarantee descending source-local score and no
// duplicate item IDs.
type RankedList struct {
	Source string
	Query  string
	Items  []ScoredItem
}

// Contribution records what a single input list added to a fused item.
type Contribution struct {
	List     int     `json:"list"`
	Source   string  `json:"source"`
	Rank     int     `json:"rank"`
	RawScore float64 `json:"raw_score"`
}

// FusedItem is a deduplicated result merged across ranked lists.
type FusedItem struct {
	ID            string         `json:"id"`
	Score         float64        `json:"score"`
	Payload       any            `json:"payload,omitempty"`
	Sources       int            `json:"sources"`
	FirstList     int            `json:"first_list"`
	Contributions []Contribution `json:"contributions,omitempty"`
}

// FusionResult is one fused ranking. Every item ID present in any input list
// appears exactly once.
type FusionResult []FusedItem

// Verdict is the critic's judgment of whether a fused result set suffices to
// answer the query. Produced fresh each iteration, never persisted.
type Verdict struct {
	Sufficient bool    `json:"sufficient"`
	Rationale  string  `json:"rationale,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// RunTimings breaks down where a retrieval session spent its time.
type RunTimings struct {
	TotalMS   int64            `json:"total_ms"`
	PerSource map[string]int64 `json:"per_source_ms,omitempty"`
}

// RunResult is the caller-visible outcome of one retrieval session.
// Degraded is true when the iteration budget ran out before the critic
// reported sufficiency; the items are still the best fusion obtained.
type RunResult struct {
	SessionID  string      `json:"session_id"`
	QueryType  QueryType   `json:"query_type"`
	Items      []FusedItem `json:"items"`
	Degraded   bool        `json:"degraded"`
	Iterations int         `json:"iterations"`
	Timings    RunTimings  `json:"timings"`
	StartedAt  time.Time   `json:"-"`
}
