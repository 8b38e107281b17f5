// Package neo4j implements the graph candidate source. It queries a
// Neo4j full-text index over passage nodes; Lucene scores are the
// source-local ranking signal.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/dmarkin/fusionrag/internal/core/domain"
)

const sourceName = "graph"

type Source struct {
	driver neo4j.DriverWithContext
	index  string
}

func New(uri, user, password, index string) (*Source, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Source{driver: driver, index: index}, nil
}

func (s *Source) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Source) Name() string { return sourceName }

const fulltextQuery = `
CALL db.index.fulltext.queryNodes($index, $query, {limit: $limit})
YIELD node, score
RETURN node.id AS id, node.body AS body, score`

func (s *Source) Fetch(ctx context.Context, query string, limit int) (domain.RankedList, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, fulltextQuery,
		map[string]any{
			"index": s.index,
			"query": query,
			"limit": limit,
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return domain.RankedList{}, fmt.Errorf("fulltext query: %w", err)
	}

	items := make([]domain.ScoredItem, 0, len(result.Records))
	for _, record := range result.Records {
		id, _, err := neo4j.GetRecordValue[string](record, "id")
		if err != nil {
			return domain.RankedList{}, fmt.Errorf("read id: %w", err)
		}
		body, _, err := neo4j.GetRecordValue[string](record, "body")
		if err != nil {
			return domain.RankedList{}, fmt.Errorf("read body: %w", err)
		}
		score, _, err := neo4j.GetRecordValue[float64](record, "score")
		if err != nil {
			return domain.RankedList{}, fmt.Errorf("read score: %w", err)
		}
		items = append(items, domain.ScoredItem{ID: id, Score: score, Payload: body})
	}
	return domain.RankedList{Source: sourceName, Query: query, Items: items}, nil
}
