// Package variant decorates a candidate source with query reformulation:
// the query is rewritten once before delegation, so the same backend can
// contribute a second, differently-phrased ranked list to fusion.
package variant

import (
	"context"

	"github.com/dmarkin/fusionrag/internal/core/domain"
	"github.com/dmarkin/fusionrag/internal/core/ports"
)

type Source struct {
	inner    ports.CandidateSource
	rewriter ports.QueryRewriter
}

func New(inner ports.CandidateSource, rewriter ports.QueryRewriter) *Source {
	return &Source{inner: inner, rewriter: rewriter}
}

func (s *Source) Name() string { return s.inner.Name() + "+variant" }

func (s *Source) Fetch(ctx context.Context, query string, limit int) (domain.RankedList, error) {
	rewritten, err := s.rewriter.Rewrite(ctx, query, []string{query})
	if err != nil || rewritten == "" || rewritten == query {
		// Fall back to the original phrasing rather than losing the list.
		rewritten = query
	}
	list, err := s.inner.Fetch(ctx, rewritten, limit)
	if err != nil {
		return domain.RankedList{}, err
	}
	list.Source = s.Name()
	list.Query = query
	return list, nil
}
