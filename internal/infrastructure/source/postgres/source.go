// Package postgres implements the lexical candidate source on top of
// Postgres full-text search. Scores come from ts_rank_cd and are ordered
// descending; they share no scale with vector similarities.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmarkin/fusionrag/internal/core/domain"
)

const sourceName = "lexical"

type Source struct {
	db *sql.DB
}

func NewSource(db *sql.DB) *Source {
	return &Source{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Source) Name() string { return sourceName }

const searchQuery = `
SELECT id, body, ts_rank_cd(tsv, q) AS rank
FROM passages, websearch_to_tsquery('english', $1) AS q
WHERE tsv @@ q
ORDER BY rank DESC, id ASC
LIMIT $2`

func (s *Source) Fetch(ctx context.Context, query string, limit int) (domain.RankedList, error) {
	rows, err := s.db.QueryContext(ctx, searchQuery, query, limit)
	if err != nil {
		return domain.RankedList{}, fmt.Errorf("fulltext query: %w", err)
	}
	defer rows.Close()

	var items []domain.ScoredItem
	for rows.Next() {
		var (
			id   string
			body string
			rank float64
		)
		if err := rows.Scan(&id, &body, &rank); err != nil {
			return domain.RankedList{}, fmt.Errorf("scan fulltext row: %w", err)
		}
		items = append(items, domain.ScoredItem{ID: id, Score: rank, Payload: body})
	}
	if err := rows.Err(); err != nil {
		return domain.RankedList{}, fmt.Errorf("iterate fulltext rows: %w", err)
	}

	return domain.RankedList{Source: sourceName, Query: query, Items: items}, nil
}

func (s *Source) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS passages (
	id TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', body)) STORED
);

CREATE INDEX IF NOT EXISTS idx_passages_tsv ON passages USING GIN (tsv);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return tx.Commit()
}
