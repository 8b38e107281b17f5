package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newSourceWithMock(t *testing.T) (*Source, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &Source{db: db}, mock, func() { _ = db.Close() }
}

func TestFetchReturnsRankedOrder(t *testing.T) {
	src, mock, done := newSourceWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "body", "rank"}).
		AddRow("doc-3", "raft leader election", 0.62).
		AddRow("doc-1", "raft log replication", 0.41)
	mock.ExpectQuery("SELECT id, body, ts_rank_cd").
		WithArgs("raft election", 20).
		WillReturnRows(rows)

	list, err := src.Fetch(context.Background(), "raft election", 20)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if list.Source != "lexical" || list.Query != "raft election" {
		t.Fatalf("unexpected list metadata %+v", list)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(list.Items))
	}
	if list.Items[0].ID != "doc-3" || list.Items[0].Score != 0.62 {
		t.Fatalf("unexpected first item %+v", list.Items[0])
	}
	if list.Items[0].Payload != "raft leader election" {
		t.Fatalf("unexpected payload %v", list.Items[0].Payload)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFetchNoMatchesIsNotAnError(t *testing.T) {
	src, mock, done := newSourceWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, body, ts_rank_cd").
		WithArgs("zzz", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "body", "rank"}))

	list, err := src.Fetch(context.Background(), "zzz", 20)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(list.Items) != 0 {
		t.Fatalf("expected empty list, got %d items", len(list.Items))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFetchQueryError(t *testing.T) {
	src, mock, done := newSourceWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, body, ts_rank_cd").
		WithArgs("q", 20).
		WillReturnError(errors.New("connection refused"))

	if _, err := src.Fetch(context.Background(), "q", 20); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
