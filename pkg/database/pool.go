package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the query surface shared by a connection pool and an open
// transaction. Repository methods that must run inside a caller-managed
// transaction accept a Querier instead of a DBTX.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBTX abstracts a pgx connection pool so repositories can be constructed
// with either a real *pgxpool.Pool or a pgxmock pool in tests.
type DBTX interface {
	Querier

	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}
