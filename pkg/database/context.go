package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx shared by pooled connections and transactions.
// Repositories run every statement through the Querier stored in the context.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type contextKey string

// QuerierKey is the context key for the active connection or transaction.
const QuerierKey contextKey = "querier"

// GetQuerier retrieves the active connection or transaction from context.
// Returns nil and false if not present.
func GetQuerier(ctx context.Context) (Querier, bool) {
	q, ok := ctx.Value(QuerierKey).(Querier)
	return q, ok
}

// SetQuerier stores q in the context for downstream repositories.
func SetQuerier(ctx context.Context, q Querier) context.Context {
	return context.WithValue(ctx, QuerierKey, q)
}

// MustQuerier returns the context querier or an error naming the caller's operation.
func MustQuerier(ctx context.Context) (Querier, error) {
	q, ok := GetQuerier(ctx)
	if !ok {
		return nil, fmt.Errorf("no database connection in context")
	}
	return q, nil
}
