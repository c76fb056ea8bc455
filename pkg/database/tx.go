package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxManager scopes repository calls to a connection. Services depend on this
// interface so they can be tested without PostgreSQL.
type TxManager interface {
	// InTx runs fn inside one transaction, committing if fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	// WithConn runs fn with a pooled connection and no transaction.
	WithConn(ctx context.Context, fn func(ctx context.Context) error) error
}

var _ TxManager = (*DB)(nil)

// InTx implements TxManager. A transaction already present in ctx is reused,
// so nested calls join the outer transaction.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if q, ok := GetQuerier(ctx); ok {
		if _, isTx := q.(pgx.Tx); isTx {
			return fn(ctx)
		}
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(SetQuerier(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithConn implements TxManager.
func (db *DB) WithConn(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := GetQuerier(ctx); ok {
		return fn(ctx)
	}

	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	return fn(SetQuerier(ctx, conn))
}
