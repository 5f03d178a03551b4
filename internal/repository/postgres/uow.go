package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/promo-backoffice/internal/repository"
	"github.com/utafrali/promo-backoffice/pkg/database"
)

// UnitOfWork implements repository.UnitOfWork over a pgx pool. Each call to
// WithinTx opens one transaction, binds fresh stores to it, and commits or
// rolls back as a whole.
type UnitOfWork struct {
	pool database.DBTX
}

// NewUnitOfWork creates a transaction runner over the given pool.
func NewUnitOfWork(pool database.DBTX) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// WithinTx runs fn inside a single database transaction. Any error from fn
// rolls back everything written so far.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, s repository.Stores) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stores := repository.Stores{
		Carts:       NewCartStore(tx),
		Promotions:  NewCandidateStore(tx),
		Adjustments: NewAdjustmentStore(tx),
	}

	if err := fn(ctx, stores); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
