package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return mapPgError(err)
	}

	err = fn(tx)
	if err == nil {
		return mapPgError(tx.Commit(ctx))
	}

	rollbackErr := tx.Rollback(ctx)
	if errors.Is(err, domain.ErrNoChange) && rollbackErr == nil {
		return nil
	}

	if rollbackErr != nil {
		return errors.Join(mapPgError(err), rollbackErr)
	}

	return mapPgError(err)
}

// mapPgError reports lock contention the caller may retry as
// ErrTransactionAborted.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return fmt.Errorf("%w: %s", domain.ErrTransactionAborted, pgErr.Message)
	default:
		return err
	}
}
