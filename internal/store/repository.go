/**
 * @description
 * This file defines the `Repository` and `UnitOfWork` interfaces, which specify the
 * contract for all data access operations required by the wallet-service. By defining
 * interfaces, we decouple the application's business logic from the specific database
 * implementation (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * The `UnitOfWork` interface makes the atomicity requirement explicit: every store
 * operation that participates in a money movement accepts the unit, and either the
 * whole unit commits or none of it is visible.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/paisaflow/wallet-service/internal/domain"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransientConflict marks a concurrent-write conflict on the atomic unit.
	// The engine retries the whole unit a bounded number of times.
	ErrTransientConflict = errors.New("transient storage conflict")
)

// UnitOfWork groups balance mutations and the ledger insert for one movement
// into a single atomic unit. Rollback after Commit is a no-op, so callers can
// always `defer unit.Rollback(ctx)`.
type UnitOfWork interface {
	// AccountForUpdate reads an account inside the unit and locks its balance
	// row until the unit commits or aborts.
	AccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// AdjustBalance applies balance += delta and returns the new balance.
	// Fails with ErrInsufficientFunds if the result would be negative.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta int64) (int64, error)
	// InsertLedgerEntry appends the immutable record of the movement. The
	// entry's CreatedAt is populated from the database clock.
	InsertLedgerEntry(ctx context.Context, entry *domain.LedgerEntry) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// BeginUnit opens a new atomic unit for a money movement.
	BeginUnit(ctx context.Context) (UnitOfWork, error)

	// Account methods
	FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindAccountNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)

	// Ledger read path
	FindLedgerEntriesByAccount(ctx context.Context, accountID uuid.UUID, opts domain.HistoryListOptions) ([]domain.LedgerEntry, int64, error)
	AggregateTotals(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*domain.LedgerTotals, error)

	// Post-commit side-effect records. These run outside any unit of work and
	// their failure must never roll back a committed movement.
	CreateNotification(ctx context.Context, n domain.Notification) error
	CreateAuditLogEntry(ctx context.Context, e domain.AuditLogEntry) error
}
