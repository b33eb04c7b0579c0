/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` and
 * `UnitOfWork` interfaces. It contains all the necessary SQL queries to interact
 * with the database tables for accounts, ledger entries, notifications, and audit
 * logs.
 *
 * The unit of work is a thin wrapper over a pgx transaction. Serialization
 * failures and deadlocks surface as ErrTransientConflict so the engine can retry
 * the whole unit.
 *
 * @dependencies
 * - context, errors, fmt, strings, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paisaflow/wallet-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// pgUnit implements UnitOfWork over a pgx transaction.
type pgUnit struct {
	tx   pgx.Tx
	done bool
}

// BeginUnit opens a transaction for one atomic money movement. Read committed
// is sufficient because every balance read inside the unit takes a row lock.
func (r *PostgresRepository) BeginUnit(ctx context.Context) (UnitOfWork, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit: %w", mapPgError(err))
	}
	return &pgUnit{tx: tx}, nil
}

func (u *pgUnit) AccountForUpdate(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	query := `
		SELECT id, holder_name, balance, created_at, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`
	err := u.tx.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.HolderName,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, mapPgError(err)
	}
	return &account, nil
}

func (u *pgUnit) AdjustBalance(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	var balance int64
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`
	err := u.tx.QueryRow(ctx, query, delta, id).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Either the account is missing or the debit would overdraw it.
			var exists bool
			if checkErr := u.tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)", id).Scan(&exists); checkErr != nil {
				return 0, mapPgError(checkErr)
			}
			if !exists {
				return 0, ErrAccountNotFound
			}
			return 0, ErrInsufficientFunds
		}
		return 0, mapPgError(err)
	}
	return balance, nil
}

func (u *pgUnit) InsertLedgerEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, sender_id, recipient_id, amount, description, category, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := u.tx.QueryRow(ctx, query,
		entry.ID,
		entry.SenderID,
		entry.RecipientID,
		entry.Amount,
		entry.Description,
		entry.Category,
		entry.Status,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", mapPgError(err))
	}
	return nil
}

func (u *pgUnit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit unit: %w", mapPgError(err))
	}
	u.done = true
	return nil
}

func (u *pgUnit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// FindAccountByID retrieves an account outside of any unit of work.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, holder_name, balance, created_at, updated_at FROM accounts WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.HolderName,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindAccountNames resolves holder names for a set of account ids in one query.
// Unknown ids are simply absent from the result map.
func (r *PostgresRepository) FindAccountNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := r.db.Query(ctx, `SELECT id, holder_name FROM accounts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// buildHistoryFilter assembles the WHERE clause shared by the history count and
// page queries. The account predicate always comes first; optional filters are
// appended with positional placeholders continuing after the account id.
func buildHistoryFilter(accountID uuid.UUID, opts domain.HistoryListOptions) (string, []interface{}) {
	conditions := make([]string, 0, 4)
	args := []interface{}{accountID}

	switch opts.Direction {
	case domain.DirectionCredit:
		conditions = append(conditions, "recipient_id = $1")
	case domain.DirectionDebit:
		conditions = append(conditions, "sender_id = $1")
	default:
		conditions = append(conditions, "(sender_id = $1 OR recipient_id = $1)")
	}

	if search := strings.TrimSpace(opts.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("description ILIKE $%d", len(args)))
	}
	if opts.From != nil {
		args = append(args, *opts.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if opts.To != nil {
		args = append(args, *opts.To)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

// FindLedgerEntriesByAccount returns one page of an account's ledger entries,
// newest first, plus the unpaginated total for the applied filters.
func (r *PostgresRepository) FindLedgerEntriesByAccount(ctx context.Context, accountID uuid.UUID, opts domain.HistoryListOptions) ([]domain.LedgerEntry, int64, error) {
	where, args := buildHistoryFilter(accountID, opts)

	var total int64
	countQuery := "SELECT COUNT(*) FROM ledger_entries WHERE " + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	pageArgs := append(args, limit, offset)
	pageQuery := fmt.Sprintf(`
		SELECT id, sender_id, recipient_id, amount, description, category, status, created_at
		FROM ledger_entries
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	rows, err := r.db.Query(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, limit)
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.SenderID,
			&entry.RecipientID,
			&entry.Amount,
			&entry.Description,
			&entry.Category,
			&entry.Status,
			&entry.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

// AggregateTotals sums an account's sent and received amounts over [from, to).
func (r *PostgresRepository) AggregateTotals(ctx context.Context, accountID uuid.UUID, from, to time.Time) (*domain.LedgerTotals, error) {
	var totals domain.LedgerTotals
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE sender_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE recipient_id = $1), 0),
			COUNT(*)
		FROM ledger_entries
		WHERE (sender_id = $1 OR recipient_id = $1)
		  AND created_at >= $2 AND created_at < $3
	`
	err := r.db.QueryRow(ctx, query, accountID, from, to).Scan(
		&totals.TotalSent,
		&totals.TotalReceived,
		&totals.Count,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate totals: %w", err)
	}
	return &totals, nil
}

// CreateNotification inserts a best-effort in-app notification row.
func (r *PostgresRepository) CreateNotification(ctx context.Context, n domain.Notification) error {
	query := `
		INSERT INTO notifications (id, account_id, title, body)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, n.ID, n.AccountID, n.Title, n.Body)
	return err
}

// CreateAuditLogEntry inserts a best-effort audit row.
func (r *PostgresRepository) CreateAuditLogEntry(ctx context.Context, e domain.AuditLogEntry) error {
	query := `
		INSERT INTO audit_logs (id, account_id, action, details)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, e.ID, e.AccountID, e.Action, e.Details)
	return err
}

// mapPgError translates retryable PostgreSQL failures into ErrTransientConflict.
// 40001 is serialization_failure, 40P01 is deadlock_detected.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return fmt.Errorf("%w: %s", ErrTransientConflict, pgErr.Code)
		}
	}
	return err
}
