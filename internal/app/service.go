/**
 * @description
 * This file contains the core business logic for the wallet-service. The `Service`
 * struct orchestrates all money movement operations, coordinating between the database
 * repository and the side-effect dispatcher.
 *
 * Key features:
 * - Implements the main use cases: peer-to-peer transfers and deposits.
 * - Each movement runs as one atomic unit: the balance debit, the balance credit and
 *   the ledger insert either all commit or none are visible.
 * - Row locks are acquired in ascending account-id order so two concurrent transfers
 *   touching the same pair of accounts cannot deadlock each other.
 * - Transient storage conflicts retry the whole unit a bounded number of times.
 * - Side effects (notifications, audit rows, events) dispatch only after commit and
 *   never fail the movement.
 *
 * @dependencies
 * - bytes, context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 */

package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/paisaflow/wallet-service/internal/domain"
	"github.com/paisaflow/wallet-service/internal/store"
)

const (
	// unitMaxAttempts bounds how often a movement is retried after a
	// transient storage conflict before it surfaces as ErrOperationFailed.
	unitMaxAttempts = 3
	unitRetryDelay  = 25 * time.Millisecond
)

var (
	ErrSelfTransfer    = errors.New("sender and recipient must differ")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrOperationFailed = errors.New("operation failed, please try again")
)

// Service provides the core business logic for wallet money movements.
type Service struct {
	repo       store.Repository
	dispatcher *Dispatcher

	// now is injectable so statistics windows are testable with a fixed clock.
	now func() time.Time
}

// NewService creates a new wallet service instance.
func NewService(repo store.Repository, dispatcher *Dispatcher) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Transfer moves amount paise from sender to recipient and records exactly one
// ledger entry for the movement, all inside a single atomic unit.
//
// idempotencyKey is accepted from the HTTP layer as a forward-compatible
// extension point but is not enforced: submitting the same transfer twice
// creates two independent ledger entries and two balance movements. Callers
// that need retry-safety must deduplicate before invoking the engine.
func (s *Service) Transfer(ctx context.Context, senderID, recipientID uuid.UUID, amount int64, description, idempotencyKey string) (*domain.TransferResult, error) {
	// Fail fast before opening any unit of work.
	if senderID == recipientID {
		return nil, ErrSelfTransfer
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	sender, err := s.repo.FindAccountByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	recipient, err := s.repo.FindAccountByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}

	if idempotencyKey != "" {
		log.Printf("level=debug component=engine msg=\"idempotency key received but not enforced\" key=%s sender_id=%s", idempotencyKey, senderID)
	}

	var entry *domain.LedgerEntry
	var senderBalance, recipientBalance int64
	err = s.withRetry(ctx, func(ctx context.Context) error {
		entry, senderBalance, recipientBalance, err = s.runTransferUnit(ctx, senderID, recipientID, amount, description)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The movement is committed; side effects are best-effort from here on.
	s.dispatcher.TransferCompleted(ctx, entry, sender, recipient)

	return &domain.TransferResult{
		LedgerEntryID:    entry.ID,
		SenderBalance:    senderBalance,
		RecipientBalance: recipientBalance,
		Sender:           domain.PartyRef{Name: sender.HolderName, AccountID: sender.ID},
		Recipient:        domain.PartyRef{Name: recipient.HolderName, AccountID: recipient.ID},
	}, nil
}

// runTransferUnit executes one attempt of the atomic transfer unit.
func (s *Service) runTransferUnit(ctx context.Context, senderID, recipientID uuid.UUID, amount int64, description string) (*domain.LedgerEntry, int64, int64, error) {
	unit, err := s.repo.BeginUnit(ctx)
	if err != nil {
		return nil, 0, 0, err
	}
	defer unit.Rollback(ctx)

	// Lock both balance rows in ascending id order. With every transfer
	// locking in the same order, concurrent transfers over the same pair
	// serialize instead of deadlocking, and transfers between unrelated
	// accounts never contend.
	first, second := orderAccountIDs(senderID, recipientID)
	firstAcct, err := unit.AccountForUpdate(ctx, first)
	if err != nil {
		return nil, 0, 0, err
	}
	secondAcct, err := unit.AccountForUpdate(ctx, second)
	if err != nil {
		return nil, 0, 0, err
	}

	// Re-check sufficiency against the locked balance, not the pre-unit read.
	senderAcct := firstAcct
	if secondAcct.ID == senderID {
		senderAcct = secondAcct
	}
	if senderAcct.Balance < amount {
		return nil, 0, 0, store.ErrInsufficientFunds
	}

	senderBalance, err := unit.AdjustBalance(ctx, senderID, -amount)
	if err != nil {
		return nil, 0, 0, err
	}
	recipientBalance, err := unit.AdjustBalance(ctx, recipientID, amount)
	if err != nil {
		return nil, 0, 0, err
	}

	entry := &domain.LedgerEntry{
		ID:          uuid.New(),
		SenderID:    &senderID,
		RecipientID: recipientID,
		Amount:      amount,
		Description: description,
		Category:    domain.CategoryTransfer,
		Status:      domain.StatusCompleted,
	}
	if err := unit.InsertLedgerEntry(ctx, entry); err != nil {
		return nil, 0, 0, err
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, 0, 0, err
	}
	return entry, senderBalance, recipientBalance, nil
}

// Deposit credits an account from outside the wallet and records one ledger
// entry with a nil sender, inside a single atomic unit.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*domain.DepositResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var entry *domain.LedgerEntry
	var newBalance int64
	err = s.withRetry(ctx, func(ctx context.Context) error {
		entry, newBalance, err = s.runDepositUnit(ctx, accountID, amount, description)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.DepositCompleted(ctx, entry, account)

	return &domain.DepositResult{
		LedgerEntryID: entry.ID,
		NewBalance:    newBalance,
	}, nil
}

// runDepositUnit executes one attempt of the atomic deposit unit.
func (s *Service) runDepositUnit(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*domain.LedgerEntry, int64, error) {
	unit, err := s.repo.BeginUnit(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer unit.Rollback(ctx)

	if _, err := unit.AccountForUpdate(ctx, accountID); err != nil {
		return nil, 0, err
	}
	newBalance, err := unit.AdjustBalance(ctx, accountID, amount)
	if err != nil {
		return nil, 0, err
	}

	entry := &domain.LedgerEntry{
		ID:          uuid.New(),
		SenderID:    nil,
		RecipientID: accountID,
		Amount:      amount,
		Description: description,
		Category:    domain.CategoryDeposit,
		Status:      domain.StatusCompleted,
	}
	if err := unit.InsertLedgerEntry(ctx, entry); err != nil {
		return nil, 0, err
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return entry, newBalance, nil
}

// withRetry runs fn, retrying on ErrTransientConflict with a short linear
// backoff. Every other error is terminal. After the attempts are exhausted the
// caller sees ErrOperationFailed rather than driver internals.
func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= unitMaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, store.ErrTransientConflict) {
			return lastErr
		}
		log.Printf("level=warn component=engine msg=\"transient conflict, retrying unit\" attempt=%d err=%v", attempt, lastErr)
		if attempt == unitMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * unitRetryDelay):
		}
	}
	log.Printf("level=error component=engine msg=\"unit retries exhausted\" attempts=%d err=%v", unitMaxAttempts, lastErr)
	return ErrOperationFailed
}

// orderAccountIDs returns the two ids in ascending byte order.
func orderAccountIDs(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}
