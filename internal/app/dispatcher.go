/**
 * @description
 * This file contains the side-effect dispatcher. Once a movement has committed, the
 * dispatcher fans out the best-effort follow-ups: in-app notification rows and audit
 * rows for each party, plus a ledger event on RabbitMQ.
 *
 * All dispatches run concurrently and each is independent: a failure in one never
 * blocks the others, is logged rather than returned, and can never roll back the
 * already-committed movement.
 *
 * @dependencies
 * - context, fmt, log, sync, time: Standard Go libraries.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paisaflow/wallet-service/internal/domain"
	"github.com/paisaflow/wallet-service/internal/store"
	"github.com/paisaflow/wallet-service/pkg/rabbitmq"
)

const defaultDispatchTimeout = 5 * time.Second

// Dispatcher fans out post-commit side effects for committed movements.
type Dispatcher struct {
	repo     store.Repository
	producer rabbitmq.Publisher
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher writing through the given repository and publisher.
func NewDispatcher(repo store.Repository, producer rabbitmq.Publisher) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		producer: producer,
		timeout:  defaultDispatchTimeout,
	}
}

type dispatchJob struct {
	name string
	run  func(ctx context.Context) error
}

// TransferCompleted dispatches notifications, audit rows and the ledger event
// for a committed transfer. It blocks only until the concurrent dispatches
// finish or time out; it never returns an error.
func (d *Dispatcher) TransferCompleted(ctx context.Context, entry *domain.LedgerEntry, sender, recipient *domain.Account) {
	amount := entry.Amount
	jobs := []dispatchJob{
		{
			name: "sender_notification",
			run: func(ctx context.Context) error {
				return d.repo.CreateNotification(ctx, domain.Notification{
					ID:        uuid.New(),
					AccountID: sender.ID,
					Title:     "Money sent",
					Body:      fmt.Sprintf("You sent %d paise to %s.", amount, recipient.HolderName),
				})
			},
		},
		{
			name: "recipient_notification",
			run: func(ctx context.Context) error {
				return d.repo.CreateNotification(ctx, domain.Notification{
					ID:        uuid.New(),
					AccountID: recipient.ID,
					Title:     "Money received",
					Body:      fmt.Sprintf("You received %d paise from %s.", amount, sender.HolderName),
				})
			},
		},
		{
			name: "sender_audit",
			run: func(ctx context.Context) error {
				return d.repo.CreateAuditLogEntry(ctx, domain.AuditLogEntry{
					ID:        uuid.New(),
					AccountID: sender.ID,
					Action:    "transfer.debit",
					Details:   fmt.Sprintf("ledger_entry=%s amount=%d recipient=%s", entry.ID, amount, recipient.ID),
				})
			},
		},
		{
			name: "recipient_audit",
			run: func(ctx context.Context) error {
				return d.repo.CreateAuditLogEntry(ctx, domain.AuditLogEntry{
					ID:        uuid.New(),
					AccountID: recipient.ID,
					Action:    "transfer.credit",
					Details:   fmt.Sprintf("ledger_entry=%s amount=%d sender=%s", entry.ID, amount, sender.ID),
				})
			},
		},
		{
			name: "ledger_event",
			run: func(ctx context.Context) error {
				return d.producer.PublishLedgerEvent(ctx, ledgerEventFromEntry(entry))
			},
		},
	}
	d.runAll("transfer", entry.ID, jobs)
}

// DepositCompleted dispatches the notification, audit row and ledger event for
// a committed deposit.
func (d *Dispatcher) DepositCompleted(ctx context.Context, entry *domain.LedgerEntry, account *domain.Account) {
	amount := entry.Amount
	jobs := []dispatchJob{
		{
			name: "deposit_notification",
			run: func(ctx context.Context) error {
				return d.repo.CreateNotification(ctx, domain.Notification{
					ID:        uuid.New(),
					AccountID: account.ID,
					Title:     "Deposit received",
					Body:      fmt.Sprintf("%d paise was added to your wallet.", amount),
				})
			},
		},
		{
			name: "deposit_audit",
			run: func(ctx context.Context) error {
				return d.repo.CreateAuditLogEntry(ctx, domain.AuditLogEntry{
					ID:        uuid.New(),
					AccountID: account.ID,
					Action:    "deposit.credit",
					Details:   fmt.Sprintf("ledger_entry=%s amount=%d", entry.ID, amount),
				})
			},
		},
		{
			name: "ledger_event",
			run: func(ctx context.Context) error {
				return d.producer.PublishLedgerEvent(ctx, ledgerEventFromEntry(entry))
			},
		},
	}
	d.runAll("deposit", entry.ID, jobs)
}

// runAll executes the jobs concurrently under a fresh bounded context. The
// caller's context is deliberately not reused: the movement has already
// committed, so cancellation of the originating request must not strand the
// side effects mid-flight.
func (d *Dispatcher) runAll(operation string, entryID uuid.UUID, jobs []dispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job dispatchJob) {
			defer wg.Done()
			if err := job.run(ctx); err != nil {
				log.Printf("level=warn component=dispatcher msg=\"side effect failed\" operation=%s job=%s ledger_entry_id=%s err=%v", operation, job.name, entryID, err)
			}
		}(job)
	}
	wg.Wait()
}

func ledgerEventFromEntry(entry *domain.LedgerEntry) rabbitmq.LedgerEvent {
	return rabbitmq.LedgerEvent{
		LedgerEntryID: entry.ID,
		Category:      entry.Category,
		SenderID:      entry.SenderID,
		RecipientID:   entry.RecipientID,
		Amount:        entry.Amount,
		Timestamp:     entry.CreatedAt,
	}
}
