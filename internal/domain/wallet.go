/**
 * @description
 * This file defines the core domain models for the wallet-service. These structs
 * represent the main entities and data transfer objects (DTOs) used throughout the
 * service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and event payloads
 *   ensures clear separation of concerns and type safety.
 * - Amounts are stored as `int64` to represent the value in the smallest currency
 *   unit (paise), which avoids floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Ledger entry categories. A transfer moves money between two accounts, a
// deposit tops up a single account from outside the wallet.
const (
	CategoryTransfer = "Transfer"
	CategoryDeposit  = "Deposit"
)

// StatusCompleted is the only persisted ledger status. An entry is written in
// the same atomic unit as the balance mutation it records, so a partially
// completed movement is never visible.
const StatusCompleted = "completed"

// Account represents a user's wallet. This struct maps directly to the
// `accounts` table in the database.
type Account struct {
	ID         uuid.UUID `json:"id"`
	HolderName string    `json:"holder_name"`
	Balance    int64     `json:"balance"` // in paise
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LedgerEntry is the immutable record of one completed money movement.
// Entries are append-only: they are created exactly once, inside the same
// atomic unit as the balance mutation, and never updated or deleted.
type LedgerEntry struct {
	ID          uuid.UUID  `json:"id"`
	SenderID    *uuid.UUID `json:"sender_id,omitempty"` // nil for deposits
	RecipientID uuid.UUID  `json:"recipient_id"`
	Amount      int64      `json:"amount"` // in paise, always positive
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TransferRequest is the DTO for incoming transfer API requests. The sender is
// taken from the authenticated request context, never from the payload.
type TransferRequest struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Amount      int64     `json:"amount"` // in paise
	Description string    `json:"description"`
}

// DepositRequest is the DTO for incoming deposit API requests.
type DepositRequest struct {
	Amount      int64  `json:"amount"` // in paise
	Description string `json:"description"`
}

// PartyRef identifies one side of a transfer in API responses.
type PartyRef struct {
	Name      string    `json:"name"`
	AccountID uuid.UUID `json:"account_id"`
}

// TransferResult is returned to the caller after a transfer has committed.
// Balances are the post-commit values read back for the response.
type TransferResult struct {
	LedgerEntryID    uuid.UUID `json:"ledger_entry_id"`
	SenderBalance    int64     `json:"sender_balance"`
	RecipientBalance int64     `json:"recipient_balance"`
	Sender           PartyRef  `json:"sender"`
	Recipient        PartyRef  `json:"recipient"`
}

// DepositResult is returned to the caller after a deposit has committed.
type DepositResult struct {
	LedgerEntryID uuid.UUID `json:"ledger_entry_id"`
	NewBalance    int64     `json:"new_balance"`
}

// Direction filter values for transaction history queries.
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)

// HistoryListOptions controls pagination and filtering for an account's
// transaction history.
type HistoryListOptions struct {
	Direction string // "credit", "debit" or "" for both
	Search    string // free-text match against the description
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

// HistoryEntry is a ledger entry enriched for display: annotated with the
// requesting account's perspective ("credit" when it is the recipient) and the
// counterparty's holder name. Deposits have no counterparty.
type HistoryEntry struct {
	LedgerEntry
	Type             string `json:"type"` // "credit" or "debit"
	CounterpartyName string `json:"counterparty_name,omitempty"`
}

// HistoryPage is one page of enriched history entries plus the unpaginated
// total for the applied filters.
type HistoryPage struct {
	Entries []HistoryEntry `json:"entries"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
}

// LedgerTotals holds directional sums for an account over a date range.
type LedgerTotals struct {
	TotalSent     int64 `json:"total_sent"`     // in paise
	TotalReceived int64 `json:"total_received"` // in paise
	Count         int64 `json:"count"`
}

// Statistics summarizes an account's activity over a time window anchored at
// the moment the query was made.
type Statistics struct {
	TotalSent        int64     `json:"total_sent"`     // in paise
	TotalReceived    int64     `json:"total_received"` // in paise
	NetAmount        int64     `json:"net_amount"`     // received minus sent, in paise
	TransactionCount int64     `json:"transaction_count"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
}

// Notification is a best-effort in-app message created after a committed
// movement. Failures writing it never affect the movement itself.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditLogEntry records who did what for a committed movement, one row per
// involved party. Best-effort, like notifications.
type AuditLogEntry struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
