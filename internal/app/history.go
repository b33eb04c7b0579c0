/**
 * @description
 * This file contains the read path of the wallet-service: paginated, filtered
 * transaction history and windowed activity statistics for an account.
 *
 * History entries are enriched from the requesting account's perspective: each is
 * annotated with a credit/debit type and the counterparty's holder name. Statistics
 * windows are anchored at "now" when the call is made; the clock is injectable on
 * the Service so the windows are testable.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package app

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/paisaflow/wallet-service/internal/domain"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Supported statistics windows.
const (
	RangeWeek    = "week"
	RangeMonth   = "month"
	RangeQuarter = "quarter"
	RangeYear    = "year"
)

var ErrInvalidTimeRange = errors.New("time range must be one of week, month, quarter, year")

// GetAccount returns the account with its current balance.
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.repo.FindAccountByID(ctx, accountID)
}

// ListTransactions returns one page of the account's ledger history, newest
// first, with each entry annotated from the account's perspective.
func (s *Service) ListTransactions(ctx context.Context, accountID uuid.UUID, opts domain.HistoryListOptions) (*domain.HistoryPage, error) {
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}

	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}

	entries, total, err := s.repo.FindLedgerEntriesByAccount(ctx, accountID, opts)
	if err != nil {
		return nil, err
	}

	// Resolve every counterparty name in one lookup.
	counterpartyIDs := make([]uuid.UUID, 0, len(entries))
	seen := make(map[uuid.UUID]bool, len(entries))
	for _, entry := range entries {
		other, ok := counterpartyID(entry, accountID)
		if ok && !seen[other] {
			seen[other] = true
			counterpartyIDs = append(counterpartyIDs, other)
		}
	}
	names, err := s.repo.FindAccountNames(ctx, counterpartyIDs)
	if err != nil {
		// Names are display sugar; the history itself is still correct.
		log.Printf("level=warn component=readpath msg=\"counterparty name lookup failed\" account_id=%s err=%v", accountID, err)
		names = map[uuid.UUID]string{}
	}

	enriched := make([]domain.HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		item := domain.HistoryEntry{
			LedgerEntry: entry,
			Type:        domain.DirectionDebit,
		}
		if entry.RecipientID == accountID {
			item.Type = domain.DirectionCredit
		}
		if other, ok := counterpartyID(entry, accountID); ok {
			item.CounterpartyName = names[other]
		}
		enriched = append(enriched, item)
	}

	return &domain.HistoryPage{
		Entries: enriched,
		Total:   total,
		Page:    opts.Page,
		Limit:   opts.Limit,
	}, nil
}

// GetStatistics summarizes the account's activity over the requested window,
// anchored at the current clock reading.
func (s *Service) GetStatistics(ctx context.Context, accountID uuid.UUID, timeRange string) (*domain.Statistics, error) {
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		return nil, err
	}

	end := s.now()
	var start = end
	switch timeRange {
	case RangeWeek:
		start = end.AddDate(0, 0, -7)
	case RangeMonth:
		start = end.AddDate(0, -1, 0)
	case RangeQuarter:
		start = end.AddDate(0, -3, 0)
	case RangeYear:
		start = end.AddDate(-1, 0, 0)
	default:
		return nil, ErrInvalidTimeRange
	}

	totals, err := s.repo.AggregateTotals(ctx, accountID, start, end)
	if err != nil {
		return nil, err
	}

	return &domain.Statistics{
		TotalSent:        totals.TotalSent,
		TotalReceived:    totals.TotalReceived,
		NetAmount:        totals.TotalReceived - totals.TotalSent,
		TransactionCount: totals.Count,
		WindowStart:      start,
		WindowEnd:        end,
	}, nil
}

// counterpartyID returns the other party of an entry from accountID's
// perspective. Deposits have no counterparty.
func counterpartyID(entry domain.LedgerEntry, accountID uuid.UUID) (uuid.UUID, bool) {
	if entry.RecipientID == accountID {
		if entry.SenderID == nil {
			return uuid.Nil, false
		}
		return *entry.SenderID, true
	}
	return entry.RecipientID, true
}
