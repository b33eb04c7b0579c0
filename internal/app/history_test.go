package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paisaflow/wallet-service/internal/domain"
	"github.com/paisaflow/wallet-service/internal/store"
)

func seedHistory(t *testing.T, svc *Service, sender, recipient *domain.Account) {
	t.Helper()
	if _, err := svc.Transfer(context.Background(), sender.ID, recipient.ID, 2000, "rent", ""); err != nil {
		t.Fatalf("seed transfer failed: %v", err)
	}
	if _, err := svc.Transfer(context.Background(), recipient.ID, sender.ID, 500, "groceries", ""); err != nil {
		t.Fatalf("seed transfer failed: %v", err)
	}
	if _, err := svc.Deposit(context.Background(), sender.ID, 3000, "salary"); err != nil {
		t.Fatalf("seed deposit failed: %v", err)
	}
}

func TestListTransactions_AnnotatesTypeAndCounterparty(t *testing.T) {
	sender := newAccount("asha", 10000)
	recipient := newAccount("ravi", 10000)
	repo := newWalletRepoStub(sender, recipient)
	svc, _ := newTestService(repo)
	seedHistory(t, svc, sender, recipient)

	page, err := svc.ListTransactions(context.Background(), sender.ID, domain.HistoryListOptions{})
	if err != nil {
		t.Fatalf("expected listing to succeed, got %v", err)
	}
	if page.Total != 3 || len(page.Entries) != 3 {
		t.Fatalf("expected three entries, got total=%d len=%d", page.Total, len(page.Entries))
	}

	// Newest first: deposit, then the incoming 500, then the outgoing 2000.
	deposit, incoming, outgoing := page.Entries[0], page.Entries[1], page.Entries[2]
	if deposit.Type != domain.DirectionCredit || deposit.CounterpartyName != "" {
		t.Fatalf("expected deposit as credit without counterparty, got %+v", deposit)
	}
	if incoming.Type != domain.DirectionCredit || incoming.CounterpartyName != "ravi" {
		t.Fatalf("expected incoming credit from ravi, got %+v", incoming)
	}
	if outgoing.Type != domain.DirectionDebit || outgoing.CounterpartyName != "ravi" {
		t.Fatalf("expected outgoing debit to ravi, got %+v", outgoing)
	}
}

func TestListTransactions_AppliesDirectionFilter(t *testing.T) {
	sender := newAccount("asha", 10000)
	recipient := newAccount("ravi", 10000)
	repo := newWalletRepoStub(sender, recipient)
	svc, _ := newTestService(repo)
	seedHistory(t, svc, sender, recipient)

	page, err := svc.ListTransactions(context.Background(), sender.ID, domain.HistoryListOptions{Direction: domain.DirectionDebit})
	if err != nil {
		t.Fatalf("expected listing to succeed, got %v", err)
	}
	if page.Total != 1 || page.Entries[0].Description != "rent" {
		t.Fatalf("expected only the outgoing rent entry, got %+v", page.Entries)
	}
}

func TestListTransactions_AppliesSearchFilter(t *testing.T) {
	sender := newAccount("asha", 10000)
	recipient := newAccount("ravi", 10000)
	repo := newWalletRepoStub(sender, recipient)
	svc, _ := newTestService(repo)
	seedHistory(t, svc, sender, recipient)

	page, err := svc.ListTransactions(context.Background(), sender.ID, domain.HistoryListOptions{Search: "grocer"})
	if err != nil {
		t.Fatalf("expected listing to succeed, got %v", err)
	}
	if page.Total != 1 || page.Entries[0].Description != "groceries" {
		t.Fatalf("expected only the groceries entry, got %+v", page.Entries)
	}
}

func TestListTransactions_NormalizesPagination(t *testing.T) {
	account := newAccount("asha", 10000)
	repo := newWalletRepoStub(account)
	svc, _ := newTestService(repo)

	page, err := svc.ListTransactions(context.Background(), account.ID, domain.HistoryListOptions{Page: -3, Limit: 0})
	if err != nil {
		t.Fatalf("expected listing to succeed, got %v", err)
	}
	if page.Page != 1 || page.Limit != defaultHistoryLimit {
		t.Fatalf("expected page=1 limit=%d, got page=%d limit=%d", defaultHistoryLimit, page.Page, page.Limit)
	}

	page, err = svc.ListTransactions(context.Background(), account.ID, domain.HistoryListOptions{Limit: 5000})
	if err != nil {
		t.Fatalf("expected listing to succeed, got %v", err)
	}
	if page.Limit != maxHistoryLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxHistoryLimit, page.Limit)
	}
}

func TestListTransactions_UnknownAccount(t *testing.T) {
	repo := newWalletRepoStub()
	svc, _ := newTestService(repo)

	if _, err := svc.ListTransactions(context.Background(), uuid.New(), domain.HistoryListOptions{}); !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestGetStatistics_WindowsAnchoredAtInjectedClock(t *testing.T) {
	account := newAccount("asha", 10000)
	repo := newWalletRepoStub(account)
	svc, _ := newTestService(repo)

	anchor := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return anchor }

	tests := []struct {
		timeRange string
		wantStart time.Time
	}{
		{timeRange: RangeWeek, wantStart: anchor.AddDate(0, 0, -7)},
		{timeRange: RangeMonth, wantStart: anchor.AddDate(0, -1, 0)},
		{timeRange: RangeQuarter, wantStart: anchor.AddDate(0, -3, 0)},
		{timeRange: RangeYear, wantStart: anchor.AddDate(-1, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.timeRange, func(t *testing.T) {
			stats, err := svc.GetStatistics(context.Background(), account.ID, tt.timeRange)
			if err != nil {
				t.Fatalf("expected statistics to succeed, got %v", err)
			}
			if !stats.WindowStart.Equal(tt.wantStart) || !stats.WindowEnd.Equal(anchor) {
				t.Fatalf("expected window [%s, %s], got [%s, %s]", tt.wantStart, anchor, stats.WindowStart, stats.WindowEnd)
			}
		})
	}
}

func TestGetStatistics_RejectsUnknownRange(t *testing.T) {
	account := newAccount("asha", 10000)
	repo := newWalletRepoStub(account)
	svc, _ := newTestService(repo)

	if _, err := svc.GetStatistics(context.Background(), account.ID, "decade"); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestGetStatistics_ComputesDirectionalTotals(t *testing.T) {
	sender := newAccount("asha", 10000)
	recipient := newAccount("ravi", 10000)
	repo := newWalletRepoStub(sender, recipient)
	svc, _ := newTestService(repo)
	seedHistory(t, svc, sender, recipient)

	svc.now = func() time.Time { return time.Now().UTC().Add(time.Minute) }

	stats, err := svc.GetStatistics(context.Background(), sender.ID, RangeWeek)
	if err != nil {
		t.Fatalf("expected statistics to succeed, got %v", err)
	}
	if stats.TotalSent != 2000 {
		t.Fatalf("expected total sent 2000, got %d", stats.TotalSent)
	}
	if stats.TotalReceived != 3500 { // 500 incoming transfer + 3000 deposit
		t.Fatalf("expected total received 3500, got %d", stats.TotalReceived)
	}
	if stats.NetAmount != 1500 {
		t.Fatalf("expected net amount 1500, got %d", stats.NetAmount)
	}
	if stats.TransactionCount != 3 {
		t.Fatalf("expected three transactions, got %d", stats.TransactionCount)
	}
}
