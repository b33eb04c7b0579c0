package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/paisaflow/wallet-service/internal/domain"
)

func transferFixture() (*domain.LedgerEntry, *domain.Account, *domain.Account) {
	sender := newAccount("asha", 8000)
	recipient := newAccount("ravi", 7000)
	senderID := sender.ID
	entry := &domain.LedgerEntry{
		ID:          uuid.New(),
		SenderID:    &senderID,
		RecipientID: recipient.ID,
		Amount:      2000,
		Description: "rent",
		Category:    domain.CategoryTransfer,
		Status:      domain.StatusCompleted,
	}
	return entry, sender, recipient
}

func TestTransferCompleted_WritesAllSideEffects(t *testing.T) {
	entry, sender, recipient := transferFixture()
	repo := newWalletRepoStub(sender, recipient)
	producer := &publisherStub{}
	dispatcher := NewDispatcher(repo, producer)

	dispatcher.TransferCompleted(context.Background(), entry, sender, recipient)

	if len(repo.notifications) != 2 {
		t.Fatalf("expected one notification per party, got %d", len(repo.notifications))
	}
	if len(repo.auditLogs) != 2 {
		t.Fatalf("expected one audit row per party, got %d", len(repo.auditLogs))
	}
	notified := map[uuid.UUID]bool{}
	for _, n := range repo.notifications {
		notified[n.AccountID] = true
	}
	if !notified[sender.ID] || !notified[recipient.ID] {
		t.Fatalf("expected both parties notified, got %v", notified)
	}
	if len(producer.events) != 1 {
		t.Fatalf("expected one ledger event, got %d", len(producer.events))
	}
	event := producer.events[0]
	if event.LedgerEntryID != entry.ID || event.Category != domain.CategoryTransfer || event.Amount != 2000 {
		t.Fatalf("unexpected event payload: %+v", event)
	}
}

func TestTransferCompleted_OneFailureDoesNotBlockOthers(t *testing.T) {
	entry, sender, recipient := transferFixture()
	repo := newWalletRepoStub(sender, recipient)
	repo.notifyErr = errors.New("notification store down")
	producer := &publisherStub{}
	dispatcher := NewDispatcher(repo, producer)

	dispatcher.TransferCompleted(context.Background(), entry, sender, recipient)

	if len(repo.auditLogs) != 2 {
		t.Fatalf("expected audit rows despite notification failures, got %d", len(repo.auditLogs))
	}
	if len(producer.events) != 1 {
		t.Fatalf("expected ledger event despite notification failures, got %d", len(producer.events))
	}
}

func TestDepositCompleted_WritesSideEffects(t *testing.T) {
	account := newAccount("asha", 9000)
	entry := &domain.LedgerEntry{
		ID:          uuid.New(),
		RecipientID: account.ID,
		Amount:      1000,
		Category:    domain.CategoryDeposit,
		Status:      domain.StatusCompleted,
	}
	repo := newWalletRepoStub(account)
	producer := &publisherStub{}
	dispatcher := NewDispatcher(repo, producer)

	dispatcher.DepositCompleted(context.Background(), entry, account)

	if len(repo.notifications) != 1 || repo.notifications[0].AccountID != account.ID {
		t.Fatalf("expected one notification for the account, got %+v", repo.notifications)
	}
	if len(repo.auditLogs) != 1 {
		t.Fatalf("expected one audit row, got %d", len(repo.auditLogs))
	}
	if len(producer.events) != 1 || producer.events[0].SenderID != nil {
		t.Fatalf("expected one deposit event with nil sender, got %+v", producer.events)
	}
}
