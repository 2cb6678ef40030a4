package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// MemoryLedgerRepository keeps the ledger in process. A single mutex
// serializes writers, so Append never reports a conflict.
type MemoryLedgerRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	entries  []*domain.JournalEntry
	nextID   int64
}

// NewMemoryLedgerRepository returns a store seeded with the chart of accounts.
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	r := &MemoryLedgerRepository{
		accounts: make(map[string]*domain.Account),
		nextID:   1,
	}
	_ = r.SeedChart(context.Background())
	return r
}

func (r *MemoryLedgerRepository) SeedChart(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range domain.ChartOfAccounts() {
		if _, ok := r.accounts[account.Code]; ok {
			continue
		}
		a := account
		r.accounts[a.Code] = &a
	}
	return nil
}

func (r *MemoryLedgerRepository) Accounts(ctx context.Context, codes []string) (map[string]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*domain.Account, len(codes))
	for _, code := range codes {
		if account, ok := r.accounts[code]; ok {
			a := *account
			result[code] = &a
		}
	}
	return result, nil
}

func (r *MemoryLedgerRepository) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		a := *account
		accounts = append(accounts, &a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

func (r *MemoryLedgerRepository) Append(ctx context.Context, entry *domain.JournalEntry) error {
	if err := checkBalanced(entry); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	codes, deltas := balanceDeltas(entry)
	for _, code := range codes {
		if _, ok := r.accounts[code]; !ok {
			return customError.WrapUnknownAccount(code)
		}
	}

	entry.ID = r.nextID
	entry.CreatedAt = time.Now().UTC()
	r.nextID++
	for i := range entry.Lines {
		entry.Lines[i].EntryID = entry.ID
	}

	for _, code := range codes {
		account := r.accounts[code]
		account.Balance = account.Balance.Add(deltas[code])
		account.Version++
	}

	stored := *entry
	stored.Lines = append([]domain.JournalLine(nil), entry.Lines...)
	r.entries = append(r.entries, &stored)

	return nil
}

func (r *MemoryLedgerRepository) GetEntriesByReference(ctx context.Context, reference string) ([]*domain.JournalEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := []*domain.JournalEntry{}
	for _, entry := range r.entries {
		if entry.Reference != reference {
			continue
		}
		e := *entry
		e.Lines = append([]domain.JournalLine(nil), entry.Lines...)
		entries = append(entries, &e)
	}
	return entries, nil
}
