package repository_test

import (
	"context"
	"testing"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryScheduleCache(t *testing.T) {
	cache := repository.NewMemoryScheduleCache()
	ctx := context.Background()

	_, ok := cache.Get(ctx, "LOAN-1")
	assert.False(t, ok)

	schedule := []*domain.Installment{
		{LoanID: "LOAN-1", Number: 1, EMIAmount: decimal.RequireFromString("8884.88"), Status: domain.InstallmentStatusUnpaid},
	}
	require.NoError(t, cache.Set(ctx, "LOAN-1", schedule))

	// callers get a copy, not the cached value
	schedule[0].Status = domain.InstallmentStatusPaid

	cached, ok := cache.Get(ctx, "LOAN-1")
	require.True(t, ok)
	require.Len(t, cached, 1)
	assert.Equal(t, domain.InstallmentStatusUnpaid, cached[0].Status)
	assert.True(t, cached[0].EMIAmount.Equal(decimal.RequireFromString("8884.88")))

	require.NoError(t, cache.Invalidate(ctx, "LOAN-1"))
	_, ok = cache.Get(ctx, "LOAN-1")
	assert.False(t, ok)
}

func TestMemoryLedgerRepository_Chart(t *testing.T) {
	repo := repository.NewMemoryLedgerRepository()
	ctx := context.Background()

	require.NoError(t, repo.SeedChart(ctx))
	accounts, err := repo.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, len(domain.ChartOfAccounts()))
	for i := 1; i < len(accounts); i++ {
		assert.Less(t, accounts[i-1].Code, accounts[i].Code)
	}

	// returned accounts are copies
	accounts[0].Balance = decimal.NewFromInt(1)
	again, err := repo.Accounts(ctx, []string{accounts[0].Code})
	require.NoError(t, err)
	assert.True(t, again[accounts[0].Code].Balance.IsZero())
}
