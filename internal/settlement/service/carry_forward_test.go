package service

import (
	"context"
	"testing"
	"time"

	directorydomain "github.com/bancanet/bancanet/internal/directory/domain"
	statementdomain "github.com/bancanet/bancanet/internal/statement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCarryForwardCreatesContinuationRow(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	today := day(2026, 8, 28)

	seller := directorydomain.Seller{ID: f.node.Generate(), WindowID: f.node.Generate(), BankID: f.node.Generate(), Name: "Maria", IsActive: true}
	require.NoError(t, f.db.Create(&seller).Error)

	// Last activity two days ago with a nonzero balance.
	prior := f.statement(t, statementdomain.DimensionSeller, seller.ID, day(2026, 8, 26), "350.25")

	result := f.svc.runCarryForward(context.Background(), today)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Equal(t, 0, result.ErrorCount)

	var rows []statementdomain.AccountStatement
	require.NoError(t, f.db.Where("dimension = ? AND entity_id = ? AND statement_date = ?",
		statementdomain.DimensionSeller, seller.ID, today).Find(&rows).Error)
	require.Len(t, rows, 1)

	carried := rows[0]
	assert.True(t, carried.RemainingBalance.Equal(prior.RemainingBalance))
	assert.True(t, carried.AccumulatedBalance.Equal(prior.AccumulatedBalance))
	assert.True(t, carried.Balance.IsZero())
	assert.True(t, carried.TotalSales.IsZero())
	assert.Equal(t, 0, carried.TicketCount)
	assert.False(t, carried.IsSettled)
	assert.True(t, carried.CanEdit)

	t.Run("re-run is idempotent", func(t *testing.T) {
		again := f.svc.runCarryForward(context.Background(), today)
		assert.Equal(t, 0, again.CreatedCount)
		assert.Equal(t, 0, again.ErrorCount)

		var count int64
		require.NoError(t, f.db.Model(&statementdomain.AccountStatement{}).
			Where("dimension = ? AND entity_id = ? AND statement_date = ?",
				statementdomain.DimensionSeller, seller.ID, today).
			Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})
}

func TestCarryForwardSkipsZeroBalanceAndInactive(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	today := day(2026, 8, 28)

	zeroed := directorydomain.Seller{ID: f.node.Generate(), WindowID: f.node.Generate(), BankID: f.node.Generate(), Name: "Zero", IsActive: true}
	inactive := directorydomain.Seller{ID: f.node.Generate(), WindowID: f.node.Generate(), BankID: f.node.Generate(), Name: "Gone", IsActive: false}
	require.NoError(t, f.db.Create(&zeroed).Error)
	require.NoError(t, f.db.Create(&inactive).Error)

	f.statement(t, statementdomain.DimensionSeller, zeroed.ID, day(2026, 8, 27), "0")
	f.statement(t, statementdomain.DimensionSeller, inactive.ID, day(2026, 8, 27), "80")

	result := f.svc.runCarryForward(context.Background(), today)
	assert.Equal(t, 0, result.CreatedCount)

	var count int64
	require.NoError(t, f.db.Model(&statementdomain.AccountStatement{}).
		Where("statement_date = ?", today).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCarryForwardSkipsEntitiesWithTodayRow(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	today := day(2026, 8, 28)

	seller := directorydomain.Seller{ID: f.node.Generate(), WindowID: f.node.Generate(), BankID: f.node.Generate(), Name: "Activo", IsActive: true}
	require.NoError(t, f.db.Create(&seller).Error)

	f.statement(t, statementdomain.DimensionSeller, seller.ID, day(2026, 8, 27), "40")
	// Accrual already produced today's row.
	f.statement(t, statementdomain.DimensionSeller, seller.ID, today, "40")

	result := f.svc.runCarryForward(context.Background(), today)
	assert.Equal(t, 0, result.CreatedCount)
}

func TestCarryForwardUsesMostRecentPriorRow(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	today := day(2026, 8, 28)

	window := directorydomain.Window{ID: f.node.Generate(), BankID: f.node.Generate(), Name: "V2", IsActive: true}
	require.NoError(t, f.db.Create(&window).Error)

	f.statement(t, statementdomain.DimensionWindow, window.ID, day(2026, 8, 20), "10")
	latest := f.statement(t, statementdomain.DimensionWindow, window.ID, day(2026, 8, 25), "999.99")

	result := f.svc.runCarryForward(context.Background(), today)
	assert.Equal(t, 1, result.CreatedCount)

	var carried statementdomain.AccountStatement
	require.NoError(t, f.db.First(&carried, "dimension = ? AND entity_id = ? AND statement_date = ?",
		statementdomain.DimensionWindow, window.ID, today).Error)
	assert.True(t, carried.RemainingBalance.Equal(latest.RemainingBalance), carried.RemainingBalance.String())
}

func TestSettlementRunIncludesCarryForward(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	bank := directorydomain.Bank{ID: f.node.Generate(), Name: "B1", IsActive: true}
	require.NoError(t, f.db.Create(&bank).Error)

	// Old enough to settle, and its balance must then carry into today.
	f.statement(t, statementdomain.DimensionBank, bank.ID, day(2026, 8, 15), "500")

	result, err := f.svc.TriggerManual(context.Background(), "op-5")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SettledCount)
	assert.Equal(t, 1, result.CarryForward.CreatedCount)

	var carried statementdomain.AccountStatement
	require.NoError(t, f.db.First(&carried, "dimension = ? AND entity_id = ? AND statement_date = ?",
		statementdomain.DimensionBank, bank.ID, day(2026, 8, 28)).Error)
	assert.True(t, carried.RemainingBalance.Equal(dec("500")))
	assert.False(t, carried.IsSettled)
}
