package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	statementdomain "github.com/bancanet/bancanet/internal/statement/domain"
	"github.com/shopspring/decimal"
)

// SentinelEntityID stands in for "no entity" inside the unique closing
// key, so the (month, dimension, entity) index is a real unique index
// and the upsert stays atomic.
const SentinelEntityID snowflake.ID = 0

// MonthlyClosingBalance is an independently recomputed month snapshot
// per entity, used for audit and reconciliation rather than as the
// operational ledger.
type MonthlyClosingBalance struct {
	ID           snowflake.ID              `gorm:"primaryKey"`
	ClosingMonth time.Time                 `gorm:"type:date;not null;uniqueIndex:ux_monthly_closing,priority:1"`
	Dimension    statementdomain.Dimension `gorm:"type:text;not null;uniqueIndex:ux_monthly_closing,priority:2"`
	EntityID     snowflake.ID              `gorm:"not null;default:0;uniqueIndex:ux_monthly_closing,priority:3"`

	TotalSales      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TotalPayouts    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TotalCommission decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TotalPaid       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TotalCollected  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	ClosingBalance  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`

	ComputedAt time.Time `gorm:"not null"`
	ComputedBy *string   `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (MonthlyClosingBalance) TableName() string { return "monthly_closing_balances" }

// MonthWindow bounds one closing month two ways. Date-typed columns
// (payment_date, closing_month) hold operating-timezone days normalized
// to midnight UTC and compare against the Month date form; evaluated_at
// is a real instant and compares against the half-open [From, To) span
// of the month in the operating timezone.
type MonthWindow struct {
	Month time.Time
	From  time.Time
	To    time.Time
}

// NewMonthWindow builds the window for the month whose first day is
// given in date form, computing the instant bounds in loc.
func NewMonthWindow(month time.Time, loc *time.Location) MonthWindow {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	return MonthWindow{
		Month: month,
		From:  from.UTC(),
		To:    from.AddDate(0, 1, 0).UTC(),
	}
}

// MonthEnd is the first day of the following month in date form.
func (w MonthWindow) MonthEnd() time.Time { return w.Month.AddDate(0, 1, 0) }

// EntityTotals are the from-scratch month aggregates for one entity.
type EntityTotals struct {
	TotalSales      decimal.Decimal
	TotalPayouts    decimal.Decimal
	TotalCommission decimal.Decimal
	TotalPaid       decimal.Decimal
	TotalCollected  decimal.Decimal
}

// ClosingBalance applies the reconciliation equation:
// sales - payouts - commission - collected + paid.
func (t EntityTotals) ClosingBalance() decimal.Decimal {
	return t.TotalSales.
		Sub(t.TotalPayouts).
		Sub(t.TotalCommission).
		Sub(t.TotalCollected).
		Add(t.TotalPaid)
}

// RunResult summarizes one monthly closing execution.
type RunResult struct {
	Success            bool                              `json:"success"`
	ClosingMonth       time.Time                         `json:"closingMonth"`
	PerDimensionCounts map[statementdomain.Dimension]int `json:"perDimensionCounts"`
	ExecutedAt         time.Time                         `json:"executedAt"`
	Errors             []string                          `json:"errors,omitempty"`
}

type Service interface {
	// ExecuteMonthlyClosing recomputes every active entity's closing
	// balance for the target month (previous calendar month when nil).
	ExecuteMonthlyClosing(ctx context.Context, operatorID *string, explicitMonth *time.Time) (RunResult, error)

	// RecalculateForDimension recomputes a bounded set of entities after
	// a post-closing correction. It logs and swallows errors so it never
	// propagates into the caller's primary transaction, and does not
	// reopen statement rows.
	RecalculateForDimension(ctx context.Context, month time.Time, dim statementdomain.Dimension, entityIDs []snowflake.ID)
}

type Repository interface {
	// AggregateEntity computes the month totals for one entity straight
	// from the ticket/bet-line/payment source tables.
	AggregateEntity(ctx context.Context, dim statementdomain.Dimension, entityID snowflake.ID, window MonthWindow) (EntityTotals, error)

	// Upsert writes the closing row atomically keyed by
	// (month, dimension, entity).
	Upsert(ctx context.Context, row *MonthlyClosingBalance) error
}
