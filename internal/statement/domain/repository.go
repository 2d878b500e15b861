package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PaymentTotals are the non-reversed sums for one (day, entity).
type PaymentTotals struct {
	Paid      decimal.Decimal
	Collected decimal.Decimal
}

type Repository interface {
	// ListSettleable returns unsettled rows strictly older than cutoff,
	// oldest date first.
	ListSettleable(ctx context.Context, cutoff time.Time, limit int) ([]AccountStatement, error)

	// SumPayments recomputes non-reversed payment/collection totals for
	// one (day, entity).
	SumPayments(ctx context.Context, dim Dimension, entityID snowflake.ID, day time.Time) (PaymentTotals, error)

	// MarkSettled flips a still-open row to settled. Returns false when
	// the row was already settled by a concurrent run.
	MarkSettled(ctx context.Context, id snowflake.ID, totals PaymentTotals, settledAt time.Time, settledBy *string) (bool, error)

	// KeysOnDay lists entity ids that already have a row on the given day.
	KeysOnDay(ctx context.Context, dim Dimension, day time.Time) (map[snowflake.ID]struct{}, error)

	// LastRowsBefore returns, per entity, the most recent row strictly
	// before day. One query per dimension.
	LastRowsBefore(ctx context.Context, dim Dimension, day time.Time) (map[snowflake.ID]AccountStatement, error)

	// BulkInsertSkipDuplicates inserts continuation rows, silently
	// skipping ones whose (day, dimension, entity) key already exists.
	BulkInsertSkipDuplicates(ctx context.Context, rows []AccountStatement) (created int, skipped int, err error)
}
