package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/closing/domain"
	commissiondomain "github.com/bancanet/bancanet/internal/commission/domain"
	statementdomain "github.com/bancanet/bancanet/internal/statement/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(gdb *gorm.DB) domain.Repository {
	return &RepositoryImpl{db: gdb}
}

// dimensionMapping ties a hierarchy level to its ticket foreign key, its
// directory table and the commission origin attributed to that level.
// The directory table names match the Dimension values on purpose.
func dimensionMapping(dim statementdomain.Dimension) (ticketColumn, dirTable string, origin commissiondomain.Origin, err error) {
	switch dim {
	case statementdomain.DimensionSeller:
		return "seller_id", "sellers", commissiondomain.OriginSeller, nil
	case statementdomain.DimensionWindow:
		return "window_id", "windows", commissiondomain.OriginWindow, nil
	case statementdomain.DimensionBank:
		return "bank_id", "banks", commissiondomain.OriginBank, nil
	default:
		return "", "", "", fmt.Errorf("unknown dimension %q", dim)
	}
}

// AggregateEntity computes one entity's month totals straight from the
// source tables. Tickets are bounded by the evaluated_at instant span of
// the window, payments by its date form. The sentinel entity id selects
// activity whose reference no longer resolves in the directory at all;
// merely deactivated entities still resolve and are simply not
// enumerated by the closing run.
func (r *RepositoryImpl) AggregateEntity(ctx context.Context, dim statementdomain.Dimension, entityID snowflake.ID, window domain.MonthWindow) (domain.EntityTotals, error) {
	column, dirTable, origin, err := dimensionMapping(dim)
	if err != nil {
		return domain.EntityTotals{}, err
	}

	ticketFilter := fmt.Sprintf("t.%s = @entity", column)
	payoutFilter := fmt.Sprintf("%s = @entity", column)
	paymentFilter := "entity_id = @entity"
	if entityID == domain.SentinelEntityID {
		ticketFilter = fmt.Sprintf("t.%s NOT IN (SELECT id FROM %s)", column, dirTable)
		payoutFilter = fmt.Sprintf("%s NOT IN (SELECT id FROM %s)", column, dirTable)
		paymentFilter = fmt.Sprintf("entity_id NOT IN (SELECT id FROM %s)", dirTable)
	}

	var lines struct {
		Sales      decimal.Decimal `gorm:"column:sales"`
		Commission decimal.Decimal `gorm:"column:commission"`
	}
	err = r.db.WithContext(ctx).Raw(fmt.Sprintf(
		`SELECT
			COALESCE(SUM(bl.amount), 0) AS sales,
			COALESCE(SUM(CASE WHEN bl.commission_origin = @origin THEN bl.commission_amount ELSE 0 END), 0) AS commission
		 FROM bet_lines bl
		 JOIN tickets t ON t.id = bl.ticket_id
		 WHERE %s
		   AND t.evaluated_at >= @start AND t.evaluated_at < @end
		   AND bl.is_excluded = @excluded`, ticketFilter),
		map[string]any{
			"origin":   origin,
			"entity":   entityID,
			"start":    window.From,
			"end":      window.To,
			"excluded": false,
		},
	).Scan(&lines).Error
	if err != nil {
		return domain.EntityTotals{}, fmt.Errorf("aggregate bet lines: %w", err)
	}

	var payouts struct {
		Payouts decimal.Decimal `gorm:"column:payouts"`
	}
	err = r.db.WithContext(ctx).Raw(fmt.Sprintf(
		`SELECT COALESCE(SUM(total_payout), 0) AS payouts
		 FROM tickets
		 WHERE %s AND evaluated_at >= @start AND evaluated_at < @end`, payoutFilter),
		map[string]any{"entity": entityID, "start": window.From, "end": window.To},
	).Scan(&payouts).Error
	if err != nil {
		return domain.EntityTotals{}, fmt.Errorf("aggregate payouts: %w", err)
	}

	var payments struct {
		Paid      decimal.Decimal `gorm:"column:paid"`
		Collected decimal.Decimal `gorm:"column:collected"`
	}
	err = r.db.WithContext(ctx).Raw(fmt.Sprintf(
		`SELECT
			COALESCE(SUM(CASE WHEN type = @paymentType THEN amount ELSE 0 END), 0) AS paid,
			COALESCE(SUM(CASE WHEN type = @collectionType THEN amount ELSE 0 END), 0) AS collected
		 FROM account_payments
		 WHERE dimension = @dim AND %s
		   AND payment_date >= @start AND payment_date < @end
		   AND is_reversed = @reversed`, paymentFilter),
		map[string]any{
			"paymentType":    statementdomain.PaymentTypePayment,
			"collectionType": statementdomain.PaymentTypeCollection,
			"dim":            dim,
			"entity":         entityID,
			"start":          window.Month,
			"end":            window.MonthEnd(),
			"reversed":       false,
		},
	).Scan(&payments).Error
	if err != nil {
		return domain.EntityTotals{}, fmt.Errorf("aggregate payments: %w", err)
	}

	return domain.EntityTotals{
		TotalSales:      lines.Sales,
		TotalPayouts:    payouts.Payouts,
		TotalCommission: lines.Commission,
		TotalPaid:       payments.Paid,
		TotalCollected:  payments.Collected,
	}, nil
}

func (r *RepositoryImpl) Upsert(ctx context.Context, row *domain.MonthlyClosingBalance) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "closing_month"},
			{Name: "dimension"},
			{Name: "entity_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_sales",
			"total_payouts",
			"total_commission",
			"total_paid",
			"total_collected",
			"closing_balance",
			"computed_at",
			"computed_by",
			"updated_at",
		}),
	}).Create(row).Error
}
