package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/statement/domain"
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

func (r *RepositoryImpl) ListSettleable(ctx context.Context, cutoff time.Time, limit int) ([]domain.AccountStatement, error) {
	var rows []domain.AccountStatement
	err := r.db.WithContext(ctx).
		Where("is_settled = ? AND statement_date < ?", false, cutoff).
		Order("statement_date ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *RepositoryImpl) SumPayments(ctx context.Context, dim domain.Dimension, entityID snowflake.ID, day time.Time) (domain.PaymentTotals, error) {
	var out struct {
		Paid      decimal.Decimal `gorm:"column:paid"`
		Collected decimal.Decimal `gorm:"column:collected"`
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS paid,
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS collected
		 FROM account_payments
		 WHERE dimension = ? AND entity_id = ? AND payment_date = ? AND is_reversed = ?`,
		domain.PaymentTypePayment,
		domain.PaymentTypeCollection,
		dim,
		entityID,
		day,
		false,
	).Scan(&out).Error
	if err != nil {
		return domain.PaymentTotals{}, err
	}
	return domain.PaymentTotals{Paid: out.Paid, Collected: out.Collected}, nil
}

func (r *RepositoryImpl) MarkSettled(ctx context.Context, id snowflake.ID, totals domain.PaymentTotals, settledAt time.Time, settledBy *string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.AccountStatement{}).
		Where("id = ? AND is_settled = ?", id, false).
		Updates(map[string]any{
			"total_paid":      totals.Paid,
			"total_collected": totals.Collected,
			"is_settled":      true,
			"can_edit":        false,
			"settled_at":      settledAt,
			"settled_by":      settledBy,
			"updated_at":      settledAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *RepositoryImpl) KeysOnDay(ctx context.Context, dim domain.Dimension, day time.Time) (map[snowflake.ID]struct{}, error) {
	var ids []snowflake.ID
	err := r.db.WithContext(ctx).Model(&domain.AccountStatement{}).
		Where("dimension = ? AND statement_date = ?", dim, day).
		Pluck("entity_id", &ids).Error
	if err != nil {
		return nil, err
	}
	keys := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		keys[id] = struct{}{}
	}
	return keys, nil
}

func (r *RepositoryImpl) LastRowsBefore(ctx context.Context, dim domain.Dimension, day time.Time) (map[snowflake.ID]domain.AccountStatement, error) {
	var rows []domain.AccountStatement
	err := r.db.WithContext(ctx).Raw(
		`SELECT s.* FROM account_statements s
		 JOIN (
			SELECT entity_id, MAX(statement_date) AS last_date
			FROM account_statements
			WHERE dimension = ? AND statement_date < ?
			GROUP BY entity_id
		 ) latest ON latest.entity_id = s.entity_id AND latest.last_date = s.statement_date
		 WHERE s.dimension = ?`,
		dim, day, dim,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	byEntity := make(map[snowflake.ID]domain.AccountStatement, len(rows))
	for _, row := range rows {
		byEntity[row.EntityID] = row
	}
	return byEntity, nil
}

func (r *RepositoryImpl) BulkInsertSkipDuplicates(ctx context.Context, rows []domain.AccountStatement) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 200)
	if result.Error != nil {
		return 0, 0, result.Error
	}
	created := int(result.RowsAffected)
	return created, len(rows) - created, nil
}
