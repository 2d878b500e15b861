package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bancanet/bancanet/internal/settlement/domain"
	statementdomain "github.com/bancanet/bancanet/internal/statement/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// runCarryForward manufactures zero-activity continuation rows dated
// today for every active entity whose last known remainingBalance is
// nonzero and that has no row yet today. Zero-balance entities need no
// continuation and are skipped.
func (s *Service) runCarryForward(ctx context.Context, today time.Time) domain.CarryForwardResult {
	var result domain.CarryForwardResult
	for _, dim := range statementdomain.Dimensions {
		if err := s.carryForwardDimension(ctx, dim, today, &result); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", dim, err))
			s.log.Error("carry-forward failed for dimension",
				zap.String("dimension", string(dim)),
				zap.Error(err),
			)
		}
	}
	if result.CreatedCount > 0 || result.SkippedCount > 0 {
		s.log.Info("carry-forward finished",
			zap.Int("created_count", result.CreatedCount),
			zap.Int("skipped_count", result.SkippedCount),
			zap.Int("error_count", result.ErrorCount),
		)
	}
	return result
}

// carryForwardDimension runs one last-row-per-entity query per dimension
// so round trips stay O(active entities), not O(days x entities).
func (s *Service) carryForwardDimension(ctx context.Context, dim statementdomain.Dimension, today time.Time, result *domain.CarryForwardResult) error {
	activeIDs, err := s.directory.ListActiveIDs(ctx, dim)
	if err != nil {
		return fmt.Errorf("list active entities: %w", err)
	}
	if len(activeIDs) == 0 {
		return nil
	}

	existing, err := s.statements.KeysOnDay(ctx, dim, today)
	if err != nil {
		return fmt.Errorf("list today's rows: %w", err)
	}

	lastRows, err := s.statements.LastRowsBefore(ctx, dim, today)
	if err != nil {
		return fmt.Errorf("find last rows: %w", err)
	}

	now := s.clock.Now()
	var rows []statementdomain.AccountStatement
	for _, id := range activeIDs {
		if _, ok := existing[id]; ok {
			continue
		}
		prior, ok := lastRows[id]
		if !ok {
			continue
		}
		if prior.RemainingBalance.IsZero() {
			continue
		}
		rows = append(rows, statementdomain.AccountStatement{
			ID:                 s.genID.Generate(),
			StatementDate:      today,
			Dimension:          dim,
			EntityID:           id,
			TicketCount:        0,
			TotalSales:         decimal.Zero,
			TotalPayouts:       decimal.Zero,
			SellerCommission:   decimal.Zero,
			WindowCommission:   decimal.Zero,
			Balance:            decimal.Zero,
			TotalPaid:          decimal.Zero,
			TotalCollected:     decimal.Zero,
			RemainingBalance:   prior.RemainingBalance,
			AccumulatedBalance: prior.AccumulatedBalance,
			IsSettled:          false,
			CanEdit:            true,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	// Duplicate keys are skipped so a re-run after a partial failure is
	// idempotent.
	created, skipped, err := s.statements.BulkInsertSkipDuplicates(ctx, rows)
	result.CreatedCount += created
	result.SkippedCount += skipped
	if err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}
	return nil
}
