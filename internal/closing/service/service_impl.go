package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/activeops"
	"github.com/bancanet/bancanet/internal/clock"
	"github.com/bancanet/bancanet/internal/closing/domain"
	"github.com/bancanet/bancanet/internal/config"
	directorydomain "github.com/bancanet/bancanet/internal/directory/domain"
	obsmetrics "github.com/bancanet/bancanet/internal/observability/metrics"
	statementdomain "github.com/bancanet/bancanet/internal/statement/domain"
	"github.com/bancanet/bancanet/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	Cfg       config.Config
	Defaults  *config.SettlementDefaultsHolder
	Repo      domain.Repository
	Directory directorydomain.Repository
	ActiveOps *activeops.Registry
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	defaults  *config.SettlementDefaultsHolder
	repo      domain.Repository
	directory directorydomain.Repository
	activeOps *activeops.Registry
	loc       *time.Location
}

func New(p Params) (domain.Service, error) {
	loc, err := time.LoadLocation(p.Cfg.OperatingTimezone)
	if err != nil {
		return nil, fmt.Errorf("load operating timezone %q: %w", p.Cfg.OperatingTimezone, err)
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("closing"),
		clock:     p.Clock,
		genID:     p.GenID,
		defaults:  p.Defaults,
		repo:      p.Repo,
		directory: p.Directory,
		activeOps: p.ActiveOps,
		loc:       loc,
	}, nil
}

func (s *Service) ExecuteMonthlyClosing(ctx context.Context, operatorID *string, explicitMonth *time.Time) (domain.RunResult, error) {
	result := domain.RunResult{
		ExecutedAt:         s.clock.Now(),
		PerDimensionCounts: make(map[statementdomain.Dimension]int),
	}

	done, err := s.activeOps.Begin("monthly_closing")
	if err != nil {
		return result, err
	}
	defer done()

	if err := s.warmup(ctx); err != nil {
		s.log.Warn("connection warm-up failed, skipping monthly closing", zap.Error(err))
		result.Errors = append(result.Errors, fmt.Sprintf("warm-up: %v", err))
		return result, nil
	}

	result.ClosingMonth = s.targetMonth(explicitMonth)
	window := domain.NewMonthWindow(result.ClosingMonth, s.loc)

	chunk := s.defaults.Get().ClosingChunkSize
	metrics := obsmetrics.Jobs()

	for _, dim := range statementdomain.Dimensions {
		count, errs := s.closeDimension(ctx, dim, window, chunk, operatorID)
		result.PerDimensionCounts[dim] = count
		result.Errors = append(result.Errors, errs...)
		metrics.AddClosings(string(dim), count)
	}

	result.Success = len(result.Errors) == 0
	s.log.Info("monthly closing finished",
		zap.Bool("success", result.Success),
		zap.Time("closing_month", result.ClosingMonth),
		zap.Int("banks", result.PerDimensionCounts[statementdomain.DimensionBank]),
		zap.Int("windows", result.PerDimensionCounts[statementdomain.DimensionWindow]),
		zap.Int("sellers", result.PerDimensionCounts[statementdomain.DimensionSeller]),
		zap.Int("error_count", len(result.Errors)),
	)
	return result, nil
}

// RecalculateForDimension is fire-and-forget: a post-closing correction
// path calls it after its own commit, and a failed recalculation must
// never surface there. It does not touch statement rows.
func (s *Service) RecalculateForDimension(ctx context.Context, month time.Time, dim statementdomain.Dimension, entityIDs []snowflake.ID) {
	// Detach from the caller's cancellation so an aborted request does
	// not leave a half-recomputed month behind.
	ctx = context.WithoutCancel(ctx)

	window := domain.NewMonthWindow(clock.MonthStart(month, s.loc), s.loc)
	for _, entityID := range entityIDs {
		if err := s.closeEntity(ctx, dim, entityID, window, nil); err != nil {
			s.log.Error("monthly closing recalculation failed",
				zap.String("dimension", string(dim)),
				zap.String("entity_id", entityID.String()),
				zap.Time("closing_month", window.Month),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) targetMonth(explicitMonth *time.Time) time.Time {
	if explicitMonth != nil {
		return clock.MonthStart(*explicitMonth, s.loc)
	}
	// Default target is the previous calendar month.
	return clock.MonthStart(s.clock.Now(), s.loc).AddDate(0, -1, 0)
}

// closeDimension pages entities in fixed chunks to bound memory at scale.
func (s *Service) closeDimension(ctx context.Context, dim statementdomain.Dimension, window domain.MonthWindow, chunk int, operatorID *string) (int, []string) {
	ids, err := s.directory.ListActiveIDs(ctx, dim)
	if err != nil {
		return 0, []string{fmt.Sprintf("%s: list active entities: %v", dim, err)}
	}

	count := 0
	var errs []string
	for start := 0; start < len(ids); start += chunk {
		end := start + chunk
		if end > len(ids) {
			end = len(ids)
		}
		for _, entityID := range ids[start:end] {
			if err := s.closeEntity(ctx, dim, entityID, window, operatorID); err != nil {
				errs = append(errs, fmt.Sprintf("%s %s: %v", dim, entityID, err))
				s.log.Error("monthly closing failed for entity",
					zap.String("dimension", string(dim)),
					zap.String("entity_id", entityID.String()),
					zap.Error(err),
				)
				continue
			}
			count++
		}
	}

	// Activity whose entity reference no longer resolves in the
	// directory lands on the sentinel row. Deactivated entities still
	// resolve and are left out, matching the active-only enumeration.
	written, err := s.closeUnattributed(ctx, dim, window, operatorID)
	if err != nil {
		errs = append(errs, fmt.Sprintf("%s unattributed: %v", dim, err))
		s.log.Error("monthly closing failed for unattributed activity",
			zap.String("dimension", string(dim)),
			zap.Error(err),
		)
	} else if written {
		count++
	}
	return count, errs
}

func (s *Service) closeUnattributed(ctx context.Context, dim statementdomain.Dimension, window domain.MonthWindow, operatorID *string) (bool, error) {
	totals, err := s.repo.AggregateEntity(ctx, dim, domain.SentinelEntityID, window)
	if err != nil {
		return false, err
	}
	if totals.TotalSales.IsZero() && totals.TotalPayouts.IsZero() && totals.TotalCommission.IsZero() &&
		totals.TotalPaid.IsZero() && totals.TotalCollected.IsZero() {
		return false, nil
	}
	return true, s.upsertTotals(ctx, dim, domain.SentinelEntityID, window.Month, totals, operatorID)
}

func (s *Service) closeEntity(ctx context.Context, dim statementdomain.Dimension, entityID snowflake.ID, window domain.MonthWindow, operatorID *string) error {
	totals, err := s.repo.AggregateEntity(ctx, dim, entityID, window)
	if err != nil {
		return err
	}
	return s.upsertTotals(ctx, dim, entityID, window.Month, totals, operatorID)
}

func (s *Service) upsertTotals(ctx context.Context, dim statementdomain.Dimension, entityID snowflake.ID, monthStart time.Time, totals domain.EntityTotals, operatorID *string) error {
	now := s.clock.Now()
	row := domain.MonthlyClosingBalance{
		ID:              s.genID.Generate(),
		ClosingMonth:    monthStart,
		Dimension:       dim,
		EntityID:        entityID,
		TotalSales:      totals.TotalSales,
		TotalPayouts:    totals.TotalPayouts,
		TotalCommission: totals.TotalCommission,
		TotalPaid:       totals.TotalPaid,
		TotalCollected:  totals.TotalCollected,
		ClosingBalance:  totals.ClosingBalance(),
		ComputedAt:      now,
		ComputedBy:      operatorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return s.repo.Upsert(ctx, &row)
}

func (s *Service) warmup(ctx context.Context) error {
	d := s.defaults.Get()
	attempts := d.WarmupAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := db.Ping(ctx, s.db); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.WarmupBackoff):
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
