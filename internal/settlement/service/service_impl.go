package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/activeops"
	"github.com/bancanet/bancanet/internal/clock"
	"github.com/bancanet/bancanet/internal/config"
	directorydomain "github.com/bancanet/bancanet/internal/directory/domain"
	obsmetrics "github.com/bancanet/bancanet/internal/observability/metrics"
	"github.com/bancanet/bancanet/internal/settlement/domain"
	statementdomain "github.com/bancanet/bancanet/internal/statement/domain"
	"github.com/bancanet/bancanet/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	Cfg        config.Config
	Defaults   *config.SettlementDefaultsHolder
	Statements statementdomain.Repository
	Directory  directorydomain.Repository
	ConfigRepo domain.ConfigRepository
	ActiveOps  *activeops.Registry
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	defaults   *config.SettlementDefaultsHolder
	statements statementdomain.Repository
	directory  directorydomain.Repository
	configRepo domain.ConfigRepository
	activeOps  *activeops.Registry
	loc        *time.Location
}

func New(p Params) (domain.Service, error) {
	loc, err := time.LoadLocation(p.Cfg.OperatingTimezone)
	if err != nil {
		return nil, fmt.Errorf("load operating timezone %q: %w", p.Cfg.OperatingTimezone, err)
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("settlement"),
		clock:      p.Clock,
		genID:      p.GenID,
		defaults:   p.Defaults,
		statements: p.Statements,
		directory:  p.Directory,
		configRepo: p.ConfigRepo,
		activeOps:  p.ActiveOps,
		loc:        loc,
	}, nil
}

func (s *Service) TriggerManual(ctx context.Context, operatorID string) (domain.RunResult, error) {
	return s.run(ctx, &operatorID, true)
}

func (s *Service) TriggerScheduled(ctx context.Context) (domain.RunResult, error) {
	return s.run(ctx, nil, false)
}

func (s *Service) CurrentConfig(ctx context.Context) (domain.Config, error) {
	return s.configRepo.Get(ctx, s.defaultConfig())
}

func (s *Service) UpdateConfig(ctx context.Context, cfg domain.Config) (domain.Config, error) {
	current, err := s.CurrentConfig(ctx)
	if err != nil {
		return domain.Config{}, err
	}
	current.Enabled = cfg.Enabled
	current.SettlementAgeDays = cfg.SettlementAgeDays
	current.BatchSize = cfg.BatchSize
	current.CronSchedule = cfg.CronSchedule
	if current.SettlementAgeDays < 0 {
		current.SettlementAgeDays = domain.DefaultSettlementAgeDays
	}
	if err := s.configRepo.Save(ctx, current); err != nil {
		return domain.Config{}, err
	}
	return current, nil
}

func (s *Service) defaultConfig() domain.Config {
	d := s.defaults.Get()
	return domain.Config{
		Enabled:           true,
		SettlementAgeDays: d.SettlementAgeDays,
		BatchSize:         d.BatchSize,
		CronSchedule:      d.CronSchedule,
	}
}

// run is the shared core behind both trigger entry points. Only the
// disabled-flag check differs: a scheduled run honors it, a manual run
// bypasses it.
func (s *Service) run(ctx context.Context, settledBy *string, manual bool) (domain.RunResult, error) {
	result := domain.RunResult{ExecutedAt: s.clock.Now()}

	done, err := s.activeOps.Begin("settlement")
	if err != nil {
		return result, domain.ErrRunRejected
	}
	defer done()

	if err := s.warmup(ctx); err != nil {
		// Transient environment failure: skip the whole run and let the
		// next scheduled tick retry.
		s.log.Warn("connection warm-up failed, skipping run", zap.Error(err))
		result.Errors = append(result.Errors, fmt.Sprintf("warm-up: %v", err))
		result.ErrorCount++
		return result, nil
	}

	cfg, err := s.configRepo.Get(ctx, s.defaultConfig())
	if err != nil {
		return result, fmt.Errorf("load settlement config: %w", err)
	}

	if !manual && !cfg.Enabled {
		s.log.Info("settlement disabled, scheduled run is a no-op")
		result.Success = true
		s.recordTelemetry(ctx, cfg, result)
		return result, nil
	}

	today := clock.BusinessDate(s.clock.Now(), s.loc)
	cutoff := today.AddDate(0, 0, -cfg.SettlementAgeDays)

	s.executeSettlementBatch(ctx, cutoff, cfg.EffectiveBatchSize(), settledBy, &result)

	// Carry-forward runs in the same invocation so a just-settled balance
	// is visible as "last known" for same-day continuation rows.
	result.CarryForward = s.runCarryForward(ctx, today)

	result.Success = result.ErrorCount == 0 && result.CarryForward.ErrorCount == 0
	s.recordTelemetry(ctx, cfg, result)

	metrics := obsmetrics.Jobs()
	metrics.AddSettled(result.SettledCount)
	metrics.AddCarried(result.CarryForward.CreatedCount)

	s.log.Info("settlement run finished",
		zap.Bool("success", result.Success),
		zap.Bool("manual", manual),
		zap.Int("settled_count", result.SettledCount),
		zap.Int("skipped_count", result.SkippedCount),
		zap.Int("error_count", result.ErrorCount),
		zap.Int("carried_count", result.CarryForward.CreatedCount),
	)
	return result, nil
}

func (s *Service) executeSettlementBatch(ctx context.Context, cutoff time.Time, batchSize int, settledBy *string, result *domain.RunResult) {
	rows, err := s.statements.ListSettleable(ctx, cutoff, batchSize)
	if err != nil {
		result.ErrorCount++
		result.Errors = append(result.Errors, fmt.Sprintf("list settleable: %v", err))
		return
	}

	settledAt := s.clock.Now()
	for _, row := range rows {
		if ctx.Err() != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, ctx.Err().Error())
			return
		}

		// The payment totals are the only per-row recomputation. The
		// running balances are already correct from incremental accrual;
		// recomputing them here would double-count payments.
		totals, err := s.statements.SumPayments(ctx, row.Dimension, row.EntityID, row.StatementDate)
		if err != nil {
			s.recordRowError(result, row, "sum payments", err)
			continue
		}

		settled, err := s.statements.MarkSettled(ctx, row.ID, totals, settledAt, settledBy)
		if err != nil {
			s.recordRowError(result, row, "mark settled", err)
			continue
		}
		if !settled {
			// Lost the row to a concurrent run; nothing to do.
			result.SkippedCount++
			continue
		}
		result.SettledCount++
	}
}

func (s *Service) recordRowError(result *domain.RunResult, row statementdomain.AccountStatement, stage string, err error) {
	result.ErrorCount++
	result.Errors = append(result.Errors, fmt.Sprintf("statement %s: %s: %v", row.ID, stage, err))
	s.log.Error("statement settlement failed",
		zap.String("statement_id", row.ID.String()),
		zap.String("dimension", string(row.Dimension)),
		zap.String("entity_id", row.EntityID.String()),
		zap.String("stage", stage),
		zap.Error(err),
	)
}

func (s *Service) recordTelemetry(ctx context.Context, cfg domain.Config, result domain.RunResult) {
	runAt := result.ExecutedAt
	cfg.LastRunAt = &runAt
	cfg.LastSettledCount = result.SettledCount
	cfg.LastErrorCount = result.ErrorCount + result.CarryForward.ErrorCount
	cfg.LastError = nil
	if len(result.Errors) > 0 {
		first := result.Errors[0]
		cfg.LastError = &first
	} else if len(result.CarryForward.Errors) > 0 {
		first := result.CarryForward.Errors[0]
		cfg.LastError = &first
	}
	if err := s.configRepo.Save(ctx, cfg); err != nil {
		s.log.Warn("failed to persist run telemetry", zap.Error(err))
	}
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
