package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/activeops"
	"github.com/bancanet/bancanet/internal/clock"
	closingdomain "github.com/bancanet/bancanet/internal/closing/domain"
	"github.com/bancanet/bancanet/internal/config"
	obsmetrics "github.com/bancanet/bancanet/internal/observability/metrics"
	settlementdomain "github.com/bancanet/bancanet/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log           *zap.Logger
	Clock         clock.Clock
	GenID         *snowflake.Node
	Cfg           config.Config
	SettlementSvc settlementdomain.Service
	ClosingSvc    closingdomain.Service
	Config        Config `optional:"true"`
}

type Scheduler struct {
	log           *zap.Logger
	cfg           Config
	clock         clock.Clock
	genID         *snowflake.Node
	settlementSvc settlementdomain.Service
	closingSvc    closingdomain.Service
	loc           *time.Location

	lastClosingMonth time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.GenID == nil || p.SettlementSvc == nil || p.ClosingSvc == nil {
		return nil, ErrInvalidConfig
	}
	loc, err := time.LoadLocation(p.Cfg.OperatingTimezone)
	if err != nil {
		return nil, fmt.Errorf("load operating timezone %q: %w", p.Cfg.OperatingTimezone, err)
	}
	return &Scheduler{
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		clock:         p.Clock,
		genID:         p.GenID,
		settlementSvc: p.SettlementSvc,
		closingSvc:    p.ClosingSvc,
		loc:           loc,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	run := s.newJobRun(name)
	s.logJobStart(run)

	metrics := obsmetrics.Jobs()
	metrics.IncJobRun(name)

	err := fn(ctx)
	metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err != nil {
		run.IncError()
	}
	s.logJobFinish(run)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	metrics.IncJobError(name)
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce evaluates every job's trigger condition against the current
// clock and runs the due ones sequentially.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	if due, dueErr := s.settlementDue(parent); dueErr != nil {
		err = errors.Join(err, dueErr)
	} else if due {
		err = errors.Join(err, s.runJob(parent, "settlement", s.SettlementJob))
	}

	if s.closingDue() {
		err = errors.Join(err, s.runJob(parent, "monthly_closing", s.MonthlyClosingJob))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) settlementDue(ctx context.Context) (bool, error) {
	cfg, err := s.settlementSvc.CurrentConfig(ctx)
	if err != nil {
		return false, fmt.Errorf("settlement due check: %w", err)
	}
	hour, minute := parseDailySchedule(cfg.CronSchedule)
	return settlementDue(s.clock.Now(), cfg.LastRunAt, hour, minute, s.loc), nil
}

func (s *Scheduler) closingDue() bool {
	local := s.clock.Now().In(s.loc)
	if local.Day() != 1 {
		return false
	}
	month := clock.MonthStart(s.clock.Now(), s.loc)
	return !month.Equal(s.lastClosingMonth)
}

// SettlementJob runs the unattended settlement + carry-forward batch.
// The service itself honors the disabled flag and records telemetry.
func (s *Scheduler) SettlementJob(ctx context.Context) error {
	result, err := s.settlementSvc.TriggerScheduled(ctx)
	if err != nil {
		if errors.Is(err, activeops.ErrShuttingDown) || errors.Is(err, settlementdomain.ErrRunRejected) {
			s.log.Info("settlement run rejected, shutting down")
			return nil
		}
		return err
	}
	if !result.Success {
		s.log.Warn("settlement run reported errors",
			zap.Int("error_count", result.ErrorCount),
			zap.Strings("errors", result.Errors),
		)
	}
	return nil
}

// MonthlyClosingJob recomputes the previous month once per month.
func (s *Scheduler) MonthlyClosingJob(ctx context.Context) error {
	result, err := s.closingSvc.ExecuteMonthlyClosing(ctx, nil, nil)
	if err != nil {
		if errors.Is(err, activeops.ErrShuttingDown) {
			s.log.Info("monthly closing rejected, shutting down")
			return nil
		}
		return err
	}
	s.lastClosingMonth = clock.MonthStart(s.clock.Now(), s.loc)
	if !result.Success {
		s.log.Warn("monthly closing reported errors",
			zap.Time("closing_month", result.ClosingMonth),
			zap.Strings("errors", result.Errors),
		)
	}
	return nil
}
