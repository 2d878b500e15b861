package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/clock"
	closingdomain "github.com/bancanet/bancanet/internal/closing/domain"
	"github.com/bancanet/bancanet/internal/config"
	settlementdomain "github.com/bancanet/bancanet/internal/settlement/domain"
	statementdomain "github.com/bancanet/bancanet/internal/statement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSettlement struct {
	cfg       settlementdomain.Config
	cfgErr    error
	scheduled int
	runErr    error
}

func (f *fakeSettlement) TriggerManual(ctx context.Context, operatorID string) (settlementdomain.RunResult, error) {
	return settlementdomain.RunResult{Success: true}, nil
}

func (f *fakeSettlement) TriggerScheduled(ctx context.Context) (settlementdomain.RunResult, error) {
	f.scheduled++
	return settlementdomain.RunResult{Success: f.runErr == nil}, f.runErr
}

func (f *fakeSettlement) CurrentConfig(ctx context.Context) (settlementdomain.Config, error) {
	return f.cfg, f.cfgErr
}

func (f *fakeSettlement) UpdateConfig(ctx context.Context, cfg settlementdomain.Config) (settlementdomain.Config, error) {
	f.cfg = cfg
	return cfg, nil
}

type fakeClosing struct {
	executed int
	runErr   error
}

func (f *fakeClosing) ExecuteMonthlyClosing(ctx context.Context, operatorID *string, explicitMonth *time.Time) (closingdomain.RunResult, error) {
	f.executed++
	return closingdomain.RunResult{Success: f.runErr == nil}, f.runErr
}

func (f *fakeClosing) RecalculateForDimension(ctx context.Context, month time.Time, dim statementdomain.Dimension, entityIDs []snowflake.ID) {
}

func newScheduler(t *testing.T, fake *clock.FakeClock, settlement *fakeSettlement, closing *fakeClosing) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	sched, err := New(Params{
		Log:           zaptest.NewLogger(t),
		Clock:         fake,
		GenID:         node,
		Cfg:           config.Config{OperatingTimezone: "UTC"},
		SettlementSvc: settlement,
		ClosingSvc:    closing,
	})
	require.NoError(t, err)
	return sched
}

func TestRunOnceTriggersSettlementWhenDue(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 8, 28, 3, 5, 0, 0, time.UTC))
	settlement := &fakeSettlement{cfg: settlementdomain.Config{CronSchedule: "0 3 * * *"}}
	closing := &fakeClosing{}
	sched := newScheduler(t, fake, settlement, closing)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, settlement.scheduled)
	assert.Equal(t, 0, closing.executed, "closing only fires on the first of the month")
}

func TestRunOnceSkipsSettlementBeforeTrigger(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC))
	settlement := &fakeSettlement{cfg: settlementdomain.Config{CronSchedule: "0 3 * * *"}}
	sched := newScheduler(t, fake, settlement, &fakeClosing{})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 0, settlement.scheduled)
}

func TestRunOnceSkipsSettlementAlreadyRanToday(t *testing.T) {
	last := time.Date(2026, 8, 28, 3, 2, 0, 0, time.UTC)
	fake := clock.NewFakeClock(time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))
	settlement := &fakeSettlement{cfg: settlementdomain.Config{CronSchedule: "0 3 * * *", LastRunAt: &last}}
	sched := newScheduler(t, fake, settlement, &fakeClosing{})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 0, settlement.scheduled)
}

func TestRunOnceReportsConfigLoadFailure(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))
	settlement := &fakeSettlement{cfgErr: errors.New("db down")}
	sched := newScheduler(t, fake, settlement, &fakeClosing{})

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, settlement.scheduled)
}

func TestMonthlyClosingFiresOncePerMonth(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 9, 1, 0, 5, 0, 0, time.UTC))
	last := fake.Now()
	settlement := &fakeSettlement{cfg: settlementdomain.Config{CronSchedule: "0 3 * * *", LastRunAt: &last}}
	closing := &fakeClosing{}
	sched := newScheduler(t, fake, settlement, closing)

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, closing.executed)

	// Later the same day the trigger is latched.
	fake.Advance(6 * time.Hour)
	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, closing.executed)

	// The first of the next month fires again.
	fake.Set(time.Date(2026, 10, 1, 0, 5, 0, 0, time.UTC))
	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 2, closing.executed)
}

func TestMonthlyClosingRetriesAfterFailure(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 9, 1, 0, 5, 0, 0, time.UTC))
	last := fake.Now()
	settlement := &fakeSettlement{cfg: settlementdomain.Config{CronSchedule: "0 3 * * *", LastRunAt: &last}}
	closing := &fakeClosing{runErr: errors.New("db down")}
	sched := newScheduler(t, fake, settlement, closing)

	require.Error(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, closing.executed)

	// The failed month is not latched, so the next tick tries again.
	closing.runErr = nil
	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 2, closing.executed)
}

func TestRunJobMeasuresDurationWithInjectedClock(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC))
	core, logs := observer.New(zap.InfoLevel)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	sched, err := New(Params{
		Log:           zap.New(core),
		Clock:         fake,
		GenID:         node,
		Cfg:           config.Config{OperatingTimezone: "UTC"},
		SettlementSvc: &fakeSettlement{},
		ClosingSvc:    &fakeClosing{},
	})
	require.NoError(t, err)

	require.NoError(t, sched.runJob(context.Background(), "settlement", func(ctx context.Context) error {
		fake.Advance(90 * time.Second)
		return nil
	}))

	finishes := logs.FilterMessage("scheduler.job.finish").All()
	require.Len(t, finishes, 1)
	assert.Equal(t, int64(90000), finishes[0].ContextMap()["duration_ms"])
}

func TestSettlementJobSwallowsShutdownRejection(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 8, 28, 3, 5, 0, 0, time.UTC))
	settlement := &fakeSettlement{
		cfg:    settlementdomain.Config{CronSchedule: "0 3 * * *"},
		runErr: settlementdomain.ErrRunRejected,
	}
	sched := newScheduler(t, fake, settlement, &fakeClosing{})

	assert.NoError(t, sched.SettlementJob(context.Background()))
	assert.Equal(t, 1, settlement.scheduled)
}
