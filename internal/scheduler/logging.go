package scheduler

import (
	"time"

	"go.uber.org/zap"
)

type jobRun struct {
	job        string
	runID      string
	startedAt  time.Time
	errorCount int
}

func (s *Scheduler) newJobRun(job string) *jobRun {
	return &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
	}
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.errorCount++
}

func (s *Scheduler) logJobStart(run *jobRun) {
	s.log.Info("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
	)
}

func (s *Scheduler) logJobFinish(run *jobRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("error_count", run.errorCount),
	}
	if run.errorCount > 0 {
		s.log.Warn("scheduler.job.finish", fields...)
		return
	}
	s.log.Info("scheduler.job.finish", fields...)
}
