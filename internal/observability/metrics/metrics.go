package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// JobMetrics covers the nightly settlement/carry-forward/closing jobs.
type JobMetrics struct {
	jobRuns     *prometheus.CounterVec
	jobErrors   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec

	rowsSettled   prometheus.Counter
	rowsCarried   prometheus.Counter
	closingsSaved *prometheus.CounterVec
}

var (
	mu       sync.Mutex
	instance *JobMetrics
)

// Jobs returns the process-wide job metrics, registering them on the
// default registerer on first use.
func Jobs() *JobMetrics {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance = newJobMetrics(prometheus.DefaultRegisterer)
	}
	return instance
}

// ResetForTest drops the singleton so tests can swap the default registry.
func ResetForTest() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
}

func newJobMetrics(reg prometheus.Registerer) *JobMetrics {
	factory := promauto.With(reg)
	return &JobMetrics{
		jobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bancanet_job_runs_total",
			Help: "Number of batch job invocations.",
		}, []string{"job"}),
		jobErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bancanet_job_errors_total",
			Help: "Number of batch job invocations that reported errors.",
		}, []string{"job"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bancanet_job_duration_seconds",
			Help:    "Batch job wall time.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job"}),
		rowsSettled: factory.NewCounter(prometheus.CounterOpts{
			Name: "bancanet_statements_settled_total",
			Help: "Account statement rows settled.",
		}),
		rowsCarried: factory.NewCounter(prometheus.CounterOpts{
			Name: "bancanet_statements_carried_total",
			Help: "Zero-activity statement rows created by carry-forward.",
		}),
		closingsSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bancanet_monthly_closings_total",
			Help: "Monthly closing balances upserted.",
		}, []string{"dimension"}),
	}
}

func (m *JobMetrics) IncJobRun(job string) {
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *JobMetrics) IncJobError(job string) {
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *JobMetrics) ObserveJobDuration(job string, d time.Duration) {
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *JobMetrics) AddSettled(n int) {
	if n > 0 {
		m.rowsSettled.Add(float64(n))
	}
}

func (m *JobMetrics) AddCarried(n int) {
	if n > 0 {
		m.rowsCarried.Add(float64(n))
	}
}

func (m *JobMetrics) AddClosings(dimension string, n int) {
	if n > 0 {
		m.closingsSaved.WithLabelValues(dimension).Add(float64(n))
	}
}
