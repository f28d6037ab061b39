// Package jobmetrics instruments background work: each run of a task type and
// the demo content it produced.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure reasons recorded on inkwell_jobs_failures_total.
const (
	ReasonInvalidPayload = "invalid_payload"
	ReasonRejected       = "rejected"
	ReasonError          = "error"
)

// Metrics holds the job collectors.
type Metrics struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	generated *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job collectors on registerer, or once on the
// default registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker times a single run of a task type.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// RecordGenerated adds n demo items of kind (posts, comments, likes).
func (m *Metrics) RecordGenerated(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.generated.WithLabelValues(kind).Add(float64(n))
}

// End records the run as a success, or as a ReasonError failure when err is
// non-nil. err is returned unchanged.
func (t *Tracker) End(err error) error {
	if err != nil {
		return t.Fail(ReasonError, err)
	}
	t.observe("success")
	return nil
}

// Fail records the run as a failure with reason and returns err unchanged.
func (t *Tracker) Fail(reason string, err error) error {
	if t != nil && t.metrics != nil && t.job != "" {
		t.metrics.failures.WithLabelValues(t.job, reason).Inc()
	}
	t.observe("failure")
	return err
}

func (t *Tracker) observe(status string) {
	if t == nil || t.metrics == nil || t.job == "" {
		return
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_jobs_total",
		Help: "Job runs by task type and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_jobs_failures_total",
		Help: "Failed job runs by task type and reason.",
	}, []string{"job", "reason"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_job_duration_seconds",
		Help:    "Job run duration by task type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	generated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_demo_items_generated_total",
		Help: "Demo posts, comments and likes created by background generation.",
	}, []string{"kind"})
	registerer.MustRegister(runs, failures, duration, generated)
	return &Metrics{runs: runs, failures: failures, duration: duration, generated: generated}
}
