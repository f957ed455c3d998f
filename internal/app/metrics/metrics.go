// Package metrics exposes job pipeline and chat counters to Prometheus.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the service collectors
type Recorder struct {
	registry      *prometheus.Registry
	submissions   *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	chatTurns     *prometheus.CounterVec
}

// NewRecorder registers the collectors on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dubstudio",
			Name:      "job_submissions_total",
			Help:      "Job submissions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dubstudio",
			Name:      "job_transitions_total",
			Help:      "Job status transitions by kind and target status.",
		}, []string{"kind", "status"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dubstudio",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in synchronous stage processor calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "outcome"}),
		chatTurns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dubstudio",
			Name:      "chat_turns_total",
			Help:      "Assistant replies by outcome.",
		}, []string{"outcome"}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// JobSubmitted counts a submission attempt
func (r *Recorder) JobSubmitted(kind string, err error) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(kind, outcome(err)).Inc()
}

// JobTransition counts a job entering status
func (r *Recorder) JobTransition(kind, status string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(kind, status).Inc()
}

// StageObserved records how long a stage call took
func (r *Recorder) StageObserved(stage string, started time.Time, err error) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage, outcome(err)).Observe(time.Since(started).Seconds())
}

// ChatTurn counts an assistant reply; errored marks error-flagged replies
func (r *Recorder) ChatTurn(errored bool) {
	if r == nil {
		return
	}
	label := "ok"
	if errored {
		label = "error"
	}
	r.chatTurns.WithLabelValues(label).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
