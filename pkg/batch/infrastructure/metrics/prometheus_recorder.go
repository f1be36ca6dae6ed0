// Package metrics implements the engine's metric and trace hooks with Prometheus and OpenTelemetry.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/coffeebatch/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/coffeebatch/pkg/batch/core/metrics"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// Every collector is registered on its own registry, exposed by Registry for the /metrics handler.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Job Metrics
	jobDurationSeconds *prometheus.HistogramVec
	jobStatusCounter   *prometheus.CounterVec

	// Step Metrics
	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec
	stepReadCount       *prometheus.CounterVec
	stepWriteCount      *prometheus.CounterVec
	stepFilterCount     *prometheus.CounterVec
	stepCommitCount     *prometheus.CounterVec
	stepRollbackCount   *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder with a fresh registry holding the batch collectors
// plus the Go runtime and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_job_duration_seconds",
			Help:    "Duration of batch job executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "status"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_job_status_total",
			Help: "Total number of batch job executions by status.",
		}, []string{"job_name", "status"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_step_duration_seconds",
			Help:    "Duration of batch step executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "step_name", "status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_status_total",
			Help: "Total number of batch step executions by status.",
		}, []string{"job_name", "step_name", "status"}),
		stepReadCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_read_total",
			Help: "Total items read by step.",
		}, []string{"job_name", "step_name"}),
		stepWriteCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_write_total",
			Help: "Total items written by step.",
		}, []string{"job_name", "step_name"}),
		stepFilterCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_filter_total",
			Help: "Total items dropped by the processor, by step.",
		}, []string{"job_name", "step_name"}),
		stepCommitCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_commit_total",
			Help: "Total chunk commits by step.",
		}, []string{"job_name", "step_name"}),
		stepRollbackCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_step_rollback_total",
			Help: "Total chunk rollbacks by step.",
		}, []string{"job_name", "step_name"}),
	}

	registry.MustRegister(
		r.jobDurationSeconds,
		r.jobStatusCounter,
		r.stepDurationSeconds,
		r.stepStatusCounter,
		r.stepReadCount,
		r.stepWriteCount,
		r.stepFilterCount,
		r.stepCommitCount,
		r.stepRollbackCount,
	)
	return r
}

// Registry returns the Prometheus registry.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordJobStart records the start of a JobExecution.
func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

// RecordJobEnd records the final status and duration of a JobExecution.
func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	if execution.EndTime == nil {
		return
	}
	duration := execution.Duration().Seconds()
	status := execution.Status.String()
	r.jobStatusCounter.WithLabelValues(execution.JobName, status).Inc()
	r.jobDurationSeconds.WithLabelValues(execution.JobName, status).Observe(duration)
	logger.Debugf("Metrics: Job '%s' ended. Duration: %.3fs", execution.JobName, duration)
}

// RecordStepStart records the start of a StepExecution.
func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	r.stepStatusCounter.WithLabelValues(jobNameOf(execution), execution.StepName, execution.Status.String()).Inc()
	logger.Debugf("Metrics: Step '%s' started.", execution.StepName)
}

// RecordStepEnd records the final status and duration of a StepExecution.
// Item counters are fed while the step runs, so the totals held by execution are not added here.
func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	if execution.EndTime == nil {
		return
	}
	jobName := jobNameOf(execution)
	status := execution.Status.String()
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.stepStatusCounter.WithLabelValues(jobName, execution.StepName, status).Inc()
	r.stepDurationSeconds.WithLabelValues(jobName, execution.StepName, status).Observe(duration)
	logger.Debugf("Metrics: Step '%s' ended. Duration: %.3fs", execution.StepName, duration)
}

// RecordItemRead records one successful item read.
func (r *PrometheusRecorder) RecordItemRead(ctx context.Context, execution *model.StepExecution) {
	r.stepReadCount.WithLabelValues(jobNameOf(execution), execution.StepName).Inc()
}

// RecordItemFilter records one item dropped by the processor.
func (r *PrometheusRecorder) RecordItemFilter(ctx context.Context, execution *model.StepExecution) {
	r.stepFilterCount.WithLabelValues(jobNameOf(execution), execution.StepName).Inc()
}

// RecordItemWrite records count items written by one chunk.
func (r *PrometheusRecorder) RecordItemWrite(ctx context.Context, execution *model.StepExecution, count int) {
	r.stepWriteCount.WithLabelValues(jobNameOf(execution), execution.StepName).Add(float64(count))
}

// RecordChunkCommit records a committed chunk.
func (r *PrometheusRecorder) RecordChunkCommit(ctx context.Context, execution *model.StepExecution) {
	r.stepCommitCount.WithLabelValues(jobNameOf(execution), execution.StepName).Inc()
}

// RecordChunkRollback records a rolled back chunk.
func (r *PrometheusRecorder) RecordChunkRollback(ctx context.Context, execution *model.StepExecution) {
	r.stepRollbackCount.WithLabelValues(jobNameOf(execution), execution.StepName).Inc()
}

func jobNameOf(execution *model.StepExecution) string {
	if execution.JobExecution == nil {
		return ""
	}
	return execution.JobExecution.JobName
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
