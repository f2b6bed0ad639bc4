package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorageMetrics records finalize batch outcomes and staging volume.
type StorageMetrics struct {
	finalizeDuration *prometheus.HistogramVec
	finalizeFiles    prometheus.Counter
	finalizeFailures *prometheus.CounterVec
	stagedBytes      prometheus.Counter
}

// NewStorageMetrics registers the storage workflow metrics on the provided registerer.
func NewStorageMetrics(reg prometheus.Registerer) *StorageMetrics {
	if reg == nil {
		return &StorageMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storage_finalize_duration_seconds",
		Help:    "Duration of media finalization batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	files := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storage_finalize_files_total",
		Help: "Staged files promoted to permanent media records.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_finalize_failures_total",
		Help: "Failed finalization batches by reason.",
	}, []string{"reason"})
	staged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storage_staged_bytes_total",
		Help: "Bytes written to temporary storage.",
	})
	reg.MustRegister(duration, files, failures, staged)
	return &StorageMetrics{
		finalizeDuration: duration,
		finalizeFiles:    files,
		finalizeFailures: failures,
		stagedBytes:      staged,
	}
}

// ObserveFinalize records the duration of one finalize call.
func (m *StorageMetrics) ObserveFinalize(outcome string, duration time.Duration) {
	if m == nil || m.finalizeDuration == nil {
		return
	}
	m.finalizeDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// AddFinalizedFiles counts files promoted by a committed batch.
func (m *StorageMetrics) AddFinalizedFiles(n int) {
	if m == nil || m.finalizeFiles == nil || n <= 0 {
		return
	}
	m.finalizeFiles.Add(float64(n))
}

// IncFinalizeFailure counts a failed batch by reason.
func (m *StorageMetrics) IncFinalizeFailure(reason string) {
	if m == nil || m.finalizeFailures == nil {
		return
	}
	m.finalizeFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// AddStagedBytes counts bytes accepted into temporary storage.
func (m *StorageMetrics) AddStagedBytes(n int64) {
	if m == nil || m.stagedBytes == nil || n <= 0 {
		return
	}
	m.stagedBytes.Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
