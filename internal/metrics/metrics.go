// Package metrics provides Prometheus metrics for the FlashIO server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	storageOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashio_storage_ops_total",
			Help: "Total number of storage manager operations",
		},
		[]string{"op", "tier", "status"},
	)

	storageBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashio_storage_bytes_written_total",
			Help: "Total content bytes written, by storage tier",
		},
		[]string{"tier"},
	)

	tierMigrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashio_storage_tier_migrations_total",
			Help: "Total number of tier migrations on update",
		},
		[]string{"from", "to"},
	)

	remoteSyncFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashio_remote_sync_files_total",
			Help: "Files pushed to the remote mirror",
		},
		[]string{"status"},
	)

	sandboxBootsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashio_sandbox_boots_total",
			Help: "Sandbox instance boot attempts",
		},
		[]string{"status"},
	)

	terminalSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flashio_terminal_sessions_active",
			Help: "Currently running terminal sessions",
		},
	)

	terminalStreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flashio_terminal_streams_active",
			Help: "Currently attached terminal output streams",
		},
	)
)

// RecordStorageOp records one storage manager operation outcome.
func RecordStorageOp(op, tier, status string) {
	storageOpsTotal.WithLabelValues(op, tier, status).Inc()
}

// RecordBytesWritten adds written content bytes for a tier.
func RecordBytesWritten(tier string, n int64) {
	storageBytesWritten.WithLabelValues(tier).Add(float64(n))
}

// RecordTierMigration records a tier migration.
func RecordTierMigration(from, to string) {
	tierMigrationsTotal.WithLabelValues(from, to).Inc()
}

// RecordRemoteSyncFile records a per-file remote sync outcome.
func RecordRemoteSyncFile(status string) {
	remoteSyncFilesTotal.WithLabelValues(status).Inc()
}

// RecordSandboxBoot records a sandbox boot attempt outcome.
func RecordSandboxBoot(status string) {
	sandboxBootsTotal.WithLabelValues(status).Inc()
}

// SetTerminalSessionsActive sets the active terminal session gauge.
func SetTerminalSessionsActive(n int64) {
	terminalSessionsActive.Set(float64(n))
}

// StreamAttached increments the active stream gauge.
func StreamAttached() {
	terminalStreamsActive.Inc()
}

// StreamDetached decrements the active stream gauge.
func StreamDetached() {
	terminalStreamsActive.Dec()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
