// Package metrics exposes Prometheus instrumentation for the simulator:
// per-tier service counters, eviction and capacity-fault counters, and
// migration-subsystem gauges. An optional HTTP listener serves /metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tiersim_requests_served_total",
		Help: "Completed requests by serving tier and operation",
	}, []string{"tier", "op"})

	ServedTime = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tiersim_served_time_seconds_total",
		Help: "Cumulative virtual served time by tier",
	}, []string{"tier"})

	Evictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tiersim_evictions_total",
		Help: "Items evicted from a tier to make room for an admission",
	}, []string{"tier"})

	EvictedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tiersim_evicted_bytes_total",
		Help: "Bytes freed by eviction per tier",
	}, []string{"tier"})

	CapacityFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tiersim_capacity_faults_total",
		Help: "Admissions that failed even after draining the resident set",
	}, []string{"tier"})

	MigrationsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tiersim_migrations_enqueued_total",
		Help: "Migration candidates accepted by the bounded queue",
	})

	MigrationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tiersim_migrations_dropped_total",
		Help: "Migration candidates dropped because the queue was full",
	})

	MigrationsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tiersim_migrations_completed_total",
		Help: "Migrations applied by the background executor",
	})

	MigrationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tiersim_migration_queue_depth",
		Help: "Current occupancy of the migration queue",
	})
)

// RunServer starts the Prometheus metrics HTTP server on addr and blocks
// until ctx is cancelled.
func RunServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
