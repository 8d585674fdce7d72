package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	engineUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trademon",
			Subsystem: "engine",
			Name:      "up",
			Help:      "Whether the managed engine is currently running (1) or not (0).",
		},
	)
	engineStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trademon",
			Subsystem: "engine",
			Name:      "starts_total",
			Help:      "Number of successful engine starts.",
		},
	)
	engineStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trademon",
			Subsystem: "engine",
			Name:      "stops_total",
			Help:      "Number of engine stops (graceful or forced).",
		},
	)
	engineBootstraps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trademon",
			Subsystem: "engine",
			Name:      "bootstraps_total",
			Help:      "Number of one-time data directory bootstraps.",
		},
	)
	engineRecoveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trademon",
			Subsystem: "engine",
			Name:      "recoveries_total",
			Help:      "Recovery decisions taken against stale lock artifacts.",
		}, []string{"decision"},
	)
	engineStartDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trademon",
			Subsystem: "engine",
			Name:      "start_duration_seconds",
			Help:      "Observed duration of the full start sequence (resolve, bootstrap, spawn).",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers all collectors with the provided registerer. Safe to
// call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{engineUp, engineStarts, engineStops, engineBootstraps, engineRecoveries, engineStartDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers all collectors with the default registry.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

// Handler returns an http.Handler serving metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func SetEngineUp(up bool) {
	if regOK.Load() {
		if up {
			engineUp.Set(1)
		} else {
			engineUp.Set(0)
		}
	}
}

func IncStart() {
	if regOK.Load() {
		engineStarts.Inc()
	}
}

func IncStop() {
	if regOK.Load() {
		engineStops.Inc()
	}
}

func IncBootstrap() {
	if regOK.Load() {
		engineBootstraps.Inc()
	}
}

func IncRecovery(decision string) {
	if regOK.Load() {
		engineRecoveries.WithLabelValues(decision).Inc()
	}
}

func ObserveStartDuration(seconds float64) {
	if regOK.Load() {
		engineStartDuration.Observe(seconds)
	}
}
