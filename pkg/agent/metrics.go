// Copyright 2023 Hedgehog
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricNamespace = "translator"
	MetricSubsystem = "agent"
)

const (
	ApplyResultApplied   = "applied"
	ApplyResultUnchanged = "unchanged"
	ApplyResultReverted  = "reverted"
	ApplyResultFailed    = "failed"
)

type Metrics struct {
	Version       *prometheus.GaugeVec
	Applies       *prometheus.CounterVec
	ApplyDuration prometheus.Histogram
	LastApplied   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	autoreg := promauto.With(reg)

	return &Metrics{
		Version: autoreg.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "version",
			Help:      "Version of the translator",
		}, []string{"version"}),
		Applies: autoreg.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "applies_total",
			Help:      "Number of config apply attempts by result",
		}, []string{"result"}),
		ApplyDuration: autoreg.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "apply_duration_seconds",
			Help:      "Duration of the config apply",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		LastApplied: autoreg.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "last_applied_timestamp_seconds",
			Help:      "Time of the last successful config apply",
		}),
	}
}

func (m *Metrics) apply(result string, start time.Time) {
	m.Applies.WithLabelValues(result).Inc()
	m.ApplyDuration.Observe(time.Since(start).Seconds())

	if result == ApplyResultApplied {
		m.LastApplied.SetToCurrentTime()
	}
}

// MetricsHandler returns the router exposing the service metrics
func (svc *Service) MetricsHandler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/ping"))

	router.Handle("/metrics", promhttp.HandlerFor(svc.prom, promhttp.HandlerOpts{
		Registry: svc.prom,
	}))

	return router
}

// ServeMetrics listens on the metrics address until context is done
func (svc *Service) ServeMetrics(ctx context.Context) error {
	server := &http.Server{
		Handler:           svc.MetricsHandler(),
		Addr:              svc.cfg.MetricsAddress,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Failed to shutdown metrics server", "err", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "failed to start metrics server")
	}

	return nil
}
