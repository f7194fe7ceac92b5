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

package registry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricNamespace = "translator"
	MetricSubsystem = "registry"
)

const (
	ResultCommitted = "committed"
	ResultFailed    = "failed"
	ResultInvalid   = "invalid"
	ResultReverted  = "reverted"
	ResultStuck     = "revert_failed"
)

// Metrics are optional, nil Metrics record nothing
type Metrics struct {
	Batches       *prometheus.CounterVec
	BatchDuration prometheus.Histogram
	Writes        *prometheus.CounterVec
	Reverts       *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	autoreg := promauto.With(reg)

	return &Metrics{
		Batches: autoreg.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "batches_total",
			Help:      "Number of processed update batches by result",
		}, []string{"result"}),
		BatchDuration: autoreg.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "batch_duration_seconds",
			Help:      "Time spent applying a single update batch",
			Buckets:   prometheus.DefBuckets,
		}),
		Writes: autoreg.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "writes_total",
			Help:      "Number of writer invocations by node type, operation and result",
		}, []string{"type", "op", "result"}),
		Reverts: autoreg.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricNamespace,
			Subsystem: MetricSubsystem,
			Name:      "reverts_total",
			Help:      "Number of batch reverts by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) batch(result string, start time.Time) {
	if m == nil {
		return
	}

	m.Batches.WithLabelValues(result).Inc()
	m.BatchDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) write(typ, op string, err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}

	m.Writes.WithLabelValues(typ, op, result).Inc()
}

func (m *Metrics) revert(result string) {
	if m == nil {
		return
	}

	m.Reverts.WithLabelValues(result).Inc()
}
