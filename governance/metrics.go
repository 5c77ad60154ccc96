// Copyright 2025 Blink Labs Software
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

package governance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type authorityMetrics struct {
	instructionsTotal *prometheus.CounterVec
	transitionLatency prometheus.Histogram
	proposalsTotal    prometheus.Counter
	votesTotal        *prometheus.CounterVec
	systemEnabled     prometheus.Gauge
}

func (m *authorityMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.instructionsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsar_governance_instructions_total",
			Help: "governance transitions by instruction and result tag",
		},
		[]string{"instruction", "result"},
	)
	m.transitionLatency = promautoFactory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pulsar_governance_transition_seconds",
			Help:    "latency of governance transitions including commit",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15), // 100us to ~1.6s
		},
	)
	m.proposalsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "pulsar_governance_proposals_total",
		Help: "total proposals created",
	})
	m.votesTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsar_governance_votes_total",
			Help: "total votes cast, by kind",
		},
		[]string{"kind"},
	)
	m.systemEnabled = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "pulsar_governance_system_enabled",
		Help: "whether the circuit breaker allows voting (0 or 1)",
	})
}
