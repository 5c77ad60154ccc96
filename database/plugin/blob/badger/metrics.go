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

package badger

import (
	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const badgerMetricNamePrefix = "database_blob_"

type blobMetrics struct {
	reads     prometheus.Counter
	writes    prometheus.Counter
	conflicts prometheus.Counter
}

// init creates the store metrics. Counters are always usable; they are only
// exported when a registry is provided
func (m *blobMetrics) init(promRegistry prometheus.Registerer, db *badger.DB) {
	m.reads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: badgerMetricNamePrefix + "reads_total",
		Help: "Total number of blob reads",
	})
	m.writes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: badgerMetricNamePrefix + "writes_total",
		Help: "Total number of blob writes and deletes",
	})
	m.conflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: badgerMetricNamePrefix + "commit_failures_total",
		Help: "Total number of blob transactions that failed to commit",
	})
	if promRegistry == nil {
		return
	}
	promRegistry.MustRegister(m.reads, m.writes, m.conflicts)
	promautoFactory := promauto.With(promRegistry)
	promautoFactory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: badgerMetricNamePrefix + "lsm_size_bytes",
			Help: "Size of the badger LSM tree",
		},
		func() float64 {
			lsm, _ := db.Size()
			return float64(lsm)
		},
	)
	promautoFactory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: badgerMetricNamePrefix + "vlog_size_bytes",
			Help: "Size of the badger value log",
		},
		func() float64 {
			_, vlog := db.Size()
			return float64(vlog)
		},
	)
}
