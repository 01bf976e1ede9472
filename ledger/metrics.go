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

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stateMetrics struct {
	identitiesRegistered prometheus.Counter
	certificatesMinted   *prometheus.CounterVec
	certificatesRevoked  prometheus.Counter
	scholarshipsCreated  prometheus.Counter
	scholarshipsRevoked  prometheus.Counter
	claimsTotal          prometheus.Counter
	claimedAmount        prometheus.Counter
	opFailures           *prometheus.CounterVec
	opLatency            *prometheus.HistogramVec
}

func (m *stateMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.identitiesRegistered = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "certledger_identities_registered_total",
		Help: "identities added to the registry",
	})
	m.certificatesMinted = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certledger_certificates_minted_total",
			Help: "certificates minted by variant",
		},
		[]string{"variant"},
	)
	m.certificatesRevoked = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "certledger_certificates_revoked_total",
		Help: "certificates revoked",
	})
	m.scholarshipsCreated = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "certledger_scholarships_created_total",
		Help: "scholarships created",
	})
	m.scholarshipsRevoked = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "certledger_scholarships_revoked_total",
		Help: "scholarships revoked",
	})
	m.claimsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "certledger_claims_total",
		Help: "successful scholarship claims",
	})
	m.claimedAmount = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "certledger_claimed_amount_total",
		Help: "sum of amounts paid out by claims, in base units",
	})
	m.opFailures = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certledger_operation_failures_total",
			Help: "failed ledger operations by operation and error kind",
		},
		[]string{"operation", "kind"},
	)
	m.opLatency = promautoFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "certledger_operation_duration_seconds",
			Help:    "latency of ledger operations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"operation"},
	)
}
