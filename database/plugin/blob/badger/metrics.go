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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type blobMetrics struct {
	commits      prometheus.Counter
	commitErrors prometheus.Counter
	gcRuns       prometheus.Counter
}

// init creates the collectors, registering them only when a registry is given
func (m *blobMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.commits = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "certledger_blob_commits_total",
		Help: "total blob store transaction commits",
	})
	m.commitErrors = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "certledger_blob_commit_errors_total",
		Help: "total failed blob store transaction commits",
	})
	m.gcRuns = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "certledger_blob_gc_runs_total",
		Help: "total successful value log GC passes",
	})
}
