/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package metrics exposes parse outcomes as Prometheus collectors.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"unrtext/internal/unrtext"
)

// Metrics implements unrtext.Observer.
type Metrics struct {
	actorsParsed   *prometheus.CounterVec
	actorsRejected *prometheus.CounterVec
	issues         *prometheus.CounterVec
	blockBytes     prometheus.Histogram
}

var _ unrtext.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actorsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unrtext_actors_parsed_total",
				Help: "Actors turned into records, by common type",
			},
			[]string{"type_common"},
		),
		actorsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unrtext_actors_rejected_total",
				Help: "Actor blocks that produced no record, by reason",
			},
			[]string{"reason"},
		),
		issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unrtext_issues_total",
				Help: "Recoverable parse problems attached to records",
			},
			[]string{"kind"},
		),
		blockBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "unrtext_actor_block_bytes",
			Help:    "Size of parsed actor blocks in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 7),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.actorsParsed, m.actorsRejected, m.issues, m.blockBytes)
	}
	return m
}

func (m *Metrics) ActorParsed(rec *unrtext.Record, blockLen int) {
	m.actorsParsed.WithLabelValues(rec.TypeCommon).Inc()
	m.blockBytes.Observe(float64(blockLen))
}

func (m *Metrics) ActorRejected(err error) {
	reason := "other"
	if errors.Is(err, unrtext.ErrNoIdentity) {
		reason = "no_identity"
	}
	m.actorsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IssueRecorded(kind unrtext.IssueKind) {
	m.issues.WithLabelValues(string(kind)).Inc()
}
