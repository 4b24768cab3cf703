// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// Manager owns the Prometheus registry and the engine counters. It satisfies
// the engine's stats sink, so wiring it up is optional.
type Manager struct {
	registry *prometheus.Registry

	cycles         prometheus.Counter
	removals       *prometheus.CounterVec
	obsoleteTagged *prometheus.CounterVec
	searches       *prometheus.CounterVec
	searchedItems  *prometheus.CounterVec
}

func NewManager() *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Manager{
		registry: registry,
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cleanarr_cycles_total",
			Help: "Number of completed cleanup cycles",
		}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cleanarr_removals_total",
			Help: "Number of removed downloads by instance and job",
		}, []string{"instance", "job"}),
		obsoleteTagged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cleanarr_obsolete_tagged_total",
			Help: "Number of downloads tagged as obsolete by instance and job",
		}, []string{"instance", "job"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cleanarr_searches_total",
			Help: "Number of triggered search batches by instance and target",
		}, []string{"instance", "target"}),
		searchedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cleanarr_searched_items_total",
			Help: "Number of items searched for by instance and target",
		}, []string{"instance", "target"}),
	}
	registry.MustRegister(m.cycles, m.removals, m.obsoleteTagged, m.searches, m.searchedItems)

	log.Debug().Msg("Metrics manager initialized")
	return m
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) CycleCompleted() {
	m.cycles.Inc()
}

func (m *Manager) RemovalPerformed(instance, job string) {
	m.removals.WithLabelValues(instance, job).Inc()
}

func (m *Manager) ObsoleteTagged(instance, job string) {
	m.obsoleteTagged.WithLabelValues(instance, job).Inc()
}

func (m *Manager) SearchTriggered(instance, target string, items int) {
	m.searches.WithLabelValues(instance, target).Inc()
	m.searchedItems.WithLabelValues(instance, target).Add(float64(items))
}
