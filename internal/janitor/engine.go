// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleanarr/internal/arr"
	"github.com/autobrr/cleanarr/internal/domain"
)

// Curator pairs one *arr instance with its cross-cycle state.
type Curator struct {
	Gateway  CuratorGateway
	Tracker  *Tracker
	Fetcher  *Fetcher
	Searcher *Searcher
}

// NewCurator wires the per-instance plumbing around a gateway.
func NewCurator(gateway CuratorGateway, ignoredClients []string, stats Stats) *Curator {
	fetcher := NewFetcher(gateway, ignoredClients)
	return &Curator{
		Gateway:  gateway,
		Tracker:  NewTracker(),
		Fetcher:  fetcher,
		Searcher: NewSearcher(gateway, fetcher, stats),
	}
}

// Engine runs the cleanup cycle across all curators on a fixed timer.
type Engine struct {
	general     domain.General
	jobs        domain.Jobs
	curators    []*Curator
	clients     *ClientSet
	dispatcher  *Dispatcher
	stats       Stats
	removalJobs []Job
}

func NewEngine(cfg *domain.Config, curators []*Curator, clients *ClientSet, stats Stats) *Engine {
	if stats == nil {
		stats = NoopStats{}
	}
	return &Engine{
		general:     cfg.General,
		jobs:        cfg.Jobs,
		curators:    curators,
		clients:     clients,
		dispatcher:  NewDispatcher(clients, cfg.General, stats),
		stats:       stats,
		removalJobs: BuildRemovalJobs(cfg.Jobs),
	}
}

// Run loops until the context is cancelled. The first cycle starts
// immediately.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Duration(e.general.TimerMinutes * float64(time.Minute))
	for {
		e.runCycle(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// RunOnce executes a single cycle, used by the one-shot command mode.
func (e *Engine) RunOnce(ctx context.Context) {
	e.runCycle(ctx)
}

func (e *Engine) runCycle(ctx context.Context) {
	log.Debug().Msg("Starting cleanup cycle")

	for _, tc := range e.clients.Torrents {
		if err := tc.RefreshSession(ctx); err != nil {
			log.Warn().Err(err).
				Str("client", tc.Name()).
				Msg("Could not refresh download client session")
		}
	}

	for _, curator := range e.curators {
		if ctx.Err() != nil {
			return
		}
		e.runCurator(ctx, curator)
	}

	e.stats.CycleCompleted()
	log.Debug().Msg("Cleanup cycle finished")
}

func (e *Engine) runCurator(ctx context.Context, curator *Curator) {
	gw := curator.Gateway
	log.Debug().Str("instance", gw.Name()).Msg("Processing instance")

	curator.Tracker.BeginCycle()

	if !e.clientsConnected(ctx) {
		log.Warn().
			Str("instance", gw.Name()).
			Msg("A download client is disconnected, skipping this cycle")
		return
	}

	if len(e.removalJobs) > 0 {
		e.runRemovals(ctx, curator)
	}

	if gw.Kind().SupportsSearch() {
		e.runSearches(ctx, curator)
	}
}

func (e *Engine) runRemovals(ctx context.Context, curator *Curator) {
	gw := curator.Gateway

	full, err := curator.Fetcher.Get(ctx, ScopeFull)
	if err != nil {
		log.Error().Err(err).Str("instance", gw.Name()).Msg("Could not read queue")
		return
	}
	if len(full) == 0 {
		log.Debug().Str("instance", gw.Name()).Msg("Queue is empty, resetting tracker")
		curator.Tracker.Reset()
		return
	}

	needPrivate := e.general.PrivateTrackerHandling != domain.HandlingRemove ||
		e.general.PublicTrackerHandling != domain.HandlingRemove
	if err := curator.Tracker.RefreshPrivateProtected(ctx, e.clients.Torrents, e.general.ProtectedTag, needPrivate); err != nil {
		log.Error().Err(err).Str("instance", gw.Name()).Msg("Could not read torrent tags")
		return
	}

	run := &Run{
		Curator: gw,
		Tracker: curator.Tracker,
		Clients: e.clients,
		Fetcher: curator.Fetcher,
		General: e.general,
	}
	for _, job := range e.removalJobs {
		if ctx.Err() != nil {
			return
		}
		if err := e.runJob(ctx, run, job); err != nil {
			log.Error().Err(err).
				Str("instance", gw.Name()).
				Str("job", job.Name()).
				Msg("Job failed")
		}
	}
}

func (e *Engine) runJob(ctx context.Context, run *Run, job Job) error {
	queue, err := run.Fetcher.Get(ctx, job.Scope())
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		return nil
	}

	offenders, err := job.Predicate(ctx, run, queue)
	if err != nil {
		return err
	}

	groups := groupByDownloadID(offenders)
	for id, group := range groups {
		if run.Tracker.IsProtected(id) {
			log.Debug().
				Str("job", job.Name()).
				Str("title", group.Title).
				Msg("Download is protected, leaving it alone")
			delete(groups, id)
		}
	}

	if job.MaxStrikes() > 0 {
		groups = NewStrikeFilter(job.Name(), job.MaxStrikes(), run.Tracker).Apply(groups, queue)
	}
	if len(groups) == 0 {
		return nil
	}

	e.dispatcher.Dispatch(ctx, run, job, groups)
	return nil
}

func (e *Engine) runSearches(ctx context.Context, curator *Curator) {
	type search struct {
		target arr.WantedTarget
		cfg    domain.JobConfig
	}
	for _, s := range []search{
		{arr.WantedMissing, e.jobs.SearchMissing},
		{arr.WantedCutoff, e.jobs.SearchUnmetCutoff},
	} {
		if !s.cfg.Enabled {
			continue
		}
		if err := curator.Searcher.Run(ctx, s.target, s.cfg); err != nil {
			log.Error().Err(err).
				Str("instance", curator.Gateway.Name()).
				Str("target", string(s.target)).
				Msg("Search failed")
		}
	}
}

func (e *Engine) clientsConnected(ctx context.Context) bool {
	ok := true
	for _, tc := range e.clients.Torrents {
		connected, err := tc.ProbeConnected(ctx)
		if err != nil || !connected {
			log.Warn().Err(err).Str("client", tc.Name()).Msg("Download client not connected")
			ok = false
		}
	}
	for _, uc := range e.clients.Usenet {
		connected, err := uc.ProbeConnected(ctx)
		if err != nil || !connected {
			log.Warn().Err(err).Str("client", uc.Name()).Msg("Download client not connected")
			ok = false
		}
	}
	return ok
}
