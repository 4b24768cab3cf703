// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleanarr/internal/domain"
)

// Stats receives engine events; the metrics package implements it.
type Stats interface {
	CycleCompleted()
	RemovalPerformed(curator, job string)
	ObsoleteTagged(curator, job string)
	SearchTriggered(curator, target string, items int)
}

// NoopStats discards all events.
type NoopStats struct{}

func (NoopStats) CycleCompleted()                     {}
func (NoopStats) RemovalPerformed(string, string)     {}
func (NoopStats) ObsoleteTagged(string, string)       {}
func (NoopStats) SearchTriggered(string, string, int) {}

// Dispatcher executes the configured handling for condemned downloads.
type Dispatcher struct {
	clients *ClientSet
	general domain.General
	stats   Stats
}

func NewDispatcher(clients *ClientSet, general domain.General, stats Stats) *Dispatcher {
	if stats == nil {
		stats = NoopStats{}
	}
	return &Dispatcher{clients: clients, general: general, stats: stats}
}

// Dispatch acts on each group once per cycle and returns how many downloads
// were handled. A failed removal is not fenced, so it is retried next cycle.
func (d *Dispatcher) Dispatch(ctx context.Context, run *Run, job Job, groups map[string]*Group) int {
	handled := 0
	for id, group := range groups {
		if run.Tracker.WasDeleted(id) {
			continue
		}

		handling := d.handlingFor(run, group)
		switch handling {
		case domain.HandlingRemove:
			if err := run.Curator.RemoveQueueItem(ctx, group.QueueIDs[0], job.Blocklist()); err != nil {
				log.Error().Err(err).
					Str("job", job.Name()).
					Str("title", group.Title).
					Msg("Removal failed, will retry next cycle")
				continue
			}
			log.Info().
				Str("job", job.Name()).
				Str("instance", run.Curator.Name()).
				Str("title", group.Title).
				Bool("blocklist", job.Blocklist()).
				Msg("Removal triggered")
			d.stats.RemovalPerformed(run.Curator.Name(), job.Name())

			if job.Blocklist() && run.Tracker.RecordBlocklisted(group.DownloadID) > 1 {
				log.Warn().
					Str("instance", run.Curator.Name()).
					Str("title", group.Title).
					Msg("Download was grabbed again after being blocklisted. Tip: enable 'Reject Blocklisted Torrent Hashes While Grabbing' on the indexer")
			}

		case domain.HandlingTagAsObsolete:
			for _, tc := range d.clients.Torrents {
				if err := tc.ApplyTag(ctx, []string{id}, d.general.ObsoleteTag); err != nil {
					log.Error().Err(err).
						Str("job", job.Name()).
						Str("client", tc.Name()).
						Str("title", group.Title).
						Msg("Obsolete-tagging failed")
				}
			}
			log.Info().
				Str("job", job.Name()).
				Str("instance", run.Curator.Name()).
				Str("title", group.Title).
				Msg("Obsolete-tagging triggered")
			d.stats.ObsoleteTagged(run.Curator.Name(), job.Name())

		case domain.HandlingSkip:
			log.Debug().
				Str("job", job.Name()).
				Str("title", group.Title).
				Msg("Handling set to skip, leaving download alone")
		}

		for _, msg := range group.RemovalMessages {
			log.Info().Str("job", job.Name()).Msg(msg)
		}

		run.Tracker.MarkDeleted(id)
		handled++
	}
	return handled
}

// handlingFor picks the handling mode. Tagging and skipping only make sense
// for torrents on a client we can reach; everything else is plain removal.
func (d *Dispatcher) handlingFor(run *Run, group *Group) domain.Handling {
	if group.Protocol != "torrent" {
		return domain.HandlingRemove
	}
	if len(d.clients.Torrents) == 0 {
		return domain.HandlingRemove
	}
	if _, ok := d.clients.TorrentByName(group.DownloadClient); !ok {
		return domain.HandlingRemove
	}
	if run.Tracker.IsPrivate(group.DownloadID) {
		return d.general.PrivateTrackerHandling
	}
	return d.general.PublicTrackerHandling
}
