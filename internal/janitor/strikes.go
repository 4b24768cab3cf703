// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleanarr/internal/arr"
)

// StrikeFilter gates removal behind repeated detection: a download must be
// offending in more than maxStrikes consecutive cycles before it passes
// through.
type StrikeFilter struct {
	job        string
	maxStrikes int
	tracker    *Tracker
}

func NewStrikeFilter(job string, maxStrikes int, tracker *Tracker) *StrikeFilter {
	return &StrikeFilter{job: job, maxStrikes: maxStrikes, tracker: tracker}
}

// Apply recovers downloads that stopped offending, adds a strike to each
// offender, and returns only the groups whose strike count now exceeds the
// maximum. Records of retained groups are dropped; the pending removal ends
// their tracking.
func (f *StrikeFilter) Apply(offending map[string]*Group, queue []arr.QueueItem) map[string]*Group {
	inQueue := make(map[string]struct{}, len(queue))
	for _, item := range queue {
		inQueue[item.DownloadID] = struct{}{}
	}

	var paused, removedFromQueue, recovered []string
	for _, id := range f.tracker.StrikeIDs(f.job) {
		if _, offends := offending[id]; offends {
			continue
		}
		rec, ok := f.tracker.StrikeRecordFor(f.job, id)
		if !ok {
			continue
		}
		switch {
		case rec.TrackingPaused:
			paused = append(paused, id)
		case !contains(inQueue, id):
			f.tracker.DeleteStrike(f.job, id)
			removedFromQueue = append(removedFromQueue, id)
		default:
			f.tracker.DeleteStrike(f.job, id)
			recovered = append(recovered, id)
			log.Info().
				Str("job", f.job).
				Str("title", rec.Title).
				Msg("Download no longer offending")
		}
	}

	var added, incremented []string
	retained := map[string]*Group{}
	for id, group := range offending {
		strikes := f.tracker.IncrementStrike(f.job, id, group.Title)
		if strikes == 1 {
			added = append(added, id)
		} else {
			incremented = append(incremented, id)
		}

		if strikes > f.maxStrikes {
			log.Debug().
				Str("job", f.job).
				Str("title", group.Title).
				Int("strikes", strikes).
				Int("maxStrikes", f.maxStrikes).
				Msg("Strike limit exceeded")
			retained[id] = group
			f.tracker.DeleteStrike(f.job, id)
			continue
		}

		log.Info().
			Str("job", f.job).
			Str("title", group.Title).
			Int("strikes", strikes).
			Int("maxStrikes", f.maxStrikes).
			Msg("Download detected")
	}

	log.Debug().
		Str("job", f.job).
		Strs("added", added).
		Strs("incremented", incremented).
		Strs("paused", paused).
		Strs("removedFromQueue", removedFromQueue).
		Strs("recovered", recovered).
		Msg("Strike status")

	return retained
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
