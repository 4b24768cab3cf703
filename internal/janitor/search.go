// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleanarr/internal/arr"
	"github.com/autobrr/cleanarr/internal/domain"
)

// Searcher paces upgrade searches for wanted library items. Items already in
// the queue and items searched recently are skipped so a small batch rotates
// through the backlog instead of hammering the indexers.
type Searcher struct {
	curator CuratorGateway
	fetcher *Fetcher
	stats   Stats

	// now is swappable for tests.
	now func() time.Time
}

func NewSearcher(curator CuratorGateway, fetcher *Fetcher, stats Stats) *Searcher {
	if stats == nil {
		stats = NoopStats{}
	}
	return &Searcher{
		curator: curator,
		fetcher: fetcher,
		stats:   stats,
		now:     time.Now,
	}
}

// Run triggers one paced search batch for the given wanted target.
func (s *Searcher) Run(ctx context.Context, target arr.WantedTarget, cfg domain.JobConfig) error {
	if !s.curator.Kind().SupportsSearch() {
		return nil
	}

	wanted, err := s.curator.Wanted(ctx, target)
	if err != nil {
		return err
	}
	if len(wanted) == 0 {
		log.Debug().
			Str("instance", s.curator.Name()).
			Str("target", string(target)).
			Msg("Nothing wanted, not triggering a search")
		return nil
	}

	queue, err := s.fetcher.Get(ctx, ScopeNormal)
	if err != nil {
		return err
	}
	wanted = filterAlreadyQueued(wanted, queue, s.curator.Kind())
	if len(wanted) == 0 {
		log.Debug().
			Str("instance", s.curator.Name()).
			Str("target", string(target)).
			Msg("All wanted items already downloading")
		return nil
	}

	wanted = s.filterRecentSearches(wanted, cfg.MinDaysBetweenSearches)
	if len(wanted) == 0 {
		log.Debug().
			Str("instance", s.curator.Name()).
			Str("target", string(target)).
			Msg("All wanted items searched recently")
		return nil
	}

	if len(wanted) > cfg.MaxConcurrentSearches {
		wanted = wanted[:cfg.MaxConcurrentSearches]
	}

	if err := s.logBatch(ctx, wanted, target); err != nil {
		return err
	}

	ids := make([]int64, 0, len(wanted))
	for _, rec := range wanted {
		ids = append(ids, rec.ID)
	}
	if err := s.curator.Search(ctx, ids); err != nil {
		return err
	}
	s.stats.SearchTriggered(s.curator.Name(), string(target), len(ids))
	return nil
}

func filterAlreadyQueued(wanted []arr.WantedRecord, queue []arr.QueueItem, kind arr.Kind) []arr.WantedRecord {
	queued := map[int64]struct{}{}
	for _, item := range queue {
		if id := item.DetailItemID(kind); id != 0 {
			queued[id] = struct{}{}
		}
	}
	out := wanted[:0]
	for _, rec := range wanted {
		if _, ok := queued[rec.ID]; !ok {
			out = append(out, rec)
		}
	}
	return out
}

// filterRecentSearches keeps items whose last search is older than the
// configured gap. An absent or unparsable timestamp counts as never searched.
func (s *Searcher) filterRecentSearches(wanted []arr.WantedRecord, minDays int) []arr.WantedRecord {
	now := s.now().UTC()
	out := wanted[:0]
	for _, rec := range wanted {
		if rec.LastSearchTime == "" {
			out = append(out, rec)
			continue
		}
		last, err := time.Parse(time.RFC3339, rec.LastSearchTime)
		if err != nil {
			out = append(out, rec)
			continue
		}
		if last.AddDate(0, 0, minDays).Before(now) {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Searcher) logBatch(ctx context.Context, wanted []arr.WantedRecord, target arr.WantedTarget) error {
	log.Info().
		Str("instance", s.curator.Name()).
		Str("target", string(target)).
		Int("items", len(wanted)).
		Msg("Triggering search")

	titles := map[int64]string{}
	if s.curator.Kind() == arr.KindSonarr {
		series, err := s.curator.Series(ctx)
		if err != nil {
			return err
		}
		for _, sr := range series {
			titles[sr.ID] = sr.Title
		}
	}

	for _, rec := range wanted {
		label := rec.Title
		if s.curator.Kind() == arr.KindSonarr {
			seriesTitle, ok := titles[rec.SeriesID]
			if !ok {
				seriesTitle = "Unknown"
			}
			label = fmt.Sprintf("%s (S%02d/E%02d)", seriesTitle, rec.SeasonNumber, rec.EpisodeNumber)
		}
		log.Info().Str("item", label).Msg("Searching")
	}
	return nil
}
