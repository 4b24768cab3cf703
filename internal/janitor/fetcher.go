// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleanarr/internal/arr"
)

// Scope selects which slice of the queue a job sees.
type Scope string

const (
	ScopeNormal Scope = "normal"
	ScopeFull   Scope = "full"
	// ScopeOrphans is the set difference full minus normal: entries the
	// curator cannot map to a library item.
	ScopeOrphans Scope = "orphans"
)

// transient statuses that must be ignored silently.
var ignoredStatuses = map[string]struct{}{
	"delay":                     {},
	"downloadClientUnavailable": {},
}

// Fetcher reads and normalizes a curator's queue.
type Fetcher struct {
	gateway        CuratorGateway
	ignoredClients map[string]struct{}
}

func NewFetcher(gateway CuratorGateway, ignoredClients []string) *Fetcher {
	ignored := make(map[string]struct{}, len(ignoredClients))
	for _, name := range ignoredClients {
		ignored[name] = struct{}{}
	}
	return &Fetcher{gateway: gateway, ignoredClients: ignored}
}

// Get fetches the queue for a scope. The curator is asked to resync with its
// download clients before every read.
func (f *Fetcher) Get(ctx context.Context, scope Scope) ([]arr.QueueItem, error) {
	switch scope {
	case ScopeNormal:
		return f.fetch(ctx, false)
	case ScopeFull:
		return f.fetch(ctx, true)
	case ScopeOrphans:
		full, err := f.fetch(ctx, true)
		if err != nil {
			return nil, err
		}
		normal, err := f.fetch(ctx, false)
		if err != nil {
			return nil, err
		}
		known := make(map[int64]struct{}, len(normal))
		for _, item := range normal {
			known[item.ID] = struct{}{}
		}
		orphans := make([]arr.QueueItem, 0)
		for _, item := range full {
			if _, ok := known[item.ID]; !ok {
				orphans = append(orphans, item)
			}
		}
		return orphans, nil
	}
	return nil, nil
}

func (f *Fetcher) fetch(ctx context.Context, full bool) ([]arr.QueueItem, error) {
	if err := f.gateway.RefreshMonitoredDownloads(ctx); err != nil {
		return nil, err
	}
	items, err := f.gateway.Queue(ctx, full)
	if err != nil {
		return nil, err
	}

	type combo struct{ title, protocol, indexer string }
	seen := map[combo]struct{}{}

	filtered := items[:0]
	for _, item := range items {
		if _, ignore := ignoredStatuses[item.Status]; ignore {
			key := combo{item.Title, item.Protocol, item.Indexer}
			if _, logged := seen[key]; !logged {
				seen[key] = struct{}{}
				log.Debug().
					Str("title", item.Title).
					Str("status", item.Status).
					Str("protocol", item.Protocol).
					Str("indexer", item.Indexer).
					Msg("Ignoring transient queue item")
			}
			continue
		}
		if _, ignore := f.ignoredClients[item.DownloadClient]; ignore {
			log.Debug().
				Str("title", item.Title).
				Str("client", item.DownloadClient).
				Msg("Ignoring queue item of ignored download client")
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered, nil
}
