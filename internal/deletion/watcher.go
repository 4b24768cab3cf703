// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package deletion watches library root folders for deleted files and asks
// the owning curator to rescan the affected media item, so the library
// reflects manual cleanups without waiting for a scheduled rescan.
package deletion

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleanarr/internal/arr"
)

// Gateway is the slice of the curator API the watcher needs.
type Gateway interface {
	Name() string
	BaseURL() string
	Kind() arr.Kind
	RootFolders(ctx context.Context) ([]arr.RootFolder, error)
	ItemByPath(ctx context.Context, folder string) (*arr.MediaItem, error)
	RefreshItem(ctx context.Context, id int64) error
}

const defaultSettleGrace = 5 * time.Second

type rootWatch struct {
	path    string
	gateway Gateway
}

// Watcher monitors the accessible root folders of radarr and sonarr
// instances. Deletions are batched for a short settle period so one removed
// season folder causes one refresh, not fifty.
type Watcher struct {
	grace   time.Duration
	roots   []rootWatch
	fswatch *fsnotify.Watcher
}

// NewWatcher discovers watchable root folders on the given gateways. Only
// movie and series libraries are supported, the other curators organize
// media too deep for folder-level matching to be reliable.
func NewWatcher(ctx context.Context, gateways []Gateway, grace time.Duration) (*Watcher, error) {
	if grace <= 0 {
		grace = defaultSettleGrace
	}

	fswatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create filesystem watcher")
	}

	w := &Watcher{grace: grace, fswatch: fswatch}
	for _, gw := range gateways {
		if gw.Kind() != arr.KindRadarr && gw.Kind() != arr.KindSonarr {
			continue
		}
		folders, err := gw.RootFolders(ctx)
		if err != nil {
			fswatch.Close()
			return nil, errors.Wrapf(err, "list root folders of %s", gw.Name())
		}
		for _, folder := range folders {
			if !folder.Accessible || folder.Path == "" {
				continue
			}
			if _, err := os.Stat(folder.Path); err != nil {
				log.Warn().
					Str("instance", gw.Name()).
					Str("path", folder.Path).
					Msg("Root folder not reachable locally, not monitoring it. Make sure the mount points match the instance")
				continue
			}
			if err := w.addRecursive(folder.Path); err != nil {
				fswatch.Close()
				return nil, err
			}
			w.roots = append(w.roots, rootWatch{path: filepath.Clean(folder.Path), gateway: gw})
			log.Info().
				Str("instance", gw.Name()).
				Str("url", gw.BaseURL()).
				Str("path", folder.Path).
				Msg("Monitoring folder for deletions")
		}
	}
	return w, nil
}

// Run processes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fswatch.Close()

	pending := map[string]struct{}{}
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fswatch.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Has(fsnotify.Create):
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						log.Warn().Err(err).Str("path", event.Name).Msg("Could not watch new directory")
					}
				}
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				pending[event.Name] = struct{}{}
				if flush == nil {
					flush = time.After(w.grace)
				}
			}

		case err, ok := <-w.fswatch.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Filesystem watcher error")

		case <-flush:
			w.handleDeletions(ctx, pending)
			pending = map[string]struct{}{}
			flush = nil
		}
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return errors.Wrapf(w.fswatch.Add(path), "watch %s", path)
	})
}

// handleDeletions groups the batch by parent folder and owning instance,
// then triggers one refresh per affected media item.
func (w *Watcher) handleDeletions(ctx context.Context, deleted map[string]struct{}) {
	type target struct {
		gateway Gateway
		folder  string
	}
	files := map[target][]string{}
	for path := range deleted {
		for _, root := range w.roots {
			if !hasPathPrefix(path, root.path) {
				continue
			}
			t := target{gateway: root.gateway, folder: filepath.Dir(path)}
			files[t] = append(files[t], filepath.Base(path))
		}
	}

	for t, names := range files {
		log.Debug().
			Str("instance", t.gateway.Name()).
			Str("folder", t.folder).
			Strs("files", names).
			Msg("Detected deletions")

		item, err := t.gateway.ItemByPath(ctx, t.folder)
		if err != nil {
			log.Error().Err(err).
				Str("instance", t.gateway.Name()).
				Str("folder", t.folder).
				Msg("Could not resolve deleted files to a media item")
			continue
		}
		if item == nil {
			log.Debug().
				Str("instance", t.gateway.Name()).
				Str("folder", t.folder).
				Msg("Deleted files do not belong to a known media item")
			continue
		}
		if err := t.gateway.RefreshItem(ctx, item.ID); err != nil {
			log.Error().Err(err).
				Str("instance", t.gateway.Name()).
				Str("title", item.Title).
				Msg("Could not trigger media refresh")
			continue
		}
		log.Info().
			Str("instance", t.gateway.Name()).
			Str("url", t.gateway.BaseURL()).
			Str("title", item.Title).
			Msg("Deletion detected, triggered media refresh")
	}
}

func hasPathPrefix(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || filepath.IsLocal(rel)
}
