// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package deletion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/cleanarr/internal/arr"
)

type fakeGateway struct {
	name      string
	kind      arr.Kind
	roots     []arr.RootFolder
	items     map[string]*arr.MediaItem
	refreshed []int64
}

func (g *fakeGateway) Name() string    { return g.name }
func (g *fakeGateway) BaseURL() string { return "http://localhost:7878" }
func (g *fakeGateway) Kind() arr.Kind  { return g.kind }

func (g *fakeGateway) RootFolders(_ context.Context) ([]arr.RootFolder, error) {
	return g.roots, nil
}

func (g *fakeGateway) ItemByPath(_ context.Context, folder string) (*arr.MediaItem, error) {
	return g.items[folder], nil
}

func (g *fakeGateway) RefreshItem(_ context.Context, id int64) error {
	g.refreshed = append(g.refreshed, id)
	return nil
}

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		root string
		want bool
	}{
		{"/movies/Movie (2020)/file.mkv", "/movies", true},
		{"/movies", "/movies", true},
		{"/movies2/file.mkv", "/movies", false},
		{"/tv/Show/S01/E01.mkv", "/movies", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, hasPathPrefix(tt.path, tt.root), "%s in %s", tt.path, tt.root)
	}
}

func TestNewWatcherDiscoversAccessibleRoots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Movie A (2020)"), 0o755))

	radarr := &fakeGateway{
		name: "radarr",
		kind: arr.KindRadarr,
		roots: []arr.RootFolder{
			{Path: dir, Accessible: true},
			{Path: filepath.Join(dir, "does-not-exist"), Accessible: true},
			{Path: "", Accessible: true},
			{Path: dir, Accessible: false},
		},
	}
	lidarr := &fakeGateway{
		name:  "lidarr",
		kind:  arr.KindLidarr,
		roots: []arr.RootFolder{{Path: dir, Accessible: true}},
	}

	w, err := NewWatcher(context.Background(), []Gateway{radarr, lidarr}, time.Second)
	require.NoError(t, err)
	defer w.fswatch.Close()

	require.Len(t, w.roots, 1, "only the reachable radarr root is watched")
	assert.Equal(t, filepath.Clean(dir), w.roots[0].path)
	assert.Same(t, radarr, w.roots[0].gateway.(*fakeGateway))
}

func TestHandleDeletionsRefreshesOwningItem(t *testing.T) {
	t.Parallel()

	movieDir := "/movies/Movie A (2020)"
	gw := &fakeGateway{
		name: "radarr",
		kind: arr.KindRadarr,
		items: map[string]*arr.MediaItem{
			movieDir: {ID: 42, Title: "Movie A", Path: movieDir},
		},
	}
	w := &Watcher{
		grace: time.Second,
		roots: []rootWatch{{path: "/movies", gateway: gw}},
	}

	w.handleDeletions(context.Background(), map[string]struct{}{
		filepath.Join(movieDir, "Movie.A.2020.mkv"): {},
		filepath.Join(movieDir, "Movie.A.2020.srt"): {},
	})

	assert.Equal(t, []int64{42}, gw.refreshed, "one refresh per media folder")
}

func TestHandleDeletionsIgnoresUnknownFolders(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{name: "radarr", kind: arr.KindRadarr, items: map[string]*arr.MediaItem{}}
	w := &Watcher{
		grace: time.Second,
		roots: []rootWatch{{path: "/movies", gateway: gw}},
	}

	w.handleDeletions(context.Background(), map[string]struct{}{
		"/movies/Stray File.mkv": {},
		"/downloads/other.mkv":   {},
	})

	assert.Empty(t, gw.refreshed)
}
