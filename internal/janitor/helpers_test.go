// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"

	qbt "github.com/autobrr/go-qbittorrent"

	"github.com/autobrr/cleanarr/internal/arr"
)

type removal struct {
	queueID   int64
	blocklist bool
}

type fakeGateway struct {
	name        string
	kind        arr.Kind
	queueNormal []arr.QueueItem
	queueFull   []arr.QueueItem
	monitored   map[int64]bool
	wanted      map[arr.WantedTarget][]arr.WantedRecord
	series      []arr.Series
	impls       map[string]string

	removeErr error
	removals  []removal
	searches  [][]int64
	refreshes int
}

func newFakeGateway(kind arr.Kind) *fakeGateway {
	return &fakeGateway{
		name:      "test-" + string(kind),
		kind:      kind,
		monitored: map[int64]bool{},
		wanted:    map[arr.WantedTarget][]arr.WantedRecord{},
		impls:     map[string]string{},
	}
}

func (g *fakeGateway) Name() string    { return g.name }
func (g *fakeGateway) BaseURL() string { return "http://" + g.name }
func (g *fakeGateway) Kind() arr.Kind  { return g.kind }

func (g *fakeGateway) RefreshMonitoredDownloads(context.Context) error {
	g.refreshes++
	return nil
}

func (g *fakeGateway) Queue(_ context.Context, full bool) ([]arr.QueueItem, error) {
	if full {
		return append([]arr.QueueItem(nil), g.queueFull...), nil
	}
	return append([]arr.QueueItem(nil), g.queueNormal...), nil
}

func (g *fakeGateway) RemoveQueueItem(_ context.Context, queueID int64, blocklist bool) error {
	if g.removeErr != nil {
		return g.removeErr
	}
	g.removals = append(g.removals, removal{queueID: queueID, blocklist: blocklist})
	return nil
}

func (g *fakeGateway) IsMonitored(_ context.Context, detailID int64) (bool, error) {
	return g.monitored[detailID], nil
}

func (g *fakeGateway) DownloadClientImplementation(_ context.Context, name string) (string, error) {
	return g.impls[name], nil
}

func (g *fakeGateway) Wanted(_ context.Context, target arr.WantedTarget) ([]arr.WantedRecord, error) {
	return g.wanted[target], nil
}

func (g *fakeGateway) Search(_ context.Context, detailIDs []int64) error {
	g.searches = append(g.searches, detailIDs)
	return nil
}

func (g *fakeGateway) Series(context.Context) ([]arr.Series, error) {
	return g.series, nil
}

type filePrioCall struct {
	hash     string
	fileIDs  []int
	priority int
}

type fakeTorrentClient struct {
	name      string
	connected bool
	torrents  []qbt.Torrent
	files     map[string]*qbt.TorrentFiles
	bytes     map[string]int64
	util      float64
	protected []string
	private   []string

	tagged    map[string][]string
	filePrios []filePrioCall
	sessions  int
}

func newFakeTorrentClient(name string) *fakeTorrentClient {
	return &fakeTorrentClient{
		name:      name,
		connected: true,
		files:     map[string]*qbt.TorrentFiles{},
		bytes:     map[string]int64{},
		tagged:    map[string][]string{},
	}
}

func (c *fakeTorrentClient) Name() string { return c.name }

func (c *fakeTorrentClient) RefreshSession(context.Context) error {
	c.sessions++
	return nil
}

func (c *fakeTorrentClient) ProbeConnected(context.Context) (bool, error) {
	return c.connected, nil
}

func (c *fakeTorrentClient) Items(_ context.Context, hashes []string) ([]qbt.Torrent, error) {
	if hashes == nil {
		return c.torrents, nil
	}
	want := map[string]struct{}{}
	for _, h := range hashes {
		want[h] = struct{}{}
	}
	var out []qbt.Torrent
	for _, t := range c.torrents {
		if _, ok := want[t.Hash]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *fakeTorrentClient) Files(_ context.Context, hash string) (*qbt.TorrentFiles, error) {
	return c.files[hash], nil
}

func (c *fakeTorrentClient) SetFilePriority(_ context.Context, hash string, fileIDs []int, priority int) error {
	c.filePrios = append(c.filePrios, filePrioCall{hash: hash, fileIDs: fileIDs, priority: priority})
	return nil
}

func (c *fakeTorrentClient) ApplyTag(_ context.Context, hashes []string, tag string) error {
	c.tagged[tag] = append(c.tagged[tag], hashes...)
	return nil
}

func (c *fakeTorrentClient) DownloadedBytes(_ context.Context, hash string) (int64, error) {
	return c.bytes[hash], nil
}

func (c *fakeTorrentClient) RefreshBandwidth(context.Context) (int64, int64, error) {
	return 0, 0, nil
}

func (c *fakeTorrentClient) BandwidthUtilization() float64 { return c.util }

func (c *fakeTorrentClient) ProtectedAndPrivate(context.Context, string, bool) ([]string, []string, error) {
	return c.protected, c.private, nil
}

type fakeUsenetClient struct {
	name      string
	connected bool
	bytes     map[string]int64
	speeds    map[string]float64
	bytesErr  error
}

func newFakeUsenetClient(name string) *fakeUsenetClient {
	return &fakeUsenetClient{
		name:      name,
		connected: true,
		bytes:     map[string]int64{},
		speeds:    map[string]float64{},
	}
}

func (c *fakeUsenetClient) Name() string { return c.name }

func (c *fakeUsenetClient) ProbeConnected(context.Context) (bool, error) {
	return c.connected, nil
}

func (c *fakeUsenetClient) DownloadedBytes(_ context.Context, id string) (int64, bool, error) {
	if c.bytesErr != nil {
		return 0, false, c.bytesErr
	}
	b, ok := c.bytes[id]
	return b, ok, nil
}

func (c *fakeUsenetClient) ItemSpeedKBs(_ context.Context, id string) (float64, bool, error) {
	s, ok := c.speeds[id]
	return s, ok, nil
}

func queueItem(id int64, title, downloadID string) arr.QueueItem {
	return arr.QueueItem{
		ID:             id,
		Title:          title,
		DownloadID:     downloadID,
		Status:         "downloading",
		Protocol:       "torrent",
		DownloadClient: "qBittorrent",
	}
}
