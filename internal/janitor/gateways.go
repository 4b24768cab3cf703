// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"

	qbt "github.com/autobrr/go-qbittorrent"

	"github.com/autobrr/cleanarr/internal/arr"
)

// CuratorGateway is the slice of the *arr API the engine depends on.
type CuratorGateway interface {
	Name() string
	BaseURL() string
	Kind() arr.Kind
	RefreshMonitoredDownloads(ctx context.Context) error
	Queue(ctx context.Context, full bool) ([]arr.QueueItem, error)
	RemoveQueueItem(ctx context.Context, queueID int64, blocklist bool) error
	IsMonitored(ctx context.Context, detailID int64) (bool, error)
	DownloadClientImplementation(ctx context.Context, name string) (string, error)
	Wanted(ctx context.Context, target arr.WantedTarget) ([]arr.WantedRecord, error)
	Search(ctx context.Context, detailIDs []int64) error
	Series(ctx context.Context) ([]arr.Series, error)
}

// TorrentClient is the slice of a torrent download client the jobs depend on.
type TorrentClient interface {
	Name() string
	RefreshSession(ctx context.Context) error
	ProbeConnected(ctx context.Context) (bool, error)
	Items(ctx context.Context, hashes []string) ([]qbt.Torrent, error)
	Files(ctx context.Context, hash string) (*qbt.TorrentFiles, error)
	SetFilePriority(ctx context.Context, hash string, fileIDs []int, priority int) error
	ApplyTag(ctx context.Context, hashes []string, tag string) error
	DownloadedBytes(ctx context.Context, hash string) (int64, error)
	RefreshBandwidth(ctx context.Context) (limit, speed int64, err error)
	BandwidthUtilization() float64
	ProtectedAndPrivate(ctx context.Context, protectedTag string, needPrivate bool) (protected, private []string, err error)
}

// UsenetClient is the limited capability set of a usenet download client:
// connectivity plus the per-item progress the slow job reads.
type UsenetClient interface {
	Name() string
	ProbeConnected(ctx context.Context) (bool, error)
	DownloadedBytes(ctx context.Context, id string) (int64, bool, error)
	ItemSpeedKBs(ctx context.Context, id string) (float64, bool, error)
}

// ClientSet groups every configured download client by protocol.
type ClientSet struct {
	Torrents []TorrentClient
	Usenet   []UsenetClient
}

// TorrentByName resolves a torrent client by the exact name the curators use.
func (s *ClientSet) TorrentByName(name string) (TorrentClient, bool) {
	for _, c := range s.Torrents {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// UsenetByName resolves a usenet client by exact name.
func (s *ClientSet) UsenetByName(name string) (UsenetClient, bool) {
	for _, c := range s.Usenet {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}
