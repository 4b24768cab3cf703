// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package arr

// SystemStatus is the response of GET /system/status.
type SystemStatus struct {
	AppName      string `json:"appName"`
	InstanceName string `json:"instanceName"`
	Version      string `json:"version"`
}

// StatusMessage carries the per-file import messages attached to a queue item.
type StatusMessage struct {
	Title    string   `json:"title"`
	Messages []string `json:"messages"`
}

// QueueItem is one record of the download queue. The detail item reference
// arrives under a kind-specific key (movieId, episodeId, albumId, bookId);
// use DetailItemID to read it uniformly.
type QueueItem struct {
	ID                    int64           `json:"id"`
	Title                 string          `json:"title"`
	Status                string          `json:"status"`
	TrackedDownloadStatus string          `json:"trackedDownloadStatus"`
	TrackedDownloadState  string          `json:"trackedDownloadState"`
	ErrorMessage          string          `json:"errorMessage"`
	StatusMessages        []StatusMessage `json:"statusMessages"`
	DownloadID            string          `json:"downloadId"`
	DownloadClient        string          `json:"downloadClient"`
	Protocol              string          `json:"protocol"`
	Indexer               string          `json:"indexer"`
	Size                  float64         `json:"size"`
	Sizeleft              float64         `json:"sizeleft"`

	MovieID   int64 `json:"movieId"`
	EpisodeID int64 `json:"episodeId"`
	AlbumID   int64 `json:"albumId"`
	BookID    int64 `json:"bookId"`
}

// DetailItemID returns the media item this queue entry belongs to, or 0 when
// the queue entry is unmapped (an orphan).
func (q QueueItem) DetailItemID(kind Kind) int64 {
	switch kind.profile().detailKey {
	case "movie":
		return q.MovieID
	case "episode":
		return q.EpisodeID
	case "album":
		return q.AlbumID
	case "book":
		return q.BookID
	}
	return 0
}

type queuePage struct {
	TotalRecords int         `json:"totalRecords"`
	Records      []QueueItem `json:"records"`
}

// WantedRecord is one record of wanted/missing or wanted/cutoff.
type WantedRecord struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	SeriesID       int64  `json:"seriesId"`
	SeasonNumber   int    `json:"seasonNumber"`
	EpisodeNumber  int    `json:"episodeNumber"`
	LastSearchTime string `json:"lastSearchTime"`
}

type wantedPage struct {
	TotalRecords int            `json:"totalRecords"`
	Records      []WantedRecord `json:"records"`
}

// Series is a minimal series record, used to resolve titles and paths.
type Series struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// DownloadClientInfo describes a download client as configured inside the
// *arr instance.
type DownloadClientInfo struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Implementation string `json:"implementation"`
	Enable         bool   `json:"enable"`
}

// RootFolder is a configured media root.
type RootFolder struct {
	ID         int64  `json:"id"`
	Path       string `json:"path"`
	Accessible bool   `json:"accessible"`
}

// MediaItem is a minimal movie or series record, used to map on-disk paths
// back to library items.
type MediaItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

type uiConfig struct {
	UILanguage int `json:"uiLanguage"`
}

type monitoredItem struct {
	Monitored bool `json:"monitored"`
}
