// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package arr

// Kind identifies which *arr application an instance is.
type Kind string

const (
	KindRadarr   Kind = "radarr"
	KindSonarr   Kind = "sonarr"
	KindLidarr   Kind = "lidarr"
	KindReadarr  Kind = "readarr"
	KindWhisparr Kind = "whisparr"
)

// kindProfile captures the per-application API differences. The v3 apps and the
// v1 apps share the same shapes, only paths, parameter names and command
// names differ.
type kindProfile struct {
	apiBase        string
	minVersion     string
	fullQueueParam string
	detailKey      string
	searchCommand  string
	appName        string
}

var kindProfiles = map[Kind]kindProfile{
	KindRadarr: {
		apiBase:        "/api/v3",
		minVersion:     "5.10.3.9171",
		fullQueueParam: "includeUnknownMovieItems",
		detailKey:      "movie",
		searchCommand:  "MoviesSearch",
		appName:        "Radarr",
	},
	KindSonarr: {
		apiBase:        "/api/v3",
		minVersion:     "4.0.9.2332",
		fullQueueParam: "includeUnknownSeriesItems",
		detailKey:      "episode",
		searchCommand:  "EpisodeSearch",
		appName:        "Sonarr",
	},
	KindLidarr: {
		apiBase:        "/api/v1",
		minVersion:     "2.11.1.4621",
		fullQueueParam: "includeUnknownArtistItems",
		detailKey:      "album",
		searchCommand:  "AlbumSearch",
		appName:        "Lidarr",
	},
	KindReadarr: {
		apiBase:        "/api/v1",
		minVersion:     "0.4.15.2787",
		fullQueueParam: "includeUnknownAuthorItems",
		detailKey:      "book",
		searchCommand:  "BookSearch",
		appName:        "Readarr",
	},
	// Whisparr has no working search command.
	KindWhisparr: {
		apiBase:        "/api/v3",
		minVersion:     "2.0.0.548",
		fullQueueParam: "includeUnknownSeriesItems",
		detailKey:      "episode",
		searchCommand:  "",
		appName:        "Whisparr",
	},
}

// AllKinds lists the supported kinds in a stable order.
var AllKinds = []Kind{KindRadarr, KindSonarr, KindLidarr, KindReadarr, KindWhisparr}

func (k Kind) Valid() bool {
	_, ok := kindProfiles[k]
	return ok
}

// AppName returns the display name the application reports in system/status.
func (k Kind) AppName() string {
	return kindProfiles[k].appName
}

// SupportsSearch reports whether the application has a usable search command.
func (k Kind) SupportsSearch() bool {
	return kindProfiles[k].searchCommand != ""
}

func (k Kind) profile() kindProfile {
	return kindProfiles[k]
}
