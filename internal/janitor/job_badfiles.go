// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"
	"fmt"
	"path"
	"strings"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleanarr/internal/arr"
	"github.com/autobrr/cleanarr/internal/domain"
)

// wantedExtensions covers the payload formats the curators can import:
// video and subtitles (radarr, sonarr, whisparr), audio (lidarr, readarr)
// and text (readarr).
var wantedExtensions = map[string]struct{}{
	".webm": {}, ".m4v": {}, ".3gp": {}, ".nsv": {}, ".ty": {}, ".strm": {},
	".rm": {}, ".rmvb": {}, ".m3u": {}, ".ifo": {}, ".mov": {}, ".qt": {},
	".divx": {}, ".xvid": {}, ".bivx": {}, ".nrg": {}, ".pva": {}, ".wmv": {},
	".asf": {}, ".asx": {}, ".ogm": {}, ".ogv": {}, ".m2v": {}, ".avi": {},
	".bin": {}, ".dat": {}, ".dvr-ms": {}, ".mpg": {}, ".mpeg": {}, ".mp4": {},
	".avc": {}, ".vp3": {}, ".svq3": {}, ".nuv": {}, ".viv": {}, ".dv": {},
	".fli": {}, ".flv": {}, ".wpl": {}, ".img": {}, ".iso": {}, ".vob": {},
	".mkv": {}, ".mk3d": {}, ".ts": {}, ".wtv": {}, ".m2ts": {},
	".sub": {}, ".srt": {}, ".idx": {},
	".aac": {}, ".aif": {}, ".aiff": {}, ".aifc": {}, ".ape": {}, ".flac": {},
	".mp2": {}, ".mp3": {}, ".m4a": {}, ".m4b": {}, ".m4p": {}, ".mp4a": {},
	".oga": {}, ".ogg": {}, ".opus": {}, ".vorbis": {}, ".wma": {}, ".wav": {},
	".wv": {}, ".wavepack": {},
	".epub": {}, ".kepub": {}, ".mobi": {}, ".azw3": {}, ".pdf": {},
}

// archiveExtensions are acceptable when an unpacker handles them downstream.
var archiveExtensions = map[string]struct{}{
	".rar": {}, ".tar": {}, ".tgz": {}, ".gz": {}, ".zip": {}, ".7z": {},
	".bz2": {}, ".tbz2": {}, ".iso": {},
}

var badKeywords = []string{"sample", "trailer"}

// badKeywordSizeLimit exempts large files from the keyword check; a full
// movie named "...Sample..." should not be thrown away.
const badKeywordSizeLimit = int64(500 * 1024 * 1024)

var badFilesStates = map[qbt.TorrentState]struct{}{
	qbt.TorrentStateDownloading: {},
	qbt.TorrentStateForcedDl:    {},
	qbt.TorrentStateStalledDl:   {},
}

// BadFilesJob marks unwanted files inside torrents as "Do not Download" and
// condemns torrents left with nothing worth downloading. Every torrent is
// inspected at least once; afterwards only when availability drops under
// 100%, which is when qBittorrent starts substituting padding files.
type BadFilesJob struct {
	jobSpec
	keepArchives bool
}

func NewBadFilesJob(cfg domain.JobConfig) *BadFilesJob {
	return &BadFilesJob{
		jobSpec: jobSpec{
			name:       domain.JobRemoveBadFiles,
			scope:      ScopeNormal,
			blocklist:  true,
			maxStrikes: 0,
		},
		keepArchives: cfg.KeepArchives,
	}
}

func (j *BadFilesJob) Predicate(ctx context.Context, run *Run, queue []arr.QueueItem) ([]Offender, error) {
	var offenders []Offender
	for client, hashes := range groupHashesByClient(run.Clients, queue) {
		torrents, err := client.Items(ctx, hashes)
		if err != nil {
			return nil, err
		}
		for _, torrent := range torrents {
			if !j.shouldInspect(run.Tracker, torrent) {
				continue
			}
			run.Tracker.MarkExtensionChecked(torrent.Hash)

			emptied, err := j.stopUnwantedFiles(ctx, client, torrent)
			if err != nil {
				return nil, err
			}
			if !emptied {
				continue
			}
			log.Info().
				Str("torrent", torrent.Name).
				Msg("All files marked as Do not Download, removing torrent")
			for _, item := range queue {
				if strings.EqualFold(item.DownloadID, torrent.Hash) {
					offenders = append(offenders, Offender{
						Item:            item,
						RemovalMessages: []string{"No files left worth downloading"},
					})
				}
			}
		}
	}
	return offenders, nil
}

func groupHashesByClient(clients *ClientSet, queue []arr.QueueItem) map[TorrentClient][]string {
	grouped := map[TorrentClient][]string{}
	seen := map[string]struct{}{}
	for _, item := range queue {
		if item.DownloadClient == "" || item.DownloadID == "" {
			continue
		}
		if _, dup := seen[item.DownloadID]; dup {
			continue
		}
		client, ok := clients.TorrentByName(item.DownloadClient)
		if !ok {
			continue
		}
		seen[item.DownloadID] = struct{}{}
		grouped[client] = append(grouped[client], item.DownloadID)
	}
	return grouped
}

func (j *BadFilesJob) shouldInspect(tracker *Tracker, torrent qbt.Torrent) bool {
	if torrent.TotalSize <= 0 {
		// No metadata yet, there are no file names to judge.
		return false
	}
	if _, ok := badFilesStates[torrent.State]; !ok {
		return false
	}
	return !tracker.ExtensionChecked(torrent.Hash) || torrent.Availability < 1
}

// stopUnwantedFiles sets unwanted files to priority 0 and reports whether the
// torrent has no wanted files left.
func (j *BadFilesJob) stopUnwantedFiles(ctx context.Context, client TorrentClient, torrent qbt.Torrent) (bool, error) {
	files, err := client.Files(ctx, torrent.Hash)
	if err != nil {
		return false, err
	}
	if files == nil {
		return false, nil
	}

	var stopIDs []int
	stopped := map[int]struct{}{}
	active := 0
	for _, f := range *files {
		if f.Priority == 0 {
			continue
		}
		active++
		reasons := j.stopReasons(f.Name, f.Size, float64(f.Availability), float64(f.Progress))
		if len(reasons) == 0 {
			continue
		}
		stopIDs = append(stopIDs, f.Index)
		stopped[f.Index] = struct{}{}
		log.Info().
			Str("torrent", torrent.Name).
			Str("file", path.Base(f.Name)).
			Strs("reasons", reasons).
			Msg("Stopped downloading file")
	}
	if len(stopIDs) == 0 {
		return false, nil
	}

	if err := client.SetFilePriority(ctx, torrent.Hash, stopIDs, 0); err != nil {
		return false, err
	}
	return len(stopped) == active, nil
}

func (j *BadFilesJob) stopReasons(name string, size int64, availability, progress float64) []string {
	var reasons []string
	ext := strings.ToLower(path.Ext(name))
	if _, ok := wantedExtensions[ext]; !ok {
		if _, archive := archiveExtensions[ext]; !archive || !j.keepArchives {
			reasons = append(reasons, "Bad extension: "+ext)
		}
	}
	if j.containsBadKeyword(name, size) {
		reasons = append(reasons, "Contains bad keyword in path")
	}
	if availability < 1 && progress != 1 {
		reasons = append(reasons, fmt.Sprintf("Low availability: %.1f%%", availability*100))
	}
	return reasons
}

func (j *BadFilesJob) containsBadKeyword(name string, size int64) bool {
	if size > badKeywordSizeLimit {
		return false
	}
	lowered := strings.ToLower(name)
	for _, keyword := range badKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
