// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleanarr/internal/arr"
	"github.com/autobrr/cleanarr/internal/domain"
)

// bandwidthPauseThreshold is the download-link utilization above which slow
// torrents are assumed to be starved by the link, not the swarm.
const bandwidthPauseThreshold = 0.8

const bandwidthPauseReason = "High Bandwidth Usage"

// SlowJob strikes downloads whose cycle-over-cycle throughput stays under
// the configured floor. Usenet downloads are only checked when their SABnzbd
// connection is configured; otherwise their speed is left to the provider.
// When the download link itself is saturated, strike tracking is paused
// instead of punishing torrents for contention.
type SlowJob struct {
	jobSpec
	minSpeedKBs float64
}

func NewSlowJob(cfg domain.JobConfig) *SlowJob {
	return &SlowJob{
		jobSpec: jobSpec{
			name:       domain.JobRemoveSlow,
			scope:      ScopeNormal,
			blocklist:  true,
			maxStrikes: cfg.MaxStrikes,
		},
		minSpeedKBs: float64(cfg.MinSpeed),
	}
}

func (j *SlowJob) Predicate(ctx context.Context, run *Run, queue []arr.QueueItem) ([]Offender, error) {
	for _, tc := range run.Clients.Torrents {
		if _, _, err := tc.RefreshBandwidth(ctx); err != nil {
			log.Warn().Err(err).
				Str("client", tc.Name()).
				Msg("Could not read bandwidth usage, slow checks proceed unpaused")
		}
	}

	intervalSeconds := float64(run.General.TimerMinutes) * 60

	var offenders []Offender
	seen := map[string]struct{}{}
	for _, item := range queue {
		if item.DownloadID == "" || item.Status == "" || item.Protocol == "" || item.DownloadClient == "" {
			continue
		}
		if _, dup := seen[item.DownloadID]; dup {
			continue
		}
		seen[item.DownloadID] = struct{}{}

		if item.Status != "downloading" {
			continue
		}
		if item.Size > 0 && item.Sizeleft == 0 {
			log.Info().
				Str("title", item.Title).
				Msg("Download is finished but stuck in queue, not checking speed")
			continue
		}

		if item.Protocol != "torrent" {
			if offender, slow := j.usenetOffender(ctx, run, item, intervalSeconds); slow {
				offenders = append(offenders, offender)
			}
			continue
		}

		tc, _ := run.Clients.TorrentByName(item.DownloadClient)
		bytesNow := j.downloadedBytes(ctx, tc, item)
		if tc != nil && tc.BandwidthUtilization() > bandwidthPauseThreshold {
			// keep sampling while paused so the first cycle after the link
			// frees up can already judge the speed
			run.Tracker.PauseStrikes(j.name, item.DownloadID, item.Title, bandwidthPauseReason)
			run.Tracker.SetProgress(item.DownloadID, bytesNow)
			log.Debug().
				Str("title", item.Title).
				Str("client", tc.Name()).
				Msg("Download link saturated, pausing slow-speed strikes")
			continue
		}
		run.Tracker.ResumeStrikes(j.name, item.DownloadID)

		bytesPrev, sampled := run.Tracker.Progress(item.DownloadID)
		run.Tracker.SetProgress(item.DownloadID, bytesNow)
		if !sampled {
			continue
		}

		speedKBs := float64(bytesNow-bytesPrev) / 1000 / intervalSeconds
		if speedKBs >= j.minSpeedKBs {
			continue
		}
		log.Debug().
			Str("title", item.Title).
			Float64("speedKBs", speedKBs).
			Float64("minSpeedKBs", j.minSpeedKBs).
			Msg("Download speed under floor")
		offenders = append(offenders, Offender{
			Item: item,
			RemovalMessages: []string{
				fmt.Sprintf("Average download speed was %.1f KB/s, required %.1f KB/s", speedKBs, j.minSpeedKBs),
			},
		})
	}
	return offenders, nil
}

// usenetOffender applies the speed floor to a usenet download through its
// SABnzbd connection. Items on clients we have no connection for are left
// alone. SABnzbd's own speed estimate gets the final word, so a transfer
// that picked up since the last sample is not struck.
func (j *SlowJob) usenetOffender(ctx context.Context, run *Run, item arr.QueueItem, intervalSeconds float64) (Offender, bool) {
	uc, ok := run.Clients.UsenetByName(item.DownloadClient)
	if !ok {
		return Offender{}, false
	}

	bytesNow, found, err := uc.DownloadedBytes(ctx, item.DownloadID)
	if err != nil {
		log.Warn().Err(err).
			Str("title", item.Title).
			Str("client", uc.Name()).
			Msg("Could not read usenet progress, skipping speed check")
		return Offender{}, false
	}
	if !found {
		bytesNow = int64(item.Size - item.Sizeleft)
	}

	bytesPrev, sampled := run.Tracker.Progress(item.DownloadID)
	run.Tracker.SetProgress(item.DownloadID, bytesNow)
	if !sampled {
		return Offender{}, false
	}

	speedKBs := float64(bytesNow-bytesPrev) / 1000 / intervalSeconds
	if speedKBs >= j.minSpeedKBs {
		return Offender{}, false
	}
	if current, known, err := uc.ItemSpeedKBs(ctx, item.DownloadID); err == nil && known && current >= j.minSpeedKBs {
		return Offender{}, false
	}
	log.Debug().
		Str("title", item.Title).
		Float64("speedKBs", speedKBs).
		Float64("minSpeedKBs", j.minSpeedKBs).
		Msg("Download speed under floor")
	return Offender{
		Item: item,
		RemovalMessages: []string{
			fmt.Sprintf("Average download speed was %.1f KB/s, required %.1f KB/s", speedKBs, j.minSpeedKBs),
		},
	}, true
}

// downloadedBytes prefers the client's own completed counter and falls back
// to the coarser queue numbers when the torrent cannot be resolved.
func (j *SlowJob) downloadedBytes(ctx context.Context, tc TorrentClient, item arr.QueueItem) int64 {
	if tc != nil {
		bytes, err := tc.DownloadedBytes(ctx, item.DownloadID)
		if err == nil {
			return bytes
		}
		log.Debug().Err(err).
			Str("title", item.Title).
			Msg("Falling back to queue numbers for downloaded bytes")
	}
	return int64(item.Size - item.Sizeleft)
}
