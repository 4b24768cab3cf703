// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"
	"strings"

	"github.com/autobrr/cleanarr/internal/arr"
	"github.com/autobrr/cleanarr/internal/domain"
)

// jobSpec carries the static half of the Job interface.
type jobSpec struct {
	name       string
	scope      Scope
	blocklist  bool
	maxStrikes int
}

func (j jobSpec) Name() string    { return j.name }
func (j jobSpec) Scope() Scope    { return j.scope }
func (j jobSpec) Blocklist() bool { return j.blocklist }
func (j jobSpec) MaxStrikes() int { return j.maxStrikes }

// BuildRemovalJobs assembles the enabled removal jobs in their fixed
// execution order.
func BuildRemovalJobs(jobs domain.Jobs) []Job {
	var out []Job
	if jobs.RemoveBadFiles.Enabled {
		out = append(out, NewBadFilesJob(jobs.RemoveBadFiles))
	}
	if jobs.RemoveFailedImports.Enabled {
		out = append(out, NewFailedImportsJob(jobs.RemoveFailedImports))
	}
	if jobs.RemoveFailedDownloads.Enabled {
		out = append(out, NewFailedDownloadsJob(jobs.RemoveFailedDownloads))
	}
	if jobs.RemoveMetadataMissing.Enabled {
		out = append(out, NewMetadataMissingJob(jobs.RemoveMetadataMissing))
	}
	if jobs.RemoveMissingFiles.Enabled {
		out = append(out, NewMissingFilesJob(jobs.RemoveMissingFiles))
	}
	if jobs.RemoveOrphans.Enabled {
		out = append(out, NewOrphansJob(jobs.RemoveOrphans))
	}
	if jobs.RemoveSlow.Enabled {
		out = append(out, NewSlowJob(jobs.RemoveSlow))
	}
	if jobs.RemoveStalled.Enabled {
		out = append(out, NewStalledJob(jobs.RemoveStalled))
	}
	if jobs.RemoveUnmonitored.Enabled {
		out = append(out, NewUnmonitoredJob(jobs.RemoveUnmonitored))
	}
	return out
}

// StalledJob removes downloads reported as stalled with no connections.
type StalledJob struct{ jobSpec }

func NewStalledJob(cfg domain.JobConfig) *StalledJob {
	return &StalledJob{jobSpec{
		name:       domain.JobRemoveStalled,
		scope:      ScopeNormal,
		blocklist:  true,
		maxStrikes: cfg.MaxStrikes,
	}}
}

func (j *StalledJob) Predicate(_ context.Context, _ *Run, queue []arr.QueueItem) ([]Offender, error) {
	var items []arr.QueueItem
	for _, item := range queue {
		if item.Status == "warning" && item.ErrorMessage == "The download is stalled with no connections" {
			items = append(items, item)
		}
	}
	return asOffenders(items), nil
}

// FailedDownloadsJob removes downloads the curator marked as failed.
type FailedDownloadsJob struct{ jobSpec }

func NewFailedDownloadsJob(cfg domain.JobConfig) *FailedDownloadsJob {
	return &FailedDownloadsJob{jobSpec{
		name:       domain.JobRemoveFailedDownloads,
		scope:      ScopeNormal,
		blocklist:  false,
		maxStrikes: cfg.MaxStrikes,
	}}
}

func (j *FailedDownloadsJob) Predicate(_ context.Context, _ *Run, queue []arr.QueueItem) ([]Offender, error) {
	var items []arr.QueueItem
	for _, item := range queue {
		if item.Status == "failed" {
			items = append(items, item)
		}
	}
	return asOffenders(items), nil
}

// MetadataMissingJob removes torrents stuck fetching metadata.
type MetadataMissingJob struct{ jobSpec }

func NewMetadataMissingJob(cfg domain.JobConfig) *MetadataMissingJob {
	return &MetadataMissingJob{jobSpec{
		name:       domain.JobRemoveMetadataMissing,
		scope:      ScopeNormal,
		blocklist:  true,
		maxStrikes: cfg.MaxStrikes,
	}}
}

func (j *MetadataMissingJob) Predicate(_ context.Context, _ *Run, queue []arr.QueueItem) ([]Offender, error) {
	var items []arr.QueueItem
	for _, item := range queue {
		if item.Status == "queued" && strings.HasSuffix(item.ErrorMessage, "is downloading metadata") {
			items = append(items, item)
		}
	}
	return asOffenders(items), nil
}

// missingFilesErrors are the download-client flavors of "files are gone".
var missingFilesErrors = map[string]struct{}{
	"DownloadClientQbittorrentTorrentStateMissingFiles": {},
	"The download is missing files":                     {},
	"qBittorrent is reporting missing files":            {},
}

const noEligibleImportPrefix = "No files found are eligible for import in"

// MissingFilesJob removes downloads whose payload vanished from disk.
type MissingFilesJob struct{ jobSpec }

func NewMissingFilesJob(cfg domain.JobConfig) *MissingFilesJob {
	return &MissingFilesJob{jobSpec{
		name:       domain.JobRemoveMissingFiles,
		scope:      ScopeNormal,
		blocklist:  false,
		maxStrikes: cfg.MaxStrikes,
	}}
}

func (j *MissingFilesJob) Predicate(_ context.Context, _ *Run, queue []arr.QueueItem) ([]Offender, error) {
	var items []arr.QueueItem
	for _, item := range queue {
		if j.missingFiles(item) || j.noEligibleImport(item) {
			items = append(items, item)
		}
	}
	return asOffenders(items), nil
}

func (j *MissingFilesJob) missingFiles(item arr.QueueItem) bool {
	if item.Status != "warning" {
		return false
	}
	_, ok := missingFilesErrors[item.ErrorMessage]
	return ok
}

func (j *MissingFilesJob) noEligibleImport(item arr.QueueItem) bool {
	if item.Status != "completed" {
		return false
	}
	for _, sm := range item.StatusMessages {
		for _, msg := range sm.Messages {
			if strings.HasPrefix(msg, noEligibleImportPrefix) {
				return true
			}
		}
	}
	return false
}

// OrphansJob removes queue entries the curator cannot map to a library item.
type OrphansJob struct{ jobSpec }

func NewOrphansJob(cfg domain.JobConfig) *OrphansJob {
	return &OrphansJob{jobSpec{
		name:       domain.JobRemoveOrphans,
		scope:      ScopeOrphans,
		blocklist:  false,
		maxStrikes: cfg.MaxStrikes,
	}}
}

func (j *OrphansJob) Predicate(_ context.Context, _ *Run, queue []arr.QueueItem) ([]Offender, error) {
	return asOffenders(queue), nil
}

// UnmonitoredJob removes downloads whose media items are all unmonitored.
// One download may back several queue entries; it is only removed when every
// entry is unmonitored.
type UnmonitoredJob struct{ jobSpec }

func NewUnmonitoredJob(cfg domain.JobConfig) *UnmonitoredJob {
	return &UnmonitoredJob{jobSpec{
		name:       domain.JobRemoveUnmonitored,
		scope:      ScopeNormal,
		blocklist:  false,
		maxStrikes: cfg.MaxStrikes,
	}}
}

func (j *UnmonitoredJob) Predicate(ctx context.Context, run *Run, queue []arr.QueueItem) ([]Offender, error) {
	kind := run.Curator.Kind()
	monitoredByID := map[int64]bool{}
	monitoredDownloads := map[string]struct{}{}

	for _, item := range queue {
		detailID := item.DetailItemID(kind)
		if detailID == 0 {
			// Not yet mapped to a detail item (e.g. matched to the artist
			// but not the album), monitoring cannot be determined.
			monitoredDownloads[item.DownloadID] = struct{}{}
			continue
		}
		monitored, ok := monitoredByID[detailID]
		if !ok {
			var err error
			monitored, err = run.Curator.IsMonitored(ctx, detailID)
			if err != nil {
				return nil, err
			}
			monitoredByID[detailID] = monitored
		}
		if monitored {
			monitoredDownloads[item.DownloadID] = struct{}{}
		}
	}

	var items []arr.QueueItem
	for _, item := range queue {
		if _, ok := monitoredDownloads[item.DownloadID]; !ok {
			items = append(items, item)
		}
	}
	return asOffenders(items), nil
}
