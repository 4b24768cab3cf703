// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"
	"strings"
	"sync"
)

// StrikeRecord is the per-job, per-download cross-cycle state.
type StrikeRecord struct {
	Title          string
	Strikes        int
	TrackingPaused bool
	PauseReason    string
}

// Tracker holds all cross-cycle state of one curator. Everything is
// in-memory; a restart simply resets the counters.
type Tracker struct {
	mu               sync.Mutex
	protected        map[string]struct{}
	private          map[string]struct{}
	deleted          map[string]struct{}
	extensionChecked map[string]struct{}
	progress         map[string]int64
	blocklisted      map[string]int
	defective        map[string]map[string]*StrikeRecord
}

func NewTracker() *Tracker {
	t := &Tracker{}
	t.Reset()
	return t
}

// Reset drops all state, used when the queue turns out empty.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.protected = map[string]struct{}{}
	t.private = map[string]struct{}{}
	t.deleted = map[string]struct{}{}
	t.extensionChecked = map[string]struct{}{}
	t.progress = map[string]int64{}
	t.blocklisted = map[string]int{}
	t.defective = map[string]map[string]*StrikeRecord{}
}

// BeginCycle clears the per-cycle deletion fence.
func (t *Tracker) BeginCycle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleted = map[string]struct{}{}
}

// RefreshPrivateProtected rebuilds the protected and private sets from the
// torrent clients. needPrivate skips the private scan when both handling
// modes are plain removal.
func (t *Tracker) RefreshPrivateProtected(ctx context.Context, clients []TorrentClient, protectedTag string, needPrivate bool) error {
	var protected, private []string
	for _, c := range clients {
		p, priv, err := c.ProtectedAndPrivate(ctx, protectedTag, needPrivate)
		if err != nil {
			return err
		}
		protected = append(protected, p...)
		private = append(private, priv...)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.protected = map[string]struct{}{}
	for _, id := range protected {
		t.protected[id] = struct{}{}
	}
	t.private = map[string]struct{}{}
	for _, id := range private {
		t.private[id] = struct{}{}
	}
	return nil
}

func (t *Tracker) IsProtected(downloadID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.protected[strings.ToUpper(downloadID)]
	return ok
}

func (t *Tracker) IsPrivate(downloadID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.private[strings.ToUpper(downloadID)]
	return ok
}

// MarkDeleted fences a download for the rest of the cycle.
func (t *Tracker) MarkDeleted(downloadID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleted[downloadID] = struct{}{}
}

func (t *Tracker) WasDeleted(downloadID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.deleted[downloadID]
	return ok
}

// MarkExtensionChecked records that a torrent's files were inspected.
func (t *Tracker) MarkExtensionChecked(hash string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.extensionChecked[strings.ToUpper(hash)] = struct{}{}
}

func (t *Tracker) ExtensionChecked(hash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.extensionChecked[strings.ToUpper(hash)]
	return ok
}

// Progress returns the byte count recorded for a download in the previous
// cycle.
func (t *Tracker) Progress(downloadID string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.progress[downloadID]
	return v, ok
}

func (t *Tracker) SetProgress(downloadID string, bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress[downloadID] = bytes
}

// RecordBlocklisted counts how often a download id was removed with a
// blocklist entry and returns the new count. A count above one means the
// same release was grabbed again despite the blocklist.
func (t *Tracker) RecordBlocklisted(downloadID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blocklisted[downloadID]++
	return t.blocklisted[downloadID]
}

func (t *Tracker) strikeMap(job string) map[string]*StrikeRecord {
	m, ok := t.defective[job]
	if !ok {
		m = map[string]*StrikeRecord{}
		t.defective[job] = m
	}
	return m
}

// StrikeIDs returns the download ids currently tracked for a job.
func (t *Tracker) StrikeIDs(job string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.strikeMap(job)
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}

// StrikeRecordFor returns a copy of the record for one download.
func (t *Tracker) StrikeRecordFor(job, downloadID string) (StrikeRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.strikeMap(job)[downloadID]
	if !ok {
		return StrikeRecord{}, false
	}
	return *rec, true
}

// IncrementStrike adds one strike, creating the record on first offense, and
// returns the new count.
func (t *Tracker) IncrementStrike(job, downloadID, title string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.strikeMap(job)
	rec, ok := m[downloadID]
	if !ok {
		rec = &StrikeRecord{Title: title}
		m[downloadID] = rec
	}
	rec.Strikes++
	return rec.Strikes
}

// DeleteStrike drops the record for one download.
func (t *Tracker) DeleteStrike(job, downloadID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.strikeMap(job), downloadID)
}

// PauseStrikes marks a download's record paused so it neither accrues nor
// recovers, creating the record if needed.
func (t *Tracker) PauseStrikes(job, downloadID, title, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.strikeMap(job)
	rec, ok := m[downloadID]
	if !ok {
		rec = &StrikeRecord{Title: title}
		m[downloadID] = rec
	}
	rec.TrackingPaused = true
	rec.PauseReason = reason
}

// ResumeStrikes lifts the pause again.
func (t *Tracker) ResumeStrikes(job, downloadID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.strikeMap(job)[downloadID]; ok {
		rec.TrackingPaused = false
		rec.PauseReason = ""
	}
}

// IsStrikePaused reports whether strike tracking for a download is paused.
func (t *Tracker) IsStrikePaused(job, downloadID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.strikeMap(job)[downloadID]
	return ok && rec.TrackingPaused
}
