// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/cleanarr/internal/arr"
	"github.com/autobrr/cleanarr/internal/domain"
)

func offendingGroup(downloadID, title string) map[string]*Group {
	return groupByDownloadID([]Offender{{Item: queueItem(1, title, downloadID)}})
}

func TestStrikeFilterRetainsAfterMaxStrikes(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	filter := NewStrikeFilter(domain.JobRemoveStalled, 3, tracker)
	queue := []arr.QueueItem{queueItem(1, "Movie", "HASH1")}

	for cycle := 1; cycle <= 3; cycle++ {
		retained := filter.Apply(offendingGroup("HASH1", "Movie"), queue)
		assert.Empty(t, retained, "cycle %d should not retain yet", cycle)

		rec, ok := tracker.StrikeRecordFor(domain.JobRemoveStalled, "HASH1")
		require.True(t, ok)
		assert.Equal(t, cycle, rec.Strikes)
	}

	retained := filter.Apply(offendingGroup("HASH1", "Movie"), queue)
	require.Len(t, retained, 1)
	assert.Contains(t, retained, "HASH1")

	// retention ends the tracking, a re-added download starts fresh
	_, ok := tracker.StrikeRecordFor(domain.JobRemoveStalled, "HASH1")
	assert.False(t, ok)
}

func TestStrikeFilterRecoversWhenNoLongerOffending(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	filter := NewStrikeFilter(domain.JobRemoveStalled, 3, tracker)
	queue := []arr.QueueItem{queueItem(1, "Movie", "HASH1")}

	filter.Apply(offendingGroup("HASH1", "Movie"), queue)
	_, ok := tracker.StrikeRecordFor(domain.JobRemoveStalled, "HASH1")
	require.True(t, ok)

	retained := filter.Apply(map[string]*Group{}, queue)
	assert.Empty(t, retained)
	_, ok = tracker.StrikeRecordFor(domain.JobRemoveStalled, "HASH1")
	assert.False(t, ok, "record should be dropped on recovery")
}

func TestStrikeFilterDropsRecordWhenGoneFromQueue(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	filter := NewStrikeFilter(domain.JobRemoveStalled, 3, tracker)

	filter.Apply(offendingGroup("HASH1", "Movie"), []arr.QueueItem{queueItem(1, "Movie", "HASH1")})

	retained := filter.Apply(map[string]*Group{}, []arr.QueueItem{})
	assert.Empty(t, retained)
	_, ok := tracker.StrikeRecordFor(domain.JobRemoveStalled, "HASH1")
	assert.False(t, ok)
}

func TestStrikeFilterLeavesPausedRecordsAlone(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	filter := NewStrikeFilter(domain.JobRemoveSlow, 3, tracker)
	queue := []arr.QueueItem{queueItem(1, "Movie", "HASH1")}

	filter.Apply(offendingGroup("HASH1", "Movie"), queue)
	tracker.PauseStrikes(domain.JobRemoveSlow, "HASH1", "Movie", "High Bandwidth Usage")

	// not offending this cycle, but paused records neither recover nor drop
	retained := filter.Apply(map[string]*Group{}, queue)
	assert.Empty(t, retained)

	rec, ok := tracker.StrikeRecordFor(domain.JobRemoveSlow, "HASH1")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Strikes)
	assert.True(t, rec.TrackingPaused)

	// once resumed, recovery applies again
	tracker.ResumeStrikes(domain.JobRemoveSlow, "HASH1")
	filter.Apply(map[string]*Group{}, queue)
	_, ok = tracker.StrikeRecordFor(domain.JobRemoveSlow, "HASH1")
	assert.False(t, ok)
}

func TestTrackerCountsBlocklistedRemovals(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	assert.Equal(t, 1, tracker.RecordBlocklisted("HASH1"))
	assert.Equal(t, 2, tracker.RecordBlocklisted("HASH1"))
	assert.Equal(t, 1, tracker.RecordBlocklisted("HASH2"))

	tracker.Reset()
	assert.Equal(t, 1, tracker.RecordBlocklisted("HASH1"))
}
