// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/cleanarr/internal/arr"
	"github.com/autobrr/cleanarr/internal/domain"
)

func failedImport(state string, messages ...string) arr.QueueItem {
	item := queueItem(1, "Movie", "HASH1")
	item.Status = "completed"
	item.TrackedDownloadStatus = "warning"
	item.TrackedDownloadState = state
	item.StatusMessages = []arr.StatusMessage{{Messages: messages}}
	return item
}

func TestFailedImportsJobMatchesPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []string
		item     arr.QueueItem
		offender bool
	}{
		{
			name:     "wildcard matches everything",
			patterns: []string{"*"},
			item:     failedImport("importFailed", "Not a Custom Format upgrade for existing file(s)"),
			offender: true,
		},
		{
			name:     "substring pattern",
			patterns: []string{"*Custom Format upgrade*"},
			item:     failedImport("importPending", "Not a Custom Format upgrade for existing file(s)"),
			offender: true,
		},
		{
			name:     "question mark matches one character",
			patterns: []string{"Found archive fil?"},
			item:     failedImport("importBlocked", "Found archive file"),
			offender: true,
		},
		{
			name:     "pattern miss",
			patterns: []string{"*quality mismatch*"},
			item:     failedImport("importFailed", "Found archive file"),
			offender: false,
		},
		{
			name:     "wrong tracked state",
			patterns: []string{"*"},
			item:     failedImport("downloading", "Anything"),
			offender: false,
		},
		{
			name:     "still importing is not a failure",
			patterns: []string{"*"},
			item: func() arr.QueueItem {
				i := failedImport("importPending", "msg")
				i.TrackedDownloadStatus = "ok"
				return i
			}(),
			offender: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := NewFailedImportsJob(domain.JobConfig{MessagePatterns: tt.patterns})
			offenders, err := job.Predicate(context.Background(), nil, []arr.QueueItem{tt.item})
			require.NoError(t, err)
			if tt.offender {
				assert.Len(t, offenders, 1)
			} else {
				assert.Empty(t, offenders)
			}
		})
	}
}

func TestFailedImportsJobCollectsMatchingMessages(t *testing.T) {
	t.Parallel()

	item := failedImport("importFailed",
		"Not an upgrade for existing file(s)",
		"Found archive file",
		"Not an upgrade for existing file(s)",
	)

	job := NewFailedImportsJob(domain.JobConfig{MessagePatterns: []string{"*upgrade*"}})
	offenders, err := job.Predicate(context.Background(), nil, []arr.QueueItem{item})
	require.NoError(t, err)
	require.Len(t, offenders, 1)

	assert.Equal(t, []string{
		"Tracked download state: importFailed",
		"Status message: Not an upgrade for existing file(s)",
	}, offenders[0].RemovalMessages, "duplicates collapse, non-matching messages are left out")
}
