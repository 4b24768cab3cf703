// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/cleanarr/internal/arr"
	"github.com/autobrr/cleanarr/internal/domain"
)

func dispatchFixture(general domain.General) (*Dispatcher, *Run, *fakeGateway, *fakeTorrentClient) {
	gw := newFakeGateway(arr.KindRadarr)
	tc := newFakeTorrentClient("qBittorrent")
	clients := &ClientSet{Torrents: []TorrentClient{tc}}
	run := &Run{
		Curator: gw,
		Tracker: NewTracker(),
		Clients: clients,
		General: general,
	}
	return NewDispatcher(clients, general, nil), run, gw, tc
}

func TestDispatchRemovesUsenetDownloads(t *testing.T) {
	t.Parallel()

	general := domain.General{
		PrivateTrackerHandling: domain.HandlingSkip,
		PublicTrackerHandling:  domain.HandlingSkip,
	}
	d, run, gw, _ := dispatchFixture(general)

	item := queueItem(10, "Show", "NZB1")
	item.Protocol = "usenet"
	groups := groupByDownloadID([]Offender{{Item: item}})

	handled := d.Dispatch(context.Background(), run, NewStalledJob(domain.JobConfig{}), groups)
	assert.Equal(t, 1, handled)
	require.Len(t, gw.removals, 1)
	assert.Equal(t, int64(10), gw.removals[0].queueID)
	assert.True(t, gw.removals[0].blocklist)
	assert.True(t, run.Tracker.WasDeleted("NZB1"))
}

func TestDispatchUsesPrivateHandlingForPrivateTorrents(t *testing.T) {
	t.Parallel()

	general := domain.General{
		PrivateTrackerHandling: domain.HandlingTagAsObsolete,
		PublicTrackerHandling:  domain.HandlingRemove,
		ObsoleteTag:            "Obsolete",
	}
	d, run, gw, tc := dispatchFixture(general)
	tc.private = []string{"HASH1"}
	require.NoError(t, run.Tracker.RefreshPrivateProtected(context.Background(), run.Clients.Torrents, "Keep", true))

	groups := groupByDownloadID([]Offender{{Item: queueItem(1, "Movie", "HASH1")}})
	handled := d.Dispatch(context.Background(), run, NewStalledJob(domain.JobConfig{}), groups)

	assert.Equal(t, 1, handled)
	assert.Empty(t, gw.removals, "tagged torrents stay in the queue")
	assert.Equal(t, []string{"HASH1"}, tc.tagged["Obsolete"])
	assert.True(t, run.Tracker.WasDeleted("HASH1"))
}

func TestDispatchSkipHandlingStillFences(t *testing.T) {
	t.Parallel()

	general := domain.General{
		PrivateTrackerHandling: domain.HandlingRemove,
		PublicTrackerHandling:  domain.HandlingSkip,
	}
	d, run, gw, tc := dispatchFixture(general)

	groups := groupByDownloadID([]Offender{{Item: queueItem(1, "Movie", "HASH1")}})
	handled := d.Dispatch(context.Background(), run, NewStalledJob(domain.JobConfig{}), groups)

	assert.Equal(t, 1, handled)
	assert.Empty(t, gw.removals)
	assert.Empty(t, tc.tagged)
	assert.True(t, run.Tracker.WasDeleted("HASH1"), "skipped downloads are fenced for the cycle")
}

func TestDispatchFallsBackToRemoveWithoutMatchingClient(t *testing.T) {
	t.Parallel()

	general := domain.General{
		PrivateTrackerHandling: domain.HandlingSkip,
		PublicTrackerHandling:  domain.HandlingSkip,
	}
	d, run, gw, _ := dispatchFixture(general)

	item := queueItem(1, "Movie", "HASH1")
	item.DownloadClient = "transmission"
	groups := groupByDownloadID([]Offender{{Item: item}})

	d.Dispatch(context.Background(), run, NewStalledJob(domain.JobConfig{}), groups)
	require.Len(t, gw.removals, 1)
}

func TestDispatchFailedRemovalIsRetriedNextCycle(t *testing.T) {
	t.Parallel()

	general := domain.General{
		PrivateTrackerHandling: domain.HandlingRemove,
		PublicTrackerHandling:  domain.HandlingRemove,
	}
	d, run, gw, _ := dispatchFixture(general)
	gw.removeErr = errors.New("boom")

	groups := groupByDownloadID([]Offender{{Item: queueItem(1, "Movie", "HASH1")}})
	handled := d.Dispatch(context.Background(), run, NewStalledJob(domain.JobConfig{}), groups)

	assert.Equal(t, 0, handled)
	assert.False(t, run.Tracker.WasDeleted("HASH1"), "failed removals must not be fenced")
}

func TestDispatchSkipsAlreadyHandledDownloads(t *testing.T) {
	t.Parallel()

	general := domain.General{
		PrivateTrackerHandling: domain.HandlingRemove,
		PublicTrackerHandling:  domain.HandlingRemove,
	}
	d, run, gw, _ := dispatchFixture(general)
	run.Tracker.MarkDeleted("HASH1")

	groups := groupByDownloadID([]Offender{{Item: queueItem(1, "Movie", "HASH1")}})
	handled := d.Dispatch(context.Background(), run, NewStalledJob(domain.JobConfig{}), groups)

	assert.Equal(t, 0, handled)
	assert.Empty(t, gw.removals)
}
