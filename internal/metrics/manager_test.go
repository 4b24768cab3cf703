// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCounters(t *testing.T) {
	t.Parallel()

	m := NewManager()

	m.CycleCompleted()
	m.CycleCompleted()
	m.RemovalPerformed("radarr-main", "removeStalled")
	m.ObsoleteTagged("radarr-main", "removeUnmonitored")
	m.SearchTriggered("sonarr-main", "missing", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.removals.WithLabelValues("radarr-main", "removeStalled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.obsoleteTagged.WithLabelValues("radarr-main", "removeUnmonitored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches.WithLabelValues("sonarr-main", "missing")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.searchedItems.WithLabelValues("sonarr-main", "missing")))
}

func TestRegistryServesEngineMetrics(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.CycleCompleted()

	srv := httptest.NewServer(promhttp.HandlerFor(m.GetRegistry(), promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	count, err := testutil.GatherAndCount(m.GetRegistry(), "cleanarr_cycles_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
