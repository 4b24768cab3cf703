// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package downloadclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/cleanarr/internal/domain"
)

func TestParseTimeleft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		seconds int
	}{
		{"0:30", 30},
		{"12:05", 725},
		{"1:00:00", 3600},
		{"2:30:15", 9015},
		{"1:02:00:00", 93600},
		{"", 0},
		{"soon", 0},
		{"1:xx:00", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.seconds, ParseTimeleft(tt.input), "input %q", tt.input)
	}
}

func sabServer(t *testing.T, queueBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api", r.URL.Path)
		require.Equal(t, "json", r.URL.Query().Get("output"))
		require.Equal(t, "secret", r.URL.Query().Get("apikey"))

		switch r.URL.Query().Get("mode") {
		case "version":
			w.Write([]byte(`{"version": "4.3.2"}`))
		case "status":
			w.Write([]byte(`{"status": {"uptime": "1h"}}`))
		case "queue":
			w.Write([]byte(queueBody))
		default:
			t.Errorf("unexpected mode %q", r.URL.Query().Get("mode"))
		}
	}))
}

const sabQueue = `{
	"queue": {
		"slots": [
			{"nzo_id": "SABnzbd_nzo_1", "status": "Downloading", "mb": "1000", "mbleft": "600", "timeleft": "0:10:00"},
			{"nzo_id": "SABnzbd_nzo_2", "status": "Queued", "mb": "500", "mbleft": "500", "timeleft": "0:00:00"}
		]
	}
}`

func newTestSabnzbd(url string) *SabnzbdClient {
	return NewSabnzbdClient(domain.SabnzbdConfig{
		Name:    "sab-main",
		BaseURL: url,
		APIKey:  "secret",
	})
}

func TestSabnzbdSetupAndProbe(t *testing.T) {
	t.Parallel()

	srv := sabServer(t, sabQueue)
	defer srv.Close()

	c := newTestSabnzbd(srv.URL)
	require.NoError(t, c.Setup(context.Background()))
	assert.Equal(t, "4.3.2", c.Version())

	connected, err := c.ProbeConnected(context.Background())
	require.NoError(t, err)
	assert.True(t, connected)
}

func TestSabnzbdDownloadedBytes(t *testing.T) {
	t.Parallel()

	srv := sabServer(t, sabQueue)
	defer srv.Close()

	c := newTestSabnzbd(srv.URL)

	bytes, found, err := c.DownloadedBytes(context.Background(), "SABnzbd_nzo_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(400*1024*1024), bytes)

	_, found, err = c.DownloadedBytes(context.Background(), "gone")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSabnzbdItemSpeed(t *testing.T) {
	t.Parallel()

	srv := sabServer(t, sabQueue)
	defer srv.Close()

	c := newTestSabnzbd(srv.URL)

	// 600 MB left in 10 minutes = 1024 KB/s
	speed, found, err := c.ItemSpeedKBs(context.Background(), "SABnzbd_nzo_1")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 1024.0, speed, 0.01)

	// stalled entry reports zero speed but is still present
	speed, found, err = c.ItemSpeedKBs(context.Background(), "SABnzbd_nzo_2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Zero(t, speed)
}

func TestSabnzbdDefaultName(t *testing.T) {
	t.Parallel()

	c := NewSabnzbdClient(domain.SabnzbdConfig{BaseURL: "http://localhost:8080"})
	assert.Equal(t, "SABnzbd", c.Name())
}

func TestSabnzbdBasePath(t *testing.T) {
	t.Parallel()

	c := NewSabnzbdClient(domain.SabnzbdConfig{BaseURL: "http://localhost:8080/sabnzbd/"})
	assert.Equal(t, "http://localhost:8080/sabnzbd/api", c.apiURL)
}
