// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package downloadclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleanarr/internal/buildinfo"
	"github.com/autobrr/cleanarr/internal/domain"
	"github.com/autobrr/cleanarr/pkg/httphelpers"
)

// SabnzbdClient talks to one SABnzbd instance through its query API.
type SabnzbdClient struct {
	name       string
	baseURL    string
	apiURL     string
	apiKey     string
	httpClient *http.Client
	version    string
}

// NewSabnzbdClient creates a client from config. An empty name defaults to
// "SABnzbd", matching the *arr default.
func NewSabnzbdClient(cfg domain.SabnzbdConfig) *SabnzbdClient {
	name := cfg.Name
	if name == "" {
		name = "SABnzbd"
		log.Debug().Msg("No name set for sabnzbd client, assuming 'SABnzbd'")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	apiURL := baseURL + "/api"
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		u.Path = httphelpers.JoinBasePath(httphelpers.NormalizeBasePath(u.Path), "api")
		apiURL = u.String()
	}
	return &SabnzbdClient{
		name:    name,
		baseURL: baseURL,
		apiURL:  apiURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *SabnzbdClient) Name() string    { return c.name }
func (c *SabnzbdClient) BaseURL() string { return c.baseURL }

// QueueSlot is one entry of the SABnzbd queue. Numeric values arrive as
// strings on the wire.
type QueueSlot struct {
	NzoID    string `json:"nzo_id"`
	Status   string `json:"status"`
	MB       string `json:"mb"`
	MBLeft   string `json:"mbleft"`
	Timeleft string `json:"timeleft"`
}

type queueResponse struct {
	Queue struct {
		Slots []QueueSlot `json:"slots"`
	} `json:"queue"`
}

type versionResponse struct {
	Version string `json:"version"`
}

type statusResponse struct {
	Status json.RawMessage `json:"status"`
}

// Setup verifies reachability and records the reported version.
func (c *SabnzbdClient) Setup(ctx context.Context) error {
	var resp versionResponse
	if err := c.call(ctx, "version", nil, &resp); err != nil {
		return errors.Wrapf(err, "sabnzbd %s: not reachable, check the URL and API key", c.name)
	}
	c.version = resp.Version
	log.Info().Str("client", c.name).Str("url", c.baseURL).Str("version", c.version).Msg("SABnzbd OK")
	return nil
}

// Version returns the version reported by the last Setup.
func (c *SabnzbdClient) Version() string { return c.version }

// ProbeConnected reports whether the instance answers its status call.
func (c *SabnzbdClient) ProbeConnected(ctx context.Context) (bool, error) {
	var resp statusResponse
	if err := c.call(ctx, "status", nil, &resp); err != nil {
		return false, err
	}
	return len(resp.Status) > 0, nil
}

// QueueSlots returns the current download queue.
func (c *SabnzbdClient) QueueSlots(ctx context.Context) ([]QueueSlot, error) {
	var resp queueResponse
	if err := c.call(ctx, "queue", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Queue.Slots, nil
}

// DownloadedBytes returns the downloaded byte count for one queue entry, or
// false when the entry is not in the queue.
func (c *SabnzbdClient) DownloadedBytes(ctx context.Context, nzoID string) (int64, bool, error) {
	slots, err := c.QueueSlots(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, slot := range slots {
		if slot.NzoID != nzoID {
			continue
		}
		total := parseFloat(slot.MB)
		left := parseFloat(slot.MBLeft)
		return int64((total - left) * 1024 * 1024), true, nil
	}
	return 0, false, nil
}

// ItemSpeedKBs estimates the current speed of one queue entry in KB/s from
// its remaining size and time. Returns false when the entry is not queued.
func (c *SabnzbdClient) ItemSpeedKBs(ctx context.Context, nzoID string) (float64, bool, error) {
	slots, err := c.QueueSlots(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, slot := range slots {
		if slot.NzoID != nzoID {
			continue
		}
		mbLeft := parseFloat(slot.MBLeft)
		seconds := ParseTimeleft(slot.Timeleft)
		if seconds <= 0 || mbLeft <= 0 {
			return 0, true, nil
		}
		return mbLeft / float64(seconds) * 1024, true, nil
	}
	return 0, false, nil
}

// ParseTimeleft converts SABnzbd's timeleft formats ("MM:SS", "H:MM:SS" and
// "D:HH:MM:SS") to seconds. Malformed input yields zero.
func ParseTimeleft(timeleft string) int {
	parts := strings.Split(timeleft, ":")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		nums = append(nums, n)
	}
	switch len(nums) {
	case 4:
		return nums[0]*86400 + nums[1]*3600 + nums[2]*60 + nums[3]
	case 3:
		return nums[0]*3600 + nums[1]*60 + nums[2]
	case 2:
		return nums[0]*60 + nums[1]
	}
	return 0
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func (c *SabnzbdClient) call(ctx context.Context, mode string, extra url.Values, out any) error {
	params := url.Values{}
	params.Set("mode", mode)
	params.Set("apikey", c.apiKey)
	params.Set("output", "json")
	for key, values := range extra {
		for _, v := range values {
			params.Add(key, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "could not create request")
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:bodyclose // closed by DrainAndClose
	if err != nil {
		return errors.Wrapf(err, "sabnzbd %s: request failed", c.name)
	}
	defer httphelpers.DrainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("sabnzbd %s: unexpected status %d", c.name, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "sabnzbd %s: could not decode response", c.name)
	}
	return nil
}
