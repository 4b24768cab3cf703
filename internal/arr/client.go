// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package arr

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleanarr/internal/buildinfo"
	"github.com/autobrr/cleanarr/pkg/httphelpers"
)

const defaultTimeout = 15 * time.Second

// Client talks to a single Sonarr/Radarr/Lidarr/Readarr/Whisparr instance.
type Client struct {
	kind       Kind
	baseURL    string
	apiURL     string
	apiKey     string
	httpClient *http.Client
	testRun    bool

	mu              sync.Mutex
	name            string
	version         string
	implementations map[string]string
}

// Options tune client behavior.
type Options struct {
	Timeout       time.Duration
	SkipTLSVerify bool
	TestRun       bool
}

// NewClient creates a client for one instance. The instance name is refined
// after the first Probe; until then the kind's display name is used.
func NewClient(kind Kind, baseURL, apiKey string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var transport http.RoundTripper
	if opts.SkipTLSVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiURL := base + kind.profile().apiBase
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		// instances may live under a path prefix like /radarr
		prefix := httphelpers.NormalizeBasePath(u.Path)
		u.Path = httphelpers.JoinBasePath(prefix, kind.profile().apiBase)
		apiURL = u.String()
	}
	return &Client{
		kind:    kind,
		baseURL: base,
		apiURL:  apiURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		testRun: opts.TestRun,
		name:    kind.AppName(),
	}
}

func (c *Client) Kind() Kind      { return c.kind }
func (c *Client) BaseURL() string { return c.baseURL }

// Name returns the instance name reported by system/status, or the
// application name before the first probe.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// Version returns the version reported by the last successful Probe.
func (c *Client) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Probe checks reachability via system/status and verifies the URL points at
// the expected application.
func (c *Client) Probe(ctx context.Context) (SystemStatus, error) {
	var status SystemStatus
	if err := c.get(ctx, "/system/status", nil, &status); err != nil {
		return status, err
	}

	c.mu.Lock()
	if status.InstanceName != "" {
		c.name = status.InstanceName
	}
	c.version = status.Version
	c.mu.Unlock()

	if !strings.EqualFold(status.AppName, string(c.kind)) {
		return status, errors.Wrapf(ErrWrongKind, "%s points at a %s instance", c.baseURL, status.AppName)
	}
	return status, nil
}

// MeetsMinVersion reports whether the probed version satisfies the minimum
// supported version for this application, and returns that minimum.
func (c *Client) MeetsMinVersion() (bool, string) {
	min := c.kind.profile().minVersion
	current := c.Version()
	if current == "" || min == "" {
		return true, min
	}
	cur, err := goversion.NewVersion(current)
	if err != nil {
		return true, min
	}
	req, err := goversion.NewVersion(min)
	if err != nil {
		return true, min
	}
	return cur.GreaterThanOrEqual(req), min
}

// CheckUILanguage verifies the UI language is English; queue status strings
// are matched verbatim and localized instances break every job.
func (c *Client) CheckUILanguage(ctx context.Context) error {
	var ui uiConfig
	if err := c.get(ctx, "/config/ui", nil, &ui); err != nil {
		return err
	}
	if ui.UILanguage > 1 {
		return errors.Errorf("%s (%s): UI language must be set to English", c.Name(), c.baseURL)
	}
	return nil
}

// RefreshMonitoredDownloads asks the instance to resync its queue with the
// download clients before the queue is read.
func (c *Client) RefreshMonitoredDownloads(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/command", map[string]any{"name": "RefreshMonitoredDownloads"})
}

// Queue returns the download queue. With full set, unknown (unmapped) items
// are included via the kind-specific include parameter.
func (c *Client) Queue(ctx context.Context, full bool) ([]QueueItem, error) {
	fullParam := c.kind.profile().fullQueueParam

	params := url.Values{}
	params.Set(fullParam, strconv.FormatBool(full))

	var count queuePage
	if err := c.get(ctx, "/queue", params, &count); err != nil {
		return nil, err
	}
	if count.TotalRecords == 0 {
		return []QueueItem{}, nil
	}

	params = url.Values{}
	params.Set("page", "1")
	params.Set("pageSize", strconv.Itoa(count.TotalRecords))
	if full {
		params.Set(fullParam, "true")
	}

	var page queuePage
	if err := c.get(ctx, "/queue", params, &page); err != nil {
		return nil, err
	}
	return page.Records, nil
}

// RemoveQueueItem deletes one queue entry, removing the download from the
// client and optionally blocklisting the release.
func (c *Client) RemoveQueueItem(ctx context.Context, queueID int64, blocklist bool) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/queue/%d", queueID), map[string]any{
		"removeFromClient": true,
		"blocklist":        blocklist,
	})
}

// IsMonitored checks whether the media item behind a queue entry is still
// monitored.
func (c *Client) IsMonitored(ctx context.Context, detailID int64) (bool, error) {
	var item monitoredItem
	path := fmt.Sprintf("/%s/%d", c.kind.profile().detailKey, detailID)
	if err := c.get(ctx, path, nil, &item); err != nil {
		return false, err
	}
	return item.Monitored, nil
}

// Series returns all series; only meaningful for Sonarr-shaped instances.
func (c *Client) Series(ctx context.Context) ([]Series, error) {
	var series []Series
	if err := c.get(ctx, "/series", nil, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// DownloadClients returns the download clients configured in the instance.
func (c *Client) DownloadClients(ctx context.Context) ([]DownloadClientInfo, error) {
	var clients []DownloadClientInfo
	if err := c.get(ctx, "/downloadclient", nil, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// DownloadClientImplementation resolves a download client name (as it appears
// on queue items) to its implementation, e.g. "QBittorrent". The list is
// cached after the first lookup.
func (c *Client) DownloadClientImplementation(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	impls := c.implementations
	c.mu.Unlock()

	if impls == nil {
		clients, err := c.DownloadClients(ctx)
		if err != nil {
			return "", err
		}
		impls = make(map[string]string, len(clients))
		for _, dc := range clients {
			impls[dc.Name] = dc.Implementation
		}
		c.mu.Lock()
		c.implementations = impls
		c.mu.Unlock()
	}
	return impls[name], nil
}

// RootFolders returns the configured media roots.
func (c *Client) RootFolders(ctx context.Context) ([]RootFolder, error) {
	var folders []RootFolder
	if err := c.get(ctx, "/rootfolder", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// MediaItems returns the full library list for path lookups. Only Radarr and
// Sonarr shaped instances expose a usable listing.
func (c *Client) MediaItems(ctx context.Context) ([]MediaItem, error) {
	var path string
	switch c.kind {
	case KindRadarr:
		path = "/movie"
	case KindSonarr:
		path = "/series"
	default:
		return nil, errors.Errorf("%s does not expose a media listing", c.kind.AppName())
	}
	var items []MediaItem
	if err := c.get(ctx, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ItemByPath resolves the library item whose path contains the given folder.
func (c *Client) ItemByPath(ctx context.Context, folder string) (*MediaItem, error) {
	items, err := c.MediaItems(ctx)
	if err != nil {
		return nil, err
	}
	folder = strings.TrimRight(folder, "/")
	for i := range items {
		itemPath := strings.TrimRight(items[i].Path, "/")
		if itemPath == "" {
			continue
		}
		if folder == itemPath || strings.HasPrefix(folder+"/", itemPath+"/") {
			return &items[i], nil
		}
	}
	return nil, nil
}

// RefreshItem asks the instance to rescan one library item from disk.
func (c *Client) RefreshItem(ctx context.Context, id int64) error {
	switch c.kind {
	case KindRadarr:
		return c.send(ctx, http.MethodPost, "/command", map[string]any{
			"name":     "RefreshMovie",
			"movieIds": []int64{id},
		})
	case KindSonarr:
		return c.send(ctx, http.MethodPost, "/command", map[string]any{
			"name":     "RefreshSeries",
			"seriesId": id,
		})
	}
	return errors.Errorf("%s does not support item refresh", c.kind.AppName())
}

// WantedTarget selects which wanted list to read.
type WantedTarget string

const (
	WantedMissing WantedTarget = "missing"
	WantedCutoff  WantedTarget = "cutoff"
)

// Wanted returns the wanted/missing or wanted/cutoff records, sorted by last
// search time so the longest-unsearched items come first.
func (c *Client) Wanted(ctx context.Context, target WantedTarget) ([]WantedRecord, error) {
	path := "/wanted/" + string(target)

	var count wantedPage
	if err := c.get(ctx, path, nil, &count); err != nil {
		return nil, err
	}
	if count.TotalRecords == 0 {
		return []WantedRecord{}, nil
	}

	params := url.Values{}
	params.Set("page", "1")
	params.Set("pageSize", strconv.Itoa(count.TotalRecords))
	params.Set("sortKey", c.kind.profile().detailKey+"s.lastSearchTime")

	var page wantedPage
	if err := c.get(ctx, path, params, &page); err != nil {
		return nil, err
	}
	return page.Records, nil
}

// Search triggers the kind-specific search command for the given media items.
func (c *Client) Search(ctx context.Context, detailIDs []int64) error {
	prof := c.kind.profile()
	if prof.searchCommand == "" {
		return errors.Wrapf(ErrActionRejected, "%s does not support searching", c.kind.AppName())
	}
	return c.send(ctx, http.MethodPost, "/command", map[string]any{
		"name":                 prof.searchCommand,
		prof.detailKey + "Ids": detailIDs,
	})
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.apiURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "could not create request")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req) //nolint:bodyclose // closed by DrainAndClose
	if err != nil {
		return errors.Wrapf(ErrUnreachable, "%s: %v", c.baseURL, err)
	}
	defer httphelpers.DrainAndClose(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.Wrapf(ErrAuthFailed, "%s: check the API key", c.baseURL)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Wrapf(ErrUnreachable, "%s: unexpected status %d: %s", c.baseURL, resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "could not decode response")
	}
	return nil
}

// send performs a mutating request. In test-run mode the request is logged
// and suppressed.
func (c *Client) send(ctx context.Context, method, path string, body any) error {
	if c.testRun {
		log.Info().
			Str("instance", c.Name()).
			Str("method", method).
			Str("path", path).
			Msg("Test run, not sending request")
		return nil
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "could not encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "could not create request")
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:bodyclose // closed by DrainAndClose
	if err != nil {
		return errors.Wrapf(ErrUnreachable, "%s: %v", c.baseURL, err)
	}
	defer httphelpers.DrainAndClose(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.Wrapf(ErrAuthFailed, "%s: check the API key", c.baseURL)
	case resp.StatusCode >= http.StatusBadRequest:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Wrapf(ErrActionRejected, "%s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("User-Agent", buildinfo.UserAgent)
	req.Header.Set("Accept", "application/json")
}
