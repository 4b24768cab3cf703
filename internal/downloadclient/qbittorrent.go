// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package downloadclient

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/avast/retry-go"
	goversion "github.com/hashicorp/go-version"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleanarr/internal/domain"
)

const qbitMinVersion = "4.3.0"

// QbitClient wraps one qBittorrent connection. The name must match the
// download client name configured inside the *arr instances, that is how
// queue items are mapped back to a connection.
type QbitClient struct {
	name    string
	baseURL string
	client  *qbt.Client
	testRun bool

	mu             sync.Mutex
	version        *goversion.Version
	bandwidthUsage float64
}

// Options tune download client behavior.
type Options struct {
	TestRun       bool
	SkipTLSVerify bool
}

// NewQbitClient creates a client from config. An empty name defaults to
// "qBittorrent", matching the *arr default.
func NewQbitClient(cfg domain.QbitConfig, opts Options) *QbitClient {
	name := cfg.Name
	if name == "" {
		name = "qBittorrent"
		log.Debug().Msg("No name set for qbittorrent client, assuming 'qBittorrent'")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	client := qbt.NewClient(qbt.Config{
		Host:          baseURL,
		Username:      cfg.Username,
		Password:      cfg.Password,
		TLSSkipVerify: opts.SkipTLSVerify,
		Timeout:       30,
	})

	return &QbitClient{
		name:    name,
		baseURL: baseURL,
		client:  client,
		testRun: opts.TestRun,
	}
}

func (c *QbitClient) Name() string    { return c.name }
func (c *QbitClient) BaseURL() string { return c.baseURL }

// RefreshSession re-authenticates, retrying once on failure.
func (c *QbitClient) RefreshSession(ctx context.Context) error {
	err := retry.Do(
		func() error {
			return c.client.LoginCtx(ctx)
		},
		retry.Attempts(2),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	return errors.Wrapf(err, "qbittorrent %s: login failed", c.name)
}

// SetupOptions tell Setup which one-time preparations are needed.
type SetupOptions struct {
	ProtectedTag    string
	ObsoleteTag     string
	NeedObsoleteTag bool
	BadFilesEnabled bool
	SlowEnabled     bool
}

// Setup verifies reachability and version and prepares tags and preferences.
func (c *QbitClient) Setup(ctx context.Context, opts SetupOptions) error {
	if err := c.RefreshSession(ctx); err != nil {
		return err
	}

	raw, err := c.client.GetAppVersionCtx(ctx)
	if err != nil {
		return errors.Wrapf(err, "qbittorrent %s: could not read version", c.name)
	}
	ver, err := goversion.NewVersion(strings.TrimPrefix(raw, "v"))
	if err != nil {
		return errors.Wrapf(err, "qbittorrent %s: could not parse version %q", c.name, raw)
	}

	c.mu.Lock()
	c.version = ver
	c.mu.Unlock()

	minVer := goversion.Must(goversion.NewVersion(qbitMinVersion))
	if ver.LessThan(minVer) {
		return errors.Errorf("qbittorrent %s: version %s is below the minimum %s", c.name, ver, qbitMinVersion)
	}
	if ver.LessThan(goversion.Must(goversion.NewVersion("5.0.0"))) {
		log.Info().Str("client", c.name).Msg("Tip: upgrading to qBittorrent v5.0.0 or newer reduces network overhead")
	}

	log.Info().Str("client", c.name).Str("url", c.baseURL).Str("version", ver.String()).Msg("qBittorrent OK")

	tags := []string{opts.ProtectedTag}
	if opts.NeedObsoleteTag {
		tags = append(tags, opts.ObsoleteTag)
	}
	if err := c.EnsureTags(ctx, tags); err != nil {
		return err
	}

	if opts.BadFilesEnabled {
		if err := c.EnsureUnwantedFolder(ctx); err != nil {
			return err
		}
	}

	if opts.SlowEnabled {
		limit, _, err := c.RefreshBandwidth(ctx)
		if err != nil {
			return err
		}
		if limit == 0 {
			log.Info().Str("client", c.name).
				Msg("Tip: set a global download limit in qBittorrent so slow-download removal pauses itself while your own bandwidth is saturated")
		}
	}

	return nil
}

// EnsureTags creates the given tags. Creating an existing tag is a no-op on
// the qBittorrent side.
func (c *QbitClient) EnsureTags(ctx context.Context, tags []string) error {
	if c.testRun {
		log.Info().Str("client", c.name).Strs("tags", tags).Msg("Test run, not creating tags")
		return nil
	}
	if err := c.client.CreateTagsCtx(ctx, tags); err != nil {
		return errors.Wrapf(err, "qbittorrent %s: could not create tags", c.name)
	}
	return nil
}

// EnsureUnwantedFolder enables the .unwanted folder preference so files
// marked as do-not-download are kept out of import paths.
func (c *QbitClient) EnsureUnwantedFolder(ctx context.Context) error {
	if c.testRun {
		log.Info().Str("client", c.name).Msg("Test run, not changing preferences")
		return nil
	}
	if err := c.client.SetPreferencesCtx(ctx, map[string]any{"use_unwanted_folder": true}); err != nil {
		return errors.Wrapf(err, "qbittorrent %s: could not set use_unwanted_folder", c.name)
	}
	return nil
}

// ProbeConnected reports whether the client itself has network connectivity.
func (c *QbitClient) ProbeConnected(ctx context.Context) (bool, error) {
	md, err := c.client.SyncMainDataCtx(ctx, 0)
	if err != nil {
		return false, errors.Wrapf(err, "qbittorrent %s: maindata failed", c.name)
	}
	return md.ServerState.ConnectionStatus != "disconnected", nil
}

// Items returns torrents, optionally limited to the given hashes.
func (c *QbitClient) Items(ctx context.Context, hashes []string) ([]qbt.Torrent, error) {
	opts := qbt.TorrentFilterOptions{}
	if len(hashes) > 0 {
		lowered := make([]string, len(hashes))
		for i, h := range hashes {
			lowered[i] = strings.ToLower(h)
		}
		opts.Hashes = lowered
	}
	torrents, err := c.client.GetTorrentsCtx(ctx, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "qbittorrent %s: could not list torrents", c.name)
	}
	return torrents, nil
}

// DownloadedBytes returns the precise completed byte count for one torrent.
func (c *QbitClient) DownloadedBytes(ctx context.Context, hash string) (int64, error) {
	torrents, err := c.Items(ctx, []string{hash})
	if err != nil {
		return 0, err
	}
	if len(torrents) == 0 {
		return 0, errors.Errorf("qbittorrent %s: torrent %s not found", c.name, hash)
	}
	return torrents[0].Completed, nil
}

// Files returns the file list of a torrent.
func (c *QbitClient) Files(ctx context.Context, hash string) (*qbt.TorrentFiles, error) {
	files, err := c.client.GetFilesInformationCtx(ctx, strings.ToLower(hash))
	if err != nil {
		return nil, errors.Wrapf(err, "qbittorrent %s: could not read files of %s", c.name, hash)
	}
	return files, nil
}

// SetFilePriority sets the priority of the given file indexes; 0 marks them
// as do-not-download.
func (c *QbitClient) SetFilePriority(ctx context.Context, hash string, fileIDs []int, priority int) error {
	if c.testRun {
		log.Info().Str("client", c.name).Str("hash", hash).Ints("files", fileIDs).
			Msg("Test run, not changing file priorities")
		return nil
	}
	ids := make([]string, len(fileIDs))
	for i, id := range fileIDs {
		ids[i] = strconv.Itoa(id)
	}
	if err := c.client.SetFilePriorityCtx(ctx, strings.ToLower(hash), strings.Join(ids, "|"), priority); err != nil {
		return errors.Wrapf(err, "qbittorrent %s: could not set file priority on %s", c.name, hash)
	}
	return nil
}

// ApplyTag adds a tag to the given torrents. Unknown hashes are ignored by
// qBittorrent.
func (c *QbitClient) ApplyTag(ctx context.Context, hashes []string, tag string) error {
	if c.testRun {
		log.Info().Str("client", c.name).Str("tag", tag).Strs("hashes", hashes).
			Msg("Test run, not tagging")
		return nil
	}
	lowered := make([]string, len(hashes))
	for i, h := range hashes {
		lowered[i] = strings.ToLower(h)
	}
	if err := c.client.AddTagsCtx(ctx, lowered, tag); err != nil {
		return errors.Wrapf(err, "qbittorrent %s: could not add tag %s", c.name, tag)
	}
	return nil
}

// RefreshBandwidth reads the global rate limit and current speed and caches
// the resulting utilization. With no limit set the utilization is zero.
func (c *QbitClient) RefreshBandwidth(ctx context.Context) (limit int64, speed int64, err error) {
	md, err := c.client.SyncMainDataCtx(ctx, 0)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "qbittorrent %s: maindata failed", c.name)
	}
	limit = md.ServerState.DlRateLimit
	speed = md.ServerState.DlInfoSpeed

	usage := 0.0
	if limit > 0 {
		usage = float64(speed) / float64(limit)
	}
	c.mu.Lock()
	c.bandwidthUsage = usage
	c.mu.Unlock()
	return limit, speed, nil
}

// BandwidthUtilization returns the utilization cached by the last
// RefreshBandwidth call.
func (c *QbitClient) BandwidthUtilization() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bandwidthUsage
}

func (c *QbitClient) supportsPrivateField() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version != nil && c.version.GreaterThanOrEqual(goversion.Must(goversion.NewVersion("5.0.0")))
}

// ProtectedAndPrivate scans all torrents and returns the uppercased hashes
// carrying the protected tag, plus the private-tracker torrents when
// needPrivate is set. Old qBittorrent versions lack the private field on the
// torrent list and need a properties call per torrent.
func (c *QbitClient) ProtectedAndPrivate(ctx context.Context, protectedTag string, needPrivate bool) (protected, private []string, err error) {
	torrents, err := c.Items(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	for _, t := range torrents {
		if hasTag(t.Tags, protectedTag) {
			protected = append(protected, strings.ToUpper(t.Hash))
		}

		if !needPrivate {
			continue
		}
		if c.supportsPrivateField() {
			if t.Private {
				private = append(private, strings.ToUpper(t.Hash))
			}
			continue
		}
		props, err := c.client.GetTorrentPropertiesCtx(ctx, t.Hash)
		if err != nil {
			log.Error().Err(err).Str("client", c.name).Str("hash", t.Hash).
				Msg("Torrent vanished while checking private flag, consider upgrading qBittorrent to v5.0.4 or newer")
			continue
		}
		if props.IsPrivate {
			private = append(private, strings.ToUpper(t.Hash))
		}
	}
	return protected, private, nil
}

func hasTag(tags, tag string) bool {
	for _, t := range strings.Split(tags, ",") {
		if strings.TrimSpace(t) == tag {
			return true
		}
	}
	return false
}
