// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Handling selects what happens to a download once a job has condemned it.
type Handling string

const (
	HandlingRemove        Handling = "remove"
	HandlingSkip          Handling = "skip"
	HandlingTagAsObsolete Handling = "tag_as_obsolete"
)

func (h Handling) Valid() bool {
	switch h {
	case HandlingRemove, HandlingSkip, HandlingTagAsObsolete:
		return true
	}
	return false
}

// Job names double as config keys and strike-tracker namespaces.
const (
	JobRemoveStalled         = "removeStalled"
	JobRemoveFailedDownloads = "removeFailedDownloads"
	JobRemoveMetadataMissing = "removeMetadataMissing"
	JobRemoveFailedImports   = "removeFailedImports"
	JobRemoveMissingFiles    = "removeMissingFiles"
	JobRemoveOrphans         = "removeOrphans"
	JobRemoveUnmonitored     = "removeUnmonitored"
	JobRemoveSlow            = "removeSlow"
	JobRemoveBadFiles        = "removeBadFiles"
	JobSearchMissing         = "searchMissing"
	JobSearchUnmetCutoff     = "searchUnmetCutoff"
)

// General holds engine-wide settings.
type General struct {
	LogLevel               string   `mapstructure:"logLevel"`
	LogPath                string   `mapstructure:"logPath"`
	LogMaxSize             int      `mapstructure:"logMaxSize"`
	LogMaxBackups          int      `mapstructure:"logMaxBackups"`
	TimerMinutes           float64  `mapstructure:"timer"`
	TestRun                bool     `mapstructure:"testRun"`
	SSLVerification        bool     `mapstructure:"sslVerification"`
	IgnoredDownloadClients []string `mapstructure:"ignoredDownloadClients"`
	PrivateTrackerHandling Handling `mapstructure:"privateTrackerHandling"`
	PublicTrackerHandling  Handling `mapstructure:"publicTrackerHandling"`
	ObsoleteTag            string   `mapstructure:"obsoleteTag"`
	ProtectedTag           string   `mapstructure:"protectedTag"`
}

// JobDefaults are fallbacks applied to every job that leaves a knob unset.
type JobDefaults struct {
	MaxStrikes             int      `mapstructure:"maxStrikes"`
	MinSpeed               int      `mapstructure:"minSpeed"`
	KeepArchives           bool     `mapstructure:"keepArchives"`
	MaxConcurrentSearches  int      `mapstructure:"maxConcurrentSearches"`
	MinDaysBetweenSearches int      `mapstructure:"minDaysBetweenSearches"`
	MessagePatterns        []string `mapstructure:"messagePatterns"`
}

// JobConfig configures a single removal or search job. In YAML a job may be
// given as a bare boolean, which the loader expands to {enabled: <bool>}.
type JobConfig struct {
	Enabled                bool     `mapstructure:"enabled"`
	MaxStrikes             int      `mapstructure:"maxStrikes"`
	MinSpeed               int      `mapstructure:"minSpeed"`
	KeepArchives           bool     `mapstructure:"keepArchives"`
	MaxConcurrentSearches  int      `mapstructure:"maxConcurrentSearches"`
	MinDaysBetweenSearches int      `mapstructure:"minDaysBetweenSearches"`
	MessagePatterns        []string `mapstructure:"messagePatterns"`
}

// Jobs enumerates every job the engine knows.
type Jobs struct {
	RemoveStalled         JobConfig `mapstructure:"removeStalled"`
	RemoveFailedDownloads JobConfig `mapstructure:"removeFailedDownloads"`
	RemoveMetadataMissing JobConfig `mapstructure:"removeMetadataMissing"`
	RemoveFailedImports   JobConfig `mapstructure:"removeFailedImports"`
	RemoveMissingFiles    JobConfig `mapstructure:"removeMissingFiles"`
	RemoveOrphans         JobConfig `mapstructure:"removeOrphans"`
	RemoveUnmonitored     JobConfig `mapstructure:"removeUnmonitored"`
	RemoveSlow            JobConfig `mapstructure:"removeSlow"`
	RemoveBadFiles        JobConfig `mapstructure:"removeBadFiles"`
	SearchMissing         JobConfig `mapstructure:"searchMissing"`
	SearchUnmetCutoff     JobConfig `mapstructure:"searchUnmetCutoff"`
}

// AnyRemovalEnabled reports whether at least one removal job is switched on.
func (j Jobs) AnyRemovalEnabled() bool {
	for _, jc := range []JobConfig{
		j.RemoveStalled, j.RemoveFailedDownloads, j.RemoveMetadataMissing,
		j.RemoveFailedImports, j.RemoveMissingFiles, j.RemoveOrphans,
		j.RemoveUnmonitored, j.RemoveSlow, j.RemoveBadFiles,
	} {
		if jc.Enabled {
			return true
		}
	}
	return false
}

// InstanceConfig identifies one *arr instance.
type InstanceConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"baseUrl"`
	APIKey  string `mapstructure:"apiKey"`
}

// Instances groups configured curator instances by kind.
type Instances struct {
	Radarr   []InstanceConfig `mapstructure:"radarr"`
	Sonarr   []InstanceConfig `mapstructure:"sonarr"`
	Lidarr   []InstanceConfig `mapstructure:"lidarr"`
	Readarr  []InstanceConfig `mapstructure:"readarr"`
	Whisparr []InstanceConfig `mapstructure:"whisparr"`
}

func (i Instances) Count() int {
	return len(i.Radarr) + len(i.Sonarr) + len(i.Lidarr) + len(i.Readarr) + len(i.Whisparr)
}

// QbitConfig configures one qBittorrent connection. Name must match the
// download client name configured inside the *arr instance.
type QbitConfig struct {
	Name     string `mapstructure:"name"`
	BaseURL  string `mapstructure:"baseUrl"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SabnzbdConfig configures one SABnzbd connection.
type SabnzbdConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"baseUrl"`
	APIKey  string `mapstructure:"apiKey"`
}

type DownloadClients struct {
	Qbittorrent []QbitConfig    `mapstructure:"qbittorrent"`
	Sabnzbd     []SabnzbdConfig `mapstructure:"sabnzbd"`
}

// Metrics configures the optional HTTP endpoint serving Prometheus metrics
// and the health probe.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Deletion configures the on-disk deletion watcher.
type Deletion struct {
	Enabled      bool    `mapstructure:"enabled"`
	SettleGraceS float64 `mapstructure:"settleGraceSeconds"`
}

// Config is the root configuration tree.
type Config struct {
	General         General         `mapstructure:"general"`
	JobDefaults     JobDefaults     `mapstructure:"jobDefaults"`
	Jobs            Jobs            `mapstructure:"jobs"`
	Instances       Instances       `mapstructure:"instances"`
	DownloadClients DownloadClients `mapstructure:"downloadClients"`
	Metrics         Metrics         `mapstructure:"metrics"`
	Deletion        Deletion        `mapstructure:"deletion"`
}

// ApplyJobDefaults fills unset per-job knobs from the defaults block. Only
// the jobs that use a knob receive its default; jobs that act immediately
// never inherit a strike count.
func (c *Config) ApplyJobDefaults() {
	d := c.JobDefaults

	for _, jc := range []*JobConfig{&c.Jobs.RemoveStalled, &c.Jobs.RemoveMetadataMissing, &c.Jobs.RemoveSlow} {
		if jc.MaxStrikes == 0 {
			jc.MaxStrikes = d.MaxStrikes
		}
	}
	if c.Jobs.RemoveSlow.MinSpeed == 0 {
		c.Jobs.RemoveSlow.MinSpeed = d.MinSpeed
	}
	if !c.Jobs.RemoveBadFiles.KeepArchives {
		c.Jobs.RemoveBadFiles.KeepArchives = d.KeepArchives
	}
	if len(c.Jobs.RemoveFailedImports.MessagePatterns) == 0 {
		c.Jobs.RemoveFailedImports.MessagePatterns = d.MessagePatterns
	}
	for _, jc := range []*JobConfig{&c.Jobs.SearchMissing, &c.Jobs.SearchUnmetCutoff} {
		if jc.MaxConcurrentSearches == 0 {
			jc.MaxConcurrentSearches = d.MaxConcurrentSearches
		}
		if jc.MinDaysBetweenSearches == 0 {
			jc.MinDaysBetweenSearches = d.MinDaysBetweenSearches
		}
	}
}

// Validate checks the tree for configuration mistakes that would otherwise
// surface as confusing runtime failures.
func (c *Config) Validate() error {
	if c.General.TimerMinutes <= 0 {
		return errors.New("general.timer must be greater than zero")
	}
	if !c.General.PrivateTrackerHandling.Valid() {
		return errors.Errorf("general.privateTrackerHandling: unknown handling %q", c.General.PrivateTrackerHandling)
	}
	if !c.General.PublicTrackerHandling.Valid() {
		return errors.Errorf("general.publicTrackerHandling: unknown handling %q", c.General.PublicTrackerHandling)
	}
	if (c.General.PrivateTrackerHandling == HandlingTagAsObsolete || c.General.PublicTrackerHandling == HandlingTagAsObsolete) &&
		strings.TrimSpace(c.General.ObsoleteTag) == "" {
		return errors.New("general.obsoleteTag must be set when tag_as_obsolete handling is used")
	}
	if c.Instances.Count() == 0 {
		return errors.New("at least one instance must be configured")
	}

	seen := map[string]struct{}{}
	check := func(kind string, list []InstanceConfig) error {
		for i, inst := range list {
			if strings.TrimSpace(inst.BaseURL) == "" {
				return errors.Errorf("instances.%s[%d]: baseUrl is required", kind, i)
			}
			if strings.TrimSpace(inst.APIKey) == "" {
				return errors.Errorf("instances.%s[%d]: apiKey is required", kind, i)
			}
			key := fmt.Sprintf("%s|%s", kind, strings.TrimRight(inst.BaseURL, "/"))
			if _, dup := seen[key]; dup {
				return errors.Errorf("instances.%s[%d]: duplicate baseUrl %s", kind, i, inst.BaseURL)
			}
			seen[key] = struct{}{}
		}
		return nil
	}
	if err := check("radarr", c.Instances.Radarr); err != nil {
		return err
	}
	if err := check("sonarr", c.Instances.Sonarr); err != nil {
		return err
	}
	if err := check("lidarr", c.Instances.Lidarr); err != nil {
		return err
	}
	if err := check("readarr", c.Instances.Readarr); err != nil {
		return err
	}
	if err := check("whisparr", c.Instances.Whisparr); err != nil {
		return err
	}

	names := map[string]struct{}{}
	for i, dc := range c.DownloadClients.Qbittorrent {
		if strings.TrimSpace(dc.Name) == "" || strings.TrimSpace(dc.BaseURL) == "" {
			return errors.Errorf("downloadClients.qbittorrent[%d]: name and baseUrl are required", i)
		}
		if _, dup := names[dc.Name]; dup {
			return errors.Errorf("downloadClients.qbittorrent[%d]: duplicate name %q", i, dc.Name)
		}
		names[dc.Name] = struct{}{}
	}
	for i, dc := range c.DownloadClients.Sabnzbd {
		if strings.TrimSpace(dc.Name) == "" || strings.TrimSpace(dc.BaseURL) == "" {
			return errors.Errorf("downloadClients.sabnzbd[%d]: name and baseUrl are required", i)
		}
		if _, dup := names[dc.Name]; dup {
			return errors.Errorf("downloadClients.sabnzbd[%d]: duplicate name %q", i, dc.Name)
		}
		names[dc.Name] = struct{}{}
	}

	if c.Jobs.RemoveSlow.Enabled && c.Jobs.RemoveSlow.MinSpeed <= 0 {
		return errors.New("jobs.removeSlow: minSpeed must be greater than zero")
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return errors.Errorf("metrics.port: invalid port %d", c.Metrics.Port)
	}
	return nil
}
