// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		General: General{
			TimerMinutes:           10,
			PrivateTrackerHandling: HandlingRemove,
			PublicTrackerHandling:  HandlingRemove,
		},
		Instances: Instances{
			Radarr: []InstanceConfig{{Name: "Radarr", BaseURL: "http://localhost:7878", APIKey: "key"}},
		},
	}
}

func TestApplyJobDefaultsScoping(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.JobDefaults = JobDefaults{
		MaxStrikes:             5,
		MinSpeed:               150,
		KeepArchives:           true,
		MaxConcurrentSearches:  4,
		MinDaysBetweenSearches: 14,
		MessagePatterns:        []string{"*sample*"},
	}
	cfg.ApplyJobDefaults()

	assert.Equal(t, 5, cfg.Jobs.RemoveStalled.MaxStrikes)
	assert.Equal(t, 5, cfg.Jobs.RemoveMetadataMissing.MaxStrikes)
	assert.Equal(t, 5, cfg.Jobs.RemoveSlow.MaxStrikes)
	assert.Zero(t, cfg.Jobs.RemoveFailedDownloads.MaxStrikes, "immediate jobs never inherit strikes")
	assert.Zero(t, cfg.Jobs.RemoveMissingFiles.MaxStrikes)

	assert.Equal(t, 150, cfg.Jobs.RemoveSlow.MinSpeed)
	assert.Zero(t, cfg.Jobs.RemoveStalled.MinSpeed)

	assert.True(t, cfg.Jobs.RemoveBadFiles.KeepArchives)
	assert.Equal(t, []string{"*sample*"}, cfg.Jobs.RemoveFailedImports.MessagePatterns)

	assert.Equal(t, 4, cfg.Jobs.SearchMissing.MaxConcurrentSearches)
	assert.Equal(t, 14, cfg.Jobs.SearchUnmetCutoff.MinDaysBetweenSearches)
}

func TestApplyJobDefaultsKeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.JobDefaults = JobDefaults{MaxStrikes: 5, MinSpeed: 150}
	cfg.Jobs.RemoveStalled.MaxStrikes = 1
	cfg.Jobs.RemoveSlow.MinSpeed = 80
	cfg.ApplyJobDefaults()

	assert.Equal(t, 1, cfg.Jobs.RemoveStalled.MaxStrikes)
	assert.Equal(t, 80, cfg.Jobs.RemoveSlow.MinSpeed)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := validConfig()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		errPart string
	}{
		{
			name:    "timer must be positive",
			mutate:  func(c *Config) { c.General.TimerMinutes = 0 },
			errPart: "general.timer",
		},
		{
			name:    "unknown private handling",
			mutate:  func(c *Config) { c.General.PrivateTrackerHandling = "obliterate" },
			errPart: "privateTrackerHandling",
		},
		{
			name: "obsolete tag required for tagging",
			mutate: func(c *Config) {
				c.General.PublicTrackerHandling = HandlingTagAsObsolete
				c.General.ObsoleteTag = "  "
			},
			errPart: "obsoleteTag",
		},
		{
			name:    "no instances",
			mutate:  func(c *Config) { c.Instances = Instances{} },
			errPart: "at least one instance",
		},
		{
			name:    "instance without baseUrl",
			mutate:  func(c *Config) { c.Instances.Radarr[0].BaseURL = "" },
			errPart: "baseUrl is required",
		},
		{
			name:    "instance without apiKey",
			mutate:  func(c *Config) { c.Instances.Radarr[0].APIKey = "" },
			errPart: "apiKey is required",
		},
		{
			name: "duplicate instance baseUrl",
			mutate: func(c *Config) {
				c.Instances.Radarr = append(c.Instances.Radarr, InstanceConfig{
					BaseURL: "http://localhost:7878/", APIKey: "other",
				})
			},
			errPart: "duplicate baseUrl",
		},
		{
			name: "duplicate download client name across types",
			mutate: func(c *Config) {
				c.DownloadClients.Qbittorrent = []QbitConfig{{Name: "main", BaseURL: "http://a:8080"}}
				c.DownloadClients.Sabnzbd = []SabnzbdConfig{{Name: "main", BaseURL: "http://b:8080"}}
			},
			errPart: "duplicate name",
		},
		{
			name: "slow job needs a speed floor",
			mutate: func(c *Config) {
				c.Jobs.RemoveSlow = JobConfig{Enabled: true}
			},
			errPart: "minSpeed",
		},
		{
			name: "metrics port range",
			mutate: func(c *Config) {
				c.Metrics = Metrics{Enabled: true, Port: 70000}
			},
			errPart: "metrics.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestAnyRemovalEnabled(t *testing.T) {
	t.Parallel()

	var jobs Jobs
	assert.False(t, jobs.AnyRemovalEnabled())

	jobs.SearchMissing.Enabled = true
	assert.False(t, jobs.AnyRemovalEnabled(), "search jobs do not count")

	jobs.RemoveOrphans.Enabled = true
	assert.True(t, jobs.AnyRemovalEnabled())
}
