// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/autobrr/cleanarr/internal/domain"
)

const envPrefix = "CLEANARR"

// Load reads the YAML config from configPath (a file, or a directory holding
// config.yaml) and overlays CLEANARR__SECTION__KEY environment variables on
// top of it.
func Load(configPath string) (*domain.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil && info.IsDir() {
			v.SetConfigFile(filepath.Join(configPath, "config.yaml"))
		} else {
			v.SetConfigFile(configPath)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/config")
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "could not read config file")
		}
	}

	cfg := &domain.Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		boolToJobConfigHook(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal config")
	}

	cfg.ApplyJobDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.logLevel", "info")
	v.SetDefault("general.logMaxSize", 50)
	v.SetDefault("general.logMaxBackups", 3)
	v.SetDefault("general.timer", 10)
	v.SetDefault("general.testRun", false)
	v.SetDefault("general.sslVerification", true)
	v.SetDefault("general.privateTrackerHandling", string(domain.HandlingRemove))
	v.SetDefault("general.publicTrackerHandling", string(domain.HandlingRemove))
	v.SetDefault("general.obsoleteTag", "Obsolete")
	v.SetDefault("general.protectedTag", "Keep")

	v.SetDefault("jobDefaults.maxStrikes", 3)
	v.SetDefault("jobDefaults.minSpeed", 100)
	v.SetDefault("jobDefaults.keepArchives", false)
	v.SetDefault("jobDefaults.maxConcurrentSearches", 3)
	v.SetDefault("jobDefaults.minDaysBetweenSearches", 7)
	v.SetDefault("jobDefaults.messagePatterns", []string{"*"})

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.host", "127.0.0.1")
	v.SetDefault("metrics.port", 9811)

	v.SetDefault("deletion.enabled", false)
	v.SetDefault("deletion.settleGraceSeconds", 5)
}

// boolToJobConfigHook lets job entries be written as a bare boolean in YAML,
// expanding `removeStalled: true` to `removeStalled: {enabled: true}`.
func boolToJobConfigHook() mapstructure.DecodeHookFuncType {
	jobConfigType := reflect.TypeOf(domain.JobConfig{})

	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != jobConfigType || from.Kind() != reflect.Bool {
			return data, nil
		}
		return map[string]any{"enabled": data}, nil
	}
}

// DefaultConfigYAML is the annotated starter config written by
// `cleanarr generate-config`.
const DefaultConfigYAML = `# cleanarr configuration

general:
  logLevel: info
  # logPath: /config/logs/cleanarr.log
  timer: 10            # minutes between cleanup cycles
  testRun: false       # log actions without performing them
  sslVerification: true
  privateTrackerHandling: remove   # remove | skip | tag_as_obsolete
  publicTrackerHandling: remove
  obsoleteTag: Obsolete
  protectedTag: Keep
  ignoredDownloadClients: []

jobDefaults:
  maxStrikes: 3
  minSpeed: 100              # KB/s, used by removeSlow
  maxConcurrentSearches: 3
  minDaysBetweenSearches: 7
  messagePatterns: ["*"]

# Jobs accept either a bare boolean or a block with per-job overrides.
jobs:
  removeStalled: true
  removeFailedDownloads: true
  removeMetadataMissing: true
  removeFailedImports:
    enabled: true
    messagePatterns: ["*"]
  removeMissingFiles: true
  removeOrphans: true
  removeUnmonitored: true
  removeSlow:
    enabled: true
    minSpeed: 100
  removeBadFiles:
    enabled: true
    keepArchives: false
  searchMissing: false
  searchUnmetCutoff: false

instances:
  radarr:
    - name: Radarr
      baseUrl: http://localhost:7878
      apiKey: ""
  sonarr: []
  lidarr: []
  readarr: []
  whisparr: []

downloadClients:
  qbittorrent:
    - name: qBittorrent     # must match the client name configured in *arr
      baseUrl: http://localhost:8080
      username: admin
      password: ""
  sabnzbd: []

metrics:
  enabled: false
  host: 127.0.0.1
  port: 9811

deletion:
  enabled: false
  settleGraceSeconds: 5
`

// WriteDefaultConfig writes the starter config to path, refusing to clobber
// an existing file.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(err, "could not create config directory")
	}
	return os.WriteFile(path, []byte(DefaultConfigYAML), 0o600)
}
