// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package app assembles the configured instances, download clients and
// background services into one runnable unit.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/cleanarr/internal/arr"
	"github.com/autobrr/cleanarr/internal/deletion"
	"github.com/autobrr/cleanarr/internal/domain"
	"github.com/autobrr/cleanarr/internal/downloadclient"
	"github.com/autobrr/cleanarr/internal/janitor"
	"github.com/autobrr/cleanarr/internal/metrics"
)

// App owns every long-running component of a cleanarr process.
type App struct {
	cfg *domain.Config

	arrs      []*arr.Client
	downloads *downloadclient.Set
	clients   *janitor.ClientSet
	curators  []*janitor.Curator
	engine    *janitor.Engine

	metricsManager *metrics.Manager
	metricsServer  *metrics.Server
}

// New builds the object graph from config. Nothing talks to the network yet;
// that happens in Setup.
func New(cfg *domain.Config) *App {
	a := &App{cfg: cfg}

	var stats janitor.Stats = janitor.NoopStats{}
	if cfg.Metrics.Enabled {
		a.metricsManager = metrics.NewManager()
		a.metricsServer = metrics.NewServer(a.metricsManager, cfg.Metrics.Host, cfg.Metrics.Port)
		stats = a.metricsManager
	}

	arrOpts := arr.Options{
		SkipTLSVerify: !cfg.General.SSLVerification,
		TestRun:       cfg.General.TestRun,
	}
	add := func(kind arr.Kind, instances []domain.InstanceConfig) {
		for _, inst := range instances {
			client := arr.NewClient(kind, inst.BaseURL, inst.APIKey, arrOpts)
			a.arrs = append(a.arrs, client)
			a.curators = append(a.curators, janitor.NewCurator(client, cfg.General.IgnoredDownloadClients, stats))
		}
	}
	add(arr.KindRadarr, cfg.Instances.Radarr)
	add(arr.KindSonarr, cfg.Instances.Sonarr)
	add(arr.KindLidarr, cfg.Instances.Lidarr)
	add(arr.KindReadarr, cfg.Instances.Readarr)
	add(arr.KindWhisparr, cfg.Instances.Whisparr)

	a.downloads = downloadclient.NewSet(cfg.DownloadClients, downloadclient.Options{
		TestRun:       cfg.General.TestRun,
		SkipTLSVerify: !cfg.General.SSLVerification,
	})

	a.clients = &janitor.ClientSet{}
	for _, qc := range a.downloads.Qbit {
		a.clients.Torrents = append(a.clients.Torrents, qc)
	}
	for _, sc := range a.downloads.Sabnzbd {
		a.clients.Usenet = append(a.clients.Usenet, sc)
	}

	a.engine = janitor.NewEngine(cfg, a.curators, a.clients, stats)
	return a
}

// Setup verifies every configured connection before the first cycle, so
// misconfiguration surfaces at startup instead of as mid-cycle noise.
func (a *App) Setup(ctx context.Context) error {
	for _, client := range a.arrs {
		status, err := client.Probe(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Str("instance", client.Name()).
			Str("url", client.BaseURL()).
			Str("version", status.Version).
			Msg("Connected to instance")

		if ok, minVersion := client.MeetsMinVersion(); !ok {
			log.Warn().
				Str("instance", client.Name()).
				Str("version", status.Version).
				Str("minVersion", minVersion).
				Msg("Instance is older than the supported minimum, some jobs may misbehave")
		}
		if err := client.CheckUILanguage(ctx); err != nil {
			return err
		}
		a.checkDownloadClientMapping(ctx, client)
	}

	needObsoleteTag := a.cfg.General.PrivateTrackerHandling == domain.HandlingTagAsObsolete ||
		a.cfg.General.PublicTrackerHandling == domain.HandlingTagAsObsolete
	return a.downloads.Setup(ctx, downloadclient.SetupOptions{
		ProtectedTag:    a.cfg.General.ProtectedTag,
		ObsoleteTag:     a.cfg.General.ObsoleteTag,
		NeedObsoleteTag: needObsoleteTag,
		BadFilesEnabled: a.cfg.Jobs.RemoveBadFiles.Enabled,
		SlowEnabled:     a.cfg.Jobs.RemoveSlow.Enabled,
	})
}

// checkDownloadClientMapping warns when the instance uses a download client
// this process has no connection for. Jobs still run, but fall back to
// coarser queue data and plain removal for those downloads.
func (a *App) checkDownloadClientMapping(ctx context.Context, client *arr.Client) {
	infos, err := client.DownloadClients(ctx)
	if err != nil {
		log.Warn().Err(err).
			Str("instance", client.Name()).
			Msg("Could not list the instance's download clients")
		return
	}
	for _, info := range infos {
		if !info.Enable {
			continue
		}
		ignored := false
		for _, name := range a.cfg.General.IgnoredDownloadClients {
			if name == info.Name {
				ignored = true
				break
			}
		}
		if ignored {
			continue
		}

		switch info.Implementation {
		case "QBittorrent":
			if _, ok := a.downloads.QbitByName(info.Name); !ok {
				log.Warn().
					Str("instance", client.Name()).
					Str("client", info.Name).
					Msg("No qBittorrent connection configured for this download client, its torrents get plain removal only")
			}
		case "Sabnzbd":
			if _, ok := a.downloads.SabnzbdByName(info.Name); !ok {
				log.Warn().
					Str("instance", client.Name()).
					Str("client", info.Name).
					Msg("No SABnzbd connection configured for this download client")
			}
		}
	}
}

// Run starts the engine and the optional metrics server and deletion watcher,
// and blocks until the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.engine.Run(ctx)
	})

	if a.metricsServer != nil {
		g.Go(func() error {
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.metricsServer.Shutdown(shutdownCtx)
		})
	}

	if a.cfg.Deletion.Enabled {
		var gateways []deletion.Gateway
		for _, client := range a.arrs {
			gateways = append(gateways, client)
		}
		grace := time.Duration(a.cfg.Deletion.SettleGraceS * float64(time.Second))
		watcher, err := deletion.NewWatcher(ctx, gateways, grace)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	return g.Wait()
}

// RunOnce executes a single cleanup cycle and returns; used for cron-style
// deployments.
func (a *App) RunOnce(ctx context.Context) {
	a.engine.RunOnce(ctx)
}
