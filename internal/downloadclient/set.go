// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package downloadclient

import (
	"context"

	"github.com/autobrr/cleanarr/internal/domain"
)

// Set holds every configured download client connection, addressable by the
// exact name the *arr instances use for them.
type Set struct {
	Qbit    []*QbitClient
	Sabnzbd []*SabnzbdClient
}

// NewSet builds clients for every configured connection.
func NewSet(cfg domain.DownloadClients, opts Options) *Set {
	s := &Set{}
	for _, qc := range cfg.Qbittorrent {
		s.Qbit = append(s.Qbit, NewQbitClient(qc, opts))
	}
	for _, sc := range cfg.Sabnzbd {
		s.Sabnzbd = append(s.Sabnzbd, NewSabnzbdClient(sc))
	}
	return s
}

// QbitByName returns the qBittorrent connection with the given name.
func (s *Set) QbitByName(name string) (*QbitClient, bool) {
	for _, c := range s.Qbit {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// SabnzbdByName returns the SABnzbd connection with the given name.
func (s *Set) SabnzbdByName(name string) (*SabnzbdClient, bool) {
	for _, c := range s.Sabnzbd {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Setup prepares every connection; the first failure aborts.
func (s *Set) Setup(ctx context.Context, qbitOpts SetupOptions) error {
	for _, c := range s.Qbit {
		if err := c.Setup(ctx, qbitOpts); err != nil {
			return err
		}
	}
	for _, c := range s.Sabnzbd {
		if err := c.Setup(ctx); err != nil {
			return err
		}
	}
	return nil
}
