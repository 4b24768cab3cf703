// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"

	"github.com/autobrr/cleanarr/internal/arr"
	"github.com/autobrr/cleanarr/internal/domain"
)

// Run bundles everything a job needs for one curator in one cycle.
type Run struct {
	Curator CuratorGateway
	Tracker *Tracker
	Clients *ClientSet
	Fetcher *Fetcher
	General domain.General
}

// Job is one removal rule. Predicate is a pure filter over the queue; the
// engine wraps it with protection, strike filtering and dispatch.
type Job interface {
	Name() string
	Scope() Scope
	Blocklist() bool
	// MaxStrikes returns how many consecutive detections are tolerated
	// before action; 0 acts immediately.
	MaxStrikes() int
	Predicate(ctx context.Context, run *Run, queue []arr.QueueItem) ([]Offender, error)
}
