// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import (
	"context"
	"regexp"
	"strings"

	"github.com/autobrr/cleanarr/internal/arr"
	"github.com/autobrr/cleanarr/internal/domain"
)

var importStates = map[string]struct{}{
	"importPending": {},
	"importFailed":  {},
	"importBlocked": {},
}

// FailedImportsJob removes completed downloads the curator cannot import.
// Which import warnings condemn a download is controlled by glob patterns
// over the status messages; the matching messages are kept as diagnostics.
type FailedImportsJob struct {
	jobSpec
	patterns []string
}

func NewFailedImportsJob(cfg domain.JobConfig) *FailedImportsJob {
	return &FailedImportsJob{
		jobSpec: jobSpec{
			name:       domain.JobRemoveFailedImports,
			scope:      ScopeNormal,
			blocklist:  true,
			maxStrikes: cfg.MaxStrikes,
		},
		patterns: cfg.MessagePatterns,
	}
}

func (j *FailedImportsJob) Predicate(_ context.Context, _ *Run, queue []arr.QueueItem) ([]Offender, error) {
	var offenders []Offender
	for _, item := range queue {
		if item.Status != "completed" || item.TrackedDownloadStatus != "warning" {
			continue
		}
		if _, ok := importStates[item.TrackedDownloadState]; !ok {
			continue
		}

		messages := matchingMessages(item.StatusMessages, j.patterns)
		if len(messages) == 0 {
			continue
		}

		removal := make([]string, 0, len(messages)+1)
		removal = append(removal, "Tracked download state: "+item.TrackedDownloadState)
		for _, msg := range messages {
			removal = append(removal, "Status message: "+msg)
		}
		offenders = append(offenders, Offender{Item: item, RemovalMessages: removal})
	}
	return offenders, nil
}

// matchingMessages returns the unique status messages matching any pattern,
// in order of first appearance. No patterns means match everything.
func matchingMessages(statusMessages []arr.StatusMessage, patterns []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, sm := range statusMessages {
		for _, msg := range sm.Messages {
			if !anyGlobMatch(patterns, msg) {
				continue
			}
			if _, dup := seen[msg]; dup {
				continue
			}
			seen[msg] = struct{}{}
			out = append(out, msg)
		}
	}
	return out
}

func anyGlobMatch(patterns []string, s string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if globMatch(pattern, s) {
			return true
		}
	}
	return false
}

// globMatch matches s against a shell-style pattern where '*' spans any run
// of characters, including path separators, and '?' matches one character.
func globMatch(pattern, s string) bool {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
