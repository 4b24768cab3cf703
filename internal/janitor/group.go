// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package janitor

import "github.com/autobrr/cleanarr/internal/arr"

// Offender is a queue item flagged by a job, optionally with diagnostic
// messages to emit when acted upon.
type Offender struct {
	Item            arr.QueueItem
	RemovalMessages []string
}

func asOffenders(items []arr.QueueItem) []Offender {
	offenders := make([]Offender, len(items))
	for i, item := range items {
		offenders[i] = Offender{Item: item}
	}
	return offenders
}

// Group collects every queue entry of one physical download. A download id
// may back multiple queue entries (e.g. one per episode); actions are always
// taken per download.
type Group struct {
	DownloadID      string
	Title           string
	Protocol        string
	DownloadClient  string
	QueueIDs        []int64
	RemovalMessages []string
	Items           []arr.QueueItem
}

func groupByDownloadID(offenders []Offender) map[string]*Group {
	groups := map[string]*Group{}
	for _, off := range offenders {
		item := off.Item
		g, ok := groups[item.DownloadID]
		if !ok {
			g = &Group{
				DownloadID:     item.DownloadID,
				Title:          item.Title,
				Protocol:       item.Protocol,
				DownloadClient: item.DownloadClient,
			}
			groups[item.DownloadID] = g
		}
		g.QueueIDs = append(g.QueueIDs, item.ID)
		g.Items = append(g.Items, item)
		g.RemovalMessages = append(g.RemovalMessages, off.RemovalMessages...)
	}
	return groups
}
