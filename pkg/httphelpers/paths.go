// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package httphelpers

import "strings"

// NormalizeBasePath trims whitespace and slashes so a configured base path
// is either empty or of the form "/segment[/segment...]".
func NormalizeBasePath(basePath string) string {
	basePath = strings.TrimSpace(basePath)
	basePath = strings.Trim(basePath, "/")
	if basePath == "" {
		return ""
	}
	return "/" + basePath
}

// JoinBasePath joins a normalized base path with a suffix, always returning
// an absolute path.
func JoinBasePath(basePath, suffix string) string {
	suffix = strings.TrimLeft(suffix, "/")
	if basePath == "" {
		if suffix == "" {
			return "/"
		}
		return "/" + suffix
	}
	if suffix == "" {
		return basePath
	}
	return basePath + "/" + suffix
}
