// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package arr

import "github.com/pkg/errors"

var (
	// ErrUnreachable wraps connection failures and unexpected status codes.
	ErrUnreachable = errors.New("instance unreachable")
	// ErrAuthFailed signals a 401, almost always a wrong API key.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrWrongKind signals that the URL points at a different application.
	ErrWrongKind = errors.New("wrong application kind")
	// ErrActionRejected signals a non-success status on a mutating call.
	ErrActionRejected = errors.New("action rejected")
)
