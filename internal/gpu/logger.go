// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"log/slog"
	"sync/atomic"
)

var (
	logger  atomic.Pointer[slog.Logger]
	discard = slog.New(slog.DiscardHandler)
)

// slogger returns the logger set by SetLogger, or one that drops everything.
func slogger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return discard
}

// SetLogger routes pass, program and resource diagnostics to l. The
// compositor package forwards its own logger here. Nil silences output.
func SetLogger(l *slog.Logger) { logger.Store(l) }
