//go:build !windows

package debug

import (
	"log/slog"
	"time"
)

// StartRSSLogger is windows-only; elsewhere it does nothing.
func StartRSSLogger(interval time.Duration, logger *slog.Logger) {}
