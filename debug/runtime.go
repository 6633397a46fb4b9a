// Package debug holds optional runtime telemetry loggers, started only
// when the debug config flag is set.
package debug

import (
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"
)

// StartRuntimeLogger launches a ticker that logs goroutine count and
// heap/stack usage. Useful for ruling out leaks over long observation
// sessions.
func StartRuntimeLogger(interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
		for range t.C {
			metrics.Read(samples)
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			logger.Info("runtime-stats",
				slog.Uint64("goroutines", samples[0].Value.Uint64()),
				slog.Uint64("heap_alloc", ms.HeapAlloc),
				slog.Uint64("heap_inuse", ms.HeapInuse),
				slog.Uint64("stack_inuse", uint64(ms.StackInuse)),
				slog.Uint64("num_gc", uint64(ms.NumGC)),
			)
		}
	}()
}
