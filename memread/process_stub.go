//go:build !windows

package memread

import "log/slog"

// Process has no memory-reading backend off windows; every read reports
// the value as absent.
type Process struct {
	logger *slog.Logger
}

func NewProcess(logger *slog.Logger, processName string, chains map[string]Chain) *Process {
	if logger == nil {
		logger = slog.Default()
	}
	if len(chains) > 0 {
		logger.Warn("process memory reads are only supported on windows", "process", processName)
	}
	return &Process{logger: logger}
}

func (p *Process) ReadFloat(pointer string) (float64, bool) { return 0, false }

func (p *Process) Close() {}
