package runtime

import (
	"github.com/sasha-s/go-deadlock"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func logger() commonlog.Logger {
	return commonlog.GetLogger("rjava.runtime")
}

func threadLogger() commonlog.Logger {
	return commonlog.GetLogger("rjava.thread")
}

// ApplyProcessSettings configures the process-wide logging backend and
// lock checking from cfg. Call it once, before threads are started.
func ApplyProcessSettings(cfg *Config) {
	var path *string
	if cfg.LogFile != "" {
		path = &cfg.LogFile
	}
	commonlog.Configure(cfg.Verbosity, path)
	applyLockChecking(cfg.LockChecking)
}

// applyLockChecking switches go-deadlock's detector, which is on unless
// disabled. The setting is process-wide; the most recent runtime wins.
func applyLockChecking(enabled bool) {
	if deadlock.Opts.Disable == !enabled {
		return
	}
	deadlock.Opts.Disable = !enabled
	logger().Debug("lock checking changed", "enabled", enabled)
}

// writeStderr writes one complete report to the runtime's error writer.
// Reports from concurrent threads never interleave.
func (r *Runtime) writeStderr(report []byte) {
	r.stderrMu.Lock()
	defer r.stderrMu.Unlock()
	r.stderr.Write(report)
}
