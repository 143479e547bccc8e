package launcher

import (
	"errors"
	"fmt"
)

// Sentinel outcomes automation can branch on with errors.Is.
var (
	// ErrNotRunning indicates no live daemon was found for a stop/restart.
	ErrNotRunning = errors.New("daemon not running")

	// ErrStalePid indicates the pidfile names a live process that is not
	// an instance of the configured command (pid reuse). The pidfile is
	// removed; the foreign process is never signalled.
	ErrStalePid = errors.New("pidfile pid belongs to an unrelated process")
)

// AlreadyRunningError reports a start attempt while the daemon is live.
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("daemon already running (pid %d)", e.PID)
}

// CorruptPidfileError reports that a mutating verb refused to act on an
// unparsable pidfile. Stop requires force to clear it; the content is left
// in place for inspection.
type CorruptPidfileError struct {
	Path string
	Err  error
}

func (e *CorruptPidfileError) Error() string {
	return fmt.Sprintf("pidfile %s is corrupt: %v (re-run stop with force to clear it)", e.Path, e.Err)
}

func (e *CorruptPidfileError) Unwrap() error {
	return e.Err
}
