package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"warden/internal/config"
	"warden/internal/history"
	"warden/internal/pidfile"
	"warden/internal/procfs"
)

const (
	defaultPollInterval = 200 * time.Millisecond
	defaultLockTimeout  = 5 * time.Second
	// Time allowed for the kernel to reap a SIGKILLed process.
	killGrace = 2 * time.Second
)

var errDaemonExited = errors.New("daemon exited during startup")

// Journal records lifecycle actions. *history.Store satisfies it; a nil
// journal disables recording.
type Journal interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Launcher drives the lifecycle of a single supervised daemon. Concurrent
// invocations against the same pidfile are serialized by a flock held for
// the duration of each mutating verb; the pidfile write is the commit point
// racers that bypass the lock are resolved on.
type Launcher struct {
	cfg          *config.Config
	sys          procfs.System
	logger       *slog.Logger
	journal      Journal
	invocationID string
	pollInterval time.Duration
	lockTimeout  time.Duration
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithJournal enables lifecycle action recording.
func WithJournal(journal Journal) Option {
	return func(l *Launcher) {
		l.journal = journal
	}
}

// WithInvocationID tags journal entries and log lines with an id shared by
// everything one CLI invocation did.
func WithInvocationID(id string) Option {
	return func(l *Launcher) {
		l.invocationID = id
	}
}

// WithPollInterval overrides the liveness polling cadence. Tests shorten it.
func WithPollInterval(d time.Duration) Option {
	return func(l *Launcher) {
		l.pollInterval = d
	}
}

// WithLockTimeout bounds how long a verb waits for the lifecycle lock.
func WithLockTimeout(d time.Duration) Option {
	return func(l *Launcher) {
		l.lockTimeout = d
	}
}

// New creates a Launcher for the configured service.
func New(cfg *config.Config, sys procfs.System, logger *slog.Logger, opts ...Option) *Launcher {
	l := &Launcher{
		cfg:          cfg,
		sys:          sys,
		logger:       logger,
		pollInterval: defaultPollInterval,
		lockTimeout:  defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// StartState describes the outcome of a start request.
type StartState string

const (
	StartStateStarted  StartState = "started"
	StartStateDisabled StartState = "disabled"
)

// StartResult captures a successful (or skipped) start.
type StartResult struct {
	State StartState
	PID   int
	// ClearedPidfile explains a pre-existing pidfile that was removed
	// before starting (stale pid, reused pid, or corrupt content).
	ClearedPidfile string
}

// StopOptions adjusts stop behavior.
type StopOptions struct {
	// Force clears a corrupt pidfile instead of refusing to act on it.
	Force bool
}

// StopResult captures a stop outcome.
type StopResult struct {
	PID int
	// Forced reports that SIGTERM was escalated to SIGKILL.
	Forced bool
	// ClearedCorrupt reports that a corrupt pidfile was force-cleared
	// with no process to stop.
	ClearedCorrupt bool
}

// RestartResult captures stop/start outcomes for a restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// State is the externally observable daemon state.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateUnknown State = "unknown"
)

// Status is the result of a non-destructive liveness check.
type Status struct {
	State  State
	PID    int
	Reason string
}

// Start spawns the daemon detached and records its pid. A disabled service
// is a no-op reported through the result, not an error. A live daemon
// yields *AlreadyRunningError; stale and corrupt pidfiles are cleared and
// noted in the result.
func (l *Launcher) Start(ctx context.Context) (StartResult, error) {
	if !l.cfg.Service.Enabled {
		l.logger.Info("start skipped", slog.String("reason", "service disabled in configuration"))
		l.record(ctx, "start", "disabled", 0, "")
		return StartResult{State: StartStateDisabled}, nil
	}

	lock, err := l.acquireLock(ctx)
	if err != nil {
		return StartResult{}, err
	}
	defer func() { _ = lock.Unlock() }()

	cleared, err := l.clearDeadPidfile()
	if err != nil {
		var running *AlreadyRunningError
		if errors.As(err, &running) {
			l.record(ctx, "start", "already-running", running.PID, "")
		}
		return StartResult{}, err
	}
	if cleared != "" {
		l.logger.Warn("removed unusable pidfile", slog.String("reason", cleared))
	}

	cred, err := procfs.LookupCredential(l.cfg.Service.RunAs.User, l.cfg.Service.RunAs.Group)
	if err != nil {
		l.record(ctx, "start", "privilege-drop-failed", 0, err.Error())
		return StartResult{}, fmt.Errorf("resolve run-as principal: %w", err)
	}

	spec := procfs.Spec{
		Command:    l.cfg.Service.Command,
		Args:       ComposeArgs(l.cfg),
		Credential: cred,
		LogFile:    l.cfg.Paths.LogFile,
	}
	pid, err := l.sys.Spawn(ctx, spec)
	if err != nil {
		l.record(ctx, "start", "spawn-failed", 0, err.Error())
		return StartResult{}, fmt.Errorf("spawn daemon: %w", err)
	}

	if err := pidfile.Write(l.cfg.Paths.PidFile, pid); err != nil {
		// Without a pidfile the daemon is untrackable; reap it rather
		// than leak an unsupervised process.
		_ = l.sys.Kill(pid)
		l.record(ctx, "start", "pidfile-write-failed", pid, err.Error())
		return StartResult{}, err
	}

	if err := l.confirmStartup(ctx, pid); err != nil {
		if errors.Is(err, errDaemonExited) {
			_ = pidfile.Remove(l.cfg.Paths.PidFile)
			l.record(ctx, "start", "exited-early", pid, err.Error())
		}
		return StartResult{}, err
	}

	l.logger.Info("daemon started",
		slog.Int("pid", pid),
		slog.String("command", l.cfg.Service.Command),
		slog.String("pidfile", l.cfg.Paths.PidFile),
	)
	l.record(ctx, "start", "started", pid, cleared)
	return StartResult{State: StartStateStarted, PID: pid, ClearedPidfile: cleared}, nil
}

// Stop terminates the recorded daemon: SIGTERM, a bounded wait, then
// SIGKILL. The pidfile is removed once exit is confirmed. An absent
// pidfile or a dead recorded pid yields ErrNotRunning; a reused pid yields
// ErrStalePid after clearing the record.
func (l *Launcher) Stop(ctx context.Context, opts StopOptions) (StopResult, error) {
	lock, err := l.acquireLock(ctx)
	if err != nil {
		return StopResult{}, err
	}
	defer func() { _ = lock.Unlock() }()

	pid, err := pidfile.Read(l.cfg.Paths.PidFile)
	if err != nil {
		if errors.Is(err, pidfile.ErrNotExist) {
			l.record(ctx, "stop", "not-running", 0, "")
			return StopResult{}, ErrNotRunning
		}
		var corrupt *pidfile.CorruptError
		if errors.As(err, &corrupt) {
			if !opts.Force {
				return StopResult{}, &CorruptPidfileError{Path: l.cfg.Paths.PidFile, Err: err}
			}
			if rmErr := pidfile.Remove(l.cfg.Paths.PidFile); rmErr != nil {
				return StopResult{}, rmErr
			}
			l.logger.Warn("force-cleared corrupt pidfile", slog.String("reason", corrupt.Reason))
			l.record(ctx, "stop", "cleared-corrupt", 0, corrupt.Reason)
			return StopResult{ClearedCorrupt: true}, nil
		}
		return StopResult{}, err
	}

	if !l.sys.Alive(pid) {
		if rmErr := pidfile.Remove(l.cfg.Paths.PidFile); rmErr != nil {
			return StopResult{}, rmErr
		}
		l.record(ctx, "stop", "not-running", pid, "cleared stale pidfile")
		return StopResult{}, ErrNotRunning
	}

	match, err := l.sys.Matches(pid, l.cfg.Service.Command)
	if err != nil {
		return StopResult{}, fmt.Errorf("verify process identity for pid %d: %w", pid, err)
	}
	if !match {
		if rmErr := pidfile.Remove(l.cfg.Paths.PidFile); rmErr != nil {
			return StopResult{}, rmErr
		}
		l.logger.Warn("pidfile pid reused by unrelated process; not signalling", slog.Int("pid", pid))
		l.record(ctx, "stop", "stale-pid", pid, "pid reused by unrelated process")
		return StopResult{}, ErrStalePid
	}

	if err := l.sys.Terminate(pid); err != nil {
		l.record(ctx, "stop", "signal-failed", pid, err.Error())
		return StopResult{}, fmt.Errorf("terminate daemon: %w", err)
	}

	forced := false
	if !l.waitExit(ctx, pid, l.cfg.StopTimeout()) {
		l.logger.Warn("graceful stop timed out, escalating",
			slog.Int("pid", pid),
			slog.Duration("waited", l.cfg.StopTimeout()),
		)
		if err := l.sys.Kill(pid); err != nil && l.sys.Alive(pid) {
			l.record(ctx, "stop", "signal-failed", pid, err.Error())
			return StopResult{}, fmt.Errorf("kill daemon: %w", err)
		}
		if !l.waitExit(ctx, pid, killGrace) {
			return StopResult{}, fmt.Errorf("daemon pid %d survived SIGKILL", pid)
		}
		forced = true
	}

	if err := pidfile.Remove(l.cfg.Paths.PidFile); err != nil {
		return StopResult{PID: pid, Forced: forced}, err
	}

	detail := "graceful"
	if forced {
		detail = "forced"
	}
	l.logger.Info("daemon stopped", slog.Int("pid", pid), slog.Bool("forced", forced))
	l.record(ctx, "stop", "stopped", pid, detail)
	return StopResult{PID: pid, Forced: forced}, nil
}

// Restart stops the daemon (tolerating not-running and stale records) and
// then starts it. Success requires the start to succeed.
func (l *Launcher) Restart(ctx context.Context, opts StopOptions) (RestartResult, error) {
	stopResult, stopErr := l.Stop(ctx, opts)
	if stopErr != nil && !errors.Is(stopErr, ErrNotRunning) && !errors.Is(stopErr, ErrStalePid) {
		return RestartResult{}, stopErr
	}

	startResult, err := l.Start(ctx)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil && stopResult.PID > 0,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// Status is a pure read: it parses the pidfile, probes liveness without
// delivering a signal, and cross-checks identity. It never mutates the
// pidfile, so a stale record is reported as stopped but left in place.
func (l *Launcher) Status() Status {
	pid, err := pidfile.Read(l.cfg.Paths.PidFile)
	if err != nil {
		if errors.Is(err, pidfile.ErrNotExist) {
			return Status{State: StateStopped}
		}
		var corrupt *pidfile.CorruptError
		if errors.As(err, &corrupt) {
			return Status{State: StateUnknown, Reason: corrupt.Reason}
		}
		return Status{State: StateUnknown, Reason: err.Error()}
	}

	if !l.sys.Alive(pid) {
		return Status{State: StateStopped, PID: pid, Reason: "stale pidfile"}
	}
	match, err := l.sys.Matches(pid, l.cfg.Service.Command)
	if err != nil {
		return Status{State: StateUnknown, PID: pid, Reason: fmt.Sprintf("identity check failed: %v", err)}
	}
	if !match {
		return Status{State: StateStopped, PID: pid, Reason: "pid reused by unrelated process"}
	}
	return Status{State: StateRunning, PID: pid}
}

func (l *Launcher) acquireLock(ctx context.Context) (*flock.Flock, error) {
	lock := flock.New(l.cfg.LockFile())
	lockCtx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()

	ok, err := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.New("another warden invocation holds the lifecycle lock")
		}
		return nil, fmt.Errorf("acquire lifecycle lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another warden invocation holds the lifecycle lock")
	}
	return lock, nil
}

// clearDeadPidfile inspects an existing pidfile before a start. A live,
// identity-matching pid aborts with *AlreadyRunningError; anything else is
// removed and described in the returned reason.
func (l *Launcher) clearDeadPidfile() (string, error) {
	pid, err := pidfile.Read(l.cfg.Paths.PidFile)
	if err != nil {
		if errors.Is(err, pidfile.ErrNotExist) {
			return "", nil
		}
		var corrupt *pidfile.CorruptError
		if errors.As(err, &corrupt) {
			if rmErr := pidfile.Remove(l.cfg.Paths.PidFile); rmErr != nil {
				return "", rmErr
			}
			return fmt.Sprintf("corrupt pidfile (%s)", corrupt.Reason), nil
		}
		return "", err
	}

	if l.sys.Alive(pid) {
		match, err := l.sys.Matches(pid, l.cfg.Service.Command)
		if err != nil {
			return "", fmt.Errorf("verify process identity for pid %d: %w", pid, err)
		}
		if match {
			return "", &AlreadyRunningError{PID: pid}
		}
		if rmErr := pidfile.Remove(l.cfg.Paths.PidFile); rmErr != nil {
			return "", rmErr
		}
		return fmt.Sprintf("pid %d reused by unrelated process", pid), nil
	}

	if rmErr := pidfile.Remove(l.cfg.Paths.PidFile); rmErr != nil {
		return "", rmErr
	}
	return fmt.Sprintf("stale pidfile (pid %d dead)", pid), nil
}

// confirmStartup watches the fresh daemon for an early exit so a
// misconfigured service fails the start instead of dying silently right
// after the launcher returns success.
func (l *Launcher) confirmStartup(ctx context.Context, pid int) error {
	deadline := time.Now().Add(l.cfg.StartConfirmTimeout())
	for {
		if !l.sys.Alive(pid) {
			return fmt.Errorf("%w (pid %d); check %s", errDaemonExited, pid, l.cfg.Paths.LogFile)
		}
		if !time.Now().Before(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}
}

// waitExit polls until pid is gone or the bound elapses.
func (l *Launcher) waitExit(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !l.sys.Alive(pid) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return !l.sys.Alive(pid)
		case <-time.After(l.pollInterval):
		}
	}
}

func (l *Launcher) record(ctx context.Context, verb, outcome string, pid int, detail string) {
	if l.journal == nil {
		return
	}
	entry := history.Entry{
		InvocationID: l.invocationID,
		Verb:         verb,
		Outcome:      outcome,
		PID:          pid,
		Detail:       detail,
	}
	if err := l.journal.Record(ctx, entry); err != nil {
		l.logger.Warn("record action history", slog.Any("error", err))
	}
}
