package launcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"warden/internal/config"
	"warden/internal/history"
	"warden/internal/logging"
	"warden/internal/pidfile"
	"warden/internal/procfs"
)

// fakeSystem is an in-memory process table. Spawned processes are alive and
// identity-matched by default; tests flip the knobs to simulate early
// exits, pid reuse, and SIGTERM-ignoring daemons.
type fakeSystem struct {
	mu         sync.Mutex
	pidSeq     int
	alive      map[int]bool
	command    map[int]string
	spawnErr   error
	dieOnSpawn bool
	ignoreTerm bool
	spawned    []procfs.Spec
	terminated []int
	killed     []int
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		pidSeq:  1000,
		alive:   make(map[int]bool),
		command: make(map[int]string),
	}
}

func (s *fakeSystem) addProcess(pid int, command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive[pid] = true
	s.command[pid] = command
}

func (s *fakeSystem) Spawn(_ context.Context, spec procfs.Spec) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spawnErr != nil {
		return 0, s.spawnErr
	}
	s.pidSeq++
	s.spawned = append(s.spawned, spec)
	s.alive[s.pidSeq] = !s.dieOnSpawn
	s.command[s.pidSeq] = spec.Command
	return s.pidSeq, nil
}

func (s *fakeSystem) Alive(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive[pid]
}

func (s *fakeSystem) Matches(pid int, command string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.command[pid] == command, nil
}

func (s *fakeSystem) Terminate(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated = append(s.terminated, pid)
	if !s.ignoreTerm {
		s.alive[pid] = false
	}
	return nil
}

func (s *fakeSystem) Kill(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed = append(s.killed, pid)
	s.alive[pid] = false
	return nil
}

type memJournal struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (j *memJournal) Record(_ context.Context, entry history.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	return nil
}

func (j *memJournal) last(t *testing.T) history.Entry {
	t.Helper()
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.entries) == 0 {
		t.Fatal("journal is empty")
	}
	return j.entries[len(j.entries)-1]
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Service.Enabled = true
	cfg.Service.Command = "/opt/workerd/bin/workerd"
	cfg.Paths.PidFile = filepath.Join(dir, "run", "daemon.pid")
	cfg.Paths.LogFile = filepath.Join(dir, "logs", "daemon.log")
	cfg.Paths.StateDir = filepath.Join(dir, "state")
	cfg.Daemon.StopTimeout = 1
	cfg.Daemon.StartConfirmTimeout = 1
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

func newTestLauncher(t *testing.T, cfg *config.Config, sys procfs.System) (*Launcher, *memJournal) {
	t.Helper()
	journal := &memJournal{}
	l := New(cfg, sys, logging.NewNop(),
		WithJournal(journal),
		WithInvocationID("test-invocation"),
		WithPollInterval(10*time.Millisecond),
	)
	return l, journal
}

func TestStartSpawnsAndRecordsPid(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	l, journal := newTestLauncher(t, cfg, sys)

	result, err := l.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.State != StartStateStarted {
		t.Fatalf("state = %q, want started", result.State)
	}
	if result.PID != 1001 {
		t.Fatalf("pid = %d, want 1001", result.PID)
	}
	if result.ClearedPidfile != "" {
		t.Fatalf("unexpected cleared reason %q", result.ClearedPidfile)
	}

	pid, err := pidfile.Read(cfg.Paths.PidFile)
	if err != nil {
		t.Fatalf("read pidfile: %v", err)
	}
	if pid != result.PID {
		t.Fatalf("pidfile pid = %d, want %d", pid, result.PID)
	}

	if len(sys.spawned) != 1 {
		t.Fatalf("spawn count = %d, want 1", len(sys.spawned))
	}
	spec := sys.spawned[0]
	if spec.Command != cfg.Service.Command {
		t.Fatalf("spawned command = %q", spec.Command)
	}
	if spec.LogFile != cfg.Paths.LogFile {
		t.Fatalf("spawned log file = %q", spec.LogFile)
	}
	if len(spec.Args) == 0 || spec.Args[0] != "--detach" {
		t.Fatalf("args = %v, want --detach first", spec.Args)
	}

	entry := journal.last(t)
	if entry.Verb != "start" || entry.Outcome != "started" || entry.PID != result.PID {
		t.Fatalf("journal entry = %+v", entry)
	}
	if entry.InvocationID != "test-invocation" {
		t.Fatalf("invocation id = %q", entry.InvocationID)
	}
}

func TestStartDisabledIsNoOp(t *testing.T) {
	cfg := testConfig(t)
	cfg.Service.Enabled = false
	sys := newFakeSystem()
	l, journal := newTestLauncher(t, cfg, sys)

	result, err := l.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.State != StartStateDisabled {
		t.Fatalf("state = %q, want disabled", result.State)
	}
	if len(sys.spawned) != 0 {
		t.Fatal("disabled start spawned a process")
	}
	if entry := journal.last(t); entry.Outcome != "disabled" {
		t.Fatalf("journal outcome = %q, want disabled", entry.Outcome)
	}
}

func TestStartRefusesWhileRunning(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	sys.addProcess(777, cfg.Service.Command)
	if err := pidfile.Write(cfg.Paths.PidFile, 777); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	l, _ := newTestLauncher(t, cfg, sys)

	_, err := l.Start(context.Background())
	var running *AlreadyRunningError
	if !errors.As(err, &running) {
		t.Fatalf("err = %v, want AlreadyRunningError", err)
	}
	if running.PID != 777 {
		t.Fatalf("reported pid = %d, want 777", running.PID)
	}
	if len(sys.spawned) != 0 {
		t.Fatal("spawned despite running daemon")
	}
	if pid, err := pidfile.Read(cfg.Paths.PidFile); err != nil || pid != 777 {
		t.Fatalf("pidfile disturbed: pid=%d err=%v", pid, err)
	}
}

func TestStartClearsStalePidfile(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	if err := pidfile.Write(cfg.Paths.PidFile, 555); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	l, _ := newTestLauncher(t, cfg, sys)

	result, err := l.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(result.ClearedPidfile, "stale") {
		t.Fatalf("cleared reason = %q, want stale mention", result.ClearedPidfile)
	}
	if pid, _ := pidfile.Read(cfg.Paths.PidFile); pid != result.PID {
		t.Fatalf("pidfile pid = %d, want fresh pid %d", pid, result.PID)
	}
}

func TestStartClearsCorruptPidfile(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	if err := os.WriteFile(cfg.Paths.PidFile, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	l, _ := newTestLauncher(t, cfg, sys)

	result, err := l.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(result.ClearedPidfile, "corrupt") {
		t.Fatalf("cleared reason = %q, want corrupt mention", result.ClearedPidfile)
	}
}

func TestStartClearsReusedPid(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	sys.addProcess(888, "/usr/bin/unrelated")
	if err := pidfile.Write(cfg.Paths.PidFile, 888); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	l, _ := newTestLauncher(t, cfg, sys)

	result, err := l.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(result.ClearedPidfile, "reused") {
		t.Fatalf("cleared reason = %q, want reuse mention", result.ClearedPidfile)
	}
	if len(sys.terminated) != 0 || len(sys.killed) != 0 {
		t.Fatal("signalled the unrelated process")
	}
}

func TestStartFailsOnEarlyExit(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	sys.dieOnSpawn = true
	l, journal := newTestLauncher(t, cfg, sys)

	_, err := l.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "exited during startup") {
		t.Fatalf("err = %v, want early exit failure", err)
	}
	if _, rerr := pidfile.Read(cfg.Paths.PidFile); !errors.Is(rerr, pidfile.ErrNotExist) {
		t.Fatalf("pidfile left behind after early exit: %v", rerr)
	}
	if entry := journal.last(t); entry.Outcome != "exited-early" {
		t.Fatalf("journal outcome = %q, want exited-early", entry.Outcome)
	}
}

func TestStopGraceful(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	sys.addProcess(321, cfg.Service.Command)
	if err := pidfile.Write(cfg.Paths.PidFile, 321); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	l, _ := newTestLauncher(t, cfg, sys)

	result, err := l.Stop(context.Background(), StopOptions{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if result.PID != 321 || result.Forced {
		t.Fatalf("result = %+v, want graceful stop of 321", result)
	}
	if len(sys.terminated) != 1 || sys.terminated[0] != 321 {
		t.Fatalf("terminated = %v, want [321]", sys.terminated)
	}
	if len(sys.killed) != 0 {
		t.Fatal("escalated a graceful stop")
	}
	if _, rerr := pidfile.Read(cfg.Paths.PidFile); !errors.Is(rerr, pidfile.ErrNotExist) {
		t.Fatalf("pidfile not removed: %v", rerr)
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	sys.ignoreTerm = true
	sys.addProcess(321, cfg.Service.Command)
	if err := pidfile.Write(cfg.Paths.PidFile, 321); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	l, journal := newTestLauncher(t, cfg, sys)

	result, err := l.Stop(context.Background(), StopOptions{})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !result.Forced {
		t.Fatal("expected forced stop")
	}
	if len(sys.killed) != 1 || sys.killed[0] != 321 {
		t.Fatalf("killed = %v, want [321]", sys.killed)
	}
	if entry := journal.last(t); entry.Detail != "forced" {
		t.Fatalf("journal detail = %q, want forced", entry.Detail)
	}
}

func TestStopWithoutPidfile(t *testing.T) {
	cfg := testConfig(t)
	l, _ := newTestLauncher(t, cfg, newFakeSystem())

	_, err := l.Stop(context.Background(), StopOptions{})
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("err = %v, want ErrNotRunning", err)
	}
}

func TestStopClearsStalePidfile(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	if err := pidfile.Write(cfg.Paths.PidFile, 999); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	l, _ := newTestLauncher(t, cfg, sys)

	_, err := l.Stop(context.Background(), StopOptions{})
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("err = %v, want ErrNotRunning", err)
	}
	if _, rerr := pidfile.Read(cfg.Paths.PidFile); !errors.Is(rerr, pidfile.ErrNotExist) {
		t.Fatalf("stale pidfile not removed: %v", rerr)
	}
}

func TestStopRefusesReusedPid(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	sys.addProcess(999, "/usr/bin/unrelated")
	if err := pidfile.Write(cfg.Paths.PidFile, 999); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	l, _ := newTestLauncher(t, cfg, sys)

	_, err := l.Stop(context.Background(), StopOptions{})
	if !errors.Is(err, ErrStalePid) {
		t.Fatalf("err = %v, want ErrStalePid", err)
	}
	if len(sys.terminated) != 0 && len(sys.killed) != 0 {
		t.Fatal("signalled the unrelated process")
	}
	if _, rerr := pidfile.Read(cfg.Paths.PidFile); !errors.Is(rerr, pidfile.ErrNotExist) {
		t.Fatalf("reused-pid record not cleared: %v", rerr)
	}
}

func TestStopCorruptPidfileNeedsForce(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	if err := os.WriteFile(cfg.Paths.PidFile, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	l, _ := newTestLauncher(t, cfg, sys)

	_, err := l.Stop(context.Background(), StopOptions{})
	var corrupt *CorruptPidfileError
	if !errors.As(err, &corrupt) {
		t.Fatalf("err = %v, want CorruptPidfileError", err)
	}
	if _, serr := os.Stat(cfg.Paths.PidFile); serr != nil {
		t.Fatalf("corrupt pidfile removed without force: %v", serr)
	}

	result, err := l.Stop(context.Background(), StopOptions{Force: true})
	if err != nil {
		t.Fatalf("forced stop: %v", err)
	}
	if !result.ClearedCorrupt {
		t.Fatalf("result = %+v, want ClearedCorrupt", result)
	}
	if _, serr := os.Stat(cfg.Paths.PidFile); !errors.Is(serr, os.ErrNotExist) {
		t.Fatalf("corrupt pidfile survived force: %v", serr)
	}
}

func TestStatusTransitions(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	l, _ := newTestLauncher(t, cfg, sys)

	if status := l.Status(); status.State != StateStopped {
		t.Fatalf("no pidfile: state = %q, want stopped", status.State)
	}

	sys.addProcess(432, cfg.Service.Command)
	if err := pidfile.Write(cfg.Paths.PidFile, 432); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	status := l.Status()
	if status.State != StateRunning || status.PID != 432 {
		t.Fatalf("live daemon: status = %+v", status)
	}

	sys.mu.Lock()
	sys.alive[432] = false
	sys.mu.Unlock()
	status = l.Status()
	if status.State != StateStopped || status.Reason == "" {
		t.Fatalf("dead pid: status = %+v, want stopped with reason", status)
	}
	// Status never mutates; the stale record stays for start/stop to clear.
	if _, err := os.Stat(cfg.Paths.PidFile); err != nil {
		t.Fatalf("status removed the pidfile: %v", err)
	}

	if err := os.WriteFile(cfg.Paths.PidFile, []byte("junk\n"), 0o644); err != nil {
		t.Fatalf("seed corrupt pidfile: %v", err)
	}
	if status := l.Status(); status.State != StateUnknown {
		t.Fatalf("corrupt pidfile: state = %q, want unknown", status.State)
	}
}

func TestRestartWhileRunning(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	sys.addProcess(500, cfg.Service.Command)
	if err := pidfile.Write(cfg.Paths.PidFile, 500); err != nil {
		t.Fatalf("seed pidfile: %v", err)
	}
	l, _ := newTestLauncher(t, cfg, sys)

	result, err := l.Restart(context.Background(), StopOptions{})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !result.WasRunning {
		t.Fatal("expected WasRunning")
	}
	if result.Stop.PID != 500 {
		t.Fatalf("stopped pid = %d, want 500", result.Stop.PID)
	}
	if result.Start.PID == 500 || result.Start.PID == 0 {
		t.Fatalf("started pid = %d, want a fresh pid", result.Start.PID)
	}
}

func TestRestartWhileStopped(t *testing.T) {
	cfg := testConfig(t)
	sys := newFakeSystem()
	l, _ := newTestLauncher(t, cfg, sys)

	result, err := l.Restart(context.Background(), StopOptions{})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if result.WasRunning {
		t.Fatal("WasRunning set with no prior daemon")
	}
	if result.Start.State != StartStateStarted {
		t.Fatalf("start state = %q, want started", result.Start.State)
	}
}
