//go:build unix

package procfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAliveForCurrentProcess(t *testing.T) {
	sys := OS{}
	if !sys.Alive(os.Getpid()) {
		t.Fatal("current process reported dead")
	}
}

func TestAliveForBogusPids(t *testing.T) {
	sys := OS{}
	if sys.Alive(0) {
		t.Fatal("pid 0 reported alive")
	}
	if sys.Alive(-1) {
		t.Fatal("pid -1 reported alive")
	}
	// Beyond any realistic pid_max.
	if sys.Alive(1 << 22) {
		t.Fatal("absurd pid reported alive")
	}
}

func TestMatchesCurrentProcess(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("resolve executable: %v", err)
	}
	sys := OS{}
	ok, err := sys.Matches(os.Getpid(), exe)
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if !ok {
		t.Fatalf("current process does not match its own executable %s", exe)
	}

	ok, err = sys.Matches(os.Getpid(), "/usr/bin/definitely-not-this-test")
	if err != nil {
		t.Fatalf("matches foreign: %v", err)
	}
	if ok {
		t.Fatal("current process matched an unrelated command")
	}
}

func TestMatchesDeadPid(t *testing.T) {
	sys := OS{}
	ok, err := sys.Matches(1<<22, "/usr/bin/true")
	if err != nil {
		t.Fatalf("matches dead pid: %v", err)
	}
	if ok {
		t.Fatal("dead pid reported as matching")
	}
}

func TestSpawnDetachedWritesLogAndRuns(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "daemon.log")

	sys := OS{}
	pid, err := sys.Spawn(context.Background(), Spec{
		Command: "/bin/sh",
		Args:    []string{"-c", "echo spawned; sleep 5"},
		LogFile: logPath,
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer func() { _ = sys.Kill(pid) }()

	if !sys.Alive(pid) {
		t.Fatalf("spawned pid %d not alive", pid)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		data, err := os.ReadFile(logPath)
		if err == nil && len(data) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("log file never received output (err=%v)", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := sys.Terminate(pid); err != nil {
		t.Fatalf("terminate: %v", err)
	}
}

func TestSpawnFailsOnUnwritableLog(t *testing.T) {
	sys := OS{}
	_, err := sys.Spawn(context.Background(), Spec{
		Command: "/bin/true",
		LogFile: filepath.Join(t.TempDir(), "missing-dir", "daemon.log"),
	})
	if err == nil {
		t.Fatal("expected error for unwritable log path")
	}
}

func TestSpawnRejectsEmptyCommand(t *testing.T) {
	sys := OS{}
	if _, err := sys.Spawn(context.Background(), Spec{}); err == nil {
		t.Fatal("expected error for empty command")
	}
}
