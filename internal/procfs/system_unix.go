//go:build unix

package procfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// OS is the real System implementation.
type OS struct{}

var _ System = OS{}

// Spawn launches spec.Command in a new session so the child survives launcher
// exit, wires its stdio to the daemon log file, and releases the process.
func (OS) Spawn(ctx context.Context, spec Spec) (int, error) {
	if spec.Command == "" {
		return 0, errors.New("spawn: command is empty")
	}

	var logFile *os.File
	if spec.LogFile != "" {
		// Verified up front: once detached the child loses stderr, so a
		// missing or unwritable log path must fail the start instead.
		file, err := os.OpenFile(spec.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, fmt.Errorf("open daemon log file: %w", err)
		}
		logFile = file
		defer logFile.Close()
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Stdin = nil
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	attr := &syscall.SysProcAttr{Setsid: true}
	if spec.Credential != nil {
		attr.Credential = &syscall.Credential{
			Uid: spec.Credential.UID,
			Gid: spec.Credential.GID,
		}
	}
	cmd.SysProcAttr = attr

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn %s: %w", spec.Command, err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release spawned process: %w", err)
	}
	return pid, nil
}

// Terminate sends SIGTERM to pid.
func (OS) Terminate(pid int) error {
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return nil
}

// Kill sends SIGKILL to pid.
func (OS) Kill(pid int) error {
	if err := unix.Kill(pid, unix.SIGKILL); err != nil {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}

// exists is the signal-0 probe: no signal is delivered, only a permission
// and existence check. EPERM still means the pid is live.
func exists(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
