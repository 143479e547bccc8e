//go:build unix

package procfs

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Alive reports whether pid is present in the process table and not a
// zombie. A released child that already exited lingers as a zombie until
// the launcher exits, and must not count as running.
func (OS) Alive(pid int) bool {
	if !exists(pid) {
		return false
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	statuses, err := proc.Status()
	if err != nil {
		// Probe said the pid exists; without status detail, believe it.
		return true
	}
	for _, status := range statuses {
		if status == process.Zombie {
			return false
		}
	}
	return true
}

// Matches cross-checks process identity so a recycled pid belonging to an
// unrelated process is never treated as ours. The executable path is
// compared first; interpreted daemons fall back to argv comparison.
func (OS) Matches(pid int, command string) (bool, error) {
	if pid <= 0 || command == "" {
		return false, nil
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return false, nil
		}
		return false, fmt.Errorf("inspect pid %d: %w", pid, err)
	}

	if exe, err := proc.Exe(); err == nil && exe != "" {
		if sameExecutable(exe, command) {
			return true, nil
		}
	}

	args, err := proc.CmdlineSlice()
	if err != nil {
		return false, fmt.Errorf("read cmdline for pid %d: %w", pid, err)
	}
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		if sameExecutable(arg, command) {
			return true, nil
		}
		// argv[0] decides; later args are flags, not identity.
		break
	}
	// Interpreter wrappers put the script after argv[0].
	if len(args) > 1 && sameExecutable(strings.TrimSpace(args[1]), command) {
		return true, nil
	}
	return false, nil
}

func sameExecutable(candidate, command string) bool {
	if candidate == "" {
		return false
	}
	if candidate == command {
		return true
	}
	// " (deleted)" suffix appears when the binary was replaced on disk.
	if strings.TrimSuffix(candidate, " (deleted)") == command {
		return true
	}
	// Daemons often exec with a bare argv[0]; compare base names then.
	return !filepath.IsAbs(candidate) && filepath.Base(candidate) == filepath.Base(command)
}
