// Package procfs isolates the OS-specific side of process supervision:
// detached spawning, privilege credentials, liveness probes, signalling,
// and the identity cross-check that protects against pid reuse.
//
// The launcher core depends only on the System interface so tests can swap
// in a fake and exercise lifecycle logic without creating real processes.
package procfs

import "context"

// Credential is the numeric principal a spawned daemon runs as.
type Credential struct {
	UID uint32
	GID uint32
}

// Spec describes one detached spawn request.
type Spec struct {
	// Command is the absolute path to the executable.
	Command string
	// Args is the composed argument vector, excluding argv[0].
	Args []string
	// Credential, when non-nil, is applied to the child before exec.
	Credential *Credential
	// LogFile receives the child's stdout/stderr until it detaches. Its
	// writability is verified before spawning, since the detached child
	// has no other way to report early failures.
	LogFile string
}

// System is the capability surface the launcher drives processes through.
type System interface {
	// Spawn starts the described command in its own session, releases it,
	// and returns the child pid.
	Spawn(ctx context.Context, spec Spec) (int, error)
	// Alive reports whether pid names a live (non-zombie) process.
	Alive(pid int) bool
	// Matches reports whether the process behind pid is an instance of
	// the given command, guarding stop against pid reuse.
	Matches(pid int, command string) (bool, error)
	// Terminate delivers the graceful termination signal.
	Terminate(pid int) error
	// Kill delivers the forceful termination signal.
	Kill(pid int) error
}
