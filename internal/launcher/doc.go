// Package launcher implements the daemon lifecycle: composing the argument
// vector from configuration, spawning the daemon detached, and driving
// stop/status/restart off the recorded pidfile.
//
// Mutating verbs serialize on a flock next to the pidfile. The pidfile
// itself is the source of truth for which process is ours; every signal is
// preceded by a liveness probe and an identity check so pid reuse never
// kills an unrelated process.
package launcher
