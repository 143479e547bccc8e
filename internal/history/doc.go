// Package history persists a journal of lifecycle actions in SQLite.
//
// Every start/stop/restart records the verb, outcome, pid, and invocation id
// so operators can reconstruct what happened to the daemon and when. The
// journal is advisory: failures to record are logged by the caller and never
// fail the lifecycle action itself.
package history
