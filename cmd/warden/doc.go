// Package main hosts the warden CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into daemon
// lifecycle actions: composing the launch command line from configuration,
// spawning the daemon detached, and stopping or inspecting it through the
// recorded pidfile. It centralizes configuration resolution, logging setup,
// and journal wiring so subcommands can focus on user experience.
//
// Keep this package lean: lifecycle semantics live in internal/launcher and
// are surfaced here through dedicated commands and exit codes.
package main
