package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"warden/internal/config"
	"warden/internal/launcher"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 12
	statusIndent     = "  "
)

func statusReport(status launcher.Status, cfg *config.Config, colorize bool) []string {
	lines := renderSectionHeader("Daemon Status", colorize)
	lines = append(lines, renderStatusLine("State", statusKindFor(status), describeStatus(status), colorize))
	lines = append(lines, renderStatusLine("Command", statusInfo, cfg.Service.Command, colorize))
	lines = append(lines, renderStatusLine("Pidfile", statusInfo, cfg.Paths.PidFile, colorize))
	lines = append(lines, renderStatusLine("Log file", statusInfo, cfg.Paths.LogFile, colorize))
	return lines
}

func describeStatus(status launcher.Status) string {
	var text string
	switch status.State {
	case launcher.StateRunning:
		text = fmt.Sprintf("running (pid %d)", status.PID)
	case launcher.StateStopped:
		text = "stopped"
	default:
		text = "unknown"
	}
	if status.Reason != "" {
		text = fmt.Sprintf("%s; %s", text, status.Reason)
	}
	return text
}

func statusKindFor(status launcher.Status) statusKind {
	switch status.State {
	case launcher.StateRunning:
		return statusOK
	case launcher.StateStopped:
		return statusWarn
	default:
		return statusError
	}
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
