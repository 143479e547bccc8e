// Package pidfile reads and writes the daemon liveness record.
//
// The format is a single decimal pid terminated by a newline. Absence means
// the daemon is stopped; anything else in the file is reported as corruption
// rather than a crash, since a partial write or an operator edit must never
// take the launcher down.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

// ErrNotExist indicates no pidfile is present.
var ErrNotExist = errors.New("pidfile: not present")

// CorruptError reports unparsable pidfile content.
type CorruptError struct {
	Path   string
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("pidfile %s: %s", e.Path, e.Reason)
}

// Read parses the recorded pid. A missing file yields ErrNotExist; content
// that is not a positive decimal integer followed by a newline yields a
// *CorruptError. A missing trailing newline is treated as a partial write.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotExist
		}
		return 0, fmt.Errorf("read pidfile %s: %w", path, err)
	}

	content := string(data)
	if !strings.HasSuffix(content, "\n") {
		return 0, &CorruptError{Path: path, Reason: "partial or truncated content"}
	}
	trimmed := strings.TrimSpace(content)
	pid, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, &CorruptError{Path: path, Reason: fmt.Sprintf("non-numeric content %q", trimmed)}
	}
	if pid <= 0 {
		return 0, &CorruptError{Path: path, Reason: fmt.Sprintf("invalid pid %d", pid)}
	}
	return pid, nil
}

// Write atomically records pid and verifies the content by re-reading.
// The rename is the commit point concurrent starts race on.
func Write(path string, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("write pidfile %s: invalid pid %d", path, pid)
	}
	content := strconv.Itoa(pid) + "\n"
	if err := renameio.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write pidfile %s: %w", path, err)
	}

	recorded, err := Read(path)
	if err != nil {
		return fmt.Errorf("verify pidfile %s: %w", path, err)
	}
	if recorded != pid {
		return fmt.Errorf("verify pidfile %s: recorded %d, want %d", path, recorded, pid)
	}
	return nil
}

// Remove deletes the pidfile, tolerating its absence.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pidfile %s: %w", path, err)
	}
	return nil
}
