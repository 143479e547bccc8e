package launcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch streams status updates until ctx is cancelled. Pidfile changes are
// picked up through fsnotify on the containing directory (the pidfile is
// renamed into place, so watching the file itself would miss replacements);
// liveness changes that leave the pidfile untouched are caught by a
// periodic re-probe. Only transitions are emitted. The channel is closed on
// cancellation.
func (l *Launcher) Watch(ctx context.Context, interval time.Duration) (<-chan Status, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	dir := filepath.Dir(l.cfg.Paths.PidFile)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create pidfile watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	ch := make(chan Status, 1)

	go func() {
		defer close(ch)
		defer func() { _ = watcher.Close() }()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()
		probe := make(chan struct{}, 1)

		emit := func(last *Status) {
			status := l.Status()
			if *last == status {
				return
			}
			*last = status
			select {
			case ch <- status:
			case <-ctx.Done():
			}
		}

		var last Status
		emit(&last)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(l.cfg.Paths.PidFile) {
					continue
				}
				// Writes arrive in bursts (create then rename);
				// collapse them into one probe.
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(50*time.Millisecond, func() {
					select {
					case probe <- struct{}{}:
					default:
					}
				})

			case <-probe:
				emit(&last)

			case <-ticker.C:
				emit(&last)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if err != nil {
					l.logger.Warn("pidfile watch error", "error", err)
				}
			}
		}
	}()

	return ch, nil
}
