package launcher

import (
	"fmt"

	"warden/internal/config"
)

// ComposeArgs builds the daemon argument vector. The managed flags come
// first in a fixed order for readable process listings; extra flags follow
// verbatim so operators can override anything downstream.
func ComposeArgs(cfg *config.Config) []string {
	args := []string{
		"--detach",
		fmt.Sprintf("--pidfile=%s", cfg.Paths.PidFile),
		fmt.Sprintf("--logfile=%s", cfg.Paths.LogFile),
		fmt.Sprintf("--verbosity=%d", cfg.Daemon.Verbosity),
	}
	if cfg.Service.RunAs.User != "" {
		args = append(args, fmt.Sprintf("--uid=%s", cfg.Service.RunAs.User))
	}
	if cfg.Service.RunAs.Group != "" {
		args = append(args, fmt.Sprintf("--gid=%s", cfg.Service.RunAs.Group))
	}
	return append(args, cfg.Service.ExtraFlags...)
}
