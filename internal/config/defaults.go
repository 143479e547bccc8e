package config

const (
	defaultPidFile             = "~/.local/share/warden/run/daemon.pid"
	defaultLogFile             = "~/.local/share/warden/logs/daemon.log"
	defaultStateDir            = "~/.local/share/warden/state"
	defaultVerbosity           = 1
	defaultStopTimeout         = 10
	defaultStartConfirmTimeout = 5
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		// Disabled until a config file names the supervised command,
		// mirroring init-framework enable gates.
		Service: Service{},
		Paths: Paths{
			PidFile:  defaultPidFile,
			LogFile:  defaultLogFile,
			StateDir: defaultStateDir,
		},
		Daemon: Daemon{
			Verbosity:           defaultVerbosity,
			StopTimeout:         defaultStopTimeout,
			StartConfirmTimeout: defaultStartConfirmTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
