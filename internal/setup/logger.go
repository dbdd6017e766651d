package setup

import "log/slog"

var packageLogger *slog.Logger

// SetLogger configures the package logger used while preparing directories.
func SetLogger(logger *slog.Logger) {
	packageLogger = logger
}

func getLogger() *slog.Logger {
	if packageLogger == nil {
		return slog.Default()
	}
	return packageLogger
}
