package config

import (
	"os"
	"path/filepath"
)

// LogDir returns the directory relative log file paths are resolved
// against: the user's cache directory under "chatcast", falling back to
// the working directory if the cache directory can't be determined.
func LogDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "chatcast")
	}
	return "."
}

// ResolveLogPath makes a possibly-relative log file path absolute under
// LogDir.
func ResolveLogPath(target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(LogDir(), target)
}
