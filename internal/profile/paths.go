package profile

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.wanderchat.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wanderchat")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// TokenPath returns the persisted auth token path for a profile.
func TokenPath(name string) string {
	return filepath.Join(Dir(name), "token.json")
}

// UserCachePath returns the cached current-user profile path.
func UserCachePath(name string) string {
	return filepath.Join(Dir(name), "user.json")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the client log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "wanderchat.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
