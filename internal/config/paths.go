package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DatabaseFile is the store's file name under the data directory.
const DatabaseFile = "rulecart.db"

// DataDir returns $XDG_DATA_HOME/rulecart, or ~/.local/share/rulecart.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "rulecart")
	}
	return filepath.Join(ExpandPath("~"), ".local", "share", "rulecart")
}

// DatabasePath returns the configured database.path with ~ and environment
// variables expanded, falling back to DataDir. A nil v uses the global viper.
func DatabasePath(v *viper.Viper) string {
	if v == nil {
		v = viper.GetViper()
	}
	if p := v.GetString("database.path"); p != "" {
		return ExpandPath(p)
	}
	return filepath.Join(DataDir(), DatabaseFile)
}

// ExpandPath expands a leading ~ and $VAR references. ":memory:" and other
// paths without either pass through unchanged.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return os.ExpandEnv(path)
}
