package config

import (
	"os"
	"path/filepath"
	"strings"
)

const envConfigDir = "RESPANE_CONFIG_DIR"

// Dir returns the configuration directory, honouring RESPANE_CONFIG_DIR.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv(envConfigDir)); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil && base != "" {
		return filepath.Join(base, "respane")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".respane")
	}
	return ".respane"
}

func HistoryPath() string {
	return filepath.Join(Dir(), "history.json")
}

func DatabasePath() string {
	return filepath.Join(Dir(), "responses.db")
}

func LogPath() string {
	return filepath.Join(Dir(), "respane.log")
}
