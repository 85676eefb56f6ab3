//go:build !darwin

package config

import (
	"os"
	"path/filepath"
)

// xdgDir resolves an XDG base directory for blueprint, falling back to
// home-relative defaults when the variable is unset.
func xdgDir(env string, homeRel ...string) string {
	dir := os.Getenv(env)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "blueprint-data"
		}
		dir = filepath.Join(append([]string{home}, homeRel...)...)
	}
	return filepath.Join(dir, "blueprint")
}

func defaultDataDir() string { return xdgDir("XDG_DATA_HOME", ".local", "share") }

func configDir() string { return xdgDir("XDG_CONFIG_HOME", ".config") }

func apiKeyHint() string {
	return " or store it with `blueprint config set proxy.openrouter_api_key <key>`"
}
