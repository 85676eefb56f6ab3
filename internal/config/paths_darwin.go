//go:build darwin

package config

import (
	"os"
	"path/filepath"
)

// appSupportDir holds both settings and data on macOS.
func appSupportDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Application Support", "blueprint")
	}
	return "blueprint-data"
}

func defaultDataDir() string { return appSupportDir() }

func configDir() string { return appSupportDir() }

func apiKeyHint() string {
	return " or macOS Keychain (service: blueprint, account: openrouter_api_key)"
}
