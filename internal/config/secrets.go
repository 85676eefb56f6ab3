package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

var errSecretNotFound = errors.New("secret not found")

// keychainGet reads a secret from the OS keyring (macOS Keychain, Secret
// Service, Windows Credential Manager), then from the fallback file.
func keychainGet(service, account string) (string, error) {
	if v, err := keyring.Get(service, account); err == nil {
		return v, nil
	}
	s, err := readSecrets()
	if err != nil {
		return "", err
	}
	v, ok := s[service][account]
	if !ok {
		return "", errSecretNotFound
	}
	return v, nil
}

// keychainSet stores a secret in the OS keyring, or in the fallback file when
// no keyring is reachable (headless Linux without Secret Service). An empty
// value deletes the secret from both.
func keychainSet(service, account, value string) error {
	if value == "" {
		if err := keyring.Delete(service, account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "[WARN] could not delete %s from OS keyring: %v\n", account, err)
		}
		return updateSecrets(func(s secretsFile) { delete(s[service], account) })
	}

	err := keyring.Set(service, account, value)
	if err == nil {
		return nil
	}
	fmt.Fprintf(os.Stderr, "[WARN] OS keyring unavailable (%v); storing %s in %s\n", err, account, secretsFilePath())
	return updateSecrets(func(s secretsFile) {
		if s[service] == nil {
			s[service] = map[string]string{}
		}
		s[service][account] = value
	})
}

// secretsFile is the keyring fallback: a 0600 YAML file of
// service -> account -> value.
type secretsFile map[string]map[string]string

func secretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.yaml")
}

func readSecrets() (secretsFile, error) {
	data, err := os.ReadFile(secretsFilePath())
	if errors.Is(err, fs.ErrNotExist) {
		return secretsFile{}, nil
	}
	if err != nil {
		return nil, err
	}
	s := secretsFile{}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return s, nil
}

func updateSecrets(mutate func(secretsFile)) error {
	s, err := readSecrets()
	if err != nil {
		return err
	}
	mutate(s)
	out, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return writePrivate(secretsFilePath(), out)
}
