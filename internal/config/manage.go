package config

import "fmt"

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll lists every key with its effective value. Secrets show as
// (set) or (unset).
func ShowAll(cfg Config) []KeyInfo {
	result := make([]KeyInfo, 0, len(specs))
	for _, s := range specs {
		v := s.value(cfg)
		if s.secret {
			v = map[bool]string{true: "(set)", false: "(unset)"}[v != ""]
		}
		result = append(result, KeyInfo{Key: s.key, EnvVar: s.env, Value: v})
	}
	return result
}

// SetKey persists a key: secrets to the platform secret store, everything
// else to the settings file.
func SetKey(key, value string) error {
	return setKeyWith(newPlatformBackend(), keychainSet, key, value)
}

// UnsetKey removes a persisted key so its default applies again. A secret
// is overwritten with an empty value.
func UnsetKey(key string) error {
	return unsetKeyWith(newPlatformBackend(), keychainSet, key)
}

type secretSetter func(service, account, value string) error

func setKeyWith(b ConfigBackend, setSecret secretSetter, key, value string) error {
	s, ok := lookupKey(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return setSecret(keychainService, secretAccount(key), value)
	}

	var scratch Config
	if err := s.set(&scratch, value); err != nil {
		return err
	}
	switch p := s.field(&scratch).(type) {
	case *int:
		return b.SetInt(key, *p)
	default:
		return b.SetString(key, value)
	}
}

func unsetKeyWith(b ConfigBackend, setSecret secretSetter, key string) error {
	s, ok := lookupKey(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return setSecret(keychainService, secretAccount(key), "")
	}
	return b.Delete(key)
}

func secretAccount(key string) string {
	if key == "server.api_token" {
		return apiTokenSecret
	}
	return openRouterSecret
}

// ValidKeys returns the list of valid config key names.
func ValidKeys() []string {
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		keys = append(keys, s.key)
	}
	return keys
}

// IsSecret reports whether key is kept in the secret store.
func IsSecret(key string) bool {
	s, ok := lookupKey(key)
	return ok && s.secret
}
