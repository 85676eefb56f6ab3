package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// keySpec binds a dotted config key to its Config field and environment
// variable.
type keySpec struct {
	key    string
	env    string
	secret bool
	// field returns a *string or *int into cfg.
	field func(cfg *Config) any
}

// setting declares a key whose env var is BLUEPRINT_ plus the key in upper
// snake case.
func setting(key string, field func(*Config) any) keySpec {
	return keySpec{
		key:   key,
		env:   "BLUEPRINT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_")),
		field: field,
	}
}

// secretSetting declares a key kept in the secret store, never in the
// settings file.
func secretSetting(key, env string, field func(*Config) any) keySpec {
	return keySpec{key: key, env: env, secret: true, field: field}
}

var specs = []keySpec{
	setting("server.port", func(c *Config) any { return &c.Server.Port }),
	secretSetting("server.api_token", "BLUEPRINT_API_TOKEN", func(c *Config) any { return &c.Server.APIToken }),
	setting("ollama.base_url", func(c *Config) any { return &c.Ollama.BaseURL }),
	setting("ollama.chat_model", func(c *Config) any { return &c.Ollama.ChatModel }),
	setting("ollama.code_model", func(c *Config) any { return &c.Ollama.CodeModel }),
	setting("synth.backend", func(c *Config) any { return &c.Synth.Backend }),
	setting("synth.model", func(c *Config) any { return &c.Synth.Model }),
	secretSetting("proxy.openrouter_api_key", "BLUEPRINT_OPENROUTER_API_KEY", func(c *Config) any { return &c.Proxy.OpenRouterAPIKey }),
	setting("storage.data_dir", func(c *Config) any { return &c.Storage.DataDir }),
	setting("elicit.max_turns", func(c *Config) any { return &c.Elicit.MaxTurns }),
	setting("output.dir", func(c *Config) any { return &c.Output.Dir }),
	setting("output.requirements_file", func(c *Config) any { return &c.Output.RequirementsFile }),
	setting("generate.context_tokens", func(c *Config) any { return &c.Generate.ContextTokens }),
	setting("log.level", func(c *Config) any { return &c.Log.Level }),
}

func lookupKey(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// set parses raw into the key's field of cfg.
func (s keySpec) set(cfg *Config, raw string) error {
	switch p := s.field(cfg).(type) {
	case *string:
		*p = raw
	case *int:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", s.key, err)
		}
		*p = i
	}
	return nil
}

// value formats the key's field of cfg.
func (s keySpec) value(cfg Config) string {
	switch p := s.field(&cfg).(type) {
	case *string:
		return *p
	case *int:
		return strconv.Itoa(*p)
	}
	return ""
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		var ok bool
		var err error
		switch p := s.field(cfg).(type) {
		case *string:
			var v string
			if v, ok, err = b.GetString(s.key); ok && err == nil {
				*p = v
			}
		case *int:
			var v int
			if v, ok, err = b.GetInt(s.key); ok && err == nil {
				*p = v
			}
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		if err := s.set(cfg, raw); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] ignoring %s=%q: %v\n", s.env, raw, err)
		}
	}
}
