package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Ollama   OllamaConfig
	Synth    SynthConfig
	Proxy    ProxyConfig
	Storage  StorageConfig
	Elicit   ElicitConfig
	Output   OutputConfig
	Generate GenerateConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type OllamaConfig struct {
	BaseURL   string
	ChatModel string
	CodeModel string
}

// SynthConfig selects the code-synthesis backend. An empty Model means the
// backend's default: ollama.code_model for ollama.
type SynthConfig struct {
	Backend string
	Model   string
}

type ProxyConfig struct {
	OpenRouterAPIKey string
}

type StorageConfig struct {
	DataDir string
}

type ElicitConfig struct {
	MaxTurns int
}

type OutputConfig struct {
	Dir              string
	RequirementsFile string
}

type GenerateConfig struct {
	ContextTokens int
}

type LogConfig struct {
	Level string
}

const (
	keychainService  = "blueprint"
	openRouterSecret = "openrouter_api_key"
	apiTokenSecret   = "api_token"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Ollama: OllamaConfig{
			BaseURL:   "http://localhost:11434",
			ChatModel: "llama3.1",
			CodeModel: "qwen2.5-coder",
		},
		Synth: SynthConfig{
			Backend: "ollama",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Elicit: ElicitConfig{
			MaxTurns: 20,
		},
		Output: OutputConfig{
			Dir:              ".",
			RequirementsFile: "decoupled_requirements.json",
		},
		Generate: GenerateConfig{
			ContextTokens: 6000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SynthModel returns the model used for code synthesis.
func (c Config) SynthModel() string {
	if c.Synth.Model != "" {
		return c.Synth.Model
	}
	if c.Synth.Backend == "openrouter" {
		return "qwen/qwen-2.5-coder-32b-instruct"
	}
	return c.Ollama.CodeModel
}

// Load reads configuration from the settings file, a .env file in the
// working directory, environment variables, and the platform secret store.
//
// Settings live in config.yaml under ~/Library/Application Support/blueprint
// on macOS and $XDG_CONFIG_HOME/blueprint elsewhere. Secrets come from the
// macOS Keychain, or from $XDG_DATA_HOME/blueprint/secrets.yaml.
//
// Variables from .env never override the real environment. Environment
// variables (BLUEPRINT_*) override settings-file values.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{}, ".env")
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain, envFiles ...string) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "[WARN] could not load %s: %v\n", f, err)
		}
	}
	applyEnvOverrides(&cfg)

	if cfg.Proxy.OpenRouterAPIKey == "" {
		if key, err := kc.Get(keychainService, openRouterSecret); err == nil && key != "" {
			cfg.Proxy.OpenRouterAPIKey = key
		}
	}
	if cfg.Server.APIToken == "" {
		if tok, err := kc.Get(keychainService, apiTokenSecret); err == nil && tok != "" {
			cfg.Server.APIToken = tok
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Synth.Backend {
	case "ollama":
	case "openrouter":
		if c.Proxy.OpenRouterAPIKey == "" {
			return fmt.Errorf("missing required config: OpenRouter API key for synth.backend=openrouter. "+
				"Set it via environment variable BLUEPRINT_OPENROUTER_API_KEY%s", apiKeyHint())
		}
	default:
		return fmt.Errorf("invalid synth.backend %q: want ollama or openrouter", c.Synth.Backend)
	}
	if c.Elicit.MaxTurns <= 0 {
		return fmt.Errorf("invalid elicit.max_turns %d: must be positive", c.Elicit.MaxTurns)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	return nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	return keychainGet(service, account)
}
