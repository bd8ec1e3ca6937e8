package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"ggufchat/internal/persona"
	"ggufchat/internal/sessionstore"
	"ggufchat/internal/state"
	"ggufchat/pkg/types"
)

// Config holds runtime parameters for the application.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr               string                  `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir          string                  `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	SessionsDir        string                  `json:"sessions_dir" yaml:"sessions_dir" toml:"sessions_dir"`
	LogLevel           string                  `json:"log_level" yaml:"log_level" toml:"log_level"`
	MaxSessions        int                     `json:"max_sessions" yaml:"max_sessions" toml:"max_sessions"`
	MaxSessionMB       int                     `json:"max_session_mb" yaml:"max_session_mb" toml:"max_session_mb"`
	ChatTimeoutSeconds int                     `json:"chat_timeout_seconds" yaml:"chat_timeout_seconds" toml:"chat_timeout_seconds"`
	CORSOrigins        []string                `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	DefaultPersona     string                  `json:"default_persona" yaml:"default_persona" toml:"default_persona"`
	Load               types.LoadParams        `json:"load" yaml:"load" toml:"load"`
	Generation         *types.GenerationParams `json:"generation,omitempty" yaml:"generation,omitempty" toml:"generation,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults fills every unspecified field.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8080"
	}
	if c.ModelsDir == "" {
		c.ModelsDir = "models"
	}
	if c.SessionsDir == "" {
		c.SessionsDir = "sessions"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = sessionstore.DefaultMaxSessions
	}
	if c.MaxSessionMB <= 0 {
		c.MaxSessionMB = sessionstore.DefaultMaxBytes >> 20
	}
	if c.DefaultPersona == "" {
		c.DefaultPersona = persona.DefaultID
	}
	if c.Generation == nil {
		p := state.DefaultParams()
		c.Generation = &p
	}
	return c
}

// Validate reports settings that cannot be used as given.
func (c Config) Validate() error {
	if c.DefaultPersona != "" && !persona.Known(c.DefaultPersona) {
		return fmt.Errorf("default_persona: unknown persona %q", c.DefaultPersona)
	}
	if c.Generation != nil {
		if err := c.Generation.Validate(); err != nil {
			return fmt.Errorf("generation: %w", err)
		}
	}
	if c.ChatTimeoutSeconds < 0 {
		return fmt.Errorf("chat_timeout_seconds must not be negative")
	}
	return nil
}

// MaxSessionBytes converts MaxSessionMB to bytes.
func (c Config) MaxSessionBytes() int64 { return int64(c.MaxSessionMB) << 20 }

// ChatTimeout converts ChatTimeoutSeconds to a duration.
func (c Config) ChatTimeout() time.Duration {
	return time.Duration(c.ChatTimeoutSeconds) * time.Second
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
