package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "GGUFCHAT_"

// ApplyEnv overlays the scalar keys and cors_origins with GGUFCHAT_<KEY>
// variables, for example GGUFCHAT_MAX_SESSIONS. Unset or empty variables
// leave the field alone. The load and generation sections are file-only.
// lookup is usually os.LookupEnv.
func (c Config) ApplyEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := get(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}

	str("ADDR", &c.Addr)
	str("MODELS_DIR", &c.ModelsDir)
	str("SESSIONS_DIR", &c.SessionsDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("DEFAULT_PERSONA", &c.DefaultPersona)
	if err := num("MAX_SESSIONS", &c.MaxSessions); err != nil {
		return c, err
	}
	if err := num("MAX_SESSION_MB", &c.MaxSessionMB); err != nil {
		return c, err
	}
	if err := num("CHAT_TIMEOUT_SECONDS", &c.ChatTimeoutSeconds); err != nil {
		return c, err
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORSOrigins = origins
	}
	return c, nil
}
