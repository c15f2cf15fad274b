package config

import (
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// mapProvider adapts a plain map of defaults into a koanf.Provider.
func mapProvider(m map[string]interface{}) koanf.Provider {
	return confmap.Provider(m, ".")
}

// envKey maps an ORACLE_-prefixed environment variable name onto the
// lowercase key used internally, e.g. ORACLE_LOG_LEVEL -> oracle_log_level.
func envKey(s string) string {
	return strings.ToLower(s)
}
