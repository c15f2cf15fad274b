// Package config loads oracle-v2's environment-driven configuration,
// following the teacher's koanf-based loader idiom narrowed to the
// env-only option set §6.2 defines.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// VectorBackendKind selects the VectorBackend transport.
type VectorBackendKind string

const (
	// VectorBackendPipe speaks JSON-RPC-framed requests over a child
	// process's stdio pipe. This is the spec-literal transport.
	VectorBackendPipe VectorBackendKind = "pipe"
	// VectorBackendQdrant speaks gRPC to a standalone Qdrant instance.
	VectorBackendQdrant VectorBackendKind = "qdrant"
)

// Config is oracle-v2's complete runtime configuration.
type Config struct {
	Port     int
	DataDir  string
	DBPath   string
	RepoRoot string

	LogLevel  string
	LogFormat string

	VectorBackend     VectorBackendKind
	VectorCmd         string
	QdrantAddr        string
	VectorTimeout     time.Duration
	VectorCollection  string
}

// Load builds a Config from environment variables, applying the defaults
// §6.2 specifies and the ambient additions SPEC_FULL.md records.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"oracle_port":             "47778",
		"oracle_data_dir":         defaultDataDir(),
		"oracle_log_format":       "json",
		"oracle_log_level":        "info",
		"oracle_vector_backend":   string(VectorBackendPipe),
		"oracle_vector_timeout":   "2s",
		"oracle_vector_collection": "oracle_documents",
	}
	if err := k.Load(mapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if err := k.Load(env.Provider("ORACLE_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	dataDir := k.String("oracle_data_dir")

	cfg := &Config{
		Port:             k.Int("oracle_port"),
		DataDir:          dataDir,
		DBPath:           firstNonEmpty(os.Getenv("ORACLE_DB_PATH"), filepath.Join(dataDir, "oracle.db")),
		RepoRoot:         os.Getenv("ORACLE_REPO_ROOT"),
		LogLevel:         k.String("oracle_log_level"),
		LogFormat:        k.String("oracle_log_format"),
		VectorBackend:    VectorBackendKind(k.String("oracle_vector_backend")),
		VectorCmd:        os.Getenv("ORACLE_VECTOR_CMD"),
		QdrantAddr:       os.Getenv("ORACLE_QDRANT_ADDR"),
		VectorCollection: k.String("oracle_vector_collection"),
	}

	timeout, err := time.ParseDuration(k.String("oracle_vector_timeout"))
	if err != nil {
		return nil, fmt.Errorf("config: ORACLE_VECTOR_TIMEOUT: %w", err)
	}
	cfg.VectorTimeout = timeout

	if cfg.RepoRoot == "" {
		cfg.RepoRoot = findRepoRootFromBinary(dataDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects an out-of-range port or empty data directory.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid ORACLE_PORT %d", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: ORACLE_DATA_DIR must not be empty")
	}
	switch c.VectorBackend {
	case VectorBackendPipe, VectorBackendQdrant:
	default:
		return fmt.Errorf("config: invalid ORACLE_VECTOR_BACKEND %q", c.VectorBackend)
	}
	return nil
}

func defaultDataDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE")
	}
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".oracle-v2")
}

// findRepoRootFromBinary walks up from the executable looking for a "ψ"
// directory, falling back to dataDir per §6.2.
func findRepoRootFromBinary(dataDir string) string {
	exe, err := os.Executable()
	if err != nil {
		return dataDir
	}
	dir := filepath.Dir(exe)
	for {
		candidate := filepath.Join(dir, "ψ")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dataDir
		}
		dir = parent
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
