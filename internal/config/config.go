// Package config resolves engine configuration from a global file
// under the user's home directory, a per-project local file, merged
// with environment variables and hardcoded defaults, in precedence
// order env > local > global > defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	argusDirName      = ".argus"
	globalConfigFile  = "config.json"
	localConfigFile   = "config.json"
	localConfigSubdir = ".argus"

	// ArgusHomeEnv overrides ~/.argus, mainly for tests.
	ArgusHomeEnv = "ARGUS_HOME"
)

// Defaults for manifest/sessions locations, backend kind, the code
// plugin's per-run budget and iteration ceiling, and the lock timeout.
const (
	DefaultManifestDir     = "manifests"
	DefaultSessionsRoot    = "sessions"
	DefaultBackendKind     = "fs"
	DefaultBudgetUSD       = 1.00
	DefaultMaxIterations   = 40
	DefaultLockTimeoutSecs = 30

	minBudgetUSD = 0.0
	maxBudgetUSD = 100.0
	minTimeout   = 1
	maxTimeout   = 3600
)

// GlobalConfig is the raw structure persisted at ~/.argus/config.json.
type GlobalConfig struct {
	AnthropicAPIKey string   `json:"anthropic_api_key,omitempty"`
	BudgetUSD       *float64 `json:"budget_usd,omitempty"`
	MaxIterations   *int     `json:"max_iterations,omitempty"`
	SentryDSN       string   `json:"sentry_dsn,omitempty"`
	LockTimeoutSecs *int     `json:"lock_timeout_secs,omitempty"`
}

// LocalConfig is the raw structure persisted at <project>/.argus/config.json.
type LocalConfig struct {
	ManifestDirs []string `json:"manifest_dirs,omitempty"`
	SessionsRoot string   `json:"sessions_root,omitempty"`
	BackendKind  string   `json:"backend_kind,omitempty"`
	BudgetUSD    *float64 `json:"budget_usd,omitempty"`
}

// Config is the merged, resolved configuration the engine and
// cmd/dagctl build against.
type Config struct {
	ManifestDirs    []string
	SessionsRoot    string
	BackendKind     string
	AnthropicAPIKey string
	BudgetUSD       float64
	MaxIterations   int
	SentryDSN       string
	LockTimeoutSecs int

	global   *GlobalConfig
	local    *LocalConfig
	repoRoot string
}

// ArgusDir returns ~/.argus, or the ARGUS_HOME override.
func ArgusDir() (string, error) {
	if override := os.Getenv(ArgusHomeEnv); override != "" {
		return filepath.Clean(override), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving user home: %w", err)
	}
	return filepath.Join(home, argusDirName), nil
}

// Load reads the global and (if repoRoot is non-empty) local config
// files and merges them with environment overrides into a Config.
// Missing files are not an error: absence means "use defaults".
func Load(repoRoot string) (*Config, error) {
	global, err := loadGlobal()
	if err != nil {
		return nil, fmt.Errorf("config: global: %w", err)
	}

	var local *LocalConfig
	if repoRoot != "" {
		local, err = loadLocal(repoRoot)
		if err != nil {
			return nil, fmt.Errorf("config: local: %w", err)
		}
	}

	return merge(global, local, repoRoot), nil
}

func loadGlobal() (*GlobalConfig, error) {
	dir, err := ArgusDir()
	if err != nil {
		return nil, err
	}
	return readJSONConfig[GlobalConfig](filepath.Join(dir, globalConfigFile))
}

func loadLocal(repoRoot string) (*LocalConfig, error) {
	path := filepath.Clean(filepath.Join(repoRoot, localConfigSubdir, localConfigFile))
	return readJSONConfig[LocalConfig](path)
}

func readJSONConfig[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var zero T
			return &zero, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		var zero T
		return &zero, nil
	}
	var cfg T
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func merge(global *GlobalConfig, local *LocalConfig, repoRoot string) *Config {
	c := &Config{
		ManifestDirs:    []string{DefaultManifestDir},
		SessionsRoot:    DefaultSessionsRoot,
		BackendKind:     DefaultBackendKind,
		BudgetUSD:       DefaultBudgetUSD,
		MaxIterations:   DefaultMaxIterations,
		LockTimeoutSecs: DefaultLockTimeoutSecs,
		global:          global,
		local:           local,
		repoRoot:        repoRoot,
	}

	if global != nil {
		if global.AnthropicAPIKey != "" {
			c.AnthropicAPIKey = global.AnthropicAPIKey
		}
		if global.BudgetUSD != nil {
			c.BudgetUSD = clampBudget(*global.BudgetUSD)
		}
		if global.MaxIterations != nil && *global.MaxIterations > 0 {
			c.MaxIterations = *global.MaxIterations
		}
		if global.SentryDSN != "" {
			c.SentryDSN = global.SentryDSN
		}
		if global.LockTimeoutSecs != nil {
			c.LockTimeoutSecs = clampTimeout(*global.LockTimeoutSecs)
		}
	}

	if local != nil {
		if len(local.ManifestDirs) > 0 {
			c.ManifestDirs = local.ManifestDirs
		}
		if local.SessionsRoot != "" {
			c.SessionsRoot = local.SessionsRoot
		}
		if local.BackendKind != "" {
			c.BackendKind = local.BackendKind
		}
		if local.BudgetUSD != nil {
			c.BudgetUSD = clampBudget(*local.BudgetUSD)
		}
	}

	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		c.AnthropicAPIKey = envKey
	}
	if envDSN := os.Getenv("ARGUS_SENTRY_DSN"); envDSN != "" {
		c.SentryDSN = envDSN
	}

	return c
}

func clampBudget(v float64) float64 {
	if v < minBudgetUSD {
		return minBudgetUSD
	}
	if v > maxBudgetUSD {
		return maxBudgetUSD
	}
	return v
}

func clampTimeout(v int) int {
	if v < minTimeout {
		return minTimeout
	}
	if v > maxTimeout {
		return maxTimeout
	}
	return v
}

// SaveGlobal persists the resolved API key, budget, iteration ceiling,
// and Sentry DSN back to ~/.argus/config.json.
func (c *Config) SaveGlobal() error {
	if c.global == nil {
		c.global = &GlobalConfig{}
	}
	c.global.AnthropicAPIKey = c.AnthropicAPIKey
	budget := c.BudgetUSD
	c.global.BudgetUSD = &budget
	iterations := c.MaxIterations
	c.global.MaxIterations = &iterations
	c.global.SentryDSN = c.SentryDSN

	dir, err := ArgusDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: creating %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c.global, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	data = append(data, '\n')

	return os.WriteFile(filepath.Join(dir, globalConfigFile), data, 0o600)
}

// MaskAPIKey returns a display-safe form of an API key, showing only
// the last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// ManifestPath joins dir with name, rejecting a name that tries to
// escape dir (same path-traversal concern dag.ParseManifest applies
// to handler ids).
func ManifestPath(dir, name string) (string, error) {
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", fmt.Errorf("config: unsafe manifest name %q", name)
	}
	return filepath.Join(dir, name), nil
}
