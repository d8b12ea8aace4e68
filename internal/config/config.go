package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directories owned by picgaz itself (never the plan stores).
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Engine contains knobs shared by every plan.
type Engine struct {
	// Workers bounds concurrent evaluate/hash work. Manifest mutation is
	// always single-threaded regardless of this value.
	Workers         int    `toml:"workers"`
	HashBufferBytes int    `toml:"hash_buffer_bytes"`
	ConfirmPhrase   string `toml:"confirm_phrase"`
	QuarantineDir   string `toml:"quarantine_dir"`
	ManifestExt     string `toml:"manifest_ext"`
}

// Filters holds the acceptance policy for a plan.
type Filters struct {
	MinBorderPx int `toml:"min_border_px"`
}

// Plan describes one source -> destination deduplication job.
type Plan struct {
	Name          string  `toml:"name"`
	Source        string  `toml:"source"`
	Destination   string  `toml:"destination"`
	HashAlgorithm string  `toml:"hash_algorithm"`
	Filters       Filters `toml:"filters"`
}

// Config encapsulates all configuration values for picgaz.
//
// Configuration sections:
//   - Paths: state (history db, locks) and log directories
//   - Logging: log format and level
//   - Engine: worker count, hash chunk size, repair confirmation phrase,
//     quarantine and manifest naming
//   - Plans: ordered list of source/destination jobs
type Config struct {
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
	Engine  Engine  `toml:"engine"`
	Plans   []Plan  `toml:"plans"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("picgaz.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. Plan destinations
// are created by the runner, not here, so a mistyped destination is never
// silently materialized by a read-only command.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockDir returns the directory holding per-destination lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

// FindPlan returns the plan with the given name.
func (c *Config) FindPlan(name string) (Plan, bool) {
	name = strings.TrimSpace(name)
	for _, plan := range c.Plans {
		if plan.Name == name {
			return plan, true
		}
	}
	return Plan{}, false
}

// SelectPlans returns every plan when name is empty, otherwise the named plan.
func (c *Config) SelectPlans(name string) ([]Plan, error) {
	if strings.TrimSpace(name) == "" {
		out := make([]Plan, len(c.Plans))
		copy(out, c.Plans)
		return out, nil
	}
	plan, ok := c.FindPlan(name)
	if !ok {
		return nil, fmt.Errorf("plan %q not found in configuration", name)
	}
	return []Plan{plan}, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
