package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	if err := c.normalizePlans(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine() {
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = defaultWorkers()
	}
	if c.Engine.HashBufferBytes <= 0 {
		c.Engine.HashBufferBytes = defaultHashBufferBytes
	}
	// The phrase is compared literally, so only an unset value is defaulted.
	if c.Engine.ConfirmPhrase == "" {
		c.Engine.ConfirmPhrase = defaultConfirmPhrase
	}
	c.Engine.QuarantineDir = strings.TrimSpace(c.Engine.QuarantineDir)
	if c.Engine.QuarantineDir == "" {
		c.Engine.QuarantineDir = defaultQuarantineDir
	}
	c.Engine.ManifestExt = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Engine.ManifestExt), "."))
	if c.Engine.ManifestExt == "" {
		c.Engine.ManifestExt = defaultManifestExt
	}
}

func (c *Config) normalizePlans() error {
	for i := range c.Plans {
		plan := &c.Plans[i]
		plan.Name = strings.TrimSpace(plan.Name)
		if plan.Name == "" {
			plan.Name = fmt.Sprintf("plan-%d", i+1)
		}
		var err error
		if plan.Source, err = expandPath(strings.TrimSpace(plan.Source)); err != nil {
			return fmt.Errorf("plans[%d].source: %w", i, err)
		}
		if plan.Destination, err = expandPath(strings.TrimSpace(plan.Destination)); err != nil {
			return fmt.Errorf("plans[%d].destination: %w", i, err)
		}
		plan.HashAlgorithm = strings.ToLower(strings.TrimSpace(plan.HashAlgorithm))
		if plan.HashAlgorithm == "" {
			plan.HashAlgorithm = defaultHashAlgorithm
		}
		if plan.Source != "" {
			plan.Source = filepath.Clean(plan.Source)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
