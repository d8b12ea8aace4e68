package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"picgaz/internal/contenthash"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validatePlans(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	if err := ensurePositiveMap(map[string]int{
		"engine.workers":           c.Engine.Workers,
		"engine.hash_buffer_bytes": c.Engine.HashBufferBytes,
	}); err != nil {
		return err
	}
	if strings.ContainsAny(c.Engine.QuarantineDir, `/\`) {
		return errors.New("engine.quarantine_dir must be a single directory name")
	}
	if strings.ContainsAny(c.Engine.ManifestExt, `/\.`) {
		return errors.New("engine.manifest_ext must be a bare extension such as \"yml\"")
	}
	return nil
}

func (c *Config) validatePlans() error {
	names := make(map[string]struct{}, len(c.Plans))
	destinations := make(map[string]string, len(c.Plans))
	for i, plan := range c.Plans {
		if _, dup := names[plan.Name]; dup {
			return fmt.Errorf("plans[%d].name %q is used by more than one plan", i, plan.Name)
		}
		names[plan.Name] = struct{}{}

		if plan.Source == "" {
			return fmt.Errorf("plans[%d].source must be set", i)
		}
		if plan.Destination == "" {
			return fmt.Errorf("plans[%d].destination must be set", i)
		}
		if plan.Source == plan.Destination {
			return fmt.Errorf("plans[%d]: source and destination must differ", i)
		}
		if rel, err := filepath.Rel(plan.Destination, plan.Source); err == nil && !strings.HasPrefix(rel, "..") && rel != "." {
			return fmt.Errorf("plans[%d]: source must not live inside destination", i)
		}
		if !contenthash.Supported(plan.HashAlgorithm) {
			return fmt.Errorf("plans[%d].hash_algorithm %q is not supported (use one of %s)",
				i, plan.HashAlgorithm, strings.Join(contenthash.Algorithms(), ", "))
		}
		if plan.Filters.MinBorderPx < 0 {
			return fmt.Errorf("plans[%d].filters.min_border_px must be >= 0", i)
		}
		// Two plans may feed one destination only if they agree on the
		// algorithm; the manifest name is a digest under that algorithm.
		if algo, seen := destinations[plan.Destination]; seen && algo != plan.HashAlgorithm {
			return fmt.Errorf("plans[%d]: destination %s is shared with a plan using hash_algorithm %q", i, plan.Destination, algo)
		}
		destinations[plan.Destination] = plan.HashAlgorithm
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
