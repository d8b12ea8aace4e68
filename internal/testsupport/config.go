package testsupport

import (
	"path/filepath"
	"testing"

	"picgaz/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Engine.Workers = 2
	cfgVal.Engine.HashBufferBytes = 4096

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPlan appends a plan whose source and destination live under the test
// base directory as src-<name> and dst-<name>.
func WithPlan(name, algorithm string, minBorderPx int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Plans = append(b.cfg.Plans, config.Plan{
			Name:          name,
			Source:        filepath.Join(b.baseDir, "src-"+name),
			Destination:   filepath.Join(b.baseDir, "dst-"+name),
			HashAlgorithm: algorithm,
			Filters:       config.Filters{MinBorderPx: minBorderPx},
		})
	}
}

// WithConfirmPhrase overrides the rebuild confirmation phrase.
func WithConfirmPhrase(phrase string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.ConfirmPhrase = phrase
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
