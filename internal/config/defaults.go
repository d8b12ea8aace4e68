package config

import "runtime"

const (
	defaultConfigPath      = "~/.config/picgaz/config.toml"
	defaultStateDir        = "~/.local/share/picgaz"
	defaultLogDir          = "~/.local/share/picgaz/logs"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultHashBufferBytes = 20_000_000
	defaultConfirmPhrase   = "yEs"
	defaultQuarantineDir   = "FAILED_FILES_OF_PICGAZ"
	defaultManifestExt     = "yml"
	defaultHashAlgorithm   = "md5"
	maxDefaultWorkers      = 8
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Engine: Engine{
			Workers:         defaultWorkers(),
			HashBufferBytes: defaultHashBufferBytes,
			ConfirmPhrase:   defaultConfirmPhrase,
			QuarantineDir:   defaultQuarantineDir,
			ManifestExt:     defaultManifestExt,
		},
	}
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > maxDefaultWorkers {
		return maxDefaultWorkers
	}
	if n < 1 {
		return 1
	}
	return n
}
