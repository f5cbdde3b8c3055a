package maincmd

import "github.com/caarlos0/env/v6"

// EnvConfig holds the environment variables spec.md §6 lists as the
// recognized ORUS_* settings. It is parsed once in Cmd.Main and merged
// with (but always overridden by) any flag the user passed explicitly,
// the same precedence the teacher's mainer.Parser gives flags over
// environment defaults.
type EnvConfig struct {
	LogLevel        string `env:"ORUS_LOG_LEVEL" envDefault:"info"`
	LogColors       bool   `env:"ORUS_LOG_COLORS" envDefault:"true"`
	LogTimestamp    bool   `env:"ORUS_LOG_TIMESTAMP" envDefault:"false"`
	LogLocation     bool   `env:"ORUS_LOG_LOCATION" envDefault:"false"`
	LogOutput       string `env:"ORUS_LOG_OUTPUT" envDefault:"stderr"`
	Debug           bool   `env:"ORUS_DEBUG" envDefault:"false"`
	DebugColors     bool   `env:"ORUS_DEBUG_COLORS" envDefault:"true"`
	DebugTimestamps bool   `env:"ORUS_DEBUG_TIMESTAMPS" envDefault:"false"`
	DebugVerbosity  int    `env:"ORUS_DEBUG_VERBOSITY" envDefault:"0"`
	ConfigFile      string `env:"ORUS_CONFIG_FILE"`
	Trace           bool   `env:"ORUS_TRACE" envDefault:"false"`
}

// loadEnvConfig reads the ORUS_* environment variables into an EnvConfig,
// applying the envDefault tags for anything unset.
func loadEnvConfig() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
