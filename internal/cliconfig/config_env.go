package cliconfig

import "os"

// EnvPrefix is the prefix of every environment variable read by walrepl.
const EnvPrefix = "WALREPL_"

// ApplyEnvConfig applies WALREPL_* environment variables to cfg.
// Env values override the config file but not explicitly set flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("strategy", env("STRATEGY"), &cfg.Strategy)
	s.setString("schema", env("SCHEMA"), &cfg.Schema)
	s.setString("script", env("SCRIPT"), &cfg.Script)
	s.setString("fault-file", env("FAULT_FILE"), &cfg.FaultFile)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("debounce", env("DEBOUNCE"), &cfg.DebounceDelay); err != nil {
		return err
	}
	if err := s.setDuration("backoff-initial", env("BACKOFF_INITIAL"), &cfg.BackoffInitial); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", env("BACKOFF_MAX"), &cfg.BackoffMax); err != nil {
		return err
	}

	if err := s.setIntFromString("page-size", env("PAGE_SIZE"), &cfg.PageSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-frames", env("MAX_FRAMES"), &cfg.MaxFrames); err != nil {
		return err
	}
	if err := s.setIntFromString("max-batch-bytes", env("MAX_BATCH_BYTES"), &cfg.MaxBatchBytes); err != nil {
		return err
	}

	s.setBoolFromString("status", env("STATUS"), &cfg.Status)

	return nil
}
