package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"WALREPL_STRATEGY":        "env-strategy",
				"WALREPL_SCHEMA":          "aux",
				"WALREPL_SCRIPT":          "/env/run.toml",
				"WALREPL_PAGE_SIZE":       "512",
				"WALREPL_MAX_FRAMES":      "100",
				"WALREPL_MAX_BATCH_BYTES": "2048",
				"WALREPL_FAULT_FILE":      "/env/faults.toml",
				"WALREPL_DEBOUNCE":        "50ms",
				"WALREPL_BACKOFF_INITIAL": "1ms",
				"WALREPL_BACKOFF_MAX":     "1s",
				"WALREPL_STATE_DIR":       "/state",
				"WALREPL_STATUS":          "1",
				"WALREPL_LOG_LEVEL":       "debug",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Strategy:       "env-strategy",
				Schema:         "aux",
				Script:         "/env/run.toml",
				PageSize:       512,
				MaxFrames:      100,
				MaxBatchBytes:  2048,
				FaultFile:      "/env/faults.toml",
				DebounceDelay:  50 * time.Millisecond,
				BackoffInitial: time.Millisecond,
				BackoffMax:     time.Second,
				StateDir:       "/state",
				Status:         true,
				LogLevel:       "debug",
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"WALREPL_STRATEGY": "env-strategy",
				"WALREPL_SCHEMA":   "aux",
			},
			changed:  map[string]bool{"strategy": true},
			initial:  Config{Strategy: "flag-strategy"},
			expected: Config{Strategy: "flag-strategy", Schema: "aux"},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"WALREPL_DEBOUNCE": "soon"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"WALREPL_MAX_FRAMES": "many"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:     "ignores non-positive ints",
			envVars:  map[string]string{"WALREPL_PAGE_SIZE": "0"},
			changed:  map[string]bool{},
			initial:  Config{PageSize: 1024},
			expected: Config{PageSize: 1024},
		},
		{
			name:     "handles bool 'false' as false",
			envVars:  map[string]string{"WALREPL_STATUS": "false"},
			changed:  map[string]bool{},
			initial:  Config{Status: true},
			expected: Config{Status: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	falseVal := false

	fileConf := FileConfig{
		Strategy: "file-strategy",
		Schema:   "file-schema",
		Status:   &falseVal,
	}

	t.Setenv("WALREPL_STRATEGY", "env-strategy")
	t.Setenv("WALREPL_SCHEMA", "env-schema")
	t.Setenv("WALREPL_SCRIPT", "/env/run.toml")

	// Simulate CLI flags
	changed := map[string]bool{"strategy": true}

	cfg := DefaultConfig()
	cfg.Strategy = "cli-strategy"

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.Strategy != "cli-strategy" {
		t.Errorf("Strategy = %v, want cli-strategy (CLI should win)", cfg.Strategy)
	}
	if cfg.Schema != "env-schema" {
		t.Errorf("Schema = %v, want env-schema (env should override file)", cfg.Schema)
	}
	if cfg.Script != "/env/run.toml" {
		t.Errorf("Script = %v, want /env/run.toml (env should set)", cfg.Script)
	}
	if cfg.Status {
		t.Error("Status = true, want false (file should set)")
	}
}
