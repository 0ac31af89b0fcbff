package faultwatcher

import "github.com/qq511939992/walrepl/pkg/replication"

// WithFaultWatcher returns a replication Option that watches a fault file.
//
// Usage:
//
//	r, err := replication.New("leader",
//	    faultwatcher.WithFaultWatcher(faultwatcher.Config{
//	        Path:          "/etc/walrepl/faults.toml",
//	        DebounceDelay: 50 * time.Millisecond,
//	    }),
//	)
func WithFaultWatcher(cfg Config) replication.Option {
	return replication.WithPlugin(New(cfg))
}

// WithDefaultFaultWatcher watches faults.toml in the working directory.
func WithDefaultFaultWatcher() replication.Option {
	return WithFaultWatcher(DefaultConfig())
}
