// Package faultwatcher re-arms a replication context's failure injector from
// a TOML file. When enabled, it loads the file on start and again every time
// the file is written, so faults can be changed while a storage engine keeps
// driving the context.
//
// The file looks like:
//
//	op = "frames"   # begin, frames, undo or end
//	code = 5        # non-zero error code
//	count = 3       # failures before the injector runs dry
//	disarm = false  # true turns injection off
package faultwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/qq511939992/walrepl/pkg/log"
	"github.com/qq511939992/walrepl/pkg/replication"
)

// FaultFile is the content of a fault file.
type FaultFile struct {
	Op     string `toml:"op"`
	Code   int    `toml:"code"`
	Count  *int   `toml:"count"`
	Disarm bool   `toml:"disarm"`
}

// LoadFaultFile reads and parses a fault file.
func LoadFaultFile(path string) (FaultFile, error) {
	var ff FaultFile
	b, err := os.ReadFile(path)
	if err != nil {
		return ff, err
	}
	if err := toml.Unmarshal(b, &ff); err != nil {
		return ff, fmt.Errorf("parse %s: %w", path, err)
	}
	return ff, nil
}

// Apply configures target from the file. A missing count arms the default
// failure budget.
func (ff FaultFile) Apply(target replication.FaultTarget) error {
	if ff.Disarm {
		target.Disarm()
		return nil
	}
	op, ok := replication.ParseOp(ff.Op)
	if !ok {
		return fmt.Errorf("unknown op %q: %w", ff.Op, replication.ErrInvalidFault)
	}
	count := replication.DefaultFailureBudget
	if ff.Count != nil {
		count = *ff.Count
	}
	return target.Arm(op, ff.Code, count)
}

// Plugin watches a fault file and applies it to the replication context.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration

	// Runtime state
	strategy string
	target   replication.FaultTarget
	logger   replication.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	applied  int
}

// Config holds configuration options for the fault watcher plugin.
type Config struct {
	// Path is the fault file to watch. An empty path disables the plugin.
	Path string

	// DebounceDelay is the delay to wait after a file change before applying.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Path:          "faults.toml",
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new fault watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "faultwatcher"
}

// Initialize applies the fault file once and starts watching it.
func (p *Plugin) Initialize(ctx context.Context, cfg replication.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	p.mu.Lock()
	p.strategy = cfg.Strategy
	p.target = cfg.Faults
	p.logger = logger
	p.mu.Unlock()

	if p.path == "" || p.target == nil {
		p.logger.Warn("fault watcher disabled: no fault file or target configured")
		return nil
	}

	if _, err := os.Stat(p.path); err == nil {
		if err := p.apply(); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat fault file: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("fault watcher plugin initialized",
		log.String("strategy", p.strategy),
		log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Applied returns how many times the fault file was applied successfully.
func (p *Plugin) Applied() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceApply(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("fault watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceApply(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := p.apply(); err != nil {
			p.logger.Error("failed to apply fault file",
				log.String("path", p.path),
				log.Err(err))
		}
	})
}

func (p *Plugin) apply() error {
	ff, err := LoadFaultFile(p.path)
	if err != nil {
		return err
	}
	if err := ff.Apply(p.target); err != nil {
		return err
	}

	p.mu.Lock()
	p.applied++
	p.mu.Unlock()

	if ff.Disarm {
		p.logger.Info("failure injection disarmed", log.String("strategy", p.strategy))
	} else {
		p.logger.Info("failure injection armed",
			log.String("strategy", p.strategy),
			log.String("op", ff.Op),
			log.Int("code", ff.Code))
	}
	return nil
}

// Ensure Plugin implements replication.Plugin.
var _ replication.Plugin = (*Plugin)(nil)
