package replication_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/qq511939992/walrepl/pkg/lifecycle"
	"github.com/qq511939992/walrepl/pkg/replication"
)

// testLogger captures log messages.
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, fields ...replication.LogField) { l.log("DEBUG", msg) }
func (l *testLogger) Info(msg string, fields ...replication.LogField)  { l.log("INFO", msg) }
func (l *testLogger) Warn(msg string, fields ...replication.LogField)  { l.log("WARN", msg) }
func (l *testLogger) Error(msg string, fields ...replication.LogField) { l.log("ERROR", msg) }

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("[%s] %s", level, msg))
}

func (l *testLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

// trackingPlugin records initialization and shutdown order.
type trackingPlugin struct {
	name          string
	initOrder     *[]string
	shutdownOrder *[]string
	initError     error
	shutdownError error
	cfg           replication.PluginConfig
	ctx           context.Context
}

func (p *trackingPlugin) Name() string { return p.name }

func (p *trackingPlugin) Initialize(ctx context.Context, cfg replication.PluginConfig) error {
	if p.initError != nil {
		return p.initError
	}
	*p.initOrder = append(*p.initOrder, p.name)
	p.cfg = cfg
	p.ctx = ctx
	return nil
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	*p.shutdownOrder = append(*p.shutdownOrder, p.name)
	return p.shutdownError
}

func TestPlugin_InitializationOrder(t *testing.T) {
	var initOrder, shutdownOrder []string
	p1 := &trackingPlugin{name: "p1", initOrder: &initOrder, shutdownOrder: &shutdownOrder}
	p2 := &trackingPlugin{name: "p2", initOrder: &initOrder, shutdownOrder: &shutdownOrder}
	p3 := &trackingPlugin{name: "p3", initOrder: &initOrder, shutdownOrder: &shutdownOrder}

	r, err := replication.New("leader",
		replication.WithPlugin(p1),
		replication.WithPlugin(p2),
		replication.WithPlugin(p3),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if fmt.Sprint(initOrder) != "[p1 p2 p3]" {
		t.Errorf("init order = %v", initOrder)
	}
	if p1.cfg.Strategy != "leader" || p1.cfg.Faults == nil || p1.cfg.Logger == nil {
		t.Errorf("plugin config = %+v", p1.cfg)
	}

	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if fmt.Sprint(shutdownOrder) != "[p3 p2 p1]" {
		t.Errorf("shutdown order = %v, want reverse of init", shutdownOrder)
	}
	if p1.ctx.Err() == nil {
		t.Error("plugin context not cancelled by Stop")
	}
}

func TestPlugin_InitializationFailure(t *testing.T) {
	var initOrder, shutdownOrder []string
	p1 := &trackingPlugin{name: "p1", initOrder: &initOrder, shutdownOrder: &shutdownOrder}
	p2 := &trackingPlugin{name: "p2", initOrder: &initOrder, shutdownOrder: &shutdownOrder, initError: errBoom}
	p3 := &trackingPlugin{name: "p3", initOrder: &initOrder, shutdownOrder: &shutdownOrder}
	logger := &testLogger{}

	r, _ := replication.New("leader",
		replication.WithLogger(logger),
		replication.WithPlugin(p1),
		replication.WithPlugin(p2),
		replication.WithPlugin(p3),
	)

	err := r.Start(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("Start() error = %v, want %v", err, errBoom)
	}
	if fmt.Sprint(initOrder) != "[p1]" {
		t.Errorf("init order = %v", initOrder)
	}
	if fmt.Sprint(shutdownOrder) != "[p1]" {
		t.Errorf("initialized plugins not shut down: %v", shutdownOrder)
	}
	if got := r.RuntimeState(); got != lifecycle.StateCrashed {
		t.Errorf("RuntimeState() = %s, want Crashed", got)
	}
	if err := r.Stop(context.Background()); err != replication.ErrNotRunning {
		t.Errorf("Stop() after failed Start error = %v", err)
	}
}

func TestPlugin_ShutdownFailureContinues(t *testing.T) {
	var initOrder, shutdownOrder []string
	p1 := &trackingPlugin{name: "p1", initOrder: &initOrder, shutdownOrder: &shutdownOrder}
	p2 := &trackingPlugin{name: "p2", initOrder: &initOrder, shutdownOrder: &shutdownOrder, shutdownError: errBoom}
	logger := &testLogger{}

	r, _ := replication.New("leader",
		replication.WithLogger(logger),
		replication.WithPlugin(p1),
		replication.WithPlugin(p2),
	)
	ctx := context.Background()
	_ = r.Start(ctx)

	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if fmt.Sprint(shutdownOrder) != "[p2 p1]" {
		t.Errorf("shutdown order = %v", shutdownOrder)
	}

	found := false
	for _, m := range logger.Messages() {
		if m == "[ERROR] plugin shutdown failed" {
			found = true
		}
	}
	if !found {
		t.Errorf("shutdown failure not logged: %v", logger.Messages())
	}
}

func TestPlugin_StartStopErrors(t *testing.T) {
	ctx := context.Background()
	r, _ := replication.New("leader")

	if err := r.Stop(ctx); err != replication.ErrNotRunning {
		t.Errorf("Stop() before Start error = %v", err)
	}
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := r.RuntimeState(); got != lifecycle.StateRunning {
		t.Errorf("RuntimeState() = %s, want Running", got)
	}
	if err := r.Start(ctx); err != replication.ErrAlreadyRunning {
		t.Errorf("second Start() error = %v", err)
	}
	if err := r.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if got := r.RuntimeState(); got != lifecycle.StateStopped {
		t.Errorf("RuntimeState() = %s, want Stopped", got)
	}
}

func TestPlugin_FaultTargetArmsContext(t *testing.T) {
	var initOrder, shutdownOrder []string
	p := &trackingPlugin{name: "p", initOrder: &initOrder, shutdownOrder: &shutdownOrder}
	r, _ := replication.New("leader", replication.WithPlugin(p))
	ctx := context.Background()
	_ = r.Start(ctx)
	defer r.Stop(ctx)

	if err := p.cfg.Faults.Arm(replication.OpBegin, 3, 1); err != nil {
		t.Fatalf("Arm() error = %v", err)
	}
	if err := r.Begin(ctx); !errors.Is(err, replication.ErrInjected) {
		t.Errorf("Begin() error = %v, want injected failure", err)
	}

	p.cfg.Faults.Disarm()
	if r.Fault().Armed() {
		t.Error("injector still armed after Disarm")
	}
}
