package adapters_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/momentics/nibblepipe/adapters"
	"github.com/momentics/nibblepipe/api"
	"github.com/momentics/nibblepipe/control"
	"github.com/momentics/nibblepipe/internal/logging"
)

type fakeDevice struct {
	mu    sync.Mutex
	max   int
	calls int
}

func (f *fakeDevice) SetMaxOpeners(n int) error {
	if n <= 0 {
		return api.ErrInvalidArgument
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.max = n
	f.calls++
	return nil
}

func (f *fakeDevice) Status() api.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return api.Status{MaxOpeners: f.max, Blocks: 3}
}

func (f *fakeDevice) Shutdown() error { return nil }

func TestControlAdapterBasic(t *testing.T) {
	ctrl := adapters.NewControlAdapter(logging.Discard())
	if len(ctrl.GetConfig()) != 0 {
		t.Error("Expected empty config on init")
	}
	if err := ctrl.SetConfig(map[string]any{"k": 1}); err != nil {
		t.Fatal(err)
	}
	if ctrl.GetConfig()["k"] != 1 {
		t.Error("SetConfig did not apply")
	}
	called := false
	ctrl.OnReload(func() { called = true })
	ctrl.SetConfig(map[string]any{"x": 2})
	if !called {
		t.Error("Reload hook not called")
	}
}

func TestControlAdapterAppliesMaxOpeners(t *testing.T) {
	dev := &fakeDevice{max: 1}
	ctrl := adapters.NewControlAdapter(logging.Discard())
	if err := ctrl.SetConfig(map[string]any{adapters.KeyMaxOpeners: 2}); err != nil {
		t.Fatal(err)
	}
	ctrl.Bind(dev)
	if dev.Status().MaxOpeners != 2 {
		t.Fatalf("bind did not apply pending value: %d", dev.max)
	}

	if err := ctrl.SetConfig(map[string]any{adapters.KeyMaxOpeners: float64(4)}); err != nil {
		t.Fatal(err)
	}
	if dev.Status().MaxOpeners != 4 {
		t.Fatalf("max = %d, want 4", dev.max)
	}

	// unchanged value is not re-applied
	calls := dev.calls
	ctrl.SetConfig(map[string]any{"unrelated": true})
	if dev.calls != calls {
		t.Fatal("unchanged limit applied again")
	}
}

func TestControlAdapterRejectsBadMaxOpeners(t *testing.T) {
	dev := &fakeDevice{max: 1}
	ctrl := adapters.NewControlAdapter(logging.Discard())
	ctrl.Bind(dev)
	for _, v := range []any{0, -1, 1.5, "two"} {
		err := ctrl.SetConfig(map[string]any{adapters.KeyMaxOpeners: v})
		if !errors.Is(err, api.ErrInvalidArgument) {
			t.Fatalf("SetConfig(%v) = %v", v, err)
		}
	}
	if _, ok := ctrl.GetConfig()[adapters.KeyMaxOpeners]; ok {
		t.Fatal("rejected value stored")
	}
	if dev.Status().MaxOpeners != 1 {
		t.Fatal("device limit changed")
	}
}

func TestControlAdapterStats(t *testing.T) {
	ctrl := adapters.NewControlAdapter(logging.Discard())
	ctrl.Bind(&fakeDevice{max: 1})
	ctrl.Metrics().Set("device.drain_passes", uint64(9))
	ctrl.RegisterDebugProbe("custom", func() any { return "ok" })

	stats := ctrl.Stats()
	if stats["device.drain_passes"] != uint64(9) {
		t.Fatalf("metric missing: %v", stats)
	}
	if stats["debug.custom"] != "ok" {
		t.Fatalf("probe missing: %v", stats)
	}
	status, ok := stats["debug.status"].(map[string]any)
	if !ok || status["blocks"] != 3 {
		t.Fatalf("status probe = %v", stats["debug.status"])
	}
}

func TestWatchedFileRejectsBadMaxOpeners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.json")
	write := func(body string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	dev := &fakeDevice{max: 1}
	ctrl := adapters.NewControlAdapter(logging.Discard())
	ctrl.Bind(dev)

	write(`{"max_openers": 0}`)
	if _, err := control.NewWatcher(path, ctrl, logging.Discard()); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("initial bad file: %v", err)
	}

	write(`{"max_openers": 2}`)
	w, err := control.NewWatcher(path, ctrl, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	w.SetSettle(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	write(`{"max_openers": -3, "tag": "bad"}`)
	time.Sleep(200 * time.Millisecond)
	if v := ctrl.GetConfig()[adapters.KeyMaxOpeners]; fmt.Sprint(v) != "2" {
		t.Fatalf("rejected reload stored max_openers=%v", v)
	}
	if _, ok := ctrl.GetConfig()["tag"]; ok {
		t.Fatal("rejected reload partially merged")
	}

	write(`{"max_openers": 5}`)
	deadline := time.Now().Add(3 * time.Second)
	for dev.Status().MaxOpeners != 5 {
		if time.Now().After(deadline) {
			t.Fatalf("valid reload not applied: max=%d", dev.Status().MaxOpeners)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
