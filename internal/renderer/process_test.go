package renderer

import (
	"context"
	"testing"

	"github.com/zimalabs/genflow/internal/config"
	"github.com/zimalabs/genflow/internal/pricing"
)

func TestNewProcess(t *testing.T) {
	proc := NewProcess(context.Background(), "claude", pricing.NewTable())

	if proc == nil {
		t.Fatal("NewProcess returned nil")
	}
	if proc.eventCh == nil {
		t.Error("eventCh should not be nil")
	}
	if proc.done == nil {
		t.Error("done channel should not be nil")
	}
}

func TestProcessWaitWithoutStart(t *testing.T) {
	proc := NewProcess(context.Background(), "claude", pricing.NewTable())

	err := proc.Wait()
	if err == nil {
		t.Error("Wait should return error when process not started")
	}
}

func TestProcessKillWithoutStart(t *testing.T) {
	proc := NewProcess(context.Background(), "claude", pricing.NewTable())

	if err := proc.Kill(); err != nil {
		t.Errorf("Kill without start should not error, got: %v", err)
	}
}

func TestProcessStderrWithoutStart(t *testing.T) {
	proc := NewProcess(context.Background(), "claude", pricing.NewTable())

	if got := proc.Stderr(); got != "" {
		t.Errorf("Stderr without start = %q, want empty", got)
	}
}

func TestProcessRunsTrivialBinary(t *testing.T) {
	// "true" exits 0 with no output; the event channel must close cleanly.
	proc := NewProcess(context.Background(), "true", pricing.NewTable())
	if err := proc.Start("ignored prompt", StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for range proc.Events() {
	}
	if err := proc.Wait(); err != nil {
		t.Errorf("Wait: %v", err)
	}
}

func TestNewFactorySelectsBackend(t *testing.T) {
	prices := pricing.NewTable()

	f, err := NewFactory(config.RendererConfig{Backend: "subprocess", Binary: "claude"}, prices)
	if err != nil {
		t.Fatalf("subprocess factory: %v", err)
	}
	if _, ok := f.(*SubprocessFactory); !ok {
		t.Errorf("factory type = %T, want *SubprocessFactory", f)
	}

	f, err = NewFactory(config.RendererConfig{Backend: "api", APIKey: "sk-test"}, prices)
	if err != nil {
		t.Fatalf("api factory: %v", err)
	}
	if _, ok := f.(*APIFactory); !ok {
		t.Errorf("factory type = %T, want *APIFactory", f)
	}

	if _, err := NewFactory(config.RendererConfig{Backend: "api"}, prices); err == nil {
		t.Error("api backend without key should error")
	}

	if _, err := NewFactory(config.RendererConfig{Backend: "carrier-pigeon"}, prices); err == nil {
		t.Error("unknown backend should error")
	}
}
