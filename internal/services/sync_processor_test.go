package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingProcessor struct {
	calls atomic.Int32
	err   error
}

func (c *countingProcessor) ProcessPending(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	if config.PollInterval != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", config.PollInterval)
	}
}

func TestNewSyncProcessor_FillsDefaults(t *testing.T) {
	processor := NewSyncProcessor(&countingProcessor{}, SyncProcessorConfig{}, nil)
	if processor.config.PollInterval != 30*time.Second {
		t.Errorf("expected default poll interval, got %v", processor.config.PollInterval)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_Lifecycle(t *testing.T) {
	cp := &countingProcessor{err: errors.New("boom")}
	processor := NewSyncProcessor(cp, SyncProcessorConfig{PollInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}

	deadline := time.Now().Add(2 * time.Second)
	for cp.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := cp.calls.Load(); got < 3 {
		t.Fatalf("expected repeated polling despite errors, got %d calls", got)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after stop")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingProcessor{}, DefaultSyncProcessorConfig(), nil)
	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}
