package logger

import (
	"context"
	"testing"
)

func TestInitAndGet(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	log := Get()
	if log == nil {
		t.Fatal("logger is nil after initialization")
	}

	// Named loggers should be usable without further setup.
	sub := log.Named("test")
	sub.Info(context.Background(), "hello", String("k", "v"), Int("n", 1))
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	for _, level := range []string{"debug", "info", "warn", "warning", "error", ""} {
		if err := SetLevelString(level); err != nil {
			t.Errorf("level %q rejected: %v", level, err)
		}
	}
	if err := SetLevelString("shout"); err == nil {
		t.Error("expected unknown level to be rejected")
	}
}
