package engines

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/recite/tts"
	"github.com/dgnsrekt/recite/tts/audio"
	"github.com/dgnsrekt/recite/tts/engines/mock"
)

func TestNewMock(t *testing.T) {
	cfg := tts.DefaultConfig()
	cfg.Engine = tts.EngineMock

	engine, err := New(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer engine.Close()

	if _, ok := engine.(*mock.Engine); !ok {
		t.Errorf("New() = %T, want *mock.Engine", engine)
	}
}

func TestNewUnknown(t *testing.T) {
	cfg := tts.DefaultConfig()
	cfg.Engine = "sapi"

	if _, err := New(context.Background(), cfg, Options{}); !errors.Is(err, tts.ErrUnknownEngine) {
		t.Errorf("New() error = %v, want ErrUnknownEngine", err)
	}
}

func TestNewPiperWithCache(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "piper")
	model := filepath.Join(dir, "voice.onnx")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(model, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := tts.DefaultConfig()
	cfg.Piper.Binary = binary
	cfg.Piper.Model = model
	cacheDir := t.TempDir()

	engine, err := New(context.Background(), cfg, Options{CacheDir: cacheDir, Device: audio.SilentDevice{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := engine.(*cachedEngine); !ok {
		t.Errorf("New() = %T, want *cachedEngine", engine)
	}
	if err := engine.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "speech")); err != nil {
		t.Errorf("cache directory not created: %v", err)
	}
}

func TestNewPiperMissing(t *testing.T) {
	cfg := tts.DefaultConfig()
	cfg.Piper.Binary = filepath.Join(t.TempDir(), "missing-piper")

	if _, err := New(context.Background(), cfg, Options{Device: audio.SilentDevice{}}); err == nil {
		t.Error("New() should fail when piper is missing")
	}
}
