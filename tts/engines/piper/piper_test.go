package piper

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dgnsrekt/recite/tts"
)

type fakeRunner struct {
	stdin string
	name  string
	args  []string
	out   []byte
	err   error
}

func (r *fakeRunner) Run(_ context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	b, _ := io.ReadAll(stdin)
	r.stdin, r.name, r.args = string(b), name, args
	return r.out, r.err
}

// fixture creates an executable piper stand-in and a voice model.
func fixture(t *testing.T) (binary, model string) {
	t.Helper()
	dir := t.TempDir()
	binary = filepath.Join(dir, "piper")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	model = filepath.Join(dir, "en_US-test-low.onnx")
	if err := os.WriteFile(model, []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	return binary, model
}

func TestNewMissingBinary(t *testing.T) {
	_, model := fixture(t)
	cfg := tts.DefaultPiperConfig()
	cfg.Binary = filepath.Join(t.TempDir(), "nope")
	cfg.Model = model

	_, err := New(cfg)
	var perr *Error
	if !errors.As(err, &perr) || perr.Type != "dependency" {
		t.Errorf("New() error = %v, want dependency error", err)
	}
}

func TestNewMissingModel(t *testing.T) {
	binary, _ := fixture(t)
	cfg := tts.DefaultPiperConfig()
	cfg.Binary = binary
	cfg.Model = "/no/such/voice.onnx"

	_, err := New(cfg)
	var perr *Error
	if !errors.As(err, &perr) || perr.Type != "model" {
		t.Errorf("New() error = %v, want model error", err)
	}
}

func TestNewFindsModelByName(t *testing.T) {
	binary, _ := fixture(t)
	voices := t.TempDir()
	model := filepath.Join(voices, "de_DE-thorsten-medium.onnx")
	if err := os.WriteFile(model, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	saved := modelDirs
	modelDirs = []string{voices}
	t.Cleanup(func() { modelDirs = saved })

	cfg := tts.DefaultPiperConfig()
	cfg.Binary = binary
	cfg.Model = "de_DE-thorsten-medium"

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.Name() != "piper:de_DE-thorsten-medium" {
		t.Errorf("Name() = %q", s.Name())
	}
}

func TestArgs(t *testing.T) {
	binary, model := fixture(t)
	if err := os.WriteFile(model+".json", []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		speaker int
		rate    float64
		want    []string
	}{
		{
			name: "normal rate",
			rate: 1.0,
			want: []string{"--model", model, "--output-raw", "--config", model + ".json"},
		},
		{
			name: "double speed",
			rate: 2.0,
			want: []string{"--model", model, "--output-raw", "--config", model + ".json", "--length-scale", "0.50"},
		},
		{
			name:    "speaker",
			speaker: 3,
			rate:    1.0,
			want:    []string{"--model", model, "--output-raw", "--config", model + ".json", "--speaker", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tts.DefaultPiperConfig()
			cfg.Binary, cfg.Model, cfg.Speaker = binary, model, tt.speaker
			s, err := New(cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			got := s.Args(tts.EngineConfig{Language: "en", Rate: tt.rate})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSynthesize(t *testing.T) {
	binary, model := fixture(t)
	cfg := tts.DefaultPiperConfig()
	cfg.Binary, cfg.Model = binary, model

	runner := &fakeRunner{out: []byte{1, 2, 3}}
	s, err := newWithRunner(cfg, runner)
	if err != nil {
		t.Fatalf("newWithRunner() error = %v", err)
	}

	pcm, err := s.Synthesize(context.Background(), "Hello there.", tts.DefaultEngineConfig())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if runner.stdin != "Hello there." {
		t.Errorf("stdin = %q", runner.stdin)
	}
	if runner.name != binary {
		t.Errorf("binary = %q, want %q", runner.name, binary)
	}
	if len(pcm) != 4 {
		t.Errorf("odd PCM should be padded to 4 bytes, got %d", len(pcm))
	}
}

func TestSynthesizeErrors(t *testing.T) {
	binary, model := fixture(t)
	cfg := tts.DefaultPiperConfig()
	cfg.Binary, cfg.Model = binary, model

	s, err := newWithRunner(cfg, &fakeRunner{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Synthesize(context.Background(), " ", tts.DefaultEngineConfig()); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("empty text error = %v, want ErrEmptyText", err)
	}

	var perr *Error
	if _, err := s.Synthesize(context.Background(), "Hi.", tts.DefaultEngineConfig()); !errors.As(err, &perr) {
		t.Errorf("no output error = %v, want *Error", err)
	}

	s.runner = &fakeRunner{err: errors.New("exit status 1")}
	if _, err := s.Synthesize(context.Background(), "Hi.", tts.DefaultEngineConfig()); !errors.As(err, &perr) || perr.Type != "synthesis" {
		t.Errorf("failed run error = %v, want synthesis error", err)
	}
}
