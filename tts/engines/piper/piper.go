// Package piper synthesizes speech offline with the Piper neural TTS
// command-line tool.
package piper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/internal/subprocess"
	"github.com/dgnsrekt/recite/tts"
	"github.com/dgnsrekt/recite/tts/audio"
	"github.com/mitchellh/go-homedir"
)

// Error represents Piper-specific errors.
type Error struct {
	Type    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("piper %s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("piper %s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// modelDirs are searched for "<model>.onnx" when the configured model is a
// voice name rather than a path.
var modelDirs = []string{
	"~/.local/share/piper-voices",
	"~/.config/piper/voices",
	"/usr/share/piper-voices",
	"/usr/local/share/piper-voices",
	"/opt/piper/voices",
}

// Synthesizer runs piper once per utterance and reads raw PCM from stdout.
type Synthesizer struct {
	binary  string
	model   string
	config  string
	speaker int
	runner  subprocess.Runner
}

// New resolves the piper binary and voice model described by cfg.
func New(cfg tts.PiperConfig) (*Synthesizer, error) {
	return newWithRunner(cfg, subprocess.Exec{Timeout: cfg.Timeout})
}

func newWithRunner(cfg tts.PiperConfig, runner subprocess.Runner) (*Synthesizer, error) {
	binary, err := subprocess.Find(cfg.Binary)
	if err != nil {
		return nil, &Error{
			Type:    "dependency",
			Message: "piper binary not found. Install piper TTS: https://github.com/rhasspy/piper",
			Cause:   err,
		}
	}

	model, err := findModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	config := cfg.Config
	if config == "" {
		if c := model + ".json"; fileExists(c) {
			config = c
		}
	} else if config, err = homedir.Expand(config); err != nil {
		return nil, err
	}

	log.Debug("piper: using voice", "binary", binary, "model", model, "config", config)

	return &Synthesizer{
		binary:  binary,
		model:   model,
		config:  config,
		speaker: cfg.Speaker,
		runner:  runner,
	}, nil
}

// findModel returns the .onnx file for model, which is either a path or a
// voice name like "en_US-lessac-medium".
func findModel(model string) (string, error) {
	expanded, err := homedir.Expand(model)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(expanded, ".onnx") || strings.ContainsRune(expanded, filepath.Separator) {
		if !fileExists(expanded) {
			return "", &Error{Type: "model", Message: fmt.Sprintf("model file not found: %s", expanded)}
		}
		return expanded, nil
	}

	for _, dir := range modelDirs {
		dir, err := homedir.Expand(dir)
		if err != nil {
			continue
		}
		candidate := filepath.Join(dir, expanded+".onnx")
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	return "", &Error{
		Type: "model",
		Message: fmt.Sprintf("voice %q not found. Download it from https://github.com/rhasspy/piper "+
			"and place it in ~/.local/share/piper-voices/", model),
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Name implements tts.Synthesizer.
func (s *Synthesizer) Name() string {
	return "piper:" + filepath.Base(strings.TrimSuffix(s.model, ".onnx"))
}

// SampleRate implements tts.Synthesizer.
func (s *Synthesizer) SampleRate() int {
	return audio.SampleRate
}

// Args returns the piper command line for the given settings.
func (s *Synthesizer) Args(config tts.EngineConfig) []string {
	args := []string{"--model", s.model, "--output-raw"}
	if s.config != "" {
		args = append(args, "--config", s.config)
	}
	if s.speaker > 0 {
		args = append(args, "--speaker", strconv.Itoa(s.speaker))
	}
	// length scale is the inverse of speed: 2.0 speaks twice as fast.
	if config.Rate > 0 && config.Rate != 1.0 {
		args = append(args, "--length-scale", fmt.Sprintf("%.2f", 1.0/config.Rate))
	}
	return args
}

// Synthesize implements tts.Synthesizer. Piper voices are tied to their
// model, so config.Language is not used.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, config tts.EngineConfig) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}

	pcm, err := s.runner.Run(ctx, strings.NewReader(text), s.binary, s.Args(config)...)
	if err != nil {
		var perr *subprocess.Error
		if errors.As(err, &perr) && perr.TimedOut {
			return nil, &Error{Type: "timeout", Message: "synthesis timed out", Cause: err}
		}
		return nil, &Error{Type: "synthesis", Message: "synthesis failed", Cause: err}
	}
	if len(pcm) == 0 {
		return nil, &Error{Type: "synthesis", Message: "no audio data generated"}
	}

	// 16-bit samples need an even byte count.
	if len(pcm)%2 != 0 {
		pcm = append(pcm, 0)
	}
	return pcm, nil
}
