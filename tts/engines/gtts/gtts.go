// Package gtts synthesizes speech through Google Translate's TTS service
// using gtts-cli, converting its MP3 output to PCM with ffmpeg.
package gtts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/internal/subprocess"
	"github.com/dgnsrekt/recite/tts"
	"github.com/dgnsrekt/recite/tts/audio"
	"golang.org/x/time/rate"
)

// maxTextSize is the longest text sent in one request.
const maxTextSize = 5000

// Synthesizer implements tts.Synthesizer with gtts-cli and ffmpeg.
type Synthesizer struct {
	gtts   string
	ffmpeg string
	slow   bool

	// Google blocks clients that send requests too quickly.
	limiter *rate.Limiter
	runner  subprocess.Runner
}

// New resolves gtts-cli and ffmpeg as configured by cfg.
func New(cfg tts.GTTSConfig) (*Synthesizer, error) {
	return newWithRunner(cfg, subprocess.Exec{Timeout: cfg.Timeout})
}

func newWithRunner(cfg tts.GTTSConfig, runner subprocess.Runner) (*Synthesizer, error) {
	gttsPath, err := subprocess.Find(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("gtts-cli not found, install with: pip install gtts: %w", err)
	}
	ffmpegPath, err := subprocess.Find(cfg.FFmpeg)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found, install it with your package manager: %w", err)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	log.Debug("gtts: using tools", "gtts", gttsPath, "ffmpeg", ffmpegPath, "rpm", rpm)

	return &Synthesizer{
		gtts:    gttsPath,
		ffmpeg:  ffmpegPath,
		slow:    cfg.Slow,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		runner:  runner,
	}, nil
}

// Name implements tts.Synthesizer.
func (s *Synthesizer) Name() string {
	if s.slow {
		return "gtts:slow"
	}
	return "gtts"
}

// SampleRate implements tts.Synthesizer.
func (s *Synthesizer) SampleRate() int {
	return audio.SampleRate
}

// Synthesize implements tts.Synthesizer.
// Process: text → gtts-cli → MP3 → ffmpeg → PCM.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, config tts.EngineConfig) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}
	if len(text) > maxTextSize {
		return nil, fmt.Errorf("%w: %d characters (max %d)", tts.ErrTextTooLong, len(text), maxTextSize)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	mp3, err := s.runner.Run(ctx, strings.NewReader(text), s.gtts, s.gttsArgs(config)...)
	if err != nil {
		if isNetworkFailure(err) {
			return nil, &tts.NetworkError{Err: err}
		}
		return nil, fmt.Errorf("gtts-cli failed: %w", err)
	}
	if len(mp3) == 0 {
		return nil, errors.New("gtts-cli produced no audio")
	}

	pcm, err := s.runner.Run(ctx, bytes.NewReader(mp3), s.ffmpeg, ffmpegArgs(config.Rate)...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg conversion failed: %w", err)
	}

	log.Debug("gtts: synthesis complete", "mp3", len(mp3), "pcm", len(pcm))
	return pcm, nil
}

func (s *Synthesizer) gttsArgs(config tts.EngineConfig) []string {
	args := []string{"--lang", language(config.Language)}
	if s.slow {
		args = append(args, "--slow")
	}
	// "-" reads the text from stdin.
	return append(args, "-")
}

// language maps a tag like "en-US" or "pt_BR" to the code gTTS expects.
func language(tag string) string {
	tag = strings.ReplaceAll(tag, "_", "-")
	lang, region, ok := strings.Cut(tag, "-")
	lang = strings.ToLower(lang)
	// gTTS only distinguishes regional variants for these.
	if ok && (lang == "zh" || lang == "pt" || lang == "fr") {
		return lang + "-" + strings.ToUpper(region)
	}
	return lang
}

// ffmpegArgs converts MP3 on stdin to raw PCM on stdout.
func ffmpegArgs(speed float64) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", fmt.Sprint(audio.SampleRate),
		"-ac", fmt.Sprint(audio.Channels),
	}
	if speed > 0 && speed != 1.0 {
		// atempo accepts 0.5 to 2.0.
		speed = min(max(speed, 0.5), 2.0)
		args = append(args, "-filter:a", fmt.Sprintf("atempo=%.2f", speed))
	}
	return append(args, "-")
}

func isNetworkFailure(err error) bool {
	var perr *subprocess.Error
	if !errors.As(err, &perr) {
		return false
	}
	if perr.TimedOut {
		return true
	}
	stderr := strings.ToLower(perr.Stderr)
	for _, hint := range []string{"connection", "connect", "resolve", "network", "timed out", "429"} {
		if strings.Contains(stderr, hint) {
			return true
		}
	}
	return false
}
