// Package engines builds the configured speech engine.
package engines

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/internal/cache"
	"github.com/dgnsrekt/recite/tts"
	"github.com/dgnsrekt/recite/tts/audio"
	"github.com/dgnsrekt/recite/tts/engines/gtts"
	"github.com/dgnsrekt/recite/tts/engines/mock"
	"github.com/dgnsrekt/recite/tts/engines/piper"
	"github.com/mitchellh/go-homedir"
)

// Options carries the environment an engine is built in.
type Options struct {
	// CacheDir holds the synthesis cache when tts.cache.dir is unset.
	CacheDir string

	// Device overrides the system audio device.
	Device audio.Device
}

// New creates and initializes the engine selected by cfg.Engine. The
// selection is made once; engines never fall back to one another.
func New(ctx context.Context, cfg tts.Config, opts Options) (tts.Engine, error) {
	engine, err := build(cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := engine.Init(ctx, cfg.ToEngineConfig()); err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("initialize %s engine: %w", cfg.Engine, err)
	}
	log.Debug("engines: ready", "engine", cfg.Engine, "lang", cfg.Language, "rate", cfg.Rate)
	return engine, nil
}

func build(cfg tts.Config, opts Options) (tts.Engine, error) {
	var (
		synth tts.Synthesizer
		err   error
	)
	switch cfg.Engine {
	case tts.EngineMock:
		return mock.New(cfg.Mock), nil
	case tts.EnginePiper:
		synth, err = piper.New(cfg.Piper)
	case tts.EngineGTTS:
		synth, err = gtts.New(cfg.GTTS)
	default:
		return nil, fmt.Errorf("%w: %q", tts.ErrUnknownEngine, cfg.Engine)
	}
	if err != nil {
		return nil, err
	}

	device := opts.Device
	if device == nil {
		if device, err = audio.OpenDevice(); err != nil {
			return nil, err
		}
	}

	c, err := newCache(cfg.Cache, opts.CacheDir)
	if err != nil {
		// A broken cache only costs speed.
		log.Warn("engines: synthesis cache disabled", "err", err)
		c = nil
	}

	engine := tts.NewAudioEngine(synth, audio.NewPlayer(device), audioCache(c))
	return &cachedEngine{AudioEngine: engine, cache: c}, nil
}

func newCache(cfg tts.CacheConfig, defaultDir string) (*cache.AudioCache, error) {
	dir := cfg.Dir
	if dir == "" && defaultDir != "" {
		dir = filepath.Join(defaultDir, "speech")
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, err
	}
	return cache.New(cache.Config{
		MemoryCapacity:   int64(cfg.MemoryMB) << 20,
		DiskCapacity:     int64(cfg.DiskMB) << 20,
		DiskPath:         dir,
		CompressionLevel: cfg.CompressionLevel,
	})
}

// audioCache avoids handing a typed nil to the engine.
func audioCache(c *cache.AudioCache) tts.AudioCache {
	if c == nil {
		return nil
	}
	return c
}

// cachedEngine closes its synthesis cache with the engine.
type cachedEngine struct {
	*tts.AudioEngine
	cache *cache.AudioCache
}

func (e *cachedEngine) Close() error {
	err := e.AudioEngine.Close()
	if e.cache != nil {
		err = errors.Join(err, e.cache.Close())
	}
	return err
}
