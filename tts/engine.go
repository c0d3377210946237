package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// AudioEngine is an Engine that synthesizes each utterance to PCM with a
// Synthesizer and plays it through an AudioPlayer. Synthesized audio is kept
// in an optional AudioCache so re-reading a sentence does not synthesize it
// again.
//
// Each utterance runs on its own goroutine. Listener callbacks are invoked
// on that goroutine; a listener must not call Speak or Stop synchronously
// from a callback.
type AudioEngine struct {
	synth  Synthesizer
	player AudioPlayer
	cache  AudioCache

	// opMu serializes Speak, Stop and Close.
	opMu sync.Mutex

	mu          sync.Mutex
	config      EngineConfig
	listener    UtteranceListener
	initialized bool
	closed      bool

	// in-flight utterance
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAudioEngine creates an engine over the given synthesizer and player.
// cache may be nil.
func NewAudioEngine(synth Synthesizer, player AudioPlayer, cache AudioCache) *AudioEngine {
	return &AudioEngine{
		synth:    synth,
		player:   player,
		cache:    cache,
		config:   DefaultEngineConfig(),
		listener: nopListener{},
	}
}

// Init validates and applies the voice settings.
func (e *AudioEngine) Init(_ context.Context, config EngineConfig) error {
	if err := ValidateLanguage(config.Language); err != nil {
		return err
	}
	if err := ValidateRate(config.Rate); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	e.config = config
	e.initialized = true
	e.player.SetVolume(config.Volume)

	log.Debug("tts: engine initialized", "synth", e.synth.Name(), "lang", config.Language, "rate", config.Rate)
	return nil
}

// Speak stops any in-flight utterance and starts speaking text.
func (e *AudioEngine) Speak(text, utteranceID string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	switch {
	case e.closed:
		e.mu.Unlock()
		return ErrEngineClosed
	case !e.initialized:
		e.mu.Unlock()
		return ErrEngineNotInitialized
	}
	e.mu.Unlock()

	e.halt()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.cancel = cancel
	e.done = done
	config := e.config
	listener := e.listener
	e.mu.Unlock()

	go e.run(ctx, done, text, utteranceID, config, listener)
	return nil
}

// run synthesizes and plays one utterance. Nothing is reported once ctx has
// been cancelled.
func (e *AudioEngine) run(ctx context.Context, done chan struct{}, text, id string, config EngineConfig, l UtteranceListener) {
	defer close(done)

	pcm, err := e.synthesize(ctx, text, config)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Warn("tts: synthesis failed", "id", id, "synth", e.synth.Name(), "err", err)
		l.OnError(id, codeFor(err))
		return
	}

	l.OnStart(id)

	if err := e.player.Play(ctx, pcm); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warn("tts: playback failed", "id", id, "err", err)
		l.OnError(id, CodeOutput)
		return
	}
	if ctx.Err() != nil {
		return
	}

	l.OnDone(id)
}

func (e *AudioEngine) synthesize(ctx context.Context, text string, config EngineConfig) ([]byte, error) {
	key := CacheKey(e.synth.Name(), text, config)
	if e.cache != nil {
		if pcm, ok := e.cache.Get(key); ok {
			log.Debug("tts: cache hit", "key", key[:12])
			return pcm, nil
		}
	}

	pcm, err := e.synth.Synthesize(ctx, text, config)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%s produced no audio", e.synth.Name())
	}

	if e.cache != nil {
		if err := e.cache.Put(key, pcm); err != nil {
			log.Debug("tts: cache put failed", "err", err)
		}
	}
	return pcm, nil
}

// halt cancels the in-flight utterance and waits for its goroutine to exit.
// Callers hold opMu.
func (e *AudioEngine) halt() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if err := e.player.Stop(); err != nil {
		log.Debug("tts: player stop", "err", err)
	}
	<-done
}

// Pause suspends audio output.
func (e *AudioEngine) Pause() error {
	if e.isClosed() {
		return ErrEngineClosed
	}
	return e.player.Pause()
}

// Resume continues paused audio output.
func (e *AudioEngine) Resume() error {
	if e.isClosed() {
		return ErrEngineClosed
	}
	return e.player.Resume()
}

// Stop aborts the in-flight utterance. When Stop returns, the aborted
// utterance will not deliver any further callbacks.
func (e *AudioEngine) Stop() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if e.isClosed() {
		return ErrEngineClosed
	}
	e.halt()
	return nil
}

// SetLanguage changes the language used by subsequent utterances.
func (e *AudioEngine) SetLanguage(lang string) error {
	if err := ValidateLanguage(lang); err != nil {
		return err
	}
	e.mu.Lock()
	e.config.Language = lang
	e.mu.Unlock()
	return nil
}

// SetRate changes the rate used by subsequent utterances.
func (e *AudioEngine) SetRate(rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	e.mu.Lock()
	e.config.Rate = rate
	e.mu.Unlock()
	return nil
}

// SetListener registers l for utterances started after the call. A nil
// listener discards events.
func (e *AudioEngine) SetListener(l UtteranceListener) {
	if l == nil {
		l = nopListener{}
	}
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}

// Close stops playback and releases the audio device.
func (e *AudioEngine) Close() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.halt()
	return e.player.Close()
}

func (e *AudioEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// CacheKey derives the synthesis cache key for text spoken by the named
// synthesizer with the given settings.
func CacheKey(synth, text string, config EngineConfig) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%.2f\x00%s", synth, config.Language, config.Rate, text)
	return hex.EncodeToString(h.Sum(nil))
}

type nopListener struct{}

func (nopListener) OnStart(string)            {}
func (nopListener) OnDone(string)             {}
func (nopListener) OnError(string, ErrorCode) {}
