// Package mock provides a silent speech engine that takes as long as
// speaking would. It is used for demos, headless runs without audio and
// tests.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/tts"
)

const tick = 5 * time.Millisecond

var _ tts.Engine = (*Engine)(nil)

// Utterance is a Speak call recorded by the engine.
type Utterance struct {
	ID   string
	Text string
}

// Engine implements tts.Engine without producing audio.
type Engine struct {
	wpm  int
	fail map[string]bool

	opMu sync.Mutex

	mu          sync.Mutex
	config      tts.EngineConfig
	listener    tts.UtteranceListener
	initialized bool
	closed      bool
	paused      bool
	spoken      []Utterance
	stops       int

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a mock engine. Utterances whose id is listed in
// cfg.FailUtterances report tts.CodeSynthesis instead of finishing.
func New(cfg tts.MockConfig) *Engine {
	fail := make(map[string]bool, len(cfg.FailUtterances))
	for _, id := range cfg.FailUtterances {
		fail[id] = true
	}
	return &Engine{
		wpm:    cfg.WordsPerMinute,
		fail:   fail,
		config: tts.DefaultEngineConfig(),
	}
}

// Init implements tts.Engine.
func (e *Engine) Init(_ context.Context, config tts.EngineConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return tts.ErrEngineClosed
	}
	e.config = config
	e.initialized = true
	return nil
}

// Speak implements tts.Engine.
func (e *Engine) Speak(text, utteranceID string) error {
	if strings.TrimSpace(text) == "" {
		return tts.ErrEmptyText
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	switch {
	case e.closed:
		e.mu.Unlock()
		return tts.ErrEngineClosed
	case !e.initialized:
		e.mu.Unlock()
		return tts.ErrEngineNotInitialized
	}
	e.spoken = append(e.spoken, Utterance{ID: utteranceID, Text: text})
	e.mu.Unlock()

	e.halt()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	e.cancel, e.done, e.paused = cancel, done, false
	listener := e.listener
	duration := e.estimateDuration(text)
	fail := e.fail[utteranceID]
	e.mu.Unlock()

	go e.run(ctx, done, utteranceID, duration, fail, listener)
	return nil
}

func (e *Engine) run(ctx context.Context, done chan struct{}, id string, d time.Duration, fail bool, l tts.UtteranceListener) {
	defer close(done)
	if l == nil {
		return
	}

	if ctx.Err() != nil {
		return
	}
	l.OnStart(id)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	var elapsed time.Duration
	for elapsed < d {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			if !e.paused {
				elapsed += tick
			}
			e.mu.Unlock()
		}
	}
	if ctx.Err() != nil {
		return
	}

	if fail {
		log.Debug("mock: failing utterance", "id", id)
		l.OnError(id, tts.CodeSynthesis)
		return
	}
	l.OnDone(id)
}

// estimateDuration returns how long text takes at the configured words per
// minute and rate. A non-positive wpm speaks instantly.
func (e *Engine) estimateDuration(text string) time.Duration {
	if e.wpm <= 0 {
		return 0
	}
	words := len(strings.Fields(text))
	rate := e.config.Rate
	if rate <= 0 {
		rate = 1
	}
	minutes := float64(words) / (float64(e.wpm) * rate)
	return time.Duration(minutes * float64(time.Minute))
}

// halt cancels the in-flight utterance and waits for it to exit.
func (e *Engine) halt() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Pause implements tts.Engine.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return tts.ErrEngineClosed
	}
	e.paused = true
	return nil
}

// Resume implements tts.Engine.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return tts.ErrEngineClosed
	}
	e.paused = false
	return nil
}

// Stop implements tts.Engine.
func (e *Engine) Stop() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return tts.ErrEngineClosed
	}
	e.stops++
	e.mu.Unlock()

	e.halt()
	return nil
}

// SetLanguage implements tts.Engine.
func (e *Engine) SetLanguage(lang string) error {
	if err := tts.ValidateLanguage(lang); err != nil {
		return err
	}
	e.mu.Lock()
	e.config.Language = lang
	e.mu.Unlock()
	return nil
}

// SetRate implements tts.Engine.
func (e *Engine) SetRate(rate float64) error {
	if err := tts.ValidateRate(rate); err != nil {
		return err
	}
	e.mu.Lock()
	e.config.Rate = rate
	e.mu.Unlock()
	return nil
}

// SetListener implements tts.Engine.
func (e *Engine) SetListener(l tts.UtteranceListener) {
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}

// Close implements tts.Engine.
func (e *Engine) Close() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.halt()
	return nil
}

// Spoken returns every Speak call so far.
func (e *Engine) Spoken() []Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Utterance(nil), e.spoken...)
}

// Stops returns how many times Stop was called.
func (e *Engine) Stops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops
}
