package reading

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/tts"
)

type playStatus int

const (
	statusIdle playStatus = iota
	statusPlaying
	statusPaused
	statusFailed
	statusFinished
)

// Playback speaks the chunks of one page through a tts.Engine, one chunk at
// a time. Every method, including the Handle* event methods, must be called
// from the controller goroutine.
type Playback struct {
	engine    tts.Engine
	lifecycle *Lifecycle
	tracker   *Tracker
	listener  HighlightListener

	// OnPageFinished runs after the last chunk of a page was spoken.
	OnPageFinished func(page int)

	page   int
	chunks []string
	index  int
	status playStatus

	// gen is read by engine goroutines to tag callbacks.
	gen atomic.Uint64
}

// NewPlayback returns a playback over engine. listener may be nil.
func NewPlayback(engine tts.Engine, lifecycle *Lifecycle, tracker *Tracker, listener HighlightListener) *Playback {
	if listener == nil {
		listener = nopListener{}
	}
	return &Playback{
		engine:    engine,
		lifecycle: lifecycle,
		tracker:   tracker,
		listener:  listener,
	}
}

// Generation returns the current playback generation. Engine callbacks are
// tagged with it when they are delivered.
func (p *Playback) Generation() uint64 {
	return p.gen.Load()
}

// Index returns the current chunk index. It equals the chunk count once the
// page finished.
func (p *Playback) Index() int { return p.index }

// Page returns the page the chunks belong to.
func (p *Playback) Page() int { return p.page }

// Chunks returns the chunk queue.
func (p *Playback) Chunks() []string { return p.chunks }

// IsPlaying reports whether a chunk is with the engine.
func (p *Playback) IsPlaying() bool { return p.status == statusPlaying }

// IsPaused reports whether playback is paused.
func (p *Playback) IsPaused() bool { return p.status == statusPaused }

// SetChunks replaces the queue. start is clamped to the queue.
func (p *Playback) SetChunks(page int, chunks []string, start int) {
	p.halt()
	p.page = page
	p.chunks = chunks
	p.index = clamp(start, 0, max(len(chunks)-1, 0))
	p.status = statusIdle
}

// Start speaks from the current chunk, or from the first one when the page
// already finished.
func (p *Playback) Start() error {
	i := p.index
	if i >= len(p.chunks) {
		i = 0
	}
	return p.StartFrom(i)
}

// StartFrom speaks chunk i, abandoning any chunk in flight.
func (p *Playback) StartFrom(i int) error {
	if i < 0 || i > len(p.chunks) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidChunk, i, len(p.chunks))
	}
	p.halt()
	p.index = i
	return p.speak()
}

// Pause stops the engine and freezes the index.
func (p *Playback) Pause() {
	if p.status != statusPlaying {
		return
	}
	p.halt()
	p.status = statusPaused
}

// Resume speaks the paused chunk again from its start. After an engine
// failure it retries the failed chunk.
func (p *Playback) Resume() error {
	if p.status != statusPaused && p.status != statusFailed {
		return nil
	}
	return p.speak()
}

// Stop abandons the page: the index returns to zero and the queue is
// cleared.
func (p *Playback) Stop() {
	p.halt()
	p.chunks = nil
	p.index = 0
	p.status = statusIdle
}

// halt stops the engine and starts a new generation. The engine guarantees
// no callback for the stopped utterance arrives once Stop returns, so
// anything tagged with the old generation is already in the mailbox and
// will be dropped.
func (p *Playback) halt() {
	if p.status != statusPlaying {
		return
	}
	if err := p.engine.Stop(); err != nil && !errors.Is(err, tts.ErrEngineClosed) {
		log.Warn("reading: engine stop failed", "err", err)
	}
	p.gen.Add(1)
	p.lifecycle.FinishChunk(p.page, p.index)
	p.status = statusIdle
}

func (p *Playback) speak() error {
	if p.index >= len(p.chunks) {
		p.finish()
		return nil
	}
	if !p.lifecycle.StartChunk(p.page, p.index) {
		p.status = statusIdle
		err := p.stale("speak")
		log.Debug("reading: not speaking", "err", err, "state", p.lifecycle.State())
		return err
	}

	text := p.chunks[p.index]
	if err := p.engine.Speak(text, UtteranceID(p.index)); err != nil {
		p.lifecycle.FinishChunk(p.page, p.index)
		p.status = statusFailed
		e := &Error{Kind: SpeechEngineFailure, Op: "speak", Page: p.page, Chunk: p.index, Err: err}
		p.listener.OnChunkError(p.index, e)
		return e
	}

	log.Debug("reading: speaking", "page", p.page, "chunk", p.index)
	p.status = statusPlaying
	return nil
}

func (p *Playback) finish() {
	p.index = len(p.chunks)
	p.status = statusFinished
	p.lifecycle.FinishPage(p.page)

	log.Debug("reading: page finished", "page", p.page)
	p.listener.OnPageFinished(p.page)
	if p.OnPageFinished != nil {
		p.OnPageFinished(p.page)
	}
}

// current checks that an engine event belongs to the chunk in flight.
func (p *Playback) current(op string, gen uint64, id string) (int, bool) {
	if gen != p.gen.Load() {
		log.Debug("reading: dropped event", "err", p.stale(op), "id", id, "gen", gen)
		return 0, false
	}
	i, err := ParseUtteranceID(id)
	if err != nil || i != p.index || (p.status != statusPlaying && p.status != statusPaused) {
		log.Debug("reading: dropped event", "err", p.stale(op), "id", id)
		return 0, false
	}
	return i, true
}

// HandleStart processes an engine start event.
func (p *Playback) HandleStart(gen uint64, id string) {
	i, ok := p.current("start", gen, id)
	if !ok {
		return
	}
	p.listener.OnChunkStart(i, p.chunks[i])
}

// HandleDone processes an engine completion and speaks the next chunk
// unless playback was paused in the meantime.
func (p *Playback) HandleDone(gen uint64, id string) {
	i, ok := p.current("done", gen, id)
	if !ok {
		return
	}
	p.lifecycle.FinishChunk(p.page, i)
	p.listener.OnChunkDone(i, p.chunks[i])

	if p.status == statusPaused {
		return
	}

	p.index = i + 1
	if err := p.tracker.Commit(p.page, p.index); err != nil {
		log.Debug("reading: commit", "err", err)
	}
	if err := p.speak(); err != nil {
		log.Debug("reading: advance", "err", err)
	}
}

// HandleError processes an engine failure. Playback halts at the failing
// chunk.
func (p *Playback) HandleError(gen uint64, id string, code tts.ErrorCode) {
	i, ok := p.current("error", gen, id)
	if !ok {
		return
	}
	p.lifecycle.FinishChunk(p.page, i)
	p.status = statusFailed

	err := &Error{
		Kind:  SpeechEngineFailure,
		Op:    "speak",
		Page:  p.page,
		Chunk: i,
		Err:   &tts.EngineError{Code: code, UtteranceID: id},
	}
	log.Warn("reading: chunk failed", "page", p.page, "chunk", i, "code", code)
	p.listener.OnChunkError(i, err)
}

func (p *Playback) stale(op string) error {
	return &Error{Kind: StaleEventIgnored, Op: op, Page: p.page, Chunk: p.index}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
