// Package reading turns an open document into a navigable, speakable
// stream. A Controller owns the reading state and mutates it on a single
// goroutine that also receives the speech engine's callbacks.
package reading

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/document"
	"github.com/dgnsrekt/recite/tts"
)

// Options configures a Controller.
type Options struct {
	Engine    tts.Engine
	Documents *document.SessionCache
	Store     PositionStore

	Step        StepLength
	AutoAdvance bool
	Watch       bool
	DownloadDir string

	Highlight HighlightListener
	Position  PositionListener
	Errors    ErrorListener
}

// Controller runs the reading session. Commands are queued to the
// controller goroutine started by Run and return once executed.
type Controller struct {
	opts    Options
	mailbox *mailbox

	lifecycle *Lifecycle
	chunker   *SentenceChunker
	tracker   *Tracker
	playback  *Playback
	navigator *Navigator

	manager *document.Manager
	watcher *document.Watcher
	closed  bool

	ctx     context.Context
	cancel  context.CancelFunc
	runOnce sync.Once
	done    chan struct{}
}

// NewController wires the reading components and registers itself as the
// engine's listener.
func NewController(opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		opts:      opts,
		mailbox:   newMailbox(),
		lifecycle: NewLifecycle(),
		chunker:   &SentenceChunker{},
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	c.tracker = NewTracker(opts.Store, opts.Position)
	c.playback = NewPlayback(opts.Engine, c.lifecycle, c.tracker, opts.Highlight)
	c.navigator = NewNavigator(ctx, c.post, c.lifecycle, c.playback, c.chunker, c.tracker, opts.Errors)
	c.navigator.Step = opts.Step
	c.navigator.AutoAdvance = opts.AutoAdvance

	opts.Engine.SetListener(engineEvents{c})
	return c
}

// Run processes commands and engine events until ctx ends, then stops
// playback and releases the document.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("reading controller already running")
	}
	defer close(c.done)
	defer c.cancel()

	log.Debug("reading: controller started")
	for {
		select {
		case <-ctx.Done():
			c.mailbox.close()
			c.shutdown()
			log.Debug("reading: controller stopped")
			return nil
		case <-c.mailbox.wake:
			for _, fn := range c.mailbox.take() {
				fn()
			}
		}
	}
}

func (c *Controller) post(fn func()) {
	if !c.mailbox.post(fn) {
		log.Debug("reading: controller stopped, event dropped")
	}
}

// call runs fn on the controller goroutine and waits for its result.
func (c *Controller) call(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	if !c.mailbox.post(func() {
		if c.closed {
			errc <- ErrClosed
			return
		}
		errc <- fn()
	}) {
		return ErrClosed
	}

	select {
	case err := <-errc:
		return err
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Open resolves locator, opens the document and restores the saved
// position. Playback does not start until Play.
func (c *Controller) Open(ctx context.Context, locator string) error {
	path, err := document.Resolve(ctx, locator, c.opts.DownloadDir)
	if err != nil {
		return &Error{Kind: SessionOpenFailure, Op: "open", Page: -1, Chunk: -1, Err: err}
	}

	mgr := document.NewManager(c.opts.Documents, path)
	count, err := mgr.PageCount(ctx)
	if err != nil {
		return &Error{Kind: SessionOpenFailure, Op: "open", Page: -1, Chunk: -1, Err: err}
	}

	pos := ReadingPosition{DocumentPath: path}
	if c.opts.Store != nil {
		saved, ok, err := c.opts.Store.Load(path)
		switch {
		case err != nil:
			log.Warn("reading: loading saved position failed", "path", path, "err", err)
		case ok:
			pos.Page = clamp(saved.Page, 0, count-1)
			pos.Sentence = max(saved.Sentence, 0)
		}
	}
	log.Info("reading: opened", "path", path, "pages", count, "page", pos.Page, "sentence", pos.Sentence)

	return c.call(ctx, func() error {
		c.release(path)

		c.manager = mgr
		c.tracker.Reset(pos)
		c.navigator.SetDocument(mgr, count)

		if c.opts.Watch {
			w, err := document.Watch(c.opts.Documents, path, func() {
				c.post(c.navigator.Reload)
			})
			if err != nil {
				log.Warn("reading: watching document failed", "path", path, "err", err)
			} else {
				c.watcher = w
			}
		}

		return c.navigator.GoTo(pos.Page, pos.Sentence, false)
	})
}

// release drops the current document. The session is kept open when the
// next document is the same file. Runs on the controller goroutine.
func (c *Controller) release(next string) {
	c.closePage()

	if c.watcher != nil {
		if err := c.watcher.Close(); err != nil {
			log.Debug("reading: closing watcher", "err", err)
		}
		c.watcher = nil
	}
	if c.manager != nil && c.manager.Path() != next {
		if err := c.manager.Close(c.ctx); err != nil {
			log.Debug("reading: closing document", "err", err)
		}
		c.manager = nil
	}
	c.navigator.SetDocument(nil, 0)
}

// closePage abandons the active page. A ready page goes through
// ClosingPage while playback is torn down; a running load is dropped so its
// result is discarded when it arrives. Runs on the controller goroutine.
func (c *Controller) closePage() {
	c.navigator.CancelPlay()

	page := c.lifecycle.PageIndex()
	closing := c.lifecycle.BeginClose(page)
	c.playback.Stop()
	c.chunker.Clear()
	if closing {
		c.lifecycle.FinishPage(page)
	} else {
		c.lifecycle.ResetToIdle()
	}
}

// Play starts reading at the current position.
func (c *Controller) Play(ctx context.Context) error {
	return c.call(ctx, func() error {
		if c.manager == nil {
			return ErrNoDocument
		}
		pos := c.tracker.Position()
		snap := c.lifecycle.Snapshot()

		switch {
		case snap.State == LoadingPage:
			c.navigator.PlayWhenReady()
			return nil
		case c.playback.IsPlaying():
			return nil
		case (snap.State == PageReady || snap.State == Speaking) && snap.Page == pos.Page:
			return c.playback.Start()
		default:
			// Stopped, failed to load, or finished: read the page again.
			sentence := pos.Sentence
			if n := c.chunker.Len(); n > 0 && sentence >= n {
				sentence = 0
			}
			return c.navigator.GoTo(pos.Page, sentence, true)
		}
	})
}

// Pause pauses reading. While a page is loading it cancels the pending
// start instead.
func (c *Controller) Pause(ctx context.Context) error {
	return c.call(ctx, func() error {
		c.navigator.CancelPlay()
		c.playback.Pause()
		return nil
	})
}

// Resume continues a paused reading from the start of the paused chunk.
func (c *Controller) Resume(ctx context.Context) error {
	return c.call(ctx, func() error {
		return c.playback.Resume()
	})
}

// TogglePause pauses when reading and plays otherwise.
func (c *Controller) TogglePause(ctx context.Context) error {
	var playing, paused bool
	if err := c.call(ctx, func() error {
		playing, paused = c.playback.IsPlaying(), c.playback.IsPaused()
		return nil
	}); err != nil {
		return err
	}
	switch {
	case playing:
		return c.Pause(ctx)
	case paused:
		return c.Resume(ctx)
	default:
		return c.Play(ctx)
	}
}

// Stop stops reading and clears the page's chunks. A page that is still
// loading is abandoned. The position is kept.
func (c *Controller) Stop(ctx context.Context) error {
	return c.call(ctx, func() error {
		c.closePage()
		return nil
	})
}

// Next moves forward by the step length.
func (c *Controller) Next(ctx context.Context) error {
	return c.call(ctx, c.navigator.Forward)
}

// Previous moves backward by the step length.
func (c *Controller) Previous(ctx context.Context) error {
	return c.call(ctx, c.navigator.Backward)
}

// GoTo jumps to the start of page (0-based) and reads it.
func (c *Controller) GoTo(ctx context.Context, page int) error {
	return c.call(ctx, func() error {
		return c.navigator.GoTo(page, 0, true)
	})
}

// SetStepLength changes what Next and Previous move by.
func (c *Controller) SetStepLength(ctx context.Context, step StepLength) error {
	return c.call(ctx, func() error {
		c.navigator.Step = step
		return nil
	})
}

// Position returns the current reading position.
func (c *Controller) Position(ctx context.Context) (ReadingPosition, error) {
	var pos ReadingPosition
	err := c.call(ctx, func() error {
		pos = c.tracker.Position()
		return nil
	})
	return pos, err
}

// Chunks returns the chunks of the current page.
func (c *Controller) Chunks(ctx context.Context) ([]string, error) {
	var chunks []string
	err := c.call(ctx, func() error {
		chunks = c.chunker.All()
		return nil
	})
	return chunks, err
}

// PageCount returns the page count of the open document.
func (c *Controller) PageCount(ctx context.Context) (int, error) {
	var n int
	err := c.call(ctx, func() error {
		if c.manager == nil {
			return ErrNoDocument
		}
		n = c.navigator.PageCount()
		return nil
	})
	return n, err
}

// Close stops reading and releases the document. Later commands fail with
// ErrClosed.
func (c *Controller) Close(ctx context.Context) error {
	err := c.call(ctx, func() error {
		c.shutdown()
		return nil
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (c *Controller) shutdown() {
	if c.closed {
		return
	}
	c.closed = true
	c.release("")
	c.cancel()
}

// engineEvents hands engine callbacks to the controller goroutine, tagged
// with the playback generation current at delivery.
type engineEvents struct {
	c *Controller
}

func (e engineEvents) OnStart(id string) {
	gen := e.c.playback.Generation()
	e.c.post(func() { e.c.playback.HandleStart(gen, id) })
}

func (e engineEvents) OnDone(id string) {
	gen := e.c.playback.Generation()
	e.c.post(func() { e.c.playback.HandleDone(gen, id) })
}

func (e engineEvents) OnError(id string, code tts.ErrorCode) {
	gen := e.c.playback.Generation()
	e.c.post(func() { e.c.playback.HandleError(gen, id, code) })
}
