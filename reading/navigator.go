package reading

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// StepLength decides what "next" and "previous" move by.
type StepLength int

const (
	// StepPage moves by page.
	StepPage StepLength = iota
	// StepSentence moves by sentence within a page.
	StepSentence
)

// String returns the string representation of the step length.
func (s StepLength) String() string {
	if s == StepSentence {
		return "sentence"
	}
	return "page"
}

// ParseStepLength parses "page" or "sentence".
func ParseStepLength(s string) (StepLength, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "page", "":
		return StepPage, nil
	case "sentence":
		return StepSentence, nil
	default:
		return StepPage, fmt.Errorf("invalid step length %q: must be page or sentence", s)
	}
}

// PageSource provides page text. document.Manager implements it.
type PageSource interface {
	PageCount(ctx context.Context) (int, error)
	PageText(ctx context.Context, i int) (string, error)
}

type pendingLoad struct {
	page     int
	sentence int
	play     bool
}

// Navigator applies the step policy and performs page turns. Page text is
// read on another goroutine and the result is handed back through post, so
// every method runs on the controller goroutine.
type Navigator struct {
	Step        StepLength
	AutoAdvance bool

	ctx       context.Context
	post      func(func())
	lifecycle *Lifecycle
	playback  *Playback
	chunker   *SentenceChunker
	tracker   *Tracker
	errs      ErrorListener

	pages     PageSource
	pageCount int
	pending   pendingLoad
}

// NewNavigator wires a navigator. post must queue fn for the controller
// goroutine without blocking.
func NewNavigator(ctx context.Context, post func(func()), lifecycle *Lifecycle, playback *Playback, chunker *SentenceChunker, tracker *Tracker, errs ErrorListener) *Navigator {
	if errs == nil {
		errs = nopListener{}
	}
	n := &Navigator{
		ctx:       ctx,
		post:      post,
		lifecycle: lifecycle,
		playback:  playback,
		chunker:   chunker,
		tracker:   tracker,
		errs:      errs,
	}
	playback.OnPageFinished = n.pageFinished
	return n
}

// SetDocument switches to a document with count pages.
func (n *Navigator) SetDocument(pages PageSource, count int) {
	n.pages = pages
	n.pageCount = count
}

// PageCount returns the page count of the document.
func (n *Navigator) PageCount() int { return n.pageCount }

// Forward steps by sentence when the policy allows it and the current chunk
// is not the last; otherwise it turns the page. It is a no-op on the last
// page.
func (n *Navigator) Forward() error {
	if n.pages == nil {
		return ErrNoDocument
	}
	pos := n.tracker.Position()

	if n.Step == StepSentence && !n.chunker.IsEmpty() && pos.Sentence < n.chunker.Len()-1 {
		return n.sentenceStep(pos.Page, pos.Sentence+1)
	}
	if pos.Page+1 >= n.pageCount {
		log.Debug("reading: end of document", "page", pos.Page)
		return nil
	}
	n.load(pos.Page+1, 0, true)
	return nil
}

// Backward steps back by sentence when the policy allows it and the current
// chunk is not the first; otherwise it turns to the previous page, starting
// at its first chunk. It is a no-op on the first page.
func (n *Navigator) Backward() error {
	if n.pages == nil {
		return ErrNoDocument
	}
	pos := n.tracker.Position()

	if n.Step == StepSentence && pos.Sentence > 0 {
		return n.sentenceStep(pos.Page, pos.Sentence-1)
	}
	if pos.Page == 0 {
		log.Debug("reading: start of document")
		return nil
	}
	n.load(pos.Page-1, 0, true)
	return nil
}

// sentenceStep moves to chunk i of page. Without chunks (the page is
// loading, stopped or failed) only the position moves; a running load then
// starts at i.
func (n *Navigator) sentenceStep(page, i int) error {
	if !n.chunker.IsEmpty() {
		i = min(i, n.chunker.Len()-1)
	}
	if err := n.tracker.Commit(page, i); err != nil {
		log.Debug("reading: commit", "err", err)
	}
	if n.chunker.IsEmpty() {
		if n.lifecycle.State() == LoadingPage && n.pending.page == page {
			n.pending.sentence = i
		}
		return nil
	}
	return n.playback.StartFrom(i)
}

// GoTo loads page at the given sentence.
func (n *Navigator) GoTo(page, sentence int, play bool) error {
	if n.pages == nil {
		return ErrNoDocument
	}
	if page < 0 || page >= n.pageCount {
		return fmt.Errorf("%w: %d (document has %d pages)", ErrInvalidPage, page+1, n.pageCount)
	}
	if sentence < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunk, sentence)
	}
	n.load(page, sentence, play)
	return nil
}

// PlayWhenReady starts playback once the running load completes.
func (n *Navigator) PlayWhenReady() {
	n.pending.play = true
}

// CancelPlay keeps the running load, if any, from starting playback.
func (n *Navigator) CancelPlay() {
	n.pending.play = false
}

// Reload re-reads the current page after the document changed, keeping
// the position as far as the new text allows.
func (n *Navigator) Reload() {
	if n.pages == nil {
		return
	}
	pages, ctx := n.pages, n.ctx
	play := n.playback.IsPlaying()

	go func() {
		count, err := pages.PageCount(ctx)
		n.post(func() {
			if pages != n.pages {
				return
			}
			if err != nil {
				n.fail(n.tracker.Position().Page, err)
				return
			}
			n.pageCount = count
			pos := n.tracker.Position()
			n.load(min(pos.Page, count-1), pos.Sentence, play)
		})
	}()
}

func (n *Navigator) pageFinished(page int) {
	if !n.AutoAdvance || page+1 >= n.pageCount {
		return
	}
	log.Debug("reading: advancing", "page", page+1)
	n.load(page+1, 0, true)
}

// load commits the target position, abandons whatever page was active and
// reads the new page in the background.
func (n *Navigator) load(page, sentence int, play bool) {
	if err := n.tracker.Commit(page, sentence); err != nil {
		log.Debug("reading: commit", "err", err)
	}

	n.lifecycle.ResetToIdle()
	n.lifecycle.StartLoad(page)
	n.playback.Stop()
	n.chunker.Clear()
	n.pending = pendingLoad{page: page, sentence: sentence, play: play}

	pages, ctx := n.pages, n.ctx
	go func() {
		text, err := pages.PageText(ctx, page)
		n.post(func() { n.loaded(page, text, err) })
	}()
}

func (n *Navigator) loaded(page int, text string, err error) {
	if err != nil {
		snap := n.lifecycle.Snapshot()
		if snap.State != LoadingPage || snap.Page != page {
			log.Debug("reading: dropped load result", "err", &Error{Kind: StaleEventIgnored, Op: "load", Page: page, Chunk: -1, Err: err})
			return
		}
		n.lifecycle.ResetToIdle()
		n.fail(page, err)
		return
	}

	if !n.lifecycle.MarkReady(page) {
		log.Debug("reading: dropped load result", "err", &Error{Kind: StaleEventIgnored, Op: "load", Page: page, Chunk: -1})
		return
	}

	n.chunker.SetPage(text)
	start := n.pending.sentence
	n.playback.SetChunks(page, n.chunker.All(), start)
	if i := n.playback.Index(); i != start {
		if err := n.tracker.Commit(page, i); err != nil {
			log.Debug("reading: commit", "err", err)
		}
	}
	log.Debug("reading: page ready", "page", page, "chunks", n.chunker.Len())

	if n.pending.play {
		if err := n.playback.Start(); err != nil {
			log.Debug("reading: start", "err", err)
		}
	}
}

func (n *Navigator) fail(page int, err error) {
	e := &Error{Kind: PageIOFailure, Op: "load", Page: page, Chunk: -1, Err: err}
	log.Error("reading: page load failed", "page", page, "err", err)
	n.errs.OnError(e)
}
