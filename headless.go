package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/reading"
	"golang.org/x/sync/errgroup"
)

// printer writes spoken sentences to w as they start. It ends the session
// when the last page is finished or reading fails.
type printer struct {
	w           io.Writer
	autoAdvance bool

	mu       sync.Mutex
	lastPage int
	page     int
	once     sync.Once
	done     chan error
}

var (
	_ reading.HighlightListener = (*printer)(nil)
	_ reading.PositionListener  = (*printer)(nil)
	_ reading.ErrorListener     = (*printer)(nil)
)

func newPrinter(w io.Writer, autoAdvance bool) *printer {
	return &printer{w: w, autoAdvance: autoAdvance, page: -1, lastPage: -1, done: make(chan error, 1)}
}

func (p *printer) setPages(n int) {
	p.mu.Lock()
	p.lastPage = n - 1
	p.mu.Unlock()
}

func (p *printer) finish(err error) {
	p.once.Do(func() { p.done <- err })
}

func (p *printer) OnChunkStart(_ int, text string) {
	_, _ = fmt.Fprintln(p.w, text)
}

func (p *printer) OnChunkDone(int, string) {}

func (p *printer) OnPageFinished(page int) {
	p.mu.Lock()
	last := page >= p.lastPage
	p.mu.Unlock()
	if last || !p.autoAdvance {
		p.finish(nil)
	}
}

func (p *printer) OnChunkError(_ int, err error) {
	p.finish(err)
}

func (p *printer) OnPositionChanged(page, _ int) {
	p.mu.Lock()
	changed := page != p.page
	p.page = page
	p.mu.Unlock()
	if changed {
		_, _ = fmt.Fprintf(p.w, "\n%s\n\n", keyword(fmt.Sprintf("Page %d", page+1)))
	}
}

func (p *printer) OnError(err error) {
	p.finish(err)
}

// runHeadless reads the document at locator to the end, printing each
// sentence as it is spoken.
func runHeadless(ctx context.Context, a *app, locator string, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := newPrinter(w, a.autoAdvance())
	ctrl := a.controller(p, p, p)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()

		if err := ctrl.Open(gctx, locator); err != nil {
			return err
		}
		n, err := ctrl.PageCount(gctx)
		if err != nil {
			return err
		}
		p.setPages(n)

		if startPage > 0 {
			err = ctrl.GoTo(gctx, startPage-1)
		} else {
			err = ctrl.Play(gctx)
		}
		if err != nil {
			return err
		}

		select {
		case err := <-p.done:
			if err != nil {
				log.Error("reading stopped", "error", err)
			}
			return err
		case <-gctx.Done():
			return nil
		}
	})
	return g.Wait()
}
