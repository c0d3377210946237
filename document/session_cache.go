package document

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// CacheStats counts session cache activity.
type CacheStats struct {
	Opens    int
	Closes   int
	Hits     int
	Failures int
}

type ensureResult struct {
	session *Session
	err     error
}

// SessionCache keeps at most one document open. All document I/O, including
// open and close, runs on a single worker goroutine so a session is never
// closed while a reader is using it.
type SessionCache struct {
	provider Provider

	mu       sync.Mutex
	current  *Session
	retired  []*Session
	waiters  map[string][]chan ensureResult
	queue    []func()
	stats    CacheStats
	shutdown bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewSessionCache starts the worker. Call Shutdown to stop it.
func NewSessionCache(provider Provider) *SessionCache {
	c := &SessionCache{
		provider: provider,
		waiters:  make(map[string][]chan ensureResult),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.work()
	return c
}

func (c *SessionCache) work() {
	defer close(c.done)
	for {
		select {
		case <-c.wake:
			for {
				c.mu.Lock()
				if len(c.queue) == 0 {
					c.mu.Unlock()
					break
				}
				job := c.queue[0]
				c.queue = c.queue[1:]
				c.mu.Unlock()
				job()
			}
		case <-c.quit:
			c.closeCurrent()
			c.closeRetired()
			c.mu.Lock()
			waiters := c.waiters
			c.waiters = make(map[string][]chan ensureResult)
			c.queue = nil
			c.mu.Unlock()
			for _, chans := range waiters {
				for _, ch := range chans {
					ch <- ensureResult{err: ErrClosed}
				}
			}
			return
		}
	}
}

// submit queues job for the worker. The queue is unbounded so callers never
// block behind a slow open.
func (c *SessionCache) submit(job func()) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return ErrClosed
	}
	c.queue = append(c.queue, job)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// Current returns the open session, or nil.
func (c *SessionCache) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Ensure returns the session for path, opening it if needed. Concurrent
// calls for the same path share one open. Opening a different path closes
// the current session first. If ctx ends first, Ensure returns ctx.Err()
// and the open still completes in the background.
func (c *SessionCache) Ensure(ctx context.Context, path string) (*Session, error) {
	key, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.current != nil && c.current.Path == key {
		c.stats.Hits++
		s := c.current
		c.mu.Unlock()
		return s, nil
	}
	ch := make(chan ensureResult, 1)
	first := len(c.waiters[key]) == 0
	c.waiters[key] = append(c.waiters[key], ch)
	c.mu.Unlock()

	if first {
		if err := c.submit(func() {
			s, err := c.acquire(key)
			c.notify(key, s, err)
		}); err != nil {
			c.notify(key, nil, err)
		}
	}

	select {
	case r := <-ch:
		return r.session, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do runs fn on the worker with the session for path, opening it if needed.
func (c *SessionCache) Do(ctx context.Context, path string, fn func(*Session) error) error {
	key, err := NormalizePath(path)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	if err := c.submit(func() {
		s, err := c.acquire(key)
		c.notify(key, s, err)
		if err != nil {
			errc <- err
			return
		}
		errc <- call(fn, s)
	}); err != nil {
		return err
	}

	select {
	case err := <-errc:
		return err
	case <-c.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn, turning a provider panic into ErrPageIO.
func call(fn func(*Session) error, s *Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("document: reader panic", "path", s.Path, "panic", r)
			err = fmt.Errorf("%w: %v", ErrPageIO, r)
		}
	}()
	return fn(s)
}

// acquire runs on the worker.
func (c *SessionCache) acquire(key string) (*Session, error) {
	if s := c.Current(); s != nil && s.Path == key {
		return s, nil
	}

	c.closeCurrent()

	s, err := c.open(key)
	c.mu.Lock()
	if err != nil {
		c.stats.Failures++
	} else {
		c.stats.Opens++
		c.current = s
	}
	c.mu.Unlock()
	return s, err
}

// open runs on the worker. A provider panic (malformed files) is reported as
// ErrSessionOpen and nothing is published.
func (c *SessionCache) open(key string) (s *Session, err error) {
	var doc Document
	defer func() {
		if r := recover(); r != nil {
			log.Error("document: open panic", "path", key, "panic", r)
			if doc != nil {
				_ = doc.Close()
			}
			s, err = nil, fmt.Errorf("%w: %s: %v", ErrSessionOpen, key, r)
		}
	}()

	log.Debug("document: opening", "path", key)
	doc, err = c.provider.Open(context.Background(), key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionOpen, err)
	}

	n := doc.NumPages()
	if n <= 0 {
		_ = doc.Close()
		return nil, fmt.Errorf("%w: %s has no pages", ErrSessionOpen, key)
	}
	return &Session{Path: key, PageCount: n, doc: doc}, nil
}

func (c *SessionCache) notify(key string, s *Session, err error) {
	c.mu.Lock()
	chans := c.waiters[key]
	delete(c.waiters, key)
	c.mu.Unlock()

	for _, ch := range chans {
		ch <- ensureResult{session: s, err: err}
	}
}

// closeCurrent runs on the worker.
func (c *SessionCache) closeCurrent() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()
	c.closeSession(s)
}

// closeRetired closes sessions dropped by Invalidate. It runs on the worker.
func (c *SessionCache) closeRetired() {
	c.mu.Lock()
	retired := c.retired
	c.retired = nil
	c.mu.Unlock()
	for _, s := range retired {
		c.closeSession(s)
	}
}

// closeSession runs on the worker.
func (c *SessionCache) closeSession(s *Session) {
	if s == nil || s.closed {
		return
	}

	s.closed = true
	if err := s.doc.Close(); err != nil {
		log.Warn("document: close failed", "path", s.Path, "err", err)
	}
	c.mu.Lock()
	c.stats.Closes++
	c.mu.Unlock()
	log.Debug("document: closed", "path", s.Path)
}

// Release closes the session for path if it is the current one.
func (c *SessionCache) Release(ctx context.Context, path string) error {
	return c.closeIf(ctx, path)
}

// Invalidate drops the session for path so the next access reopens it. The
// session is unpublished at once; its handle is closed on the worker after
// any job still using it.
func (c *SessionCache) Invalidate(path string) {
	key, err := NormalizePath(path)
	if err != nil {
		return
	}

	c.mu.Lock()
	s := c.current
	if c.shutdown || s == nil || s.Path != key {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.retired = append(c.retired, s)
	c.mu.Unlock()

	log.Debug("document: invalidated", "path", key)
	_ = c.submit(c.closeRetired)
}

func (c *SessionCache) closeIf(ctx context.Context, path string) error {
	key, err := NormalizePath(path)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	if err := c.submit(func() {
		if s := c.Current(); s != nil && s.Path == key {
			c.closeCurrent()
		}
		close(done)
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown closes the session and stops the worker. Pending calls fail with
// ErrClosed.
func (c *SessionCache) Shutdown() {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.shutdown = true
	c.mu.Unlock()

	close(c.quit)
	<-c.done

	stats := c.Stats()
	log.Debug("document: session cache stopped",
		"opens", stats.Opens, "closes", stats.Closes, "hits", stats.Hits, "failures", stats.Failures)
}

// Stats returns a snapshot of the counters.
func (c *SessionCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
