package document

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
)

// Manager is the page-level view of one document. It opens the session
// lazily and serializes every call.
type Manager struct {
	cache *SessionCache
	path  string

	mu     sync.Mutex
	closed bool
}

// NewManager returns a manager for the document at path.
func NewManager(cache *SessionCache, path string) *Manager {
	return &Manager{cache: cache, path: path}
}

// Path returns the document path the manager was created with.
func (m *Manager) Path() string { return m.path }

// PageCount returns the number of pages.
func (m *Manager) PageCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}

	s, err := m.cache.Ensure(ctx, m.path)
	if err != nil {
		return 0, err
	}
	return s.PageCount, nil
}

// PageText returns the plain text of page i.
func (m *Manager) PageText(ctx context.Context, i int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}

	var text string
	err := m.cache.Do(ctx, m.path, func(s *Session) error {
		if err := checkPage(s, i); err != nil {
			return err
		}
		t, err := s.doc.Text(i)
		if err != nil {
			return fmt.Errorf("%w: page %d: %w", ErrPageIO, i, err)
		}
		text = t
		return nil
	})
	return text, err
}

// PageBitmap renders page i scaled to width pixels.
func (m *Manager) PageBitmap(ctx context.Context, i, width int) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if width <= 0 {
		return nil, fmt.Errorf("%w: page %d: invalid width %d", ErrPageIO, i, width)
	}

	var img image.Image
	err := m.cache.Do(ctx, m.path, func(s *Session) error {
		if err := checkPage(s, i); err != nil {
			return err
		}
		b, err := s.doc.Render(i, width)
		if err != nil {
			return fmt.Errorf("%w: page %d: %w", ErrPageIO, i, err)
		}
		img = b
		return nil
	})
	return img, err
}

// Close releases the session. It is safe to call more than once; every
// later call on the manager fails with ErrClosed.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	err := m.cache.Release(ctx, m.path)
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func checkPage(s *Session, i int) error {
	if i < 0 || i >= s.PageCount {
		return fmt.Errorf("%w: page %d: %w (have %d)", ErrPageIO, i, ErrPageOutOfRange, s.PageCount)
	}
	return nil
}
