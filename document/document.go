// Package document owns the open PDF: a single-flight session cache whose
// I/O runs on one worker goroutine, a synchronized page facade on top of
// it, locator resolution, and a file watcher that invalidates the session
// when the file changes.
package document

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrSessionOpen means the document could not be opened.
	ErrSessionOpen = errors.New("cannot open document")
	// ErrPageIO means reading a page failed.
	ErrPageIO = errors.New("page read failed")
	// ErrPageOutOfRange means the page index is outside the document.
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrClosed is returned after Close or Shutdown.
	ErrClosed = errors.New("document closed")
)

// Provider opens documents. Implementations may be slow and are only
// called from the session worker.
type Provider interface {
	Open(ctx context.Context, path string) (Document, error)
}

// Document is an open document. Methods are never called concurrently.
type Document interface {
	NumPages() int
	// Text returns the plain text of page i (0-based).
	Text(i int) (string, error)
	// Render rasterizes page i scaled to width pixels.
	Render(i, width int) (image.Image, error)
	Close() error
}

// Session is the currently open document.
type Session struct {
	Path      string
	PageCount int

	doc    Document
	closed bool
}
