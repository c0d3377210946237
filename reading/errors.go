package reading

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocument is returned by commands that need an open document.
	ErrNoDocument = errors.New("no document open")
	// ErrClosed is returned after the controller stopped.
	ErrClosed = errors.New("reading controller closed")
	// ErrInvalidPage is returned for a page outside the document.
	ErrInvalidPage = errors.New("invalid page")
	// ErrInvalidChunk is returned for a chunk index outside the page.
	ErrInvalidChunk = errors.New("invalid chunk index")
)

// Kind classifies reading failures.
type Kind int

const (
	// KindUnknown is reported by KindOf for errors not raised here.
	KindUnknown Kind = iota
	// SessionOpenFailure means the document could not be opened.
	SessionOpenFailure
	// PageIOFailure means a page could not be read.
	PageIOFailure
	// SpeechEngineFailure means the engine failed to speak a chunk.
	SpeechEngineFailure
	// StaleEventIgnored marks an event for an abandoned page or playback
	// generation. It is logged, never surfaced.
	StaleEventIgnored
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case SessionOpenFailure:
		return "session open failure"
	case PageIOFailure:
		return "page I/O failure"
	case SpeechEngineFailure:
		return "speech engine failure"
	case StaleEventIgnored:
		return "stale event ignored"
	default:
		return "unknown"
	}
}

// Error is a reading failure tied to a position.
type Error struct {
	Kind  Kind
	Op    string
	Page  int
	Chunk int
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	switch {
	case e.Page >= 0 && e.Chunk >= 0:
		msg += fmt.Sprintf(" (page %d, chunk %d)", e.Page+1, e.Chunk)
	case e.Page >= 0:
		msg += fmt.Sprintf(" (page %d)", e.Page+1)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
