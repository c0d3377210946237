package reading

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// ReadingPosition is where the reader is in a document.
type ReadingPosition struct {
	DocumentPath string `yaml:"path"`
	Page         int    `yaml:"page"`
	Sentence     int    `yaml:"sentence"`
}

// PositionStore persists reading positions keyed by document path.
type PositionStore interface {
	Save(path string, page, sentence int) error
	Load(path string) (ReadingPosition, bool, error)
}

// Tracker owns the ReadingPosition. It is only used from the controller
// goroutine.
type Tracker struct {
	store    PositionStore
	listener PositionListener
	pos      ReadingPosition
}

// NewTracker returns a tracker. store and listener may be nil.
func NewTracker(store PositionStore, listener PositionListener) *Tracker {
	if listener == nil {
		listener = nopListener{}
	}
	return &Tracker{store: store, listener: listener}
}

// Position returns the current position.
func (t *Tracker) Position() ReadingPosition {
	return t.pos
}

// Reset switches to a document without persisting.
func (t *Tracker) Reset(pos ReadingPosition) {
	t.pos = pos
	t.listener.OnPositionChanged(pos.Page, pos.Sentence)
}

// Commit persists the position and notifies the listener. A store failure
// is returned after the in-memory position has moved, so reading can go on.
func (t *Tracker) Commit(page, sentence int) error {
	if page == t.pos.Page && sentence == t.pos.Sentence {
		return nil
	}
	t.pos.Page, t.pos.Sentence = page, sentence

	var err error
	if t.store != nil && t.pos.DocumentPath != "" {
		if err = t.store.Save(t.pos.DocumentPath, page, sentence); err != nil {
			log.Warn("reading: saving position failed", "path", t.pos.DocumentPath, "err", err)
			err = fmt.Errorf("saving position: %w", err)
		}
	}

	t.listener.OnPositionChanged(page, sentence)
	return err
}
