// Package position persists reading positions in a YAML file keyed by the
// normalized document path.
package position

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/reading"
	gap "github.com/muesli/go-app-paths"
	"gopkg.in/yaml.v3"
)

const fileName = "positions.yml"

type entry struct {
	Page      int       `yaml:"page"`
	Sentence  int       `yaml:"sentence"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// Store is a reading.PositionStore backed by a YAML file.
type Store struct {
	path string

	mu      sync.Mutex
	entries map[string]entry
}

var _ reading.PositionStore = (*Store)(nil)

// DefaultPath returns the positions file in the user's data directory.
func DefaultPath() (string, error) {
	scope := gap.NewScope(gap.User, "recite")
	return scope.DataPath(fileName)
}

// Open loads the store at path. A missing file is an empty store; a
// corrupt one is logged and replaced on the next save.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create position directory: %w", err)
	}

	s := &Store{path: path, entries: make(map[string]entry)}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.entries); err != nil {
		log.Warn("position: ignoring unreadable positions file", "path", path, "err", err)
		s.entries = make(map[string]entry)
	}
	if s.entries == nil {
		s.entries = make(map[string]entry)
	}
	log.Debug("position: loaded", "path", path, "documents", len(s.entries))
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Save records the position of the document at path.
func (s *Store) Save(path string, page, sentence int) error {
	if page < 0 || sentence < 0 {
		return fmt.Errorf("invalid position %d/%d", page, sentence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.entries[path]
	s.entries[path] = entry{Page: page, Sentence: sentence, UpdatedAt: time.Now().UTC()}
	if err := s.write(); err != nil {
		if had {
			s.entries[path] = prev
		} else {
			delete(s.entries, path)
		}
		return err
	}
	return nil
}

// Load returns the saved position of the document at path.
func (s *Store) Load(path string) (reading.ReadingPosition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[path]
	if !ok {
		return reading.ReadingPosition{}, false, nil
	}
	return reading.ReadingPosition{DocumentPath: path, Page: e.Page, Sentence: e.Sentence}, true, nil
}

// Clear forgets the position of the document at path.
func (s *Store) Clear(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[path]; !ok {
		return nil
	}
	delete(s.entries, path)
	return s.write()
}

// write replaces the file atomically. Callers hold mu.
func (s *Store) write() error {
	data, err := yaml.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to marshal positions: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".positions-*")
	if err != nil {
		return fmt.Errorf("failed to write positions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write positions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write positions: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write positions: %w", err)
	}
	return nil
}
