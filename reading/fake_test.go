package reading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/recite/tts"
)

// fakeEngine records Speak and Stop calls. Callbacks are driven by the test.
type fakeEngine struct {
	mu          sync.Mutex
	listener    tts.UtteranceListener
	ids         []string
	texts       []string
	stops       int
	outstanding string
	overlap     bool
	speakErr    error
}

func (e *fakeEngine) Init(context.Context, tts.EngineConfig) error { return nil }

func (e *fakeEngine) Speak(text, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.speakErr != nil {
		return e.speakErr
	}
	if e.outstanding != "" {
		e.overlap = true
	}
	e.outstanding = id
	e.ids = append(e.ids, id)
	e.texts = append(e.texts, text)
	return nil
}

func (e *fakeEngine) Pause() error  { return nil }
func (e *fakeEngine) Resume() error { return nil }

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops++
	e.outstanding = ""
	return nil
}

func (e *fakeEngine) SetLanguage(string) error { return nil }
func (e *fakeEngine) SetRate(float64) error    { return nil }
func (e *fakeEngine) SetListener(l tts.UtteranceListener) {
	e.mu.Lock()
	e.listener = l
	e.mu.Unlock()
}
func (e *fakeEngine) Close() error { return nil }

// finished marks the outstanding utterance as complete, as the engine does
// before it reports OnDone or OnError.
func (e *fakeEngine) finished() {
	e.mu.Lock()
	e.outstanding = ""
	e.mu.Unlock()
}

func (e *fakeEngine) Spoken() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.ids...)
}

func (e *fakeEngine) Stops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops
}

func (e *fakeEngine) Overlapped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlap
}

// recorder implements every outward listener and keeps the events in
// order as strings.
type recorder struct {
	mu     sync.Mutex
	events []string
	errs   []error
	ch     chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 256)}
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.ch <- ev:
	default:
	}
}

func (r *recorder) OnChunkStart(i int, _ string) { r.add(fmt.Sprintf("start %d", i)) }
func (r *recorder) OnChunkDone(i int, _ string)  { r.add(fmt.Sprintf("done %d", i)) }
func (r *recorder) OnPageFinished(page int)      { r.add(fmt.Sprintf("finished page %d", page)) }
func (r *recorder) OnChunkError(i int, err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.add(fmt.Sprintf("error %d", i))
}
func (r *recorder) OnPositionChanged(page, sentence int) {
	r.add(fmt.Sprintf("position %d/%d", page, sentence))
}
func (r *recorder) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.add("failure")
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// waitFor blocks until ev was recorded.
func (r *recorder) waitFor(t *testing.T, ev string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		for _, got := range r.Events() {
			if got == ev {
				return
			}
		}
		select {
		case <-r.ch:
		case <-deadline:
			t.Fatalf("timed out waiting for %q; got %v", ev, r.Events())
		}
	}
}

func (r *recorder) has(ev string) bool {
	for _, got := range r.Events() {
		if got == ev {
			return true
		}
	}
	return false
}

type memStore struct {
	mu    sync.Mutex
	saved map[string]ReadingPosition
	saves []ReadingPosition
	err   error
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]ReadingPosition)}
}

func (s *memStore) Save(path string, page, sentence int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	pos := ReadingPosition{DocumentPath: path, Page: page, Sentence: sentence}
	s.saved[path] = pos
	s.saves = append(s.saves, pos)
	return nil
}

func (s *memStore) Load(path string) (ReadingPosition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.saved[path]
	return pos, ok, nil
}

func (s *memStore) Saves() []ReadingPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ReadingPosition(nil), s.saves...)
}

// fakePages serves page text from a slice. A page listed in failures
// fails; if gate is set, PageText waits on it.
type fakePages struct {
	mu       sync.Mutex
	pages    []string
	failures map[int]error
	gate     chan struct{}
	reads    []int
}

func (p *fakePages) PageCount(context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages), nil
}

func (p *fakePages) PageText(ctx context.Context, i int) (string, error) {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads = append(p.reads, i)
	if err := p.failures[i]; err != nil {
		return "", err
	}
	if i < 0 || i >= len(p.pages) {
		return "", errors.New("out of range")
	}
	return p.pages[i], nil
}

// emit helpers deliver callbacks the way an engine goroutine does.
func (e *fakeEngine) emitStart(id string) {
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	l.OnStart(id)
}

func (e *fakeEngine) emitDone(id string) {
	e.finished()
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	l.OnDone(id)
}

func (e *fakeEngine) emitError(id string, code tts.ErrorCode) {
	e.finished()
	e.mu.Lock()
	l := e.listener
	e.mu.Unlock()
	l.OnError(id, code)
}

// waitSpoken blocks until the engine received n Speak calls.
func (e *fakeEngine) waitSpoken(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := e.Spoken(); len(got) >= n {
			return got
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d utterances; got %v", n, e.Spoken())
	return nil
}
