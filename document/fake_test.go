package document

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeProvider records opens and closes. Paths listed in pages open with
// that many pages; others fail.
type fakeProvider struct {
	mu     sync.Mutex
	pages  map[string]int
	panics map[string]bool
	gate   chan struct{} // if set, Open blocks until closed
	log    []string
	open   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{pages: make(map[string]int), panics: make(map[string]bool)}
}

func (p *fakeProvider) Open(_ context.Context, path string) (Document, error) {
	if p.gate != nil {
		<-p.gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, "open "+filepath.Base(path))
	if p.panics[path] {
		panic("malformed xref table")
	}
	n, ok := p.pages[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	p.open++
	return &fakeDocument{provider: p, path: path, pages: n}, nil
}

func (p *fakeProvider) Log() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.log...)
}

func (p *fakeProvider) Opens() int {
	n := 0
	for _, l := range p.Log() {
		if l[:4] == "open" {
			n++
		}
	}
	return n
}

func (p *fakeProvider) OpenHandles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

type fakeDocument struct {
	provider *fakeProvider
	path     string
	pages    int
	textErr  error
}

func (d *fakeDocument) NumPages() int { return d.pages }

func (d *fakeDocument) Text(i int) (string, error) {
	if d.textErr != nil {
		return "", d.textErr
	}
	return fmt.Sprintf("Page %d of %s.", i, filepath.Base(d.path)), nil
}

func (d *fakeDocument) Render(_, width int) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, width, width*2)), nil
}

func (d *fakeDocument) Close() error {
	d.provider.mu.Lock()
	defer d.provider.mu.Unlock()
	d.provider.log = append(d.provider.log, "close "+filepath.Base(d.path))
	d.provider.open--
	return nil
}

// tempDoc creates an empty file so NormalizePath resolves it and returns
// the normalized path.
func tempDoc(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}
	n, err := NormalizePath(p)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func newTestCache(t *testing.T, p *fakeProvider) *SessionCache {
	t.Helper()
	c := NewSessionCache(p)
	t.Cleanup(c.Shutdown)
	return c
}
