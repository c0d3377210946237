package document

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatcherInvalidatesOnWrite(t *testing.T) {
	p := newFakeProvider()
	a := tempDoc(t, "a.pdf")
	p.pages[a] = 1
	c := newTestCache(t, p)

	if _, err := c.Ensure(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	changed := make(chan struct{}, 1)
	w, err := Watch(c, a, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer w.Close() //nolint:errcheck

	if err := os.WriteFile(a, []byte("%PDF-1.5"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	// Do is queued behind the invalidation on the worker.
	if err := c.Do(context.Background(), a, func(*Session) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if p.Opens() != 2 {
		t.Errorf("provider opened %d times, want 2", p.Opens())
	}
}

func TestWatcherCloseIdempotent(t *testing.T) {
	c := newTestCache(t, newFakeProvider())
	w, err := Watch(c, tempDoc(t, "a.pdf"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
