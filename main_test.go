package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/recite/document"
	"github.com/dgnsrekt/recite/document/pdf"
	"github.com/dgnsrekt/recite/internal/position"
	"github.com/dgnsrekt/recite/tts"
	"github.com/dgnsrekt/recite/tts/engines/mock"
	"github.com/go-pdf/fpdf"
	"github.com/spf13/viper"
)

func writeTestPDF(t *testing.T, pages ...string) string {
	t.Helper()

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for _, text := range pages {
		doc.AddPage()
		doc.Cell(40, 10, text)
	}

	path := filepath.Join(t.TempDir(), "sample.pdf")
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("failed to generate test PDF: %v", err)
	}
	return path
}

func setViper(t *testing.T, key string, value any) {
	t.Helper()
	prev := viper.Get(key)
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, prev) })
}

func newTestApp(t *testing.T, cfg tts.MockConfig) *app {
	t.Helper()

	store, err := position.Open(filepath.Join(t.TempDir(), "positions.yml"))
	if err != nil {
		t.Fatal(err)
	}
	engine := mock.New(cfg)
	if err := engine.Init(context.Background(), tts.DefaultEngineConfig()); err != nil {
		t.Fatal(err)
	}
	a := &app{engine: engine, docs: document.NewSessionCache(pdf.New()), store: store}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestRunHeadlessReadsToTheEnd(t *testing.T) {
	setViper(t, "reading.auto_advance", true)
	setViper(t, "reading.watch", false)

	path := writeTestPDF(t, "Hello there. Bye now.", "Second page.")
	a := newTestApp(t, tts.MockConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := runHeadless(ctx, a, path, &out); err != nil {
		t.Fatalf("runHeadless() error = %v", err)
	}

	for _, want := range []string{"Page 1", "Hello there.", "Bye now.", "Page 2", "Second page."} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}

	key, err := document.NormalizePath(path)
	if err != nil {
		t.Fatal(err)
	}
	pos, ok, err := a.store.Load(key)
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if pos.Page != 1 {
		t.Errorf("saved page = %d, want 1", pos.Page)
	}
}

func TestRunHeadlessStopsOnEngineError(t *testing.T) {
	setViper(t, "reading.watch", false)

	path := writeTestPDF(t, "Hello there. Bye now.")
	a := newTestApp(t, tts.MockConfig{FailUtterances: []string{"CHUNK_1"}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := runHeadless(ctx, a, path, &out)
	if err == nil {
		t.Fatal("runHeadless() should fail when the engine fails")
	}
	var engineErr *tts.EngineError
	if !errors.As(err, &engineErr) || engineErr.UtteranceID != "CHUNK_1" {
		t.Errorf("error = %v, want an engine error for CHUNK_1", err)
	}
}

func TestRunHeadlessOpenFailure(t *testing.T) {
	a := newTestApp(t, tts.MockConfig{})

	err := runHeadless(context.Background(), a, filepath.Join(t.TempDir(), "missing.pdf"), &bytes.Buffer{})
	if err == nil {
		t.Fatal("runHeadless() should fail for a missing file")
	}
}

func TestPrinterWithoutAutoAdvance(t *testing.T) {
	p := newPrinter(&bytes.Buffer{}, false)
	p.setPages(5)

	p.OnPageFinished(0)
	select {
	case err := <-p.done:
		if err != nil {
			t.Errorf("done = %v, want nil", err)
		}
	default:
		t.Fatal("printer should finish after one page without auto-advance")
	}

	// Only the first outcome is reported.
	p.OnError(errors.New("late"))
	select {
	case err := <-p.done:
		t.Errorf("unexpected second outcome %v", err)
	default:
	}
}

func TestPrintChunks(t *testing.T) {
	path := writeTestPDF(t, "Hello there. Bye now.")

	var out bytes.Buffer
	if err := printChunks(context.Background(), path, 1, &out); err != nil {
		t.Fatalf("printChunks() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "Hello there.") || !strings.Contains(lines[1], "Bye now.") {
		t.Errorf("lines = %q", lines)
	}

	if err := printChunks(context.Background(), path, 3, &out); !errors.Is(err, document.ErrPageOutOfRange) {
		t.Errorf("printChunks(page 3) error = %v, want ErrPageOutOfRange", err)
	}
}

func TestRenderPNG(t *testing.T) {
	path := writeTestPDF(t, "Hello there.")
	out := filepath.Join(t.TempDir(), "page.png")

	n, err := renderPNG(context.Background(), path, 1, 200, out)
	if err != nil {
		t.Fatalf("renderPNG() error = %v", err)
	}
	if n == 0 {
		t.Error("renderPNG() wrote an empty file")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestForgetClearsPosition(t *testing.T) {
	path := writeTestPDF(t, "Hello there.")
	a := newTestApp(t, tts.MockConfig{})

	key, err := document.NormalizePath(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.store.Save(key, 0, 1); err != nil {
		t.Fatal(err)
	}

	if err := a.forget(context.Background(), path); err != nil {
		t.Fatalf("forget() error = %v", err)
	}
	if _, ok, _ := a.store.Load(key); ok {
		t.Error("position should be gone")
	}
}
