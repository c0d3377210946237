package pdf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
)

// writeTestPDF generates a PDF with one page per entry of pages.
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

func TestProviderText(t *testing.T) {
	path := writeTestPDF(t, "Hello there. Bye now.", "Second page.")

	doc, err := New().Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer doc.Close() //nolint:errcheck

	if got := doc.NumPages(); got != 2 {
		t.Fatalf("NumPages() = %d, want 2", got)
	}

	text, err := doc.Text(0)
	if err != nil {
		t.Fatalf("Text(0) error = %v", err)
	}
	if !strings.Contains(text, "Hello there.") {
		t.Errorf("Text(0) = %q, want it to contain %q", text, "Hello there.")
	}

	text, err = doc.Text(1)
	if err != nil {
		t.Fatalf("Text(1) error = %v", err)
	}
	if !strings.Contains(text, "Second page.") {
		t.Errorf("Text(1) = %q, want it to contain %q", text, "Second page.")
	}
}

func TestProviderRenderWidth(t *testing.T) {
	path := writeTestPDF(t, "Render me.")

	doc, err := New().Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer doc.Close() //nolint:errcheck

	img, err := doc.Render(0, 300)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := img.Bounds().Dx(); got != 300 {
		t.Errorf("width = %d, want 300", got)
	}
	// A4 is taller than it is wide.
	if img.Bounds().Dy() <= img.Bounds().Dx() {
		t.Errorf("height %d should exceed width %d", img.Bounds().Dy(), img.Bounds().Dx())
	}
}

func TestProviderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := New().Open(context.Background(), path); err == nil {
		t.Error("Open() should fail for a file that is not a PDF")
	}
}
