// Package pdf is the PDF document provider. Text comes from
// github.com/ledongthuc/pdf with MuPDF (go-fitz) as the fallback when a
// page's content stream defeats it; page images are rendered by MuPDF.
package pdf

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/document"
	"github.com/gen2brain/go-fitz"
	pdflib "github.com/ledongthuc/pdf"
	"golang.org/x/image/draw"
)

// pointsPerInch is the PDF user-space unit; fitz bounds are reported at 72 DPI.
const pointsPerInch = 72.0

// Provider opens PDF files.
type Provider struct{}

// New returns a PDF provider.
func New() *Provider { return &Provider{} }

// Open opens the PDF at path.
func (p *Provider) Open(ctx context.Context, path string) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	doc, err := fitz.New(path)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to open PDF renderer: %w", err)
	}

	pages := reader.NumPage()
	if n := doc.NumPage(); n != pages {
		log.Debug("pdf: page count mismatch", "path", path, "text", pages, "render", n)
		pages = min(pages, n)
	}

	return &Document{file: f, reader: reader, renderer: doc, pages: pages}, nil
}

// Document is an open PDF.
type Document struct {
	file     *os.File
	reader   *pdflib.Reader
	renderer *fitz.Document
	pages    int
}

// NumPages returns the page count.
func (d *Document) NumPages() int { return d.pages }

// Text returns the plain text of page i (0-based).
func (d *Document) Text(i int) (string, error) {
	page := d.reader.Page(i + 1)
	if page.V.IsNull() {
		return "", nil
	}

	text, err := plainText(page)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}

	fallback, ferr := d.renderer.Text(i)
	if ferr != nil {
		if err != nil {
			return "", err
		}
		return "", ferr
	}
	log.Debug("pdf: used renderer text", "page", i, "err", err)
	return fallback, nil
}

// plainText recovers from panics raised by malformed content streams.
func plainText(page pdflib.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page content: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}

// Render rasterizes page i at the resolution closest to width and scales
// the result to exactly width pixels.
func (d *Document) Render(i, width int) (image.Image, error) {
	bounds, err := d.renderer.Bound(i)
	if err != nil {
		return nil, err
	}
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("page %d has empty bounds", i)
	}

	dpi := pointsPerInch * float64(width) / float64(bounds.Dx())
	img, err := d.renderer.ImageDPI(i, dpi)
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() == width {
		return img, nil
	}

	height := img.Bounds().Dy() * width / img.Bounds().Dx()
	dst := image.NewRGBA(image.Rect(0, 0, width, max(height, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst, nil
}

// Close releases both handles.
func (d *Document) Close() error {
	rerr := d.renderer.Close()
	ferr := d.file.Close()
	if rerr != nil {
		return rerr
	}
	return ferr
}
