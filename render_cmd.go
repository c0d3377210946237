package main

import (
	"context"
	"fmt"
	"image/png"
	"os"

	"github.com/dgnsrekt/recite/document"
	"github.com/dgnsrekt/recite/document/pdf"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	renderPage   int
	renderWidth  int
	renderOutput string

	renderCmd = &cobra.Command{
		Use:     "render FILE",
		Short:   "Export a page as a PNG image",
		Long:    paragraph(fmt.Sprintf("\n%s a page of the document as a PNG image of the given width.", keyword("Export"))),
		Example: paragraph("recite render paper.pdf --page 2 --width 1200 -o page2.png"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := renderOutput
			if out == "" {
				out = fmt.Sprintf("page-%d.png", renderPage)
			}
			n, err := renderPNG(cmd.Context(), args[0], renderPage, renderWidth, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", out, humanize.Bytes(uint64(n))) //nolint:gosec
			return nil
		},
	}
)

// renderPNG writes page (1-based) of the document at locator to out and
// returns the file size.
func renderPNG(ctx context.Context, locator string, page, width int, out string) (int64, error) {
	path, err := resolve(ctx, locator)
	if err != nil {
		return 0, err
	}

	docs := document.NewSessionCache(pdf.New())
	defer docs.Shutdown()
	m := document.NewManager(docs, path)
	defer m.Close(ctx) //nolint:errcheck

	img, err := m.PageBitmap(ctx, page-1, width)
	if err != nil {
		return 0, err //nolint:wrapcheck
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, fmt.Errorf("unable to create %s: %w", out, err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("unable to encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("unable to write %s: %w", out, err)
	}

	st, err := os.Stat(out)
	if err != nil {
		return 0, fmt.Errorf("unable to stat %s: %w", out, err)
	}
	return st.Size(), nil
}

func init() {
	renderCmd.Flags().IntVarP(&renderPage, "page", "p", 1, "page to render (1-based)")
	renderCmd.Flags().IntVarP(&renderWidth, "width", "w", 1024, "image width in pixels")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file (default page-N.png)")
}
