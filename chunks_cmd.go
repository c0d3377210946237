package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/recite/document"
	"github.com/dgnsrekt/recite/document/pdf"
	"github.com/dgnsrekt/recite/reading"
	"github.com/spf13/cobra"
)

var (
	chunksPage int

	chunksCmd = &cobra.Command{
		Use:     "chunks FILE",
		Short:   "Print the sentences of a page",
		Long:    paragraph(fmt.Sprintf("\n%s the sentences of a page the way they are read aloud, one per line.", keyword("Print"))),
		Example: paragraph("recite chunks paper.pdf --page 3"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printChunks(cmd.Context(), args[0], chunksPage, cmd.OutOrStdout())
		},
	}
)

var chunkIndexStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}).Render

func printChunks(ctx context.Context, locator string, page int, w io.Writer) error {
	path, err := resolve(ctx, locator)
	if err != nil {
		return err
	}

	docs := document.NewSessionCache(pdf.New())
	defer docs.Shutdown()
	m := document.NewManager(docs, path)
	defer m.Close(ctx) //nolint:errcheck

	text, err := m.PageText(ctx, page-1)
	if err != nil {
		return err //nolint:wrapcheck
	}

	for i, chunk := range reading.SplitSentences(text) {
		if _, err := fmt.Fprintf(w, "%s %s\n", chunkIndexStyle(fmt.Sprintf("%3d", i+1)), chunk); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}
	return nil
}

func init() {
	chunksCmd.Flags().IntVarP(&chunksPage, "page", "p", 1, "page to split (1-based)")
}
