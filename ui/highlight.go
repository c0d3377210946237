package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// highlightPage wraps the chunks of a page to width, styling every word of
// the chunk at current with hl and dimming the chunks already read. It
// returns the text and the line on which the current chunk starts, or -1
// when no chunk is current.
func highlightPage(chunks []string, current, width int, hl lipgloss.Style) (string, int) {
	var b strings.Builder
	line := -1
	for i, c := range chunks {
		words := strings.Fields(c)
		if len(words) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if i == current {
			line = strings.Count(wordwrap.String(b.String()+words[0], width), "\n")
		}
		for j, w := range words {
			if j > 0 {
				b.WriteByte(' ')
			}
			switch {
			case i == current:
				b.WriteString(hl.Render(w))
			case current >= 0 && i < current:
				b.WriteString(dimNormalStyle.Render(w))
			default:
				b.WriteString(w)
			}
		}
	}
	return wordwrap.String(b.String(), width), line
}
