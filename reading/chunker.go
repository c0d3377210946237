package reading

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SplitSentences splits page text into sentence chunks. A chunk ends after
// '.', '!' or '?' when the next rune is whitespace. Whitespace runs,
// including the line breaks PDF extraction leaves mid-sentence, collapse to
// a single space. The result only depends on text.
func SplitSentences(text string) []string {
	text = norm.NFC.String(text)

	var chunks []string
	var b strings.Builder
	pendingSpace := false

	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			chunks = append(chunks, s)
		}
		b.Reset()
		pendingSpace = false
	}

	for i, r := range text {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			next, _ := utf8.DecodeRuneInString(text[i+utf8.RuneLen(r):])
			if next != utf8.RuneError && unicode.IsSpace(next) {
				flush()
			}
		}
	}
	flush()

	return chunks
}

// SentenceChunker holds the chunk queue of the current page.
type SentenceChunker struct {
	chunks []string
	next   int
}

// SetPage replaces the queue with the chunks of text, discarding anything
// not yet consumed.
func (c *SentenceChunker) SetPage(text string) {
	c.chunks = SplitSentences(text)
	c.next = 0
}

// Clear empties the queue.
func (c *SentenceChunker) Clear() {
	c.chunks = nil
	c.next = 0
}

// Next returns the next unconsumed chunk.
func (c *SentenceChunker) Next() (string, bool) {
	if c.next >= len(c.chunks) {
		return "", false
	}
	s := c.chunks[c.next]
	c.next++
	return s, true
}

// IsEmpty reports whether the page has no chunks.
func (c *SentenceChunker) IsEmpty() bool {
	return len(c.chunks) == 0
}

// Len returns the number of chunks on the page.
func (c *SentenceChunker) Len() int {
	return len(c.chunks)
}

// All returns every chunk of the page in order.
func (c *SentenceChunker) All() []string {
	return append([]string(nil), c.chunks...)
}
