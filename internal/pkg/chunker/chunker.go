// Package chunker splits extracted text into overlapping chunks at natural boundaries.
package chunker

import (
	"iter"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 150
)

// Chunk is a piece of text. Offset is the byte position of Content in the source text.
// PageNumber is nil when the source carries no page information.
type Chunk struct {
	Content    string
	Offset     int
	Position   int
	PageNumber *int
}

type Chunker struct {
	size    int
	overlap int
}

type Option func(*Chunker)

// WithSize sets the target chunk size in bytes.
func WithSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets how many bytes each chunk repeats from the previous one.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{size: DefaultSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Chunks lazily yields the chunks of text. pageOffsets[i] is where page i+1 starts;
// pass nil when the text has no pages. The sequence can be ranged over repeatedly
// and yields the same chunks every time.
//
// A window holding only whitespace never becomes a chunk of its own. It is appended
// to the preceding chunk, or prepended to the next one at the start of the text, so
// such a chunk can exceed the target size by the length of that run.
func (c *Chunker) Chunks(text string, pageOffsets []int) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		var pending *Chunk
		carry := -1
		start := 0
		for start < len(text) {
			end := min(start+c.size, len(text))
			breakPos := findBreakPoint(text, start, end)

			if strings.TrimSpace(text[start:breakPos]) == "" {
				switch {
				case pending != nil:
					pending.Content = text[pending.Offset:breakPos]
				case carry < 0:
					carry = start
				}
			} else {
				position := 0
				if pending != nil {
					if !yield(*pending) {
						return
					}
					position = pending.Position + 1
				}
				offset := start
				if carry >= 0 {
					offset, carry = carry, -1
				}
				pending = &Chunk{
					Content:    text[offset:breakPos],
					Offset:     offset,
					Position:   position,
					PageNumber: pageAt(pageOffsets, offset),
				}
			}

			if breakPos >= len(text) {
				break
			}

			next := RuneStart(text, breakPos-c.overlap)
			if next <= start {
				next = breakPos
			}
			start = next
		}
		if pending != nil {
			yield(*pending)
		}
	}
}

// Split collects every chunk of text.
func (c *Chunker) Split(text string, pageOffsets []int) []Chunk {
	return slices.Collect(c.Chunks(text, pageOffsets))
}

var sentenceEndings = []string{".\n", "!\n", "?\n", ". ", "! ", "? "}

// findBreakPoint picks the cut for text[start:end], searching the final 30% of the window.
// Preference: paragraph, sentence, line, word, then a hard cut on a rune boundary.
func findBreakPoint(text string, start, end int) int {
	if end >= len(text) {
		return len(text)
	}

	searchStart := start + (end-start)*7/10
	window := text[searchStart:end]

	if idx := strings.LastIndex(window, "\n\n"); idx != -1 {
		return searchStart + idx + 2
	}

	best := -1
	for _, ending := range sentenceEndings {
		if idx := strings.LastIndex(window, ending); idx > best {
			best = idx
		}
	}
	if best != -1 {
		return searchStart + best + 2
	}

	if idx := strings.LastIndex(window, "\n"); idx != -1 {
		return searchStart + idx + 1
	}

	if idx := strings.LastIndex(window, " "); idx != -1 {
		return searchStart + idx + 1
	}

	cut := RuneStart(text, end)
	if cut <= start {
		// a single rune wider than the window
		_, width := utf8.DecodeRuneInString(text[start:])
		cut = start + width
	}
	return cut
}

// RuneStart moves pos back to the first byte of the rune containing it,
// clamping it to [0, len(text)].
func RuneStart(text string, pos int) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(text) {
		return len(text)
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

// pageAt returns the 1-based page containing offset, or nil without page information.
func pageAt(pageOffsets []int, offset int) *int {
	if len(pageOffsets) == 0 {
		return nil
	}
	idx := sort.Search(len(pageOffsets), func(i int) bool { return pageOffsets[i] > offset })
	page := max(idx, 1)
	return &page
}
