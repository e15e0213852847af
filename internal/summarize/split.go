// Package summarize turns long transcripts into study notes by splitting
// them into overlapping segments, summarizing each with an LLM and
// stitching the results back together.
package summarize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rohhhan8/major-project-4th-year/internal/model"
)

// SplitOptions controls segment sizes. All values are in bytes.
type SplitOptions struct {
	TargetSize   int `mapstructure:"target_size"`
	Overlap      int `mapstructure:"overlap"`
	SearchWindow int `mapstructure:"search_window"`
}

// DefaultSplitOptions returns 25000-byte segments with a 500-byte overlap,
// looking back up to 500 bytes for a sentence end.
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{TargetSize: 25000, Overlap: 500, SearchWindow: 500}
}

// NewSplitOptions builds options from user settings. A search window that
// would reach past half a segment is shrunk to half the target size.
func NewSplitOptions(targetSize, overlap, searchWindow int) SplitOptions {
	if targetSize > 0 && searchWindow > targetSize/2 {
		searchWindow = targetSize / 2
	}
	return SplitOptions{TargetSize: targetSize, Overlap: overlap, SearchWindow: searchWindow}
}

// Validate checks that the options can make forward progress.
func (o SplitOptions) Validate() error {
	switch {
	case o.TargetSize <= 0:
		return fmt.Errorf("%w: target size must be positive", model.ErrInvalidInput)
	case o.Overlap < 0 || o.Overlap >= o.TargetSize:
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", model.ErrInvalidInput, o.Overlap, o.TargetSize)
	case o.SearchWindow < 0 || o.SearchWindow >= o.TargetSize:
		return fmt.Errorf("%w: search window %d must be in [0, %d)", model.ErrInvalidInput, o.SearchWindow, o.TargetSize)
	}
	return nil
}

// Split cuts text into segments of at most TargetSize bytes. A segment ends
// after the last '.', '!' or '?' followed by whitespace inside the search
// window, else after the last whitespace, else at the last rune boundary.
// Every segment after the first starts about Overlap bytes before the
// previous end, at the start of a word. Concatenating the segment texts
// with each Overlap prefix removed yields text exactly.
func Split(text string, opts SplitOptions) ([]model.TranscriptSegment, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty transcript", model.ErrInvalidInput)
	}

	var segs []model.TranscriptSegment
	start, overlap := 0, 0
	for {
		if len(text)-start <= opts.TargetSize {
			segs = append(segs, segment(text, len(segs), start, len(text), overlap))
			return segs, nil
		}
		end := cutPoint(text, start, start+opts.TargetSize, opts.SearchWindow)
		segs = append(segs, segment(text, len(segs), start, end, overlap))

		next := wordStart(text, end-opts.Overlap, end)
		if next <= start {
			next = end
		}
		overlap = end - next
		start = next
	}
}

func segment(text string, idx, start, end, overlap int) model.TranscriptSegment {
	return model.TranscriptSegment{Index: idx, Start: start, End: end, Overlap: overlap, Text: text[start:end]}
}

// cutPoint returns the end offset of a segment starting at start whose hard
// limit is hard.
func cutPoint(text string, start, hard, window int) int {
	lo := max(start+1, hard-window)
	for i := hard - 1; i >= lo; i-- {
		if isSentenceEnd(text[i]) && (i+1 == len(text) || isSpace(text[i+1])) {
			return i + 1
		}
	}
	for i := hard - 1; i >= lo; i-- {
		if isSpace(text[i]) {
			return i + 1
		}
	}
	cut := hard
	for cut > start+1 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}

// wordStart moves pos forward to the first byte of a word, staying below
// limit. It returns limit when no word starts in between.
func wordStart(text string, pos, limit int) int {
	pos = max(pos, 1)
	for ; pos < limit; pos++ {
		if isSpace(text[pos-1]) && !isSpace(text[pos]) {
			return pos
		}
	}
	return limit
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}
