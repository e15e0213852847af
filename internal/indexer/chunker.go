package indexer

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultChunkDuration is the target span of transcript per chunk.
	DefaultChunkDuration = 5 * time.Minute
	// MinChunkText is the shortest chunk text worth indexing, in bytes.
	MinChunkText = 50
)

// Snippet is one timed caption line of a transcript.
type Snippet struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// TimedChunk is a time range of a transcript with its joined text.
type TimedChunk struct {
	Start float64
	End   float64
	Text  string
}

// ChunkTranscript groups snippets into chunks that span at least size
// seconds. A chunk is closed by the snippet that reaches the target, and the
// next chunk starts where that snippet ends. Chunks shorter than
// MinChunkText are dropped.
func ChunkTranscript(snippets []Snippet, size time.Duration) []TimedChunk {
	if len(snippets) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkDuration
	}
	target := size.Seconds()

	var chunks []TimedChunk
	var parts []string
	start, end := snippets[0].Start, 0.0
	flush := func() {
		text := strings.Join(parts, " ")
		if len(text) >= MinChunkText {
			chunks = append(chunks, TimedChunk{Start: start, End: end, Text: text})
		}
		parts = parts[:0]
	}

	for _, s := range snippets {
		parts = append(parts, strings.TrimSpace(s.Text))
		end = s.Start + s.Duration
		if end-start >= target {
			flush()
			start = end
		}
	}
	if len(parts) > 0 {
		flush()
	}
	return chunks
}

// FormatTimestamp renders seconds as m:ss, or h:mm:ss from one hour up.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// TimestampLink appends a start offset to a video URL.
func TimestampLink(base string, seconds float64) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%d", base, sep, int(seconds))
}
