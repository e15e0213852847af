package summarize

import (
	"fmt"
	"strings"
)

const missingPrefix = "> **Missing section"

// boundaryLines is how many non-empty lines on each side of a section
// boundary are compared for duplicated bullets.
const boundaryLines = 4

// MissingMarker is the visible placeholder for a segment whose notes could
// not be generated. part and parts are 1-based for display.
func MissingMarker(part, parts int) string {
	return fmt.Sprintf("%s %d/%d:** notes for this part of the transcript could not be generated.", missingPrefix, part, parts)
}

// IsMissingMarker reports whether section is a missing-section placeholder.
func IsMissingMarker(section string) bool {
	return strings.HasPrefix(strings.TrimSpace(section), missingPrefix)
}

// Stitch joins per-segment notes in order. Across each boundary it drops a
// leading heading that repeats the heading in effect at the end of the
// previous section, and bullets near the start of a section that repeat a
// bullet near the end of the previous one. Fenced code blocks are never
// modified. Empty sections are skipped.
func Stitch(sections []string) string {
	var out []string
	var lastHeading string
	var prevTail map[string]bool

	for _, sec := range sections {
		sec = strings.TrimSpace(sec)
		if sec == "" {
			continue
		}
		if IsMissingMarker(sec) {
			out = append(out, sec)
			lastHeading, prevTail = "", nil
			continue
		}

		lines := strings.Split(sec, "\n")
		kept := make([]string, 0, len(lines))
		// bullet text of the trailing non-empty lines, "" for other lines
		var tail []string
		inCode := false
		seenHeading := false
		pos := 0
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				kept = append(kept, line)
				continue
			}
			pos++
			if isFence(trimmed) {
				inCode = !inCode
				kept = append(kept, line)
				tail = pushTail(tail, "")
				continue
			}
			if inCode {
				kept = append(kept, line)
				tail = pushTail(tail, "")
				continue
			}
			if h, ok := headingText(trimmed); ok {
				first := !seenHeading
				seenHeading = true
				if first && lastHeading != "" && h == lastHeading {
					continue
				}
				lastHeading = h
				kept = append(kept, line)
				tail = pushTail(tail, "")
				continue
			}
			b, ok := bulletText(trimmed)
			if ok && pos <= boundaryLines && prevTail[b] {
				continue
			}
			kept = append(kept, line)
			tail = pushTail(tail, b)
		}
		prevTail = make(map[string]bool, len(tail))
		for _, b := range tail {
			if b != "" {
				prevTail[b] = true
			}
		}

		if text := strings.TrimSpace(strings.Join(kept, "\n")); text != "" {
			out = append(out, text)
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n\n") + "\n"
}

func pushTail(tail []string, b string) []string {
	tail = append(tail, b)
	if len(tail) > boundaryLines {
		tail = tail[1:]
	}
	return tail
}

func isFence(line string) bool {
	return strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~")
}

// headingText returns the normalized text of an ATX heading.
func headingText(line string) (string, bool) {
	if !strings.HasPrefix(line, "#") {
		return "", false
	}
	text := strings.TrimLeft(line, "#")
	if text != "" && text[0] != ' ' && text[0] != '\t' {
		return "", false
	}
	return normalize(strings.TrimRight(strings.TrimSpace(text), "#")), true
}

// bulletText returns the normalized text of a list item.
func bulletText(line string) (string, bool) {
	for _, p := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, p) {
			return normalize(line[len(p):]), true
		}
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
