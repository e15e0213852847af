// Package prompts renders the LLM prompts used for study-note generation.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	delimiterRegex          = regexp.MustCompile(`(?m)^\s*=== .*===\s*$`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// MaxTranscriptRunes caps the transcript text placed in a single prompt.
const MaxTranscriptRunes = 40000

// NoContentMarker is what the model answers for excerpts with nothing to note.
const NoContentMarker = "[No educational content"

// Variant selects the style of the section notes.
type Variant string

const (
	// VariantDetailed produces full study notes.
	VariantDetailed Variant = "detailed"
	// VariantRevision produces a compact revision sheet.
	VariantRevision Variant = "revision"
)

var validVariants = map[Variant]bool{
	VariantDetailed: true,
	VariantRevision: true,
}

var (
	loadOnce         sync.Once
	loadErr          error
	sectionTemplates map[Variant]*template.Template
	mergeTemplate    *template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

// SectionData holds template data for a per-segment prompt.
type SectionData struct {
	Topic      string
	Title      string
	Part       int // 1-based
	Parts      int
	Transcript string
}

// MergeData holds template data for the final merge prompt.
type MergeData struct {
	Title string
	Draft string
}

// Load parses the embedded templates. It is safe to call repeatedly.
func Load() error {
	loadOnce.Do(func() {
		loadErr = load(templateFS)
	})
	return loadErr
}

func load(fsys fs.FS) error {
	sectionTemplates = make(map[Variant]*template.Template)
	for v := range validVariants {
		name := "templates/section_" + string(v) + ".txt"
		tmpl, err := parse(fsys, name)
		if err != nil {
			return err
		}
		sectionTemplates[v] = tmpl
	}
	tmpl, err := parse(fsys, "templates/merge.txt")
	if err != nil {
		return err
	}
	mergeTemplate = tmpl
	return nil
}

func parse(fsys fs.FS, name string) (*template.Template, error) {
	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read prompt file %s: %w", name, err)
	}
	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}

// BuildSectionPrompt renders the prompt for one transcript segment.
func BuildSectionPrompt(variant Variant, data SectionData) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	if variant == "" {
		variant = VariantDetailed
	}
	tmpl, ok := sectionTemplates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}
	data.Transcript = SanitizeTranscript(data.Transcript)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildMergePrompt renders the prompt that merges stitched section notes.
func BuildMergePrompt(data MergeData) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	var buf bytes.Buffer
	if err := mergeTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SanitizeTranscript strips anything that could be read as a prompt
// delimiter or instruction block and truncates very long text.
func SanitizeTranscript(text string) string {
	text = delimiterRegex.ReplaceAllString(text, "")
	text = systemInstructionsRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if text == "" {
		return "[No transcript provided]"
	}

	if utf8.RuneCountInString(text) > MaxTranscriptRunes {
		runes := []rune(text)
		runes = runes[:MaxTranscriptRunes]
		text = string(runes) + "\n\n[Transcript truncated due to length]"
	}

	return text
}
