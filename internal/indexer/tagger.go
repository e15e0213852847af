package indexer

import "strings"

// Content styles assigned by the tagger.
const (
	StyleOneShot       = "One_Shot"
	StyleCourse        = "Course"
	StylePractical     = "Practical"
	StyleInterviewPrep = "Interview_Prep"
	StyleConceptual    = "Conceptual"
	StyleAdvice        = "Advice"
	StyleQuickSummary  = "Quick_Summary"
)

// Difficulty levels assigned by the tagger.
const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

// Granularity values.
const (
	GranularitySpecific = "Specific"
	GranularityBroad    = "Broad"
)

type styleKeywords struct {
	style string
	words []string
}

// Order matters: on equal scores the earlier style wins.
var styleTable = []styleKeywords{
	{StyleOneShot, []string{"crash course", "in one video", "summary of", "cheat sheet", "entire topic", "fast track", "recap", "one shot"}},
	{StyleCourse, []string{"full course", "zero to hero", "curriculum", "bootcamp", "complete series", "all lectures", "from scratch", "playlist covers"}},
	{StylePractical, []string{"code", "implementation", "hands-on", "build", "project", "demo", "typing", "function", "terminal", "tutorial"}},
	{StyleInterviewPrep, []string{"leetcode", "solution", "problem", "complexity", "google", "amazon", "interview", "approach", "optimizing"}},
	{StyleConceptual, []string{"theory", "concept", "under the hood", "architecture", "diagram", "whiteboard", "why it works", "visualize"}},
	{StyleAdvice, []string{"roadmap", "mistakes", "salary", "jobs", "resume", "career", "guide to", "resources"}},
}

var (
	beginnerWords = []string{"intro", "introduction", "basic", "basics", "beginner", "beginners", "what is", "101", "getting started", "foundation"}
	advancedWords = []string{"advanced", "internal", "architecture", "under the hood", "optimization", "system design", "master", "expert", "complex", "low level", "scaling"}
)

const (
	titleWeight = 10
	introWeight = 5
	introRunes  = 500

	quickSummaryMaxSeconds = 300
	courseMinSeconds       = 3600
)

// Tags are the filterable labels of a video.
type Tags struct {
	Difficulty  string
	Style       string
	Granularity string
}

// DetermineStyle scores every style by keyword hits: each keyword found in
// the title adds 10, in the first 500 characters of the transcript adds 5,
// and every occurrence in the full transcript adds 1. With no hits at all
// the style falls back on the video duration.
func DetermineStyle(title, transcript string, durationSeconds float64) (style, granularity string) {
	title = strings.ToLower(title)
	body := strings.ToLower(transcript)
	intro := truncateRunes(body, introRunes)

	best, bestScore := "", 0
	for _, sk := range styleTable {
		score := 0
		for _, w := range sk.words {
			if strings.Contains(title, w) {
				score += titleWeight
			}
			if strings.Contains(intro, w) {
				score += introWeight
			}
			score += strings.Count(body, w)
		}
		if score > bestScore {
			best, bestScore = sk.style, score
		}
	}

	if bestScore == 0 {
		switch {
		case durationSeconds < quickSummaryMaxSeconds:
			return StyleQuickSummary, GranularitySpecific
		case durationSeconds > courseMinSeconds:
			return StyleCourse, GranularityBroad
		default:
			return StyleConceptual, GranularitySpecific
		}
	}
	return best, GranularityFor(best)
}

// GranularityFor maps a style to its granularity.
func GranularityFor(style string) string {
	if style == StyleCourse || style == StyleAdvice {
		return GranularityBroad
	}
	return GranularitySpecific
}

// DetermineDifficulty scans the title, then the description, for beginner
// and advanced keywords. Beginner keywords are checked first.
func DetermineDifficulty(title, description string) string {
	for _, text := range []string{strings.ToLower(title), strings.ToLower(description)} {
		if containsAny(text, beginnerWords) {
			return DifficultyBeginner
		}
		if containsAny(text, advancedWords) {
			return DifficultyAdvanced
		}
	}
	return DifficultyIntermediate
}

// Tag computes the tags of a video. Manual difficulty and style take
// precedence over the automatic ones.
func Tag(v Video, transcript string) Tags {
	style, granularity := DetermineStyle(v.Title, transcript, v.DurationSeconds)
	t := Tags{
		Difficulty:  DetermineDifficulty(v.Title, v.Description),
		Style:       style,
		Granularity: granularity,
	}
	if v.ManualDifficulty != "" {
		t.Difficulty = v.ManualDifficulty
	}
	if v.ManualStyle != "" {
		t.Style = v.ManualStyle
	}
	return t
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
