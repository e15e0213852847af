package model

import (
	"time"
)

// Pillar is the cognitive category a quiz question is tagged with.
type Pillar string

const (
	PillarConcept        Pillar = "Concept"
	PillarImplementation Pillar = "Implementation"
	PillarComplexity     Pillar = "Complexity"
	PillarDebugging      Pillar = "Debugging"
	PillarApplication    Pillar = "Application"
)

// KnownPillars lists the pillars of the question bank in display order.
var KnownPillars = []Pillar{
	PillarConcept,
	PillarImplementation,
	PillarComplexity,
	PillarDebugging,
	PillarApplication,
}

// IsKnown reports whether p is one of the five standard pillars.
func (p Pillar) IsKnown() bool {
	for _, k := range KnownPillars {
		if p == k {
			return true
		}
	}
	return false
}

// Profile is the behavioral classification of a single quiz attempt.
type Profile string

const (
	ProfileStruggling   Profile = "Struggling"
	ProfileRushed       Profile = "Rushed"
	ProfileHighAchiever Profile = "High Achiever"
)

// Profiles lists every profile the classifier can emit.
var Profiles = []Profile{ProfileStruggling, ProfileRushed, ProfileHighAchiever}

// IsValid reports whether p is one of the three profiles.
func (p Profile) IsValid() bool {
	return p == ProfileStruggling || p == ProfileRushed || p == ProfileHighAchiever
}

// Difficulty is the difficulty of a quiz question, used to derive its ideal time.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

var pillarTimeMultipliers = map[Pillar]float64{
	PillarConcept:        0.8,
	PillarImplementation: 1.0,
	PillarComplexity:     1.2,
	PillarApplication:    1.2,
	PillarDebugging:      1.5,
}

// IdealTime returns the expected answer time for a question of the given
// difficulty and pillar. Unknown pillars use the base time unchanged.
func IdealTime(d Difficulty, p Pillar) float64 {
	base := 30.0
	switch d {
	case DifficultyEasy:
		base = 15
	case DifficultyHard:
		base = 45
	}
	if m, ok := pillarTimeMultipliers[p]; ok {
		return base * m
	}
	return base
}

// QuestionResult is the outcome of one answered question.
type QuestionResult struct {
	QuestionID       string     `json:"question_id"`
	Pillar           Pillar     `json:"diagnosis_pillar"`
	Difficulty       Difficulty `json:"difficulty,omitempty"`
	IsCorrect        bool       `json:"is_correct"`
	TimeTakenSeconds float64    `json:"time_taken_seconds"`
	IdealTimeSeconds float64    `json:"ideal_time_seconds"`
	Tags             []string   `json:"search_tags,omitempty"`
}

// QuizAttempt is one submitted quiz. It is never modified after creation.
type QuizAttempt struct {
	ID               string           `json:"id"`
	TopicID          string           `json:"topic_id"`
	TopicName        string           `json:"topic_name,omitempty"`
	TotalTimeSeconds float64          `json:"total_time_seconds"`
	Results          []QuestionResult `json:"results"`
	SubmittedAt      time.Time        `json:"submitted_at"`
}

// Topic returns the human readable topic, falling back to the topic id.
func (a QuizAttempt) Topic() string {
	if a.TopicName != "" {
		return a.TopicName
	}
	return a.TopicID
}

// LearnerFeatures is the clustering input derived from an attempt.
type LearnerFeatures struct {
	PercentageScore    float64 `json:"percentage_score"`
	AvgTimePerQuestion float64 `json:"avg_time_per_question"`
}

// PillarStats aggregates the results of one pillar within an attempt.
type PillarStats struct {
	Correct          int     `json:"correct"`
	Total            int     `json:"total"`
	Accuracy         float64 `json:"accuracy"`
	RushedCount      int     `json:"rushed_count"`
	TotalTimeSeconds float64 `json:"total_time_seconds"`
	AvgTimeRatio     float64 `json:"avg_time_ratio"`
}

// ClusterSignal is the secondary, explanatory output of the clustering model.
type ClusterSignal struct {
	ClusterID  int     `json:"cluster_id"`
	Profile    Profile `json:"profile"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
	Agrees     bool    `json:"agrees"`
}

// Diagnosis is the result of diagnosing one attempt.
type Diagnosis struct {
	AttemptID     string                 `json:"attempt_id"`
	TopicID       string                 `json:"topic_id"`
	Topic         string                 `json:"topic"`
	Profile       Profile                `json:"learner_profile"`
	Percentage    float64                `json:"percentage"`
	Correct       int                    `json:"correct"`
	Total         int                    `json:"total"`
	PillarStats   map[Pillar]PillarStats `json:"pillar_breakdown"`
	WeakestPillar Pillar                 `json:"weakest_pillar"`
	Feedback      string                 `json:"feedback"`
	RushedRatio   float64                `json:"rushed_ratio"`
	TimeRatio     float64                `json:"time_ratio"`
	Tags          []string               `json:"failed_tags,omitempty"`
	Cluster       *ClusterSignal         `json:"cluster,omitempty"`
	Degraded      bool                   `json:"degraded"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ChunkMetadata holds the filterable tags of an indexed chunk.
type ChunkMetadata struct {
	Difficulty  string `json:"difficulty"`
	Style       string `json:"style"`
	Granularity string `json:"granularity"`
}

// VideoChunk is one embedded slice of a video transcript.
type VideoChunk struct {
	ID           string        `json:"id"`
	VideoID      string        `json:"video_id"`
	ChunkIndex   int           `json:"chunk_index"`
	Text         string        `json:"text"`
	Embedding    []float32     `json:"-"`
	Metadata     ChunkMetadata `json:"metadata"`
	Title        string        `json:"title"`
	Link         string        `json:"youtube_link"`
	Timestamp    string        `json:"timestamp"`
	StartSeconds float64       `json:"start_seconds"`
	EndSeconds   float64       `json:"end_seconds"`
	Channel      string        `json:"channel"`
}

// Recommendation is one ranked video for a learner.
type Recommendation struct {
	VideoID          string        `json:"video_id"`
	Title            string        `json:"title"`
	RelevancePercent float64       `json:"relevance_percent"`
	Distance         float64       `json:"distance"`
	Metadata         ChunkMetadata `json:"metadata"`
	Link             string        `json:"youtube_link"`
	Thumbnail        string        `json:"thumbnail"`
	Timestamp        string        `json:"timestamp"`
	Snippet          string        `json:"description"`
	Relaxed          bool          `json:"relaxed,omitempty"`
}

// TranscriptSegment is a slice of a transcript sent to the LLM in one call.
// Overlap is the number of leading bytes shared with the previous segment.
type TranscriptSegment struct {
	Index   int    `json:"index"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Overlap int    `json:"overlap"`
	Text    string `json:"-"`
}

// NotesResult is the stitched study-notes document.
type NotesResult struct {
	ID             string    `json:"id,omitempty"`
	VideoID        string    `json:"video_id,omitempty"`
	Markdown       string    `json:"markdown"`
	SegmentsTotal  int       `json:"segments_total"`
	SegmentsFailed []int     `json:"segments_failed"`
	TimedOut       bool      `json:"timed_out"`
	CreatedAt      time.Time `json:"created_at"`
}
