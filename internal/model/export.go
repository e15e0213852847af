package model

import "time"

// DiagnosisExport is the top-level JSON structure for exporting stored diagnoses.
type DiagnosisExport struct {
	ExportedAt time.Time        `json:"exported_at"`
	Topic      string           `json:"topic,omitempty"`
	Count      int              `json:"count"`
	Profiles   map[Profile]int  `json:"profiles"`
	Results    []AttemptSummary `json:"results"`
}

// AttemptSummary holds one stored attempt together with its diagnosis.
type AttemptSummary struct {
	AttemptID     string    `json:"attempt_id"`
	TopicID       string    `json:"topic_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Questions     int       `json:"questions"`
	Percentage    float64   `json:"percentage"`
	Profile       Profile   `json:"learner_profile"`
	WeakestPillar Pillar    `json:"weakest_pillar"`
	Feedback      string    `json:"feedback"`
	ClusterID     int       `json:"cluster_id"`
	Confidence    float64   `json:"confidence"`
}
