package model

import "testing"

func TestIdealTime(t *testing.T) {
	tests := []struct {
		difficulty Difficulty
		pillar     Pillar
		want       float64
	}{
		{DifficultyEasy, PillarConcept, 12},
		{DifficultyMedium, PillarImplementation, 30},
		{DifficultyHard, PillarDebugging, 67.5},
		{DifficultyMedium, PillarComplexity, 36},
		{"", PillarApplication, 36},
		{DifficultyHard, "Security", 45},
	}
	for _, tt := range tests {
		t.Run(string(tt.difficulty)+"/"+string(tt.pillar), func(t *testing.T) {
			if got := IdealTime(tt.difficulty, tt.pillar); got != tt.want {
				t.Errorf("IdealTime(%q, %q) = %v, want %v", tt.difficulty, tt.pillar, got, tt.want)
			}
		})
	}
}

func TestAttemptTopic(t *testing.T) {
	a := QuizAttempt{TopicID: "arrays"}
	if a.Topic() != "arrays" {
		t.Errorf("Topic() = %q, want topic id fallback", a.Topic())
	}
	a.TopicName = "Arrays"
	if a.Topic() != "Arrays" {
		t.Errorf("Topic() = %q, want topic name", a.Topic())
	}
}

func TestPillarAndProfileValidity(t *testing.T) {
	if !PillarDebugging.IsKnown() {
		t.Error("Debugging should be a known pillar")
	}
	if Pillar("Security").IsKnown() {
		t.Error("Security should not be a known pillar")
	}
	for _, p := range Profiles {
		if !p.IsValid() {
			t.Errorf("profile %q should be valid", p)
		}
	}
	if Profile("Unknown").IsValid() {
		t.Error("Unknown should not be a valid profile")
	}
}

func TestEmbeddingEncoding(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3e-8}
	got, err := DecodeEmbedding(EncodeEmbedding(vec))
	if err != nil {
		t.Fatalf("DecodeEmbedding: %v", err)
	}
	if len(got) != len(vec) {
		t.Fatalf("len = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("vec[%d] = %v, want %v", i, got[i], vec[i])
		}
	}
	if _, err := DecodeEmbedding([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
}
