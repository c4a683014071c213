package generator

import (
	"testing"

	"github.com/storyquiz/backend/internal/models"
)

func TestComputeStructuralScore(t *testing.T) {
	req := &GenerationRequest{
		Difficulty:   models.LevelA1,
		TargetLength: 40,
		Vocabulary:   []string{"kite", "park", "dragon"},
	}
	doc, err := Parse(sampleOutput)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	s := ComputeStructuralScore(req, doc)
	if !s.WordCountOK {
		t.Error("word count should be within tolerance of 40")
	}
	if s.VocabularyHits != 2 {
		t.Errorf("vocabulary hits = %d, want 2 (kite, park)", s.VocabularyHits)
	}
	if !s.AnswerDistribOK {
		t.Error("answers land on A, B, and C, distribution should pass")
	}
	if !s.ImagePromptFound {
		t.Error("sample has an image prompt")
	}
}

func TestQualityScore_Range(t *testing.T) {
	full := QualityScore(StructuralScore{
		WordCountOK:      true,
		VocabularyHits:   5,
		VocabularyTotal:  5,
		AnswerDistribOK:  true,
		ImagePromptFound: true,
	})
	if full != 1.0 {
		t.Errorf("full score = %v, want 1.0", full)
	}

	empty := QualityScore(StructuralScore{VocabularyTotal: 5})
	if empty != 0.0 {
		t.Errorf("empty score = %v, want 0.0", empty)
	}
}
