package generator

import "strings"

// StructuralScore holds the individual structural compliance checks
// for a generated story.
type StructuralScore struct {
	WordCountOK      bool
	VocabularyHits   int
	VocabularyTotal  int
	AnswerDistribOK  bool
	ImagePromptFound bool
}

// wordCountTolerance is the allowed relative deviation from the
// requested passage length.
const wordCountTolerance = 0.5

// ComputeStructuralScore evaluates how well a parsed document matches
// the request that produced it. The result is advisory: a low score
// is logged, never rejected, since the passage is still usable.
func ComputeStructuralScore(req *GenerationRequest, doc *ParsedDocument) StructuralScore {
	words := len(strings.Fields(doc.Story.BodyMarkdown))
	lo := int(float64(req.TargetLength) * (1 - wordCountTolerance))
	hi := int(float64(req.TargetLength) * (1 + wordCountTolerance))

	lower := strings.ToLower(doc.Story.BodyMarkdown)
	hits := 0
	for _, w := range req.Vocabulary {
		if strings.Contains(lower, strings.ToLower(w)) {
			hits++
		}
	}

	// A single option position holding every correct answer suggests
	// the model ignored the distribution instruction.
	positions := map[int]int{}
	for _, q := range doc.Questions {
		for i, opt := range q.Options {
			if opt == q.CorrectOptionText {
				positions[i]++
				break
			}
		}
	}
	distribOK := len(doc.Questions) < 3 || len(positions) > 1

	return StructuralScore{
		WordCountOK:      words >= lo && words <= hi,
		VocabularyHits:   hits,
		VocabularyTotal:  len(req.Vocabulary),
		AnswerDistribOK:  distribOK,
		ImagePromptFound: doc.Story.ImagePrompt != "",
	}
}

// QualityScore collapses the structural checks into a 0.0-1.0 value.
//
// Formula: word_count * 0.30 + vocabulary_coverage * 0.40 + answer_distribution * 0.20 + image_prompt * 0.10
func QualityScore(s StructuralScore) float64 {
	score := 0.0
	if s.WordCountOK {
		score += 0.30
	}
	if s.VocabularyTotal > 0 {
		score += 0.40 * float64(s.VocabularyHits) / float64(s.VocabularyTotal)
	}
	if s.AnswerDistribOK {
		score += 0.20
	}
	if s.ImagePromptFound {
		score += 0.10
	}
	return score
}
