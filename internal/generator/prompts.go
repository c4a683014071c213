package generator

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/storyquiz/backend/internal/models"
)

// GenerationRequest captures every parameter that went into a prompt.
// Immutable once built; the Prompt field is the literal text sent to
// the generation service.
type GenerationRequest struct {
	Difficulty      models.CEFRLevel
	TargetLength    int
	Vocabulary      []string
	Theme           string
	Setting         string
	ProtagonistName string
	Category        string
	WritingStyle    string
	NarrativeDrive  string
	Tone            string
	Prompt          string
}

const (
	// MinLength and MaxLength bound the requested passage length.
	MinLength = 200
	MaxLength = 400

	// VocabularySize is how many words are sampled when the caller
	// does not supply an explicit vocabulary.
	VocabularySize = 5
)

type levelConfig struct {
	themes          []string
	settings        []string
	protagonists    []string
	categories      []string
	wordList        []string
	vocabLevel      string
	sentenceLength  string
	tense           string
	avoidStructures string
	numQuestions    int
	questionFocus   string
}

var levelConfigs = map[models.CEFRLevel]levelConfig{
	models.LevelA1: {
		themes: []string{
			"family", "pets", "school life", "a fun day", "food",
			"home activities", "friends", "simple shopping", "seasons",
			"morning routine", "a birthday party", "playing games",
			"my favorite toy", "a sunny day", "helping mom",
		},
		settings: []string{
			"a small house", "a school", "a park", "a shop", "a garden",
			"a classroom", "a playground", "a kitchen", "a backyard",
			"a farm", "a lake", "a toy store",
		},
		protagonists: []string{"Tom", "Anna", "Sam", "Lisa", "Ben", "Emma"},
		categories: []string{
			"happy child", "curious kid", "playful sibling",
			"young explorer", "smiling student",
		},
		wordList: []string{
			"kite", "ball", "dog", "cat", "apple", "book", "tree",
			"house", "friend", "school", "happy", "play", "run", "red",
			"small", "water", "sun", "bird", "cake", "game",
		},
		vocabLevel:      "basic (first 500-1000 words of the Oxford 3000 list)",
		sentenceLength:  "5-8 words",
		tense:           "present tense only",
		avoidStructures: "subordinate clauses, idioms, phrasal verbs",
		numQuestions:    4,
		questionFocus:   "literal details",
	},
	models.LevelA2: {
		themes: []string{
			"hobbies", "travel", "food", "sports", "animals", "shopping",
			"weather", "a school trip", "a family party", "favorite books",
			"a rainy day", "visiting grandparents", "summer vacation",
			"my neighborhood", "a new friend",
		},
		settings: []string{
			"a small town", "a park", "a shop", "a beach", "a zoo",
			"a sports field", "a market", "a bus", "a restaurant",
			"a library", "a swimming pool", "a train station",
		},
		protagonists: []string{"Tom", "Anna", "Sam", "Lisa", "Ben", "Emma"},
		categories: []string{
			"student", "eager learner", "active teenager",
			"helpful classmate", "adventurous pupil", "curious explorer",
		},
		wordList: []string{
			"journey", "ticket", "market", "weather", "practice",
			"collect", "visit", "special", "excited", "forest",
			"museum", "bicycle", "picnic", "promise", "surprise",
			"neighbor", "holiday", "healthy", "brave", "quiet",
		},
		vocabLevel:      "elementary (1000-2000 words of the Oxford 3000 list)",
		sentenceLength:  "8-12 words",
		tense:           "present and simple past tenses",
		avoidStructures: "complex clauses, idioms",
		numQuestions:    4,
		questionFocus:   "details and simple context",
	},
	models.LevelB1: {
		themes: []string{
			"work", "education", "environment", "travel experiences",
			"health", "city life", "friendship", "family traditions",
			"learning a new skill", "a weekend getaway", "volunteering",
			"cultural festivals", "personal goals", "saving money",
		},
		settings: []string{
			"a city", "a workplace", "a school", "a train station",
			"a cafe", "a library", "a gym", "a hospital", "a museum",
			"a community hall", "a home office", "a riverbank",
		},
		protagonists: []string{"James", "Sophie", "Alex", "Maria", "David", "Laura", "Chris", "Nina"},
		categories: []string{
			"young worker", "ambitious beginner", "dedicated employee",
			"busy urbanite", "motivated learner", "outgoing colleague",
		},
		wordList: []string{
			"opportunity", "schedule", "achieve", "improve", "decision",
			"experience", "environment", "community", "challenge",
			"routine", "organize", "confident", "volunteer", "habit",
			"budget", "advice", "tradition", "efficient", "deadline", "reward",
		},
		vocabLevel:      "intermediate (2000-3000 words of the Oxford 3000 list)",
		sentenceLength:  "10-15 words",
		tense:           "present, past, and future tenses",
		avoidStructures: "rare idioms, passive voice",
		numQuestions:    5,
		questionFocus:   "details, context, and basic inference",
	},
	models.LevelB2: {
		themes: []string{
			"technology", "culture", "travel adventures", "career plans",
			"social media", "music and art", "health and fitness",
			"sustainable living", "digital privacy", "cultural exchange",
			"work-life balance", "entrepreneurship", "online learning",
			"innovation in daily life",
		},
		settings: []string{
			"a university", "a festival", "a city center", "a museum",
			"an office", "a concert", "a technology fair",
			"a co-working space", "an art gallery", "a startup incubator",
			"an international airport", "a wellness retreat",
		},
		protagonists: []string{"James", "Sophie", "Alex", "Maria", "David", "Laura", "Chris", "Nina", "Oliver", "Emma"},
		categories: []string{
			"young professional", "innovative expert", "global thinker",
			"creative leader", "networking enthusiast", "tech-savvy manager",
		},
		wordList: []string{
			"innovation", "perspective", "sustainable", "collaborate",
			"ambition", "influence", "priority", "strategy", "adapt",
			"initiative", "genuine", "controversy", "potential",
			"investment", "diversity", "negotiate", "awareness",
			"breakthrough", "dilemma", "resilient",
		},
		vocabLevel:      "upper-intermediate (3000-4000 words of the Oxford 3000 list)",
		sentenceLength:  "12-20 words",
		tense:           "all tenses, including conditionals",
		avoidStructures: "none",
		numQuestions:    5,
		questionFocus:   "inference, vocabulary, and main idea",
	},
	models.LevelX1: {
		themes: []string{
			"ethics of technology", "globalization", "identity and belonging",
			"climate policy", "scientific discovery", "media literacy",
			"economic inequality", "the future of work", "urban design",
			"artificial intelligence in society",
		},
		settings: []string{
			"a research institute", "an international summit",
			"a newsroom", "a courtroom", "a remote field station",
			"a parliamentary hearing", "an archaeological dig",
			"a biotech laboratory",
		},
		protagonists: []string{"Elena", "Marcus", "Priya", "Jonas", "Amara", "Felix"},
		categories: []string{
			"investigative journalist", "policy researcher",
			"veteran scientist", "skeptical analyst", "reform advocate",
		},
		wordList: []string{
			"paradigm", "scrutiny", "unprecedented", "mitigate",
			"consensus", "ambiguous", "infrastructure", "advocate",
			"implication", "rhetoric", "feasible", "deteriorate",
			"provisional", "juxtapose", "nuance", "repercussion",
			"substantiate", "volatile", "incentive", "discourse",
		},
		vocabLevel:      "advanced (4000+ words, including low-frequency academic vocabulary)",
		sentenceLength:  "15-25 words",
		tense:           "all tenses and moods, including subjunctive",
		avoidStructures: "none",
		numQuestions:    5,
		questionFocus:   "inference, tone, authorial intent, and main idea",
	},
}

var writingStyles = []string{
	"warm and descriptive", "light and humorous", "simple and direct",
	"gently suspenseful", "wonder-filled and curious",
}

var narrativeDrives = []string{
	"a small problem that gets solved", "an unexpected discovery",
	"a goal the protagonist works toward", "a misunderstanding that gets cleared up",
	"a small act of kindness with a ripple effect",
}

var tones = []string{
	"cheerful", "encouraging", "playful", "calm", "hopeful",
}

// BuildRequest constructs a generation request for the given level
// and target length. When vocabulary is nil, five distinct words are
// sampled from the level's word list. Theme, setting, protagonist,
// writing style, narrative drive, and tone are drawn independently
// and uniformly on every call.
func BuildRequest(level models.CEFRLevel, targetLength int, vocabulary []string) (*GenerationRequest, error) {
	cfg, ok := levelConfigs[level]
	if !ok {
		return nil, newError(ErrInvalidConfiguration, fmt.Sprintf("unknown difficulty level %q", level))
	}
	if targetLength < MinLength || targetLength > MaxLength {
		return nil, newError(ErrInvalidConfiguration,
			fmt.Sprintf("target length %d outside range [%d, %d]", targetLength, MinLength, MaxLength))
	}
	if vocabulary == nil {
		vocabulary = sampleWords(cfg.wordList, VocabularySize)
	}
	if len(vocabulary) == 0 {
		return nil, newError(ErrInvalidConfiguration, "vocabulary is empty")
	}

	req := &GenerationRequest{
		Difficulty:      level,
		TargetLength:    targetLength,
		Vocabulary:      vocabulary,
		Theme:           pick(cfg.themes),
		Setting:         pick(cfg.settings),
		ProtagonistName: pick(cfg.protagonists),
		Category:        pick(cfg.categories),
		WritingStyle:    pick(writingStyles),
		NarrativeDrive:  pick(narrativeDrives),
		Tone:            pick(tones),
	}
	req.Prompt = buildPrompt(req, cfg)
	return req, nil
}

func buildPrompt(req *GenerationRequest, cfg levelConfig) string {
	protagonist := fmt.Sprintf("%s, a %s", req.ProtagonistName, req.Category)

	return strings.TrimSpace(fmt.Sprintf(`
Generate an English reading comprehension exercise for CEFR level %s. The passage should:
- A title in H2 MarkDown format
- Have about %d words.
- Be set in %s.
- Feature %s as the main character.
- Focus on the theme of %s.
- Naturally include all of these vocabulary words: %s.
- Use %s.
- Use sentences (%s) and %s. Avoid %s.
- Be written in a %s style, driven by %s, with a %s tone.
- Be clear, engaging, and appropriate for %s learners.

Include %d multiple-choice questions to test comprehension. The questions should:
- Match CEFR %s difficulty.
- Cover %s from the passage.
- For each question, randomly select the position of the correct answer (A, B, or C) to ensure even distribution across all options.
- Avoid any Markdown symbols in the question section.

Finally generate a short, vivid ImagePrompt suitable for AI image generation, in a vibrant cartoon style, capturing a key, fantastical scene from the story to spark visual imagination.

Format the output as follows:

[Story Title]
[Insert passage here]

Questions:
1. [Question]
A. [Option A]
B. [Option B]
C. [Option C]
Answer: [A/B/C]
2. [Question]
...

ImagePrompt: [Insert ImagePrompt here]
`,
		req.Difficulty, req.TargetLength, req.Setting, protagonist, req.Theme,
		strings.Join(req.Vocabulary, ", "),
		cfg.vocabLevel, cfg.sentenceLength, cfg.tense, cfg.avoidStructures,
		req.WritingStyle, req.NarrativeDrive, req.Tone,
		req.Difficulty,
		cfg.numQuestions, req.Difficulty, cfg.questionFocus,
	))
}

// sampleWords draws n distinct words uniformly without replacement.
func sampleWords(list []string, n int) []string {
	if n > len(list) {
		n = len(list)
	}
	words := make([]string, 0, n)
	for _, i := range rand.Perm(len(list))[:n] {
		words = append(words, list[i])
	}
	return words
}

func pick(items []string) string {
	return items[rand.Intn(len(items))]
}
