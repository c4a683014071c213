package generator

import (
	"fmt"
	"regexp"
	"strings"
)

// ParsedStory is the story portion extracted from raw model output.
type ParsedStory struct {
	Title        string `json:"title"`
	BodyMarkdown string `json:"body_markdown"`
	ImagePrompt  string `json:"image_prompt,omitempty"`
}

// ParsedQuestion is one multiple-choice question. CorrectOptionText
// holds the literal text of the correct option, not the letter:
// option order and content can shift between generations, the letter
// cannot be trusted.
type ParsedQuestion struct {
	Text              string   `json:"text"`
	Options           []string `json:"options"`
	CorrectOptionText string   `json:"correct_option_text"`
}

type ParsedDocument struct {
	Story     ParsedStory      `json:"story"`
	Questions []ParsedQuestion `json:"questions"`
}

type ParseErrorKind string

const (
	StoryNotFound               ParseErrorKind = "story_not_found"
	QuestionsNotFound           ParseErrorKind = "questions_not_found"
	NoQuestionsParsed           ParseErrorKind = "no_questions_parsed"
	QuestionAnswerCountMismatch ParseErrorKind = "question_answer_count_mismatch"
)

type ParseError struct {
	Kind   ParseErrorKind
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed (%s): %s", e.Kind, e.Detail)
}

var (
	questionStartRe = regexp.MustCompile(`^\d+\.\s`)
	optionRe        = regexp.MustCompile(`^[ABC]\.\s`)
	answerRe        = regexp.MustCompile(`(?i)^Answer:\s*`)
)

var answerIndex = map[string]int{"A": 0, "B": 1, "C": 2}

// Parse turns raw model output into a validated document. The
// expected grammar is: a Markdown heading followed by the passage, a
// "Questions:" section of numbered questions with A/B/C options and
// an "Answer:" line each, and an optional trailing "ImagePrompt:"
// section. The producer guarantees nothing, so every step is
// defensive. Parse is a pure function.
func Parse(raw string) (*ParsedDocument, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	headingIdx := -1
	questionsIdx := -1
	imageIdx := -1
	for i, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case headingIdx == -1 && strings.HasPrefix(t, "#"):
			headingIdx = i
		case questionsIdx == -1 && strings.EqualFold(t, "Questions:"):
			questionsIdx = i
		case questionsIdx != -1 && imageIdx == -1 && hasFoldPrefix(t, "ImagePrompt:"):
			imageIdx = i
		}
	}

	if headingIdx == -1 || (questionsIdx != -1 && headingIdx > questionsIdx) {
		return nil, &ParseError{Kind: StoryNotFound, Detail: "no Markdown heading before the questions section"}
	}
	if questionsIdx == -1 {
		return nil, &ParseError{Kind: QuestionsNotFound, Detail: "no Questions: section"}
	}

	story, err := parseStory(lines[headingIdx:questionsIdx])
	if err != nil {
		return nil, err
	}

	qEnd := len(lines)
	if imageIdx != -1 {
		qEnd = imageIdx
		story.ImagePrompt = parseImagePrompt(lines[imageIdx:])
	}

	questions, err := parseQuestions(lines[questionsIdx+1 : qEnd])
	if err != nil {
		return nil, err
	}

	return &ParsedDocument{Story: story, Questions: questions}, nil
}

func parseStory(block []string) (ParsedStory, error) {
	title := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(block[0]), "#"))
	body := strings.TrimSpace(strings.Join(block[1:], "\n"))
	if body == "" {
		return ParsedStory{}, &ParseError{Kind: StoryNotFound, Detail: "story body is empty"}
	}
	return ParsedStory{Title: title, BodyMarkdown: body}, nil
}

// parseQuestions runs a line-classification scan over the questions
// block: a numbered line opens a question, option lines attach to it,
// an Answer line binds the literal option text at the referenced
// index. Unrecognized lines are dropped.
func parseQuestions(block []string) ([]ParsedQuestion, error) {
	var questions []ParsedQuestion
	var answers []string

	var curText string
	var curOpts []string

	flush := func() {
		if curText != "" {
			questions = append(questions, ParsedQuestion{Text: curText, Options: curOpts})
			curOpts = nil
		}
	}

	for _, line := range block {
		t := strings.TrimSpace(line)
		switch {
		case questionStartRe.MatchString(t):
			flush()
			curText = t
		case optionRe.MatchString(t):
			curOpts = append(curOpts, t[3:])
		case answerRe.MatchString(t):
			answers = append(answers, answerText(t, curOpts))
		}
	}
	flush()

	if len(questions) == 0 {
		return nil, &ParseError{Kind: NoQuestionsParsed, Detail: "no numbered questions in the questions section"}
	}
	if len(questions) != len(answers) {
		return nil, &ParseError{
			Kind:   QuestionAnswerCountMismatch,
			Detail: fmt.Sprintf("%d questions but %d answer lines", len(questions), len(answers)),
		}
	}

	for i := range questions {
		if len(questions[i].Options) != 3 {
			return nil, &ParseError{
				Kind:   QuestionAnswerCountMismatch,
				Detail: fmt.Sprintf("question %d has %d options, expected 3", i+1, len(questions[i].Options)),
			}
		}
		if answers[i] == "" {
			return nil, &ParseError{
				Kind:   QuestionAnswerCountMismatch,
				Detail: fmt.Sprintf("question %d answer references an option that was never captured", i+1),
			}
		}
		questions[i].CorrectOptionText = answers[i]
	}

	return questions, nil
}

// answerText resolves an "Answer: B" line to the literal text of the
// referenced option, or "" when the letter is unknown or the option
// was never captured.
func answerText(line string, opts []string) string {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	letter := strings.ToUpper(strings.TrimSpace(parts[1]))
	idx, ok := answerIndex[letter]
	if !ok || idx >= len(opts) {
		return ""
	}
	return opts[idx]
}

func parseImagePrompt(block []string) string {
	first := strings.TrimSpace(block[0])
	rest := first[len("ImagePrompt:"):]
	parts := append([]string{rest}, block[1:]...)
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
