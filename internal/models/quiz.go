package models

// CEFRLevel is the proficiency tier used to parameterize story generation.
type CEFRLevel string

const (
	LevelA1 CEFRLevel = "A1"
	LevelA2 CEFRLevel = "A2"
	LevelB1 CEFRLevel = "B1"
	LevelB2 CEFRLevel = "B2"
	LevelX1 CEFRLevel = "X1"
)

var ValidLevels = map[CEFRLevel]bool{
	LevelA1: true,
	LevelA2: true,
	LevelB1: true,
	LevelB2: true,
	LevelX1: true,
}

// ── Request Types ─────────────────────────────────────

type GenerateStoryRequest struct {
	SessionID  string    `json:"session_id,omitempty"`
	Difficulty CEFRLevel `json:"difficulty"`
	Length     int       `json:"length"`
}

type AnswerRequest struct {
	SessionID string `json:"session_id"`
	Question  int    `json:"question"`
	Answer    string `json:"answer"`
}

type SubmitRequest struct {
	SessionID string `json:"session_id"`
}

type ImageRequest struct {
	SessionID string `json:"session_id"`
}

// ── Response Types ────────────────────────────────────

// QuizQuestion is a question as served to the client: the correct
// answer is stripped, grading happens server-side.
type QuizQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type GenerateStoryResponse struct {
	SessionID string         `json:"session_id"`
	Title     string         `json:"title"`
	Story     string         `json:"story"`
	Questions []QuizQuestion `json:"questions"`
}

type AnswerResponse struct {
	Question     int `json:"question"`
	CurrentIndex int `json:"current_index"`
	Answered     int `json:"answered"`
}

type SubmitResponse struct {
	Score          int          `json:"score"`
	CorrectAnswers int          `json:"correct_answers"`
	TotalQuestions int          `json:"total_questions"`
	LoginRequired  bool         `json:"login_required,omitempty"`
	Attempt        *QuizAttempt `json:"attempt,omitempty"`
}

type ImageResponse struct {
	Success   bool   `json:"success"`
	ImageData string `json:"image_data"`
	MimeType  string `json:"mime_type"`
}
