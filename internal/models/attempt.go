package models

import "time"

// QuizAttempt is one completed quiz submission. Attempts are
// append-only: there is no update or delete path.
type QuizAttempt struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	Score          int       `json:"score"`
	Accuracy       float64   `json:"accuracy"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserStats is the aggregate over all of a user's attempts,
// recomputed on read rather than stored.
type UserStats struct {
	TotalQuizzes        int        `json:"total_quizzes"`
	TotalQuestions      int        `json:"total_questions"`
	TotalCorrectAnswers int        `json:"total_correct_answers"`
	TotalScore          int        `json:"total_score"`
	AverageScore        float64    `json:"average_score"`
	OverallAccuracy     float64    `json:"overall_accuracy"`
	LastQuizDate        *time.Time `json:"last_quiz_date,omitempty"`
}

type LeaderboardEntry struct {
	Email      string `json:"email"`
	TotalScore int    `json:"total_score"`
}

type AttemptListResponse struct {
	Attempts []QuizAttempt `json:"attempts"`
	Total    int           `json:"total"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
	Days    int                `json:"days"`
}
