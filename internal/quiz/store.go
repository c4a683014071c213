package quiz

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/storyquiz/backend/internal/models"
)

// leaderboardWindowDays is the rolling window for the weekly board.
const leaderboardWindowDays = 7

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Attempts ────────────────────────────────────────────

// InsertAttempt records a completed quiz. Attempts are append-only.
func (s *Store) InsertAttempt(userID int64, totalQuestions, correctAnswers, score int) (*models.QuizAttempt, error) {
	accuracy := 0.0
	if totalQuestions > 0 {
		accuracy = float64(correctAnswers) / float64(totalQuestions) * 100
	}

	attempt := models.QuizAttempt{
		UserID:         userID,
		TotalQuestions: totalQuestions,
		CorrectAnswers: correctAnswers,
		Score:          score,
		Accuracy:       accuracy,
	}
	err := s.db.QueryRow(
		`INSERT INTO quiz_attempts (user_id, total_questions, correct_answers, score, accuracy)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		userID, totalQuestions, correctAnswers, score, accuracy,
	).Scan(&attempt.ID, &attempt.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}
	return &attempt, nil
}

// ListAttempts returns a user's attempts from the last N days, oldest
// first so clients can chart progression without re-sorting.
func (s *Store) ListAttempts(userID int64, days int) ([]models.QuizAttempt, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, total_questions, correct_answers, score, accuracy, created_at
		 FROM quiz_attempts
		 WHERE user_id = $1 AND created_at >= NOW() - $2 * INTERVAL '1 day'
		 ORDER BY created_at ASC`,
		userID, days,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts := []models.QuizAttempt{}
	for rows.Next() {
		var a models.QuizAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.TotalQuestions, &a.CorrectAnswers,
			&a.Score, &a.Accuracy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ── Stats ───────────────────────────────────────────────

// UserStats aggregates a user's full attempt history. The derived
// averages are computed here rather than stored, so they can never
// drift from the underlying rows.
func (s *Store) UserStats(userID int64) (*models.UserStats, error) {
	var stats models.UserStats
	var lastQuiz sql.NullTime
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(total_questions), 0),
		        COALESCE(SUM(correct_answers), 0),
		        COALESCE(SUM(score), 0),
		        MAX(created_at)
		 FROM quiz_attempts WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalQuizzes, &stats.TotalQuestions, &stats.TotalCorrectAnswers,
		&stats.TotalScore, &lastQuiz)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}

	if stats.TotalQuizzes > 0 {
		stats.AverageScore = round1(float64(stats.TotalScore) / float64(stats.TotalQuizzes))
	}
	if stats.TotalQuestions > 0 {
		stats.OverallAccuracy = round1(float64(stats.TotalCorrectAnswers) / float64(stats.TotalQuestions) * 100)
	}
	if lastQuiz.Valid {
		stats.LastQuizDate = &lastQuiz.Time
	}
	return &stats, nil
}

// ── Leaderboard ─────────────────────────────────────────

// scoredAttempt is one attempt row as the leaderboard sees it.
type scoredAttempt struct {
	Email     string
	Score     int
	CreatedAt time.Time
}

// WeeklyLeaderboard ranks users by total score over the last seven
// days. Users with no attempts in the window do not appear. The query
// pre-filters on the cutoff; rankScores owns the window, aggregation,
// and ordering rules.
func (s *Store) WeeklyLeaderboard(limit int) ([]models.LeaderboardEntry, error) {
	cutoff := time.Now().AddDate(0, 0, -leaderboardWindowDays)
	rows, err := s.db.Query(
		`SELECT u.email, a.score, a.created_at
		 FROM quiz_attempts a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.created_at >= $1`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("weekly leaderboard: %w", err)
	}
	defer rows.Close()

	var attempts []scoredAttempt
	for rows.Next() {
		var a scoredAttempt
		if err := rows.Scan(&a.Email, &a.Score, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rankScores(attempts, cutoff, limit), nil
}

// rankScores sums scores per user over attempts at or after the
// cutoff, orders by total descending (email ascending on ties, so the
// board is stable), and keeps the top limit entries.
func rankScores(attempts []scoredAttempt, cutoff time.Time, limit int) []models.LeaderboardEntry {
	totals := make(map[string]int)
	for _, a := range attempts {
		if a.CreatedAt.Before(cutoff) {
			continue
		}
		totals[a.Email] += a.Score
	}

	entries := make([]models.LeaderboardEntry, 0, len(totals))
	for email, total := range totals {
		entries = append(entries, models.LeaderboardEntry{Email: email, TotalScore: total})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].Email < entries[j].Email
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
