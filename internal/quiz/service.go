package quiz

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/storyquiz/backend/internal/generator"
	"github.com/storyquiz/backend/internal/models"
)

// leaderboardSize is how many entries the weekly board exposes.
const leaderboardSize = 5

// fallbackImagePrefix seeds an illustration prompt from the passage
// when the generation did not include an ImagePrompt section.
const fallbackImagePrefix = "Create a child-friendly educational illustration for this story: "

// StoryGenerator is the slice of generation capability the quiz flow
// needs. The retry orchestrator satisfies it.
type StoryGenerator interface {
	GenerateStory(ctx context.Context, prompt string) (*generator.ParsedDocument, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
}

type Service struct {
	store    *Store
	cache    *Cache
	sessions *SessionStore
	gen      StoryGenerator
}

func NewService(store *Store, cache *Cache, sessions *SessionStore, gen StoryGenerator) *Service {
	return &Service{store: store, cache: cache, sessions: sessions, gen: gen}
}

// Generate produces a fresh story and quiz for the session. A second
// Generate on the same session while one is in flight wins: the
// slower result is discarded and reported as superseded.
func (s *Service) Generate(ctx context.Context, req models.GenerateStoryRequest) (*models.GenerateStoryResponse, error) {
	genReq, err := generator.BuildRequest(req.Difficulty, req.Length, nil)
	if err != nil {
		return nil, err
	}

	sessionID, session := s.sessions.GetOrCreate(req.SessionID)
	seq := session.BeginGeneration()

	doc, err := s.gen.GenerateStory(ctx, genReq.Prompt)
	if err != nil {
		session.FailGeneration(seq)
		return nil, err
	}

	if score := generator.QualityScore(generator.ComputeStructuralScore(genReq, doc)); score < 0.5 {
		log.Printf("[quiz] low structural quality %.2f for level %s session %s", score, req.Difficulty, sessionID)
	}

	if !session.ApplyGeneration(seq, doc) {
		return nil, ErrSuperseded
	}

	resp := &models.GenerateStoryResponse{
		SessionID: sessionID,
		Title:     doc.Story.Title,
		Story:     doc.Story.BodyMarkdown,
		Questions: make([]models.QuizQuestion, len(doc.Questions)),
	}
	for i, q := range doc.Questions {
		resp.Questions[i] = models.QuizQuestion{Text: q.Text, Options: q.Options}
	}
	return resp, nil
}

// Answer records a selection against the session's current quiz.
func (s *Service) Answer(req models.AnswerRequest) (*models.AnswerResponse, error) {
	session := s.sessions.Get(req.SessionID)
	if session == nil {
		return nil, ErrNoActiveQuiz
	}

	idx, err := session.SelectAnswer(req.Question, req.Answer)
	if err != nil {
		return nil, err
	}
	return &models.AnswerResponse{
		Question:     req.Question,
		CurrentIndex: idx,
		Answered:     idx,
	}, nil
}

// Submit grades the session's quiz. Authenticated submissions are
// persisted and invalidate the user's cached aggregates; anonymous
// ones get their score back with a login prompt and leave no trace.
func (s *Service) Submit(ctx context.Context, userID *int64, req models.SubmitRequest) (*models.SubmitResponse, error) {
	session := s.sessions.Get(req.SessionID)
	if session == nil {
		return nil, ErrNoActiveQuiz
	}

	score, correct, total, err := session.Finalize()
	if err != nil {
		return nil, err
	}

	resp := &models.SubmitResponse{
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
	}
	if userID == nil {
		resp.LoginRequired = true
		return resp, nil
	}

	attempt, err := s.store.InsertAttempt(*userID, total, correct, score)
	if err != nil {
		return nil, err
	}
	resp.Attempt = attempt
	s.cache.Invalidate(ctx, *userID)
	return resp, nil
}

// GenerateImage renders an illustration for the session's story using
// its parsed image prompt, falling back to a prompt derived from the
// passage itself.
func (s *Service) GenerateImage(ctx context.Context, req models.ImageRequest) (*models.ImageResponse, error) {
	session := s.sessions.Get(req.SessionID)
	if session == nil {
		return nil, ErrNoActiveQuiz
	}

	story, err := session.Story()
	if err != nil {
		return nil, err
	}

	prompt := story.ImagePrompt
	if prompt == "" {
		prompt = fallbackImagePrefix + truncateRunes(story.BodyMarkdown, 500)
	}

	data, mime, err := s.gen.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &models.ImageResponse{
		Success:   true,
		ImageData: base64.StdEncoding.EncodeToString(data),
		MimeType:  mime,
	}, nil
}

// Stats returns the user's aggregates, served from cache when warm.
func (s *Service) Stats(ctx context.Context, userID int64) (*models.UserStats, error) {
	if stats, ok := s.cache.GetStats(ctx, userID); ok {
		return stats, nil
	}
	stats, err := s.store.UserStats(userID)
	if err != nil {
		return nil, err
	}
	s.cache.SetStats(ctx, userID, stats)
	return stats, nil
}

// Attempts returns the user's attempt history for the last N days.
func (s *Service) Attempts(userID int64, days int) (*models.AttemptListResponse, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	attempts, err := s.store.ListAttempts(userID, days)
	if err != nil {
		return nil, err
	}
	return &models.AttemptListResponse{Attempts: attempts, Total: len(attempts)}, nil
}

// Leaderboard returns the weekly top scorers, served from cache when
// warm.
func (s *Service) Leaderboard(ctx context.Context) (*models.LeaderboardResponse, error) {
	if entries, ok := s.cache.GetLeaderboard(ctx); ok {
		return &models.LeaderboardResponse{Entries: entries, Days: leaderboardWindowDays}, nil
	}
	entries, err := s.store.WeeklyLeaderboard(leaderboardSize)
	if err != nil {
		return nil, err
	}
	s.cache.SetLeaderboard(ctx, entries)
	return &models.LeaderboardResponse{Entries: entries, Days: leaderboardWindowDays}, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
