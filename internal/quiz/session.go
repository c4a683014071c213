package quiz

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/storyquiz/backend/internal/generator"
)

// Status is the lifecycle phase of a quiz session. Transitions:
//
//	idle -> generating -> ready -> answering -> submitted
//
// BeginGeneration is legal from any state and restarts the cycle;
// everything else is legal only from the states listed on the method.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusAnswering  Status = "answering"
	StatusSubmitted  Status = "submitted"
)

var (
	ErrNoActiveQuiz  = errors.New("no active quiz in this session")
	ErrSuperseded    = errors.New("generation superseded by a newer request")
	ErrAlreadyScored = errors.New("quiz already submitted")
)

// Session holds one user's in-progress quiz. All methods are safe for
// concurrent use. The generation sequence number makes overlapping
// generations safe: each BeginGeneration bumps it, and a completion
// carrying a stale number is discarded instead of clobbering the
// newer quiz.
type Session struct {
	mu sync.Mutex

	status Status
	genSeq uint64

	story     generator.ParsedStory
	questions []generator.ParsedQuestion

	userAnswers  []string
	currentIndex int

	correct int
	score   int
}

func NewSession() *Session {
	return &Session{status: StatusIdle}
}

// BeginGeneration moves the session into the generating state and
// clears any previous quiz. The returned sequence number must be
// handed back to ApplyGeneration or FailGeneration.
func (s *Session) BeginGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.genSeq++
	s.status = StatusGenerating
	s.story = generator.ParsedStory{}
	s.questions = nil
	s.userAnswers = nil
	s.currentIndex = 0
	s.correct = 0
	s.score = 0
	return s.genSeq
}

// ApplyGeneration installs a completed generation. It reports false
// when seq is stale, meaning a newer generation started while this
// one was in flight; the caller must discard the result.
func (s *Session) ApplyGeneration(seq uint64, doc *generator.ParsedDocument) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.genSeq {
		return false
	}
	s.status = StatusReady
	s.story = doc.Story
	s.questions = doc.Questions
	s.userAnswers = make([]string, len(doc.Questions))
	s.currentIndex = 0
	return true
}

// FailGeneration returns the session to idle, unless a newer
// generation has already taken over.
func (s *Session) FailGeneration(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq == s.genSeq && s.status == StatusGenerating {
		s.status = StatusIdle
	}
}

// SelectAnswer records the user's choice for the given question index
// and advances the cursor past the highest answered question.
// Re-answering an earlier question is allowed until submission.
func (s *Session) SelectAnswer(question int, answer string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusReady, StatusAnswering:
	case StatusSubmitted:
		return 0, ErrAlreadyScored
	default:
		return 0, ErrNoActiveQuiz
	}

	if question < 0 || question >= len(s.questions) {
		return 0, fmt.Errorf("question index %d out of range [0, %d)", question, len(s.questions))
	}

	s.userAnswers[question] = answer
	s.status = StatusAnswering
	if question >= s.currentIndex {
		s.currentIndex = question + 1
	}
	return s.currentIndex, nil
}

// Finalize grades the quiz and locks the session. Grading compares
// the selected option text against the stored correct option text.
// Unanswered questions count as wrong. Score is the percentage of
// correct answers, rounded half away from zero.
func (s *Session) Finalize() (score, correct, total int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusReady, StatusAnswering:
	case StatusSubmitted:
		return 0, 0, 0, ErrAlreadyScored
	default:
		return 0, 0, 0, ErrNoActiveQuiz
	}

	total = len(s.questions)
	for i, q := range s.questions {
		if s.userAnswers[i] != "" && s.userAnswers[i] == q.CorrectOptionText {
			correct++
		}
	}
	score = int(math.Round(float64(correct) / float64(total) * 100))

	s.correct = correct
	s.score = score
	s.status = StatusSubmitted
	return score, correct, total, nil
}

// Questions returns the current quiz questions, or ErrNoActiveQuiz
// when no generation has completed.
func (s *Session) Questions() ([]generator.ParsedQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusIdle || s.status == StatusGenerating {
		return nil, ErrNoActiveQuiz
	}
	qs := make([]generator.ParsedQuestion, len(s.questions))
	copy(qs, s.questions)
	return qs, nil
}

// Story returns the current story, or ErrNoActiveQuiz.
func (s *Session) Story() (generator.ParsedStory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusIdle || s.status == StatusGenerating {
		return generator.ParsedStory{}, ErrNoActiveQuiz
	}
	return s.story, nil
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ── Session Store ─────────────────────────────────────

const (
	// sessionIdleTTL is how long an untouched session survives. Guests
	// who generate a quiz and walk away would otherwise pin memory
	// forever, one entry per anonymous generate.
	sessionIdleTTL = 2 * time.Hour

	sessionSweepInterval = 5 * time.Minute
)

type sessionEntry struct {
	session  *Session
	lastSeen time.Time
}

// SessionStore keeps quiz sessions keyed by opaque tokens. Sessions
// live in memory only; a restart drops in-flight quizzes, which is
// acceptable because attempts are only durable after submission.
// Entries idle past the TTL are evicted on the next access.
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*sessionEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      sessionIdleTTL,
		now:      time.Now,
	}
}

// GetOrCreate returns the session for id, creating it when id is
// empty, unknown, or expired. The returned id is the one the client
// should use from now on.
func (st *SessionStore) GetOrCreate(id string) (string, *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked()

	if id != "" {
		if e, ok := st.sessions[id]; ok && !st.expired(e) {
			e.lastSeen = st.now()
			return id, e.session
		}
	}

	if id == "" {
		id = newSessionID()
	}
	s := NewSession()
	st.sessions[id] = &sessionEntry{session: s, lastSeen: st.now()}
	return id, s
}

// Get returns the session for id, or nil when it is unknown or has
// sat idle past the TTL.
func (st *SessionStore) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil
	}
	if st.expired(e) {
		delete(st.sessions, id)
		return nil
	}
	e.lastSeen = st.now()
	return e.session
}

func (st *SessionStore) expired(e *sessionEntry) bool {
	return st.now().Sub(e.lastSeen) > st.ttl
}

// sweepLocked drops expired entries, at most once per sweep interval
// so the map is not walked on every request.
func (st *SessionStore) sweepLocked() {
	now := st.now()
	if now.Sub(st.lastSweep) < sessionSweepInterval {
		return
	}
	st.lastSweep = now
	for id, e := range st.sessions {
		if st.expired(e) {
			delete(st.sessions, id)
		}
	}
}

func newSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand failure is unrecoverable
	}
	return hex.EncodeToString(b)
}
