package quiz

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/storyquiz/backend/internal/generator"
	"github.com/storyquiz/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if !models.ValidLevels[req.Difficulty] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty must be one of A1, A2, B1, B2, X1"})
		return
	}
	if req.Length == 0 {
		req.Length = 300
	}

	resp, err := h.service.Generate(r.Context(), req)
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "session_id is required"})
		return
	}

	resp, err := h.service.Answer(req)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "session_id is required"})
		return
	}

	var userID *int64
	if uid, ok := getUserID(r); ok {
		userID = &uid
	}

	resp, err := h.service.Submit(r.Context(), userID, req)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var req models.ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "session_id is required"})
		return
	}

	resp, err := h.service.GenerateImage(r.Context(), req)
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		log.Printf("[quiz] stats for user %d: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load stats"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.service.Attempts(userID, attemptWindowDays(r.URL.Query()))
	if err != nil {
		log.Printf("[quiz] attempts for user %d: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load attempts"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Leaderboard(r.Context())
	if err != nil {
		log.Printf("[quiz] leaderboard: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load leaderboard"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeGenerationError maps generation and parse failures to HTTP
// statuses. Upstream trouble is 502 so clients can tell "try again"
// apart from "your request is wrong".
func (h *Handler) writeGenerationError(w http.ResponseWriter, err error) {
	var pe *generator.ParseError
	if errors.As(err, &pe) {
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   "The generated story could not be understood, please generate again",
			Details: string(pe.Kind),
		})
		return
	}

	switch generator.KindOf(err) {
	case generator.ErrGeographicRestriction:
		writeJSON(w, http.StatusForbidden, models.ErrorResponse{
			Error: "Story generation is not available in your region",
		})
	case generator.ErrInvalidConfiguration:
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case generator.ErrServiceUnavailable, generator.ErrMalformedResponse, generator.ErrNetworkFailure:
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{
			Error: "Story generation is temporarily unavailable, please try again",
		})
	default:
		h.writeSessionError(w, err)
	}
}

func (h *Handler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoActiveQuiz):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No active quiz, generate a story first"})
	case errors.Is(err, ErrAlreadyScored):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "This quiz has already been submitted"})
	case errors.Is(err, ErrSuperseded):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "A newer generation replaced this one"})
	default:
		log.Printf("[quiz] request failed: %v", err)
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}

const defaultAttemptDays = 30

// attemptWindowDays reads the ?days= window. Anything that is not a
// positive integer, zero included, falls back to the default.
func attemptWindowDays(query url.Values) int {
	days := intQueryParam(query, "days", defaultAttemptDays)
	if days <= 0 {
		return defaultAttemptDays
	}
	return days
}
