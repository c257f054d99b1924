// Package http exposes the quiz core over JSON request/response
// endpoints plus a websocket live feed for admin dashboards.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"quiz-campaign-service/internal/app"
	"quiz-campaign-service/internal/domain"
)

// Handler serves the participant-facing quiz endpoints.
type Handler struct {
	service *app.QuizService
}

func NewHandler(service *app.QuizService) *Handler {
	return &Handler{service: service}
}

// Register wires the quiz routes onto a mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quiz/start", h.StartQuiz)
	mux.HandleFunc("POST /api/quiz/answers", h.SaveAnswers)
	mux.HandleFunc("POST /api/quiz/submit", h.SubmitQuiz)
	mux.HandleFunc("GET /api/quiz/participation", h.CheckParticipation)
}

type startRequest struct {
	CampaignID  int64                    `json:"campaign_id"`
	Participant domain.ParticipantFields `json:"participant"`
}

type answersRequest struct {
	SessionID string           `json:"session_id"`
	Answers   domain.AnswerSet `json:"answers"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	result, err := h.service.StartQuiz(r.Context(), req.CampaignID, req.Participant, app.RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) SaveAnswers(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}
	if err := h.service.SaveAnswers(r.Context(), req.SessionID, req.Answers); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}
	result, err := h.service.SubmitQuiz(r.Context(), req.SessionID, req.Answers)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CheckParticipation(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.ParseInt(r.URL.Query().Get("campaign_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "missing or invalid campaign_id")
		return
	}
	phone := r.URL.Query().Get("phone")
	participated, err := h.service.CheckParticipation(r.Context(), campaignID, phone)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"participated": participated})
}

// writeDomainError maps the error taxonomy to HTTP statuses. Anything
// outside the taxonomy is a storage/internal failure: logged here,
// reported generically.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrInvalidPhone):
		writeError(w, http.StatusBadRequest, "invalid_phone", "phone number is not valid")
	case errors.Is(err, domain.ErrCampaignNotFound):
		writeError(w, http.StatusNotFound, "campaign_not_found", "campaign not found")
	case errors.Is(err, domain.ErrCampaignNotActive):
		writeError(w, http.StatusConflict, "campaign_not_active", "campaign is not accepting entries")
	case errors.Is(err, domain.ErrCampaignFull):
		writeError(w, http.StatusConflict, "campaign_full", "campaign has reached its participant limit")
	case errors.Is(err, domain.ErrDuplicateParticipation):
		writeError(w, http.StatusConflict, "duplicate_participation", "this phone number has already participated")
	case errors.Is(err, domain.ErrInsufficientQuestions):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_questions", "campaign does not have enough questions")
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", "quiz session not found")
	case errors.Is(err, domain.ErrSessionExpired):
		writeError(w, http.StatusGone, "session_expired", "quiz session has expired")
	case errors.Is(err, domain.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "already_completed", "quiz already completed")
	case errors.Is(err, domain.ErrCodeGenerationExhausted):
		writeError(w, http.StatusInternalServerError, "code_generation_exhausted", "could not issue a gift code")
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := strings.IndexByte(forwarded, ','); i >= 0 {
			return strings.TrimSpace(forwarded[:i])
		}
		return strings.TrimSpace(forwarded)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
