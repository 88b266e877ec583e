package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pyquest-backend/internal/app"
	"pyquest-backend/internal/domain"
)

// SubmitHandler exposes the scoring pipeline over plain HTTP.
type SubmitHandler struct {
	processor *app.BatchProcessor
	users     app.UserStore
	log       *zap.Logger
}

func NewSubmitHandler(processor *app.BatchProcessor, users app.UserStore, log *zap.Logger) *SubmitHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SubmitHandler{processor: processor, users: users, log: log}
}

// wireAnswer is the JSON shape an answer arrives in. Timestamps are unix
// seconds, matching what the client records around each attempt.
type wireAnswer struct {
	QuestionID     string `json:"questionId"`
	QuestionTypeID int    `json:"questionTypeId"`
	UserAnswer     string `json:"userAnswer"`
	StartTime      int64  `json:"startTime"`
	EndTime        int64  `json:"endTime"`
}

func (a wireAnswer) toDomain() domain.SubmittedAnswer {
	return domain.SubmittedAnswer{
		QuestionID:  a.QuestionID,
		Type:        domain.QuestionType(a.QuestionTypeID),
		UserAnswer:  a.UserAnswer,
		StartedAt:   time.Unix(a.StartTime, 0),
		CompletedAt: time.Unix(a.EndTime, 0),
	}
}

type submitRequest struct {
	Answers []wireAnswer `json:"answers"`
}

type submitResponse struct {
	Message    string              `json:"message"`
	Results    []domain.ItemResult `json:"results"`
	NewBalance int                 `json:"newBalance"`
}

// ServeSubmit handles POST /api/submit-answers. Only an unparseable payload
// fails the request; item-level problems surface inside the results array.
func (h *SubmitHandler) ServeSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := UserID(r.Context())

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON input", http.StatusBadRequest)
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.log.Error("load user", zap.String("user", userID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	subs := make([]domain.SubmittedAnswer, len(req.Answers))
	for i, a := range req.Answers {
		subs[i] = a.toDomain()
	}

	result, err := h.processor.Process(r.Context(), userID, user.SkillLevel, subs)
	if err != nil {
		// Scores are persisted even when the final balance write failed;
		// return the results with the stale balance rather than dropping them.
		h.log.Error("process batch", zap.String("user", userID), zap.Error(err))
		result.NewBalance = user.Points
	}

	writeJSON(w, http.StatusOK, submitResponse{
		Message:    "Answers submitted successfully",
		Results:    result.Results,
		NewBalance: result.NewBalance,
	})
}

// ServeUseHint handles POST /api/use-hint.
func (h *SubmitHandler) ServeUseHint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := UserID(r.Context())

	purchase, err := app.BuyHint(r.Context(), h.users, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.log.Error("buy hint", zap.String("user", userID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, purchase)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
