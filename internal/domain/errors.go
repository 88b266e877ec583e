package domain

import "errors"

var (
	// ErrQuestionNotFound indicates a submitted question ID is unknown to the content store.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound indicates the user row could not be loaded.
	ErrUserNotFound = errors.New("user not found")
	// ErrGradingUnavailable indicates the external judge failed or timed out.
	ErrGradingUnavailable = errors.New("grading unavailable")
	// ErrInvalidSubmission indicates a malformed answer rejected before evaluation.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrPersistence indicates a store write failed.
	ErrPersistence = errors.New("persistence failed")
	// ErrInsufficientPoints indicates the balance cannot cover a hint purchase.
	ErrInsufficientPoints = errors.New("not enough points")
)

// Code maps an evaluation error onto the stable string reported in a
// per-item result. Unrecognized errors fall through to "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrQuestionNotFound):
		return "question_not_found"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrGradingUnavailable):
		return "grading_unavailable"
	case errors.Is(err, ErrInvalidSubmission):
		return "invalid_submission"
	case errors.Is(err, ErrPersistence):
		return "persistence_failed"
	default:
		return "internal"
	}
}
