package domain

import "time"

// QuestionType discriminates the grading strategy for an answer.
// The numeric values match the content store's questionTypeId column.
type QuestionType int

const (
	MultipleChoice QuestionType = iota + 1
	Coding
	FillInBlank
	DragAndDrop
)

// Valid reports whether t is one of the four known question types.
func (t QuestionType) Valid() bool {
	return t >= MultipleChoice && t <= DragAndDrop
}

func (t QuestionType) String() string {
	switch t {
	case MultipleChoice:
		return "multiple_choice"
	case Coding:
		return "coding"
	case FillInBlank:
		return "fill_in_blank"
	case DragAndDrop:
		return "drag_and_drop"
	default:
		return "unknown"
	}
}

// DefaultAvgTimeSeconds is used when the content store carries no reference
// solve time for a question.
const DefaultAvgTimeSeconds = 90

// Question is the read-only view of a question owned by the content store.
type Question struct {
	ID             string       `json:"questionId"`
	Type           QuestionType `json:"questionTypeId"`
	Text           string       `json:"questionText"`
	CorrectAnswer  string       `json:"correctAnswer"`
	Constraints    string       `json:"constraints,omitempty"`
	AvgTimeSeconds int          `json:"avgTimeSeconds"`
}

// SubmittedAnswer is one answer inside a submission batch.
type SubmittedAnswer struct {
	QuestionID  string
	UserID      string
	Type        QuestionType
	UserAnswer  string
	StartedAt   time.Time
	CompletedAt time.Time
}

// TimeTakenSeconds returns the attempt duration, clamped to at least one
// second so downstream comparisons and divisions stay well-defined.
func (a SubmittedAnswer) TimeTakenSeconds() int {
	secs := int(a.CompletedAt.Sub(a.StartedAt).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

// AnswerRecord is the persisted outcome of an attempt. There is at most one
// record per (user, question); resubmissions overwrite it and bump RetryCount.
type AnswerRecord struct {
	UserID        string
	QuestionID    string
	IsCorrect     bool
	Points        int
	Feedback      string
	Hint          string
	RetryCount    int
	UserAnswer    string
	CorrectAnswer string
	StartedAt     time.Time
	CompletedAt   time.Time
	TimeTaken     int
}

// User is the slice of the user row the scoring pipeline reads.
type User struct {
	ID         string
	SkillLevel int // 1=beginner, 2=intermediate, 3=advanced
	Points     int
}

// JudgeRequest is the payload sent to the external semantic judge.
type JudgeRequest struct {
	QuestionID       string `json:"questionId"`
	QuestionText     string `json:"questionText,omitempty"`
	UserAnswer       string `json:"userAnswer"`
	ReferenceAnswer  string `json:"referenceAnswer,omitempty"`
	Constraints      string `json:"constraints,omitempty"`
	AvgTimeSeconds   int    `json:"avgTimeSeconds"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`
}

// Verdict is the judge's decision. Points, when present, overrides the base
// score for the question type.
type Verdict struct {
	IsCorrect bool   `json:"isCorrect"`
	Feedback  string `json:"feedback"`
	Hint      string `json:"hint"`
	Points    *int   `json:"points,omitempty"`
}

// ItemResult is the per-answer outcome reported back to the client. The
// scored fields are meaningful only when Success is true; Error carries a
// stable code from Code otherwise.
type ItemResult struct {
	QuestionID string `json:"questionId"`
	Success    bool   `json:"success"`
	IsCorrect  bool   `json:"isCorrect,omitempty"`
	Points     int    `json:"points,omitempty"`
	Feedback   string `json:"feedback,omitempty"`
	Hint       string `json:"hint,omitempty"`
	Retry      int    `json:"retry,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchResult is the outcome of one submission batch.
type BatchResult struct {
	Results    []ItemResult `json:"results"`
	Awarded    int          `json:"awarded"`
	NewBalance int          `json:"newBalance"`
}
