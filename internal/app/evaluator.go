package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pyquest-backend/internal/domain"
	"pyquest-backend/internal/metrics"
)

// QuestionStore looks up question content by ID.
type QuestionStore interface {
	Get(ctx context.Context, questionID string) (domain.Question, error)
}

// RetryTracker reports how many attempts a (user, question) pair has stored.
// found is false when the pair has never been attempted.
type RetryTracker interface {
	RetryCount(ctx context.Context, userID, questionID string) (count int, found bool, err error)
}

// Judge is the external semantic grader for free-text answer types. Both
// methods are network-bound and expected to take seconds; callers bound them
// with a context deadline.
type Judge interface {
	GradeCoding(ctx context.Context, req domain.JudgeRequest) (domain.Verdict, error)
	GradeFillIn(ctx context.Context, req domain.JudgeRequest) (domain.Verdict, error)
}

const (
	feedbackCorrect   = "Correct!"
	feedbackIncorrect = "Incorrect — try again"

	// DefaultJudgeTimeout bounds a single judge call.
	DefaultJudgeTimeout = 20 * time.Second
)

// Evaluator grades one submitted answer: it loads the question, picks the
// grading strategy by question type, and computes the point award. It does
// not persist anything.
type Evaluator struct {
	questions    QuestionStore
	retries      RetryTracker
	judge        Judge
	judgeTimeout time.Duration
}

func NewEvaluator(questions QuestionStore, retries RetryTracker, judge Judge, judgeTimeout time.Duration) *Evaluator {
	if judgeTimeout <= 0 {
		judgeTimeout = DefaultJudgeTimeout
	}
	return &Evaluator{
		questions:    questions,
		retries:      retries,
		judge:        judge,
		judgeTimeout: judgeTimeout,
	}
}

// Evaluate produces a scored AnswerRecord for one submission. skillLevel is
// the user's declared proficiency tier (1..3).
func (e *Evaluator) Evaluate(ctx context.Context, sub domain.SubmittedAnswer, skillLevel int) (domain.AnswerRecord, error) {
	question, err := e.questions.Get(ctx, sub.QuestionID)
	if err != nil {
		return domain.AnswerRecord{}, err
	}
	if question.AvgTimeSeconds < 1 {
		question.AvgTimeSeconds = domain.DefaultAvgTimeSeconds
	}

	retry, err := e.attemptRetry(ctx, sub.UserID, sub.QuestionID)
	if err != nil {
		return domain.AnswerRecord{}, err
	}

	timeTaken := sub.TimeTakenSeconds()

	record := domain.AnswerRecord{
		UserID:        sub.UserID,
		QuestionID:    sub.QuestionID,
		RetryCount:    retry,
		UserAnswer:    sub.UserAnswer,
		CorrectAnswer: question.CorrectAnswer,
		StartedAt:     sub.StartedAt,
		CompletedAt:   sub.CompletedAt,
		TimeTaken:     timeTaken,
	}

	var baseScore *int
	switch question.Type {
	case domain.MultipleChoice, domain.DragAndDrop:
		record.IsCorrect = answersMatch(question.Type, sub.UserAnswer, question.CorrectAnswer)
		if record.IsCorrect {
			record.Feedback = feedbackCorrect
		} else {
			record.Feedback = feedbackIncorrect
		}

	case domain.Coding, domain.FillInBlank:
		verdict, err := e.consultJudge(ctx, question, sub, timeTaken)
		if err != nil {
			return domain.AnswerRecord{}, err
		}
		record.IsCorrect = verdict.IsCorrect
		record.Feedback = verdict.Feedback
		record.Hint = verdict.Hint
		baseScore = verdict.Points

	default:
		return domain.AnswerRecord{}, fmt.Errorf("%w: question type %d", domain.ErrInvalidSubmission, question.Type)
	}

	record.Points = CalculateScore(ScoreInput{
		Type:             question.Type,
		IsCorrect:        record.IsCorrect,
		RetryCount:       retry,
		TimeTakenSeconds: timeTaken,
		AvgTimeSeconds:   question.AvgTimeSeconds,
		SkillLevel:       skillLevel,
		BaseScore:        baseScore,
	})

	outcome := "incorrect"
	if record.IsCorrect {
		outcome = "correct"
	}
	metrics.AnswersScored.WithLabelValues(question.Type.String(), outcome).Inc()

	return record, nil
}

// attemptRetry derives the retry count for the attempt being graded: zero on
// a first attempt, stored count plus one afterwards. The persisted count
// after N submissions is therefore N-1.
func (e *Evaluator) attemptRetry(ctx context.Context, userID, questionID string) (int, error) {
	count, found, err := e.retries.RetryCount(ctx, userID, questionID)
	if err != nil {
		return 0, fmt.Errorf("%w: retry lookup: %v", domain.ErrPersistence, err)
	}
	if !found {
		return 0, nil
	}
	return count + 1, nil
}

func (e *Evaluator) consultJudge(ctx context.Context, question domain.Question, sub domain.SubmittedAnswer, timeTaken int) (domain.Verdict, error) {
	req := domain.JudgeRequest{
		QuestionID:       question.ID,
		UserAnswer:       sub.UserAnswer,
		AvgTimeSeconds:   question.AvgTimeSeconds,
		TimeTakenSeconds: timeTaken,
	}

	judgeCtx, cancel := context.WithTimeout(ctx, e.judgeTimeout)
	defer cancel()

	start := time.Now()
	var (
		verdict domain.Verdict
		err     error
	)
	switch question.Type {
	case domain.Coding:
		req.QuestionText = question.Text
		req.Constraints = question.Constraints
		verdict, err = e.judge.GradeCoding(judgeCtx, req)
	default:
		req.ReferenceAnswer = question.CorrectAnswer
		verdict, err = e.judge.GradeFillIn(judgeCtx, req)
	}
	metrics.JudgeLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.JudgeFailures.Inc()
		return domain.Verdict{}, fmt.Errorf("%w: %v", domain.ErrGradingUnavailable, err)
	}
	return verdict, nil
}

// answersMatch performs local equality grading. Drag-and-drop answers are
// ordered sequences, serialized as JSON arrays; equality is element-wise and
// order-sensitive. Anything else is exact string equality after trimming.
func answersMatch(t domain.QuestionType, userAnswer, correctAnswer string) bool {
	if t == domain.DragAndDrop {
		if user, ok := asSequence(userAnswer); ok {
			if want, ok := asSequence(correctAnswer); ok {
				if len(user) != len(want) {
					return false
				}
				for i := range user {
					if user[i] != want[i] {
						return false
					}
				}
				return true
			}
		}
	}
	return strings.TrimSpace(userAnswer) == strings.TrimSpace(correctAnswer)
}

func asSequence(raw string) ([]string, bool) {
	var seq []string
	if err := json.Unmarshal([]byte(raw), &seq); err != nil {
		return nil, false
	}
	return seq, true
}
