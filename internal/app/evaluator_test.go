package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pyquest-backend/internal/app"
	"pyquest-backend/internal/domain"
)

type fakeQuestions map[string]domain.Question

func (f fakeQuestions) Get(_ context.Context, questionID string) (domain.Question, error) {
	if q, ok := f[questionID]; ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

type fakeRetries struct {
	counts map[string]int
}

func (f *fakeRetries) RetryCount(_ context.Context, userID, questionID string) (int, bool, error) {
	count, ok := f.counts[userID+"/"+questionID]
	return count, ok, nil
}

type fakeJudge struct {
	verdict domain.Verdict
	err     error
	lastReq domain.JudgeRequest
	calls   int
}

func (f *fakeJudge) GradeCoding(_ context.Context, req domain.JudgeRequest) (domain.Verdict, error) {
	f.calls++
	f.lastReq = req
	return f.verdict, f.err
}

func (f *fakeJudge) GradeFillIn(_ context.Context, req domain.JudgeRequest) (domain.Verdict, error) {
	f.calls++
	f.lastReq = req
	return f.verdict, f.err
}

func submission(questionID, answer string) domain.SubmittedAnswer {
	start := time.Now().Add(-30 * time.Second)
	return domain.SubmittedAnswer{
		QuestionID:  questionID,
		UserID:      "u1",
		UserAnswer:  answer,
		StartedAt:   start,
		CompletedAt: start.Add(30 * time.Second),
	}
}

func questionFixture() fakeQuestions {
	return fakeQuestions{
		"q-mcq": {
			ID: "q-mcq", Type: domain.MultipleChoice,
			Text: "pick one", CorrectAnswer: "b", AvgTimeSeconds: 90,
		},
		"q-drag": {
			ID: "q-drag", Type: domain.DragAndDrop,
			CorrectAnswer: `["a","b","c"]`, AvgTimeSeconds: 90,
		},
		"q-code": {
			ID: "q-code", Type: domain.Coding,
			Text: "write a loop", Constraints: "use for", AvgTimeSeconds: 120,
		},
		"q-fill": {
			ID: "q-fill", Type: domain.FillInBlank,
			CorrectAnswer: "def", AvgTimeSeconds: 20,
		},
	}
}

func TestEvaluateMultipleChoice(t *testing.T) {
	ctx := context.Background()
	judge := &fakeJudge{}
	eval := app.NewEvaluator(questionFixture(), &fakeRetries{}, judge, 0)

	record, err := eval.Evaluate(ctx, submission("q-mcq", "b"), 2)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !record.IsCorrect {
		t.Fatalf("expected correct answer")
	}
	if record.Points != 10 {
		t.Fatalf("expected 10 points, got %d", record.Points)
	}
	if record.Feedback != "Correct!" {
		t.Fatalf("unexpected feedback %q", record.Feedback)
	}
	if judge.calls != 0 {
		t.Fatalf("judge must not be consulted for multiple choice")
	}

	record, err = eval.Evaluate(ctx, submission("q-mcq", "c"), 2)
	if err != nil {
		t.Fatalf("evaluate wrong answer: %v", err)
	}
	if record.IsCorrect || record.Points != 0 {
		t.Fatalf("wrong answer must score 0, got correct=%v points=%d", record.IsCorrect, record.Points)
	}
	if record.Feedback != "Incorrect — try again" {
		t.Fatalf("unexpected feedback %q", record.Feedback)
	}
}

func TestEvaluateDragAndDropOrderSensitive(t *testing.T) {
	ctx := context.Background()
	eval := app.NewEvaluator(questionFixture(), &fakeRetries{}, &fakeJudge{}, 0)

	record, err := eval.Evaluate(ctx, submission("q-drag", `["a","b","c"]`), 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !record.IsCorrect {
		t.Fatalf("matching sequence should be correct")
	}

	record, err = eval.Evaluate(ctx, submission("q-drag", `["b","a","c"]`), 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if record.IsCorrect {
		t.Fatalf("reordered sequence must be incorrect")
	}
}

func TestEvaluateCodingDelegatesToJudge(t *testing.T) {
	ctx := context.Background()
	base := 8
	judge := &fakeJudge{verdict: domain.Verdict{
		IsCorrect: true, Feedback: "Well done", Hint: "what about floats?", Points: &base,
	}}
	eval := app.NewEvaluator(questionFixture(), &fakeRetries{}, judge, 0)

	record, err := eval.Evaluate(ctx, submission("q-code", "for i in x: print(i)"), 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !record.IsCorrect || record.Hint != "what about floats?" {
		t.Fatalf("judge verdict not propagated: %+v", record)
	}
	// judge base 8 + skill 1 + full time bonus (30s < 60s)
	if record.Points != 12 {
		t.Fatalf("expected 12 points, got %d", record.Points)
	}
	if judge.lastReq.Constraints != "use for" || judge.lastReq.QuestionText != "write a loop" {
		t.Fatalf("judge request missing question context: %+v", judge.lastReq)
	}
	if judge.lastReq.ReferenceAnswer != "" {
		t.Fatalf("coding request must not leak the reference answer")
	}
}

func TestEvaluateFillInUsesReferenceAnswer(t *testing.T) {
	ctx := context.Background()
	judge := &fakeJudge{verdict: domain.Verdict{IsCorrect: true, Feedback: "Nice"}}
	eval := app.NewEvaluator(questionFixture(), &fakeRetries{}, judge, 0)

	if _, err := eval.Evaluate(ctx, submission("q-fill", "def"), 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if judge.lastReq.ReferenceAnswer != "def" {
		t.Fatalf("fill-in request must carry the reference answer, got %+v", judge.lastReq)
	}
}

func TestEvaluateJudgeVerdictIncorrectScoresZero(t *testing.T) {
	ctx := context.Background()
	judge := &fakeJudge{verdict: domain.Verdict{IsCorrect: false, Feedback: "not quite", Hint: "how do loops start?"}}
	eval := app.NewEvaluator(questionFixture(), &fakeRetries{}, judge, 0)

	record, err := eval.Evaluate(ctx, submission("q-code", "print(x)"), 3)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if record.Points != 0 {
		t.Fatalf("incorrect judge verdict must score 0, got %d", record.Points)
	}
	if record.Feedback != "not quite" || record.Hint != "how do loops start?" {
		t.Fatalf("judge feedback not propagated: %+v", record)
	}
}

func TestEvaluateJudgeFailure(t *testing.T) {
	ctx := context.Background()
	judge := &fakeJudge{err: errors.New("timeout")}
	eval := app.NewEvaluator(questionFixture(), &fakeRetries{}, judge, 0)

	_, err := eval.Evaluate(ctx, submission("q-code", "x"), 1)
	if !errors.Is(err, domain.ErrGradingUnavailable) {
		t.Fatalf("expected ErrGradingUnavailable, got %v", err)
	}
}

func TestEvaluateUnknownQuestion(t *testing.T) {
	ctx := context.Background()
	eval := app.NewEvaluator(questionFixture(), &fakeRetries{}, &fakeJudge{}, 0)

	_, err := eval.Evaluate(ctx, submission("q-missing", "x"), 1)
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestEvaluateRetryDerivation(t *testing.T) {
	ctx := context.Background()
	retries := &fakeRetries{counts: map[string]int{"u1/q-mcq": 1}}
	eval := app.NewEvaluator(questionFixture(), retries, &fakeJudge{}, 0)

	// Stored count 1 means this is the third submission: attempt retry 2,
	// penalty 1.
	record, err := eval.Evaluate(ctx, submission("q-mcq", "b"), 2)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if record.RetryCount != 2 {
		t.Fatalf("expected retry 2, got %d", record.RetryCount)
	}
	if record.Points != 9 {
		t.Fatalf("expected 9 points after penalty, got %d", record.Points)
	}
}
