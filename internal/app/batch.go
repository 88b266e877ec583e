package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pyquest-backend/internal/domain"
	"pyquest-backend/internal/metrics"
)

// AnswerStore persists answer records. Upsert must be idempotent per
// (user, question): the first write creates the record with retry_count 0,
// every later write overwrites the content fields and atomically increments
// the stored retry count.
type AnswerStore interface {
	RetryTracker
	Upsert(ctx context.Context, record domain.AnswerRecord) error
}

// UserStore reads user profiles and mutates point balances. Both mutations
// must be atomic at the storage layer; IncrementPoints in particular must
// not be a read-then-write.
type UserStore interface {
	Get(ctx context.Context, userID string) (domain.User, error)
	IncrementPoints(ctx context.Context, userID string, delta int) (int, error)
	DeductPoints(ctx context.Context, userID string, cost int) (int, error)
}

// DefaultConcurrency bounds how many answers of one batch are evaluated at
// once. The judge call dominates latency, so a little parallelism goes a
// long way.
const DefaultConcurrency = 4

// BatchProcessor runs a submission batch through the evaluator, persists
// each outcome, and applies the aggregate point delta to the user balance.
type BatchProcessor struct {
	evaluator   *Evaluator
	answers     AnswerStore
	users       UserStore
	log         *zap.Logger
	concurrency int
}

func NewBatchProcessor(evaluator *Evaluator, answers AnswerStore, users UserStore, log *zap.Logger, concurrency int) *BatchProcessor {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchProcessor{
		evaluator:   evaluator,
		answers:     answers,
		users:       users,
		log:         log,
		concurrency: concurrency,
	}
}

// ProgressFunc receives each item result as soon as it is known. Calls are
// serialized but arrive in completion order, not input order.
type ProgressFunc func(domain.ItemResult)

// Process evaluates every answer in the batch, persists the outcomes, and
// returns per-item results in input order plus the updated balance. One
// item's failure never aborts its siblings; failed items contribute zero
// points and report an error code instead.
func (p *BatchProcessor) Process(ctx context.Context, userID string, skillLevel int, subs []domain.SubmittedAnswer) (domain.BatchResult, error) {
	return p.ProcessWithProgress(ctx, userID, skillLevel, subs, nil)
}

// ProcessWithProgress is Process with a per-item completion callback, used
// by the streaming transport.
func (p *BatchProcessor) ProcessWithProgress(ctx context.Context, userID string, skillLevel int, subs []domain.SubmittedAnswer, progress ProgressFunc) (domain.BatchResult, error) {
	metrics.BatchSize.Observe(float64(len(subs)))

	results := make([]domain.ItemResult, len(subs))

	var progressMu sync.Mutex
	emit := func(res domain.ItemResult) {
		if progress == nil {
			return
		}
		progressMu.Lock()
		progress(res)
		progressMu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range subs {
		i := i
		sub := subs[i]
		sub.UserID = userID
		g.Go(func() error {
			results[i] = p.processOne(gctx, sub, skillLevel)
			emit(results[i])
			return nil
		})
	}
	// Workers never return errors; failures live in the per-item results.
	_ = g.Wait()

	total := 0
	for _, res := range results {
		if res.Success {
			total += res.Points
		}
	}

	balance, err := p.applyDelta(ctx, userID, total)
	if err != nil {
		// The per-item records are already persisted; report the balance
		// failure without discarding the scores.
		p.log.Error("apply point delta", zap.String("user", userID), zap.Int("delta", total), zap.Error(err))
		return domain.BatchResult{Results: results, Awarded: total}, fmt.Errorf("%w: balance update: %v", domain.ErrPersistence, err)
	}

	return domain.BatchResult{Results: results, Awarded: total, NewBalance: balance}, nil
}

func (p *BatchProcessor) processOne(ctx context.Context, sub domain.SubmittedAnswer, skillLevel int) domain.ItemResult {
	if err := validate(sub); err != nil {
		return failure(sub.QuestionID, err)
	}

	record, err := p.evaluator.Evaluate(ctx, sub, skillLevel)
	if err != nil {
		p.log.Warn("evaluate answer",
			zap.String("user", sub.UserID),
			zap.String("question", sub.QuestionID),
			zap.Error(err))
		return failure(sub.QuestionID, err)
	}

	if err := p.answers.Upsert(ctx, record); err != nil {
		p.log.Error("persist answer",
			zap.String("user", sub.UserID),
			zap.String("question", sub.QuestionID),
			zap.Error(err))
		return failure(sub.QuestionID, fmt.Errorf("%w: %v", domain.ErrPersistence, err))
	}

	return domain.ItemResult{
		QuestionID: record.QuestionID,
		Success:    true,
		IsCorrect:  record.IsCorrect,
		Points:     record.Points,
		Feedback:   record.Feedback,
		Hint:       record.Hint,
		Retry:      record.RetryCount,
	}
}

func (p *BatchProcessor) applyDelta(ctx context.Context, userID string, delta int) (int, error) {
	if delta == 0 {
		user, err := p.users.Get(ctx, userID)
		if err != nil {
			return 0, err
		}
		return user.Points, nil
	}
	return p.users.IncrementPoints(ctx, userID, delta)
}

func validate(sub domain.SubmittedAnswer) error {
	if sub.QuestionID == "" {
		return fmt.Errorf("%w: missing questionId", domain.ErrInvalidSubmission)
	}
	if sub.CompletedAt.Before(sub.StartedAt) {
		return fmt.Errorf("%w: endTime before startTime", domain.ErrInvalidSubmission)
	}
	return nil
}

func failure(questionID string, err error) domain.ItemResult {
	return domain.ItemResult{
		QuestionID: questionID,
		Success:    false,
		Error:      domain.Code(err),
	}
}
