package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pyquest-backend/internal/domain"
)

// AnswerStore persists answer records in Postgres. Resubmissions for the
// same (user, question) hit the ON CONFLICT branch, which overwrites the
// content fields and bumps retry_count in the same statement, so concurrent
// submissions can never lose an increment.
type AnswerStore struct {
	pool *pgxpool.Pool
}

func NewAnswerStore(pool *pgxpool.Pool) *AnswerStore {
	return &AnswerStore{pool: pool}
}

func (s *AnswerStore) Upsert(ctx context.Context, r domain.AnswerRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO answers (
			user_id, question_id, is_correct, points, feedback, hint,
			retry_count, user_answer, correct_answer, started_at, completed_at, time_taken
		)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			is_correct     = EXCLUDED.is_correct,
			points         = EXCLUDED.points,
			feedback       = EXCLUDED.feedback,
			hint           = EXCLUDED.hint,
			retry_count    = answers.retry_count + 1,
			user_answer    = EXCLUDED.user_answer,
			correct_answer = EXCLUDED.correct_answer,
			started_at     = EXCLUDED.started_at,
			completed_at   = EXCLUDED.completed_at,
			time_taken     = EXCLUDED.time_taken`,
		r.UserID, r.QuestionID, r.IsCorrect, r.Points, r.Feedback, r.Hint,
		r.UserAnswer, r.CorrectAnswer, r.StartedAt, r.CompletedAt, r.TimeTaken)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

func (s *AnswerStore) RetryCount(ctx context.Context, userID, questionID string) (int, bool, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT retry_count FROM answers WHERE user_id = $1 AND question_id = $2`,
		userID, questionID).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load retry count: %w", err)
	}
	return count, true, nil
}
