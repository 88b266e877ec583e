package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pyquest-backend/internal/domain"
)

// QuestionStore reads question rows from Postgres.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) Get(ctx context.Context, questionID string) (domain.Question, error) {
	question := domain.Question{ID: questionID}
	err := s.pool.QueryRow(ctx, `
		SELECT question_type, question_text, correct_answer, COALESCE(constraints, ''), COALESCE(avg_time_seconds, 0)
		FROM questions WHERE id = $1`, questionID).
		Scan(&question.Type, &question.Text, &question.CorrectAnswer, &question.Constraints, &question.AvgTimeSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return question, nil
}

// LoadQuestion lets the store double as the cache-miss loader.
func (s *QuestionStore) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	return s.Get(ctx, questionID)
}
