package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pyquest-backend/internal/domain"
)

// UserStore reads user profiles and mutates point balances. Both mutations
// are single UPDATE statements so they stay atomic under concurrent batches.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Get(ctx context.Context, userID string) (domain.User, error) {
	user := domain.User{ID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT skill_level, points FROM users WHERE id = $1`, userID).
		Scan(&user.SkillLevel, &user.Points)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *UserStore) IncrementPoints(ctx context.Context, userID string, delta int) (int, error) {
	var balance int
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET points = points + $2 WHERE id = $1 RETURNING points`,
		userID, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment points: %w", err)
	}
	return balance, nil
}

func (s *UserStore) DeductPoints(ctx context.Context, userID string, cost int) (int, error) {
	var balance int
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET points = points - $2 WHERE id = $1 AND points >= $2 RETURNING points`,
		userID, cost).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing user from a short balance.
		if _, getErr := s.Get(ctx, userID); getErr != nil {
			return 0, getErr
		}
		return 0, domain.ErrInsufficientPoints
	}
	if err != nil {
		return 0, fmt.Errorf("deduct points: %w", err)
	}
	return balance, nil
}
