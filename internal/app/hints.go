package app

import (
	"context"
	"errors"
	"fmt"

	"pyquest-backend/internal/domain"
)

// HintCost is the flat point price of revealing a hint.
const HintCost = 30

// HintPurchase is the outcome of a hint purchase attempt.
type HintPurchase struct {
	Success       bool   `json:"success"`
	UpdatedPoints int    `json:"updatedPoints,omitempty"`
	Message       string `json:"message,omitempty"`
}

// BuyHint deducts the hint cost from the user's balance. A short balance is
// not an error from the caller's point of view; it yields a refusal message.
func BuyHint(ctx context.Context, users UserStore, userID string) (HintPurchase, error) {
	balance, err := users.DeductPoints(ctx, userID, HintCost)
	if errors.Is(err, domain.ErrInsufficientPoints) {
		user, err := users.Get(ctx, userID)
		if err != nil {
			return HintPurchase{}, err
		}
		return HintPurchase{
			Success: false,
			Message: fmt.Sprintf("Not enough points to use a hint. You have %d points!", user.Points),
		}, nil
	}
	if err != nil {
		return HintPurchase{}, err
	}
	return HintPurchase{Success: true, UpdatedPoints: balance}, nil
}
