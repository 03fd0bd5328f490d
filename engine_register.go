package goCreds

import (
	"context"

	"github.com/MrEthical07/goCreds/internal/flows"
)

// Register creates an unverified account and returns it with a session
// credential. The email is normalized with [NormalizeEmail].
//
// A verification token is persisted and queued for delivery under
// [TemplateVerificationToken]. Failing to persist or deliver it is logged and
// does not fail registration; the raw token is never part of the result.
//
// Returns [ErrEmailTaken] when the email is already registered and
// [ErrValidation] for an empty email or password.
func (e *Engine) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res, err := e.flow.CreateAccount(ctx, flows.AccountCreateRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResult{
		User:         userFromRecord(res.User),
		SessionToken: res.SessionToken,
	}, nil
}

func userFromRecord(rec flows.AccountUserRecord) User {
	return User{
		ID:           rec.UserID,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		IsVerified:   rec.IsVerified,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}
