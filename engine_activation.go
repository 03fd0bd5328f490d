package goCreds

import "context"

// Activate redeems a verification token and marks its owner verified.
//
// Returns [ErrInvalidToken] for an unknown, expired or orphaned token and
// [ErrAlreadyVerified] when the owner is already verified. The token is
// deleted after the user is saved; losing that delete to a concurrent
// redeemer is logged and does not change the result.
func (e *Engine) Activate(ctx context.Context, rawToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.ConfirmEmailVerification(ctx, rawToken)
}

// ResendActivation issues and delivers another verification token for an
// unverified user. Returns [ErrAlreadyVerified] for a verified user and
// [ErrUserNotFound] for an unknown ID.
func (e *Engine) ResendActivation(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.ResendVerification(ctx, userID)
}
