package goCreds

import "context"

// RequestPasswordReset issues a forgot-password token for the account with
// this email and queues it for delivery under [TemplateForgotPassword].
//
// The result does not reveal whether the email is registered: it is nil in
// both cases. Only a store failure unrelated to existence is returned.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.RequestPasswordReset(ctx, NormalizeEmail(email))
}

// ResetPassword sets a new password using a forgot-password token. email must
// match the owner's stored email exactly (case-sensitive, surrounding
// whitespace ignored).
//
// Returns [ErrInvalidToken] for an unknown, expired or orphaned token and for
// an email mismatch.
func (e *Engine) ResetPassword(ctx context.Context, rawToken, email, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.ResetPassword(ctx, rawToken, email, newPassword)
}
