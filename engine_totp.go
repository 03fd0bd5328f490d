package goCreds

import "context"

// BeginTOTPEnrollment generates a pending TOTP secret for the user and
// returns it with its otpauth:// provisioning URI. A pending secret from an
// unfinished enrollment is replaced.
//
// Returns [ErrTOTPAlreadyEnrolled] when the user already has an active secret.
func (e *Engine) BeginTOTPEnrollment(ctx context.Context, userID string) (*TOTPEnrollment, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	p, err := e.flow.GenerateTOTPSetup(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &TOTPEnrollment{Secret: p.Secret, URI: p.URI}, nil
}

// ConfirmTOTPEnrollment activates the pending secret when code matches it.
//
// Returns [ErrTOTPNotInitialized] without a pending secret and
// [ErrInvalidTOTPCode] for a wrong code.
func (e *Engine) ConfirmTOTPEnrollment(ctx context.Context, userID, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.ConfirmTOTPSetup(ctx, userID, code)
}

// DisableTOTP removes the second factor when code matches the active secret.
//
// Returns [ErrTOTPNotEnrolled] when no secret is active and
// [ErrInvalidTOTPCode] for a wrong code.
func (e *Engine) DisableTOTP(ctx context.Context, userID, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.DisableTOTP(ctx, userID, code)
}
