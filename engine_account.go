package goCreds

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goCreds/internal/flows"
)

// Authenticate verifies a session credential and returns its user.
//
// Bad signatures, expired credentials and credentials whose user no longer
// exists all return [ErrSessionInvalid].
func (e *Engine) Authenticate(ctx context.Context, sessionToken string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwt.Parse(sessionToken)
	if err != nil {
		e.metricInc(MetricSessionRejected)
		e.emitAudit(ctx, auditEventSessionRejected, false, "", "", ErrSessionInvalid, func() map[string]string {
			return map[string]string{
				"reason": "token_invalid",
			}
		})
		return nil, ErrSessionInvalid
	}

	user, err := e.store.FindUserByID(ctx, claims.UID)
	if err != nil {
		if isNotFound(err) {
			e.metricInc(MetricSessionRejected)
			e.emitAudit(ctx, auditEventSessionRejected, false, claims.UID, claims.Email, ErrSessionInvalid, func() map[string]string {
				return map[string]string{
					"reason": "user_missing",
				}
			})
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("%w: resolve session user: %v", ErrInternal, err)
	}
	return user, nil
}

// GetUser returns the user with id, or [ErrUserNotFound].
func (e *Engine) GetUser(ctx context.Context, userID string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: find user: %v", ErrInternal, err)
	}
	return user, nil
}

// UpdateAccount changes the email and/or password of a user and returns the
// updated record. Empty fields of upd are left unchanged.
//
// A new password requires CurrentPassword to verify, otherwise
// [ErrCurrentPasswordMismatch]. An email already in use by another account
// returns [ErrEmailTaken]. Both changes are written with a single save, so
// either both apply or neither does. Changing the email keeps the
// verification status.
func (e *Engine) UpdateAccount(ctx context.Context, userID string, upd AccountUpdate) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	rec, err := e.flow.UpdateAccount(ctx, userID, flows.AccountUpdateRequest{
		CurrentPassword: upd.CurrentPassword,
		NewPassword:     upd.NewPassword,
		Email:           upd.Email,
	})
	if err != nil {
		return nil, err
	}
	return e.GetUser(ctx, rec.UserID)
}
