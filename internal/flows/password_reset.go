package flows

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type PasswordResetUser struct {
	UserID string
	Email  string
}

type PasswordResetMetrics struct {
	PasswordResetRequest int
	PasswordResetSuccess int
	PasswordResetFailure int
	TokenIssueFailure    int
	TokenRedeemRace      int
}

type PasswordResetEvents struct {
	PasswordResetRequest string
	PasswordResetConfirm string
}

type PasswordResetErrors struct {
	EngineNotReady error
	InvalidToken   error
	Internal       error
}

type PasswordResetDeps struct {
	TokenTTL time.Duration

	Now        func() time.Time
	IsNotFound func(error) bool

	GetUserByEmail     func(context.Context, string) (PasswordResetUser, error)
	GetUserByID        func(context.Context, string) (PasswordResetUser, error)
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(context.Context, string, string) error

	GenerateToken func() (string, string, error)
	HashToken     func(string) string
	SaveToken     func(context.Context, string, string, time.Time) error
	FindToken     func(context.Context, string) (TokenRecord, error)
	DeleteToken   func(context.Context, string) (bool, error)

	Deliver func(context.Context, string, string)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)
	Warn      func(string, ...any)

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.Deliver == nil {
		deps.Deliver = func(context.Context, string, string) {}
	}
}

// RunRequestPasswordReset issues a forgot-password token for an existing
// account and hands it to delivery. The result is the same whether or not the
// email is registered; only a failing lookup surfaces.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)
	if deps.GetUserByEmail == nil || deps.GenerateToken == nil || deps.SaveToken == nil {
		return deps.Errors.EngineNotReady
	}

	deps.MetricInc(deps.Metrics.PasswordResetRequest)

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if deps.IsNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", email, nil, func() map[string]string {
				return map[string]string{
					"reason": "unknown_email",
				}
			})
			return nil
		}
		return fmt.Errorf("%w: resolve user: %v", deps.Errors.Internal, err)
	}

	raw, hash, err := deps.GenerateToken()
	if err != nil {
		deps.MetricInc(deps.Metrics.TokenIssueFailure)
		deps.Warn("goCreds: forgot-password token generation failed for user %s: %v", user.UserID, err)
		return nil
	}
	if err := deps.SaveToken(ctx, user.UserID, hash, deps.Now()); err != nil {
		deps.MetricInc(deps.Metrics.TokenIssueFailure)
		deps.Warn("goCreds: forgot-password token persistence failed for user %s: %v", user.UserID, err)
		return nil
	}

	deps.Deliver(ctx, user.Email, raw)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, user.UserID, user.Email, nil, nil)
	return nil
}

// RunResetPassword redeems a forgot-password token. The submitted email must
// equal the owner's stored email exactly. The user is saved before the token
// is deleted.
func RunResetPassword(ctx context.Context, rawToken, email, newPassword string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)
	if deps.HashToken == nil ||
		deps.FindToken == nil ||
		deps.DeleteToken == nil ||
		deps.GetUserByID == nil ||
		deps.HashPassword == nil ||
		deps.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}

	invalid := func(userID, reason string) error {
		deps.MetricInc(deps.Metrics.PasswordResetFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, userID, email, deps.Errors.InvalidToken, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return deps.Errors.InvalidToken
	}

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return invalid("", "empty_token")
	}

	hash := deps.HashToken(rawToken)
	record, err := deps.FindToken(ctx, hash)
	if err != nil {
		if deps.IsNotFound(err) {
			return invalid("", "token_not_found")
		}
		return fmt.Errorf("%w: find reset token: %v", deps.Errors.Internal, err)
	}
	if deps.TokenTTL > 0 && deps.Now().Sub(record.CreatedAt) > deps.TokenTTL {
		return invalid(record.UserID, "token_expired")
	}

	user, err := deps.GetUserByID(ctx, record.UserID)
	if err != nil {
		if deps.IsNotFound(err) {
			return invalid(record.UserID, "owner_missing")
		}
		return fmt.Errorf("%w: resolve token owner: %v", deps.Errors.Internal, err)
	}
	if strings.TrimSpace(email) != user.Email {
		return invalid(user.UserID, "email_mismatch")
	}

	passwordHash, err := deps.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: hash password: %v", deps.Errors.Internal, err)
	}
	newPassword = ""

	if err := deps.UpdatePasswordHash(ctx, user.UserID, passwordHash); err != nil {
		return fmt.Errorf("%w: save password: %v", deps.Errors.Internal, err)
	}

	deleted, err := deps.DeleteToken(ctx, hash)
	switch {
	case err != nil:
		deps.Warn("goCreds: forgot-password token delete failed for user %s: %v", user.UserID, err)
	case !deleted:
		deps.MetricInc(deps.Metrics.TokenRedeemRace)
		deps.Warn("goCreds: forgot-password token for user %s was already consumed", user.UserID)
	}

	deps.MetricInc(deps.Metrics.PasswordResetSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, true, user.UserID, user.Email, nil, nil)
	return nil
}
