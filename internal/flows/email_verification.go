package flows

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type EmailVerificationUser struct {
	UserID     string
	Email      string
	IsVerified bool
}

type EmailVerificationMetrics struct {
	ActivationSuccess int
	ActivationFailure int
	ActivationResent  int
	TokenIssueFailure int
	TokenRedeemRace   int
}

type EmailVerificationEvents struct {
	VerificationIssued  string
	VerificationConfirm string
}

type EmailVerificationErrors struct {
	EngineNotReady  error
	InvalidToken    error
	AlreadyVerified error
	UserNotFound    error
	Internal        error
}

type EmailVerificationDeps struct {
	TokenTTL time.Duration

	Now        func() time.Time
	IsNotFound func(error) bool

	GetUserByID  func(context.Context, string) (EmailVerificationUser, error)
	MarkVerified func(context.Context, string) error

	GenerateToken func() (string, string, error)
	HashToken     func(string) string
	SaveToken     func(context.Context, string, string, time.Time) error
	FindToken     func(context.Context, string) (TokenRecord, error)
	DeleteToken   func(context.Context, string) (bool, error)

	Deliver func(context.Context, string, string)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)
	Warn      func(string, ...any)

	Metrics EmailVerificationMetrics
	Events  EmailVerificationEvents
	Errors  EmailVerificationErrors
}

func normalizeEmailVerificationDeps(deps *EmailVerificationDeps) {
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

// RunIssueVerification persists a fresh verification token for the user and
// queues its delivery. Only the keyed hash reaches the store.
func RunIssueVerification(ctx context.Context, userID, email string, deps EmailVerificationDeps) error {
	normalizeEmailVerificationDeps(&deps)
	if deps.GenerateToken == nil || deps.SaveToken == nil {
		return deps.Errors.EngineNotReady
	}

	raw, hash, err := deps.GenerateToken()
	if err != nil {
		deps.MetricInc(deps.Metrics.TokenIssueFailure)
		return fmt.Errorf("%w: generate verification token: %v", deps.Errors.Internal, err)
	}
	if err := deps.SaveToken(ctx, userID, hash, deps.Now()); err != nil {
		deps.MetricInc(deps.Metrics.TokenIssueFailure)
		return fmt.Errorf("%w: save verification token: %v", deps.Errors.Internal, err)
	}

	deps.Deliver(ctx, email, raw)
	deps.EmitAudit(ctx, deps.Events.VerificationIssued, true, userID, email, nil, nil)
	return nil
}

// RunResendVerification issues another verification token for an unverified
// account. Earlier tokens stay valid until they expire.
func RunResendVerification(ctx context.Context, userID string, deps EmailVerificationDeps) error {
	normalizeEmailVerificationDeps(&deps)
	if deps.GetUserByID == nil {
		return deps.Errors.EngineNotReady
	}

	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		if deps.IsNotFound(err) {
			return deps.Errors.UserNotFound
		}
		return fmt.Errorf("%w: resolve user: %v", deps.Errors.Internal, err)
	}
	if user.IsVerified {
		return deps.Errors.AlreadyVerified
	}

	if err := RunIssueVerification(ctx, user.UserID, user.Email, deps); err != nil {
		return err
	}
	deps.MetricInc(deps.Metrics.ActivationResent)
	return nil
}

// RunConfirmEmailVerification redeems a verification token and marks its
// owner verified. The owner is saved before the token is deleted; a delete
// that fails or loses a race does not change the outcome.
func RunConfirmEmailVerification(ctx context.Context, rawToken string, deps EmailVerificationDeps) error {
	normalizeEmailVerificationDeps(&deps)
	if deps.HashToken == nil ||
		deps.FindToken == nil ||
		deps.DeleteToken == nil ||
		deps.GetUserByID == nil ||
		deps.MarkVerified == nil {
		return deps.Errors.EngineNotReady
	}

	fail := func(userID, reason string, err error) error {
		deps.MetricInc(deps.Metrics.ActivationFailure)
		deps.EmitAudit(ctx, deps.Events.VerificationConfirm, false, userID, "", err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return err
	}

	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return fail("", "empty_token", deps.Errors.InvalidToken)
	}

	hash := deps.HashToken(rawToken)
	record, err := deps.FindToken(ctx, hash)
	if err != nil {
		if deps.IsNotFound(err) {
			return fail("", "token_not_found", deps.Errors.InvalidToken)
		}
		return fmt.Errorf("%w: find verification token: %v", deps.Errors.Internal, err)
	}
	if deps.TokenTTL > 0 && deps.Now().Sub(record.CreatedAt) > deps.TokenTTL {
		return fail(record.UserID, "token_expired", deps.Errors.InvalidToken)
	}

	user, err := deps.GetUserByID(ctx, record.UserID)
	if err != nil {
		if deps.IsNotFound(err) {
			return fail(record.UserID, "owner_missing", deps.Errors.InvalidToken)
		}
		return fmt.Errorf("%w: resolve token owner: %v", deps.Errors.Internal, err)
	}
	if user.IsVerified {
		return fail(user.UserID, "already_verified", deps.Errors.AlreadyVerified)
	}

	if err := deps.MarkVerified(ctx, user.UserID); err != nil {
		return fmt.Errorf("%w: save user: %v", deps.Errors.Internal, err)
	}

	deleted, err := deps.DeleteToken(ctx, hash)
	switch {
	case err != nil:
		deps.Warn("goCreds: verification token delete failed for user %s: %v", user.UserID, err)
	case !deleted:
		deps.MetricInc(deps.Metrics.TokenRedeemRace)
		deps.Warn("goCreds: verification token for user %s was already consumed", user.UserID)
	}

	deps.MetricInc(deps.Metrics.ActivationSuccess)
	deps.EmitAudit(ctx, deps.Events.VerificationConfirm, true, user.UserID, user.Email, nil, nil)
	return nil
}
