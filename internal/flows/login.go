package flows

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	UserID       string
	SessionToken string
}

// LoginUserRecord is a flow-local user model used by the login flow.
type LoginUserRecord struct {
	UserID           string
	Email            string
	PasswordHash     string
	TwoFactorEnabled bool
	TOTPSecret       string
}

// LoginAttemptRecord mirrors the persisted login attempt. The flow creates
// exactly one per call and updates it in place.
type LoginAttemptRecord struct {
	ID               string
	Email            string
	UserID           string
	IPAddress        string
	UserAgent        string
	TwoFactorEnabled bool
	Successful       bool
	CreatedAt        time.Time
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess           int
	LoginFailure           int
	LoginTwoFactorRequired int
	LoginPasswordUpgraded  int
	SessionIssued          int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess      string
	LoginFailure      string
	TwoFactorRequired string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady       error
	AuthenticationFailed error
	TwoFactorRequired    error
	Internal             error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	PasswordUpgradeOnLogin bool

	ClientIPFromContext  func(context.Context) string
	UserAgentFromContext func(context.Context) string
	Now                  func() time.Time
	NewAttemptID         func() string

	CreateAttempt func(context.Context, *LoginAttemptRecord) error
	UpdateAttempt func(context.Context, *LoginAttemptRecord) error

	GetUserByEmail     func(context.Context, string) (LoginUserRecord, error)
	IsNotFound         func(error) bool
	UpdatePasswordHash func(context.Context, string, string) error

	VerifyPassword       func(string, string) (bool, error)
	PasswordNeedsUpgrade func(string) (bool, error)
	HashPassword         func(string) (string, error)
	VerifyTOTPCode       func(string, string, time.Time) bool
	IssueSession         func(string, string) (string, error)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
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
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.UserAgentFromContext == nil {
		deps.UserAgentFromContext = func(context.Context) string { return "" }
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
	}
}

// RunLogin executes the login state machine:
// attempt recorded, user resolved, second factor checked, password checked,
// attempt resolved. Every credential failure is reported as
// Errors.AuthenticationFailed; the audit reason tells them apart.
func RunLogin(ctx context.Context, email, password, totpCode string, deps LoginDeps) (*LoginResult, error) {
	normalizeLoginDeps(&deps)
	if deps.NewAttemptID == nil ||
		deps.CreateAttempt == nil ||
		deps.UpdateAttempt == nil ||
		deps.GetUserByEmail == nil ||
		deps.VerifyPassword == nil ||
		deps.VerifyTOTPCode == nil ||
		deps.IssueSession == nil {
		return nil, deps.Errors.EngineNotReady
	}

	now := deps.Now()
	attempt := &LoginAttemptRecord{
		ID:        deps.NewAttemptID(),
		Email:     email,
		IPAddress: deps.ClientIPFromContext(ctx),
		UserAgent: deps.UserAgentFromContext(ctx),
		CreatedAt: now,
	}
	if err := deps.CreateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("%w: record login attempt: %v", deps.Errors.Internal, err)
	}

	fail := func(userID, reason string) (*LoginResult, error) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, email, deps.Errors.AuthenticationFailed, func() map[string]string {
			return map[string]string{
				"reason":     reason,
				"attempt_id": attempt.ID,
			}
		})
		return nil, deps.Errors.AuthenticationFailed
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if deps.IsNotFound(err) {
			return fail("", "user_not_found")
		}
		return nil, fmt.Errorf("%w: resolve user: %v", deps.Errors.Internal, err)
	}

	attempt.UserID = user.UserID
	attempt.TwoFactorEnabled = user.TwoFactorEnabled
	if err := deps.UpdateAttempt(ctx, attempt); err != nil {
		deps.Warn("goCreds: login attempt %s resolution update failed: %v", attempt.ID, err)
	}

	if user.TwoFactorEnabled {
		code := strings.TrimSpace(totpCode)
		if code == "" {
			deps.MetricInc(deps.Metrics.LoginTwoFactorRequired)
			deps.EmitAudit(ctx, deps.Events.TwoFactorRequired, false, user.UserID, email, deps.Errors.TwoFactorRequired, nil)
			return nil, deps.Errors.TwoFactorRequired
		}
		if !deps.VerifyTOTPCode(user.TOTPSecret, code, now) {
			return fail(user.UserID, "totp_invalid")
		}
	}

	ok, verifyErr := deps.VerifyPassword(password, user.PasswordHash)
	if verifyErr != nil || !ok {
		if verifyErr != nil {
			deps.Warn("goCreds: stored password hash for user %s is unreadable: %v", user.UserID, verifyErr)
		}
		attempt.Successful = false
		if err := deps.UpdateAttempt(ctx, attempt); err != nil {
			deps.Warn("goCreds: login attempt %s failure update failed: %v", attempt.ID, err)
		}
		return fail(user.UserID, "password_mismatch")
	}

	token, err := deps.IssueSession(user.UserID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: issue session: %v", deps.Errors.Internal, err)
	}

	attempt.Successful = true
	if err := deps.UpdateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("%w: record login success: %v", deps.Errors.Internal, err)
	}

	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if needsUpgrade, err := deps.PasswordNeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgradedHash, err := deps.HashPassword(password); err == nil {
				if err := deps.UpdatePasswordHash(ctx, user.UserID, upgradedHash); err != nil {
					deps.Warn("goCreds: password hash upgrade update failed: %v", err)
				} else {
					deps.MetricInc(deps.Metrics.LoginPasswordUpgraded)
				}
			} else {
				deps.Warn("goCreds: password hash upgrade generation failed: %v", err)
			}
		}
	}
	password = ""

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.MetricInc(deps.Metrics.SessionIssued)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.UserID, email, nil, func() map[string]string {
		return map[string]string{
			"attempt_id": attempt.ID,
		}
	})

	return &LoginResult{
		UserID:       user.UserID,
		SessionToken: token,
	}, nil
}
