package flows

import (
	"context"
	"fmt"
	"time"
)

type AccountCreateRequest struct {
	Email    string
	Password string
}

type AccountCreateResult struct {
	User         AccountUserRecord
	SessionToken string
}

type AccountUserRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AccountUpdateRequest struct {
	CurrentPassword string
	NewPassword     string
	Email           string
}

type AccountMetrics struct {
	RegisterSuccess       int
	RegisterDuplicate     int
	SessionIssued         int
	AccountUpdated        int
	AccountUpdateRejected int
}

type AccountEvents struct {
	AccountCreationSuccess   string
	AccountCreationDuplicate string
	AccountUpdated           string
	AccountUpdateRejected    string
}

type AccountErrors struct {
	EngineNotReady          error
	Validation              error
	EmailTaken              error
	UserNotFound            error
	CurrentPasswordMismatch error
	Internal                error
}

type AccountDeps struct {
	IsNotFound  func(error) bool
	IsDuplicate func(error) bool

	HashPassword   func(string) (string, error)
	VerifyPassword func(string, string) (bool, error)
	NormalizeEmail func(string) string

	CreateUser  func(context.Context, string, string) (AccountUserRecord, error)
	GetUserByID func(context.Context, string) (AccountUserRecord, error)
	// SaveAccount persists email and password hash in one store write.
	SaveAccount func(context.Context, AccountUserRecord) error

	IssueVerification func(context.Context, string, string) error
	IssueSession      func(string, string) (string, error)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)
	Warn      func(string, ...any)

	Metrics AccountMetrics
	Events  AccountEvents
	Errors  AccountErrors
}

func normalizeAccountDeps(deps *AccountDeps) {
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
	}
	if deps.IsDuplicate == nil {
		deps.IsDuplicate = func(error) bool { return false }
	}
	if deps.NormalizeEmail == nil {
		deps.NormalizeEmail = func(s string) string { return s }
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
}

// RunCreateAccount registers a user, issues a verification token and returns
// a session credential. A failure to issue the verification token is logged
// and does not fail registration.
func RunCreateAccount(ctx context.Context, req AccountCreateRequest, deps AccountDeps) (*AccountCreateResult, error) {
	normalizeAccountDeps(&deps)
	if deps.HashPassword == nil || deps.CreateUser == nil || deps.IssueSession == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email := deps.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, deps.Errors.Validation
	}

	passwordHash, err := deps.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", deps.Errors.Internal, err)
	}
	req.Password = ""

	user, err := deps.CreateUser(ctx, email, passwordHash)
	if err != nil {
		if deps.IsDuplicate(err) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			deps.EmitAudit(ctx, deps.Events.AccountCreationDuplicate, false, "", email, deps.Errors.EmailTaken, nil)
			return nil, deps.Errors.EmailTaken
		}
		return nil, fmt.Errorf("%w: create user: %v", deps.Errors.Internal, err)
	}

	if deps.IssueVerification != nil {
		if err := deps.IssueVerification(ctx, user.UserID, user.Email); err != nil {
			deps.Warn("goCreds: verification token for new user %s not issued: %v", user.UserID, err)
		}
	}

	token, err := deps.IssueSession(user.UserID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: issue session: %v", deps.Errors.Internal, err)
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.MetricInc(deps.Metrics.SessionIssued)
	deps.EmitAudit(ctx, deps.Events.AccountCreationSuccess, true, user.UserID, user.Email, nil, nil)

	return &AccountCreateResult{
		User:         user,
		SessionToken: token,
	}, nil
}

// RunUpdateAccount changes the email and/or password of a user. A new password
// requires the current one. Both changes are persisted together or not at all.
func RunUpdateAccount(ctx context.Context, userID string, req AccountUpdateRequest, deps AccountDeps) (AccountUserRecord, error) {
	normalizeAccountDeps(&deps)
	if deps.GetUserByID == nil || deps.SaveAccount == nil || deps.HashPassword == nil || deps.VerifyPassword == nil {
		return AccountUserRecord{}, deps.Errors.EngineNotReady
	}

	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		if deps.IsNotFound(err) {
			return AccountUserRecord{}, deps.Errors.UserNotFound
		}
		return AccountUserRecord{}, fmt.Errorf("%w: resolve user: %v", deps.Errors.Internal, err)
	}

	reject := func(reason string, err error) (AccountUserRecord, error) {
		deps.MetricInc(deps.Metrics.AccountUpdateRejected)
		deps.EmitAudit(ctx, deps.Events.AccountUpdateRejected, false, user.UserID, user.Email, err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return AccountUserRecord{}, err
	}

	changed := false
	updated := user

	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			return reject("current_password_missing", deps.Errors.CurrentPasswordMismatch)
		}
		ok, err := deps.VerifyPassword(req.CurrentPassword, user.PasswordHash)
		if err != nil || !ok {
			return reject("current_password_mismatch", deps.Errors.CurrentPasswordMismatch)
		}
		passwordHash, err := deps.HashPassword(req.NewPassword)
		if err != nil {
			return AccountUserRecord{}, fmt.Errorf("%w: hash password: %v", deps.Errors.Internal, err)
		}
		updated.PasswordHash = passwordHash
		changed = true
	}

	if req.Email != "" {
		email := deps.NormalizeEmail(req.Email)
		if email == "" {
			return reject("email_blank", deps.Errors.Validation)
		}
		if email != user.Email {
			updated.Email = email
			changed = true
		}
	}

	if !changed {
		return user, nil
	}

	if err := deps.SaveAccount(ctx, updated); err != nil {
		if deps.IsDuplicate(err) {
			return reject("email_taken", deps.Errors.EmailTaken)
		}
		return AccountUserRecord{}, fmt.Errorf("%w: save user: %v", deps.Errors.Internal, err)
	}

	deps.MetricInc(deps.Metrics.AccountUpdated)
	deps.EmitAudit(ctx, deps.Events.AccountUpdated, true, updated.UserID, updated.Email, nil, func() map[string]string {
		return map[string]string{
			"email_changed":    fmt.Sprint(updated.Email != user.Email),
			"password_changed": fmt.Sprint(updated.PasswordHash != user.PasswordHash),
		}
	})
	return updated, nil
}
