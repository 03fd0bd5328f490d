package flows

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type TOTPUser struct {
	UserID     string
	Email      string
	TempSecret string
	Secret     string
}

type TOTPProvision struct {
	Secret string
	URI    string
}

type TOTPMetrics struct {
	TOTPEnrollmentStarted int
	TOTPEnabled           int
	TOTPDisabled          int
	TOTPFailure           int
}

type TOTPEvents struct {
	TOTPSetupRequested string
	TOTPEnabled        string
	TOTPDisabled       string
	TOTPFailure        string
}

type TOTPErrors struct {
	EngineNotReady  error
	UserNotFound    error
	AlreadyEnrolled error
	NotInitialized  error
	NotEnrolled     error
	InvalidCode     error
	Internal        error
}

type TOTPDeps struct {
	Now        func() time.Time
	IsNotFound func(error) bool

	GetUserByID func(context.Context, string) (TOTPUser, error)
	// SaveSecrets persists the pending and active secrets together.
	SaveSecrets func(context.Context, string, string, string) error

	GenerateSecret func(string) (string, string, error)
	VerifyCode     func(string, string, time.Time) bool

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics TOTPMetrics
	Events  TOTPEvents
	Errors  TOTPErrors
}

func normalizeTOTPDeps(deps *TOTPDeps) {
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
}

func loadTOTPUser(ctx context.Context, userID string, deps TOTPDeps) (TOTPUser, error) {
	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		if deps.IsNotFound(err) {
			return TOTPUser{}, deps.Errors.UserNotFound
		}
		return TOTPUser{}, fmt.Errorf("%w: resolve user: %v", deps.Errors.Internal, err)
	}
	return user, nil
}

// RunGenerateTOTPSetup starts enrollment. A pending secret from an earlier
// unfinished setup is replaced.
func RunGenerateTOTPSetup(ctx context.Context, userID string, deps TOTPDeps) (*TOTPProvision, error) {
	normalizeTOTPDeps(&deps)
	if deps.GetUserByID == nil || deps.SaveSecrets == nil || deps.GenerateSecret == nil {
		return nil, deps.Errors.EngineNotReady
	}

	user, err := loadTOTPUser(ctx, userID, deps)
	if err != nil {
		return nil, err
	}
	if user.Secret != "" {
		deps.EmitAudit(ctx, deps.Events.TOTPSetupRequested, false, user.UserID, user.Email, deps.Errors.AlreadyEnrolled, nil)
		return nil, deps.Errors.AlreadyEnrolled
	}

	secret, uri, err := deps.GenerateSecret(user.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: generate totp secret: %v", deps.Errors.Internal, err)
	}
	if err := deps.SaveSecrets(ctx, user.UserID, secret, ""); err != nil {
		return nil, fmt.Errorf("%w: save totp secret: %v", deps.Errors.Internal, err)
	}

	deps.MetricInc(deps.Metrics.TOTPEnrollmentStarted)
	deps.EmitAudit(ctx, deps.Events.TOTPSetupRequested, true, user.UserID, user.Email, nil, nil)
	return &TOTPProvision{Secret: secret, URI: uri}, nil
}

// RunConfirmTOTPSetup verifies a code against the pending secret and promotes
// it to the active secret.
func RunConfirmTOTPSetup(ctx context.Context, userID, code string, deps TOTPDeps) error {
	normalizeTOTPDeps(&deps)
	if deps.GetUserByID == nil || deps.SaveSecrets == nil || deps.VerifyCode == nil {
		return deps.Errors.EngineNotReady
	}

	user, err := loadTOTPUser(ctx, userID, deps)
	if err != nil {
		return err
	}
	if user.TempSecret == "" {
		deps.EmitAudit(ctx, deps.Events.TOTPFailure, false, user.UserID, user.Email, deps.Errors.NotInitialized, func() map[string]string {
			return map[string]string{"stage": "confirm"}
		})
		return deps.Errors.NotInitialized
	}
	if !deps.VerifyCode(user.TempSecret, strings.TrimSpace(code), deps.Now()) {
		deps.MetricInc(deps.Metrics.TOTPFailure)
		deps.EmitAudit(ctx, deps.Events.TOTPFailure, false, user.UserID, user.Email, deps.Errors.InvalidCode, func() map[string]string {
			return map[string]string{"stage": "confirm"}
		})
		return deps.Errors.InvalidCode
	}

	if err := deps.SaveSecrets(ctx, user.UserID, "", user.TempSecret); err != nil {
		return fmt.Errorf("%w: save totp secret: %v", deps.Errors.Internal, err)
	}

	deps.MetricInc(deps.Metrics.TOTPEnabled)
	deps.EmitAudit(ctx, deps.Events.TOTPEnabled, true, user.UserID, user.Email, nil, nil)
	return nil
}

// RunDisableTOTP clears both secrets after a code from the active secret.
func RunDisableTOTP(ctx context.Context, userID, code string, deps TOTPDeps) error {
	normalizeTOTPDeps(&deps)
	if deps.GetUserByID == nil || deps.SaveSecrets == nil || deps.VerifyCode == nil {
		return deps.Errors.EngineNotReady
	}

	user, err := loadTOTPUser(ctx, userID, deps)
	if err != nil {
		return err
	}
	if user.Secret == "" {
		deps.EmitAudit(ctx, deps.Events.TOTPFailure, false, user.UserID, user.Email, deps.Errors.NotEnrolled, func() map[string]string {
			return map[string]string{"stage": "disable"}
		})
		return deps.Errors.NotEnrolled
	}
	if !deps.VerifyCode(user.Secret, strings.TrimSpace(code), deps.Now()) {
		deps.MetricInc(deps.Metrics.TOTPFailure)
		deps.EmitAudit(ctx, deps.Events.TOTPFailure, false, user.UserID, user.Email, deps.Errors.InvalidCode, func() map[string]string {
			return map[string]string{"stage": "disable"}
		})
		return deps.Errors.InvalidCode
	}

	if err := deps.SaveSecrets(ctx, user.UserID, "", ""); err != nil {
		return fmt.Errorf("%w: clear totp secret: %v", deps.Errors.Internal, err)
	}

	deps.MetricInc(deps.Metrics.TOTPDisabled)
	deps.EmitAudit(ctx, deps.Events.TOTPDisabled, true, user.UserID, user.Email, nil, nil)
	return nil
}
