package goCreds

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goCreds/internal/flows"
)

func (e *Engine) flowDeps() flows.Deps {
	metricInc := func(id int) { e.metricInc(MetricID(id)) }

	return flows.Deps{
		Account: flows.AccountDeps{
			IsNotFound:     isNotFound,
			IsDuplicate:    isDuplicate,
			HashPassword:   e.hasher.Hash,
			VerifyPassword: e.hasher.Verify,
			NormalizeEmail: NormalizeEmail,
			CreateUser:     e.createUserRecord,
			GetUserByID: func(ctx context.Context, userID string) (flows.AccountUserRecord, error) {
				user, err := e.store.FindUserByID(ctx, userID)
				if err != nil {
					return flows.AccountUserRecord{}, err
				}
				return accountRecord(user), nil
			},
			SaveAccount: func(ctx context.Context, rec flows.AccountUserRecord) error {
				return e.updateUser(ctx, rec.UserID, func(u *User) {
					u.Email = rec.Email
					u.PasswordHash = rec.PasswordHash
				})
			},
			IssueVerification: func(ctx context.Context, userID, email string) error {
				return e.flow.IssueVerification(ctx, userID, email)
			},
			IssueSession: e.jwt.Issue,
			MetricInc:    metricInc,
			EmitAudit:    e.emitAudit,
			Warn:         e.warnf,
			Metrics: flows.AccountMetrics{
				RegisterSuccess:       int(MetricRegisterSuccess),
				RegisterDuplicate:     int(MetricRegisterDuplicate),
				SessionIssued:         int(MetricSessionIssued),
				AccountUpdated:        int(MetricAccountUpdated),
				AccountUpdateRejected: int(MetricAccountUpdateRejected),
			},
			Events: flows.AccountEvents{
				AccountCreationSuccess:   auditEventRegisterSuccess,
				AccountCreationDuplicate: auditEventRegisterDuplicate,
				AccountUpdated:           auditEventAccountUpdated,
				AccountUpdateRejected:    auditEventAccountRejected,
			},
			Errors: flows.AccountErrors{
				EngineNotReady:          ErrEngineNotReady,
				Validation:              ErrValidation,
				EmailTaken:              ErrEmailTaken,
				UserNotFound:            ErrUserNotFound,
				CurrentPasswordMismatch: ErrCurrentPasswordMismatch,
				Internal:                ErrInternal,
			},
		},
		EmailVerification: flows.EmailVerificationDeps{
			TokenTTL:   e.config.Tokens.TTL,
			Now:        e.now,
			IsNotFound: isNotFound,
			GetUserByID: func(ctx context.Context, userID string) (flows.EmailVerificationUser, error) {
				user, err := e.store.FindUserByID(ctx, userID)
				if err != nil {
					return flows.EmailVerificationUser{}, err
				}
				return flows.EmailVerificationUser{
					UserID:     user.ID,
					Email:      user.Email,
					IsVerified: user.IsVerified,
				}, nil
			},
			MarkVerified: func(ctx context.Context, userID string) error {
				return e.updateUser(ctx, userID, func(u *User) { u.IsVerified = true })
			},
			GenerateToken: e.generateToken,
			HashToken:     e.codec.Hash,
			SaveToken:     e.tokenSaver(TokenVerification),
			FindToken:     e.tokenFinder(TokenVerification),
			DeleteToken:   e.tokenDeleter(TokenVerification),
			Deliver: func(ctx context.Context, recipient, raw string) {
				e.deliverToken(ctx, TemplateVerificationToken, recipient, raw)
			},
			MetricInc: metricInc,
			EmitAudit: e.emitAudit,
			Warn:      e.warnf,
			Metrics: flows.EmailVerificationMetrics{
				ActivationSuccess: int(MetricActivationSuccess),
				ActivationFailure: int(MetricActivationFailure),
				ActivationResent:  int(MetricActivationResent),
				TokenIssueFailure: int(MetricTokenIssueFailure),
				TokenRedeemRace:   int(MetricTokenRedeemRace),
			},
			Events: flows.EmailVerificationEvents{
				VerificationIssued:  auditEventVerificationIssued,
				VerificationConfirm: auditEventVerificationConfirm,
			},
			Errors: flows.EmailVerificationErrors{
				EngineNotReady:  ErrEngineNotReady,
				InvalidToken:    ErrInvalidToken,
				AlreadyVerified: ErrAlreadyVerified,
				UserNotFound:    ErrUserNotFound,
				Internal:        ErrInternal,
			},
		},
		Login: flows.LoginDeps{
			PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
			ClientIPFromContext:    ClientIPFromContext,
			UserAgentFromContext:   UserAgentFromContext,
			Now:                    e.now,
			NewAttemptID:           uuid.NewString,
			CreateAttempt: func(ctx context.Context, rec *flows.LoginAttemptRecord) error {
				return e.store.CreateLoginAttempt(ctx, loginAttemptFromRecord(rec))
			},
			UpdateAttempt: func(ctx context.Context, rec *flows.LoginAttemptRecord) error {
				return e.store.UpdateLoginAttempt(ctx, loginAttemptFromRecord(rec))
			},
			GetUserByEmail: func(ctx context.Context, email string) (flows.LoginUserRecord, error) {
				user, err := e.store.FindUserByEmail(ctx, email)
				if err != nil {
					return flows.LoginUserRecord{}, err
				}
				return flows.LoginUserRecord{
					UserID:           user.ID,
					Email:            user.Email,
					PasswordHash:     user.PasswordHash,
					TwoFactorEnabled: user.TwoFactor.Enabled(),
					TOTPSecret:       user.TwoFactor.Secret,
				}, nil
			},
			IsNotFound:           isNotFound,
			UpdatePasswordHash:   e.savePasswordHash,
			VerifyPassword:       e.hasher.Verify,
			PasswordNeedsUpgrade: e.hasher.NeedsUpgrade,
			HashPassword:         e.hasher.Hash,
			VerifyTOTPCode:       e.totp.VerifyCode,
			IssueSession:         e.jwt.Issue,
			MetricInc:            metricInc,
			EmitAudit:            e.emitAudit,
			Warn:                 e.warnf,
			Metrics: flows.LoginMetrics{
				LoginSuccess:           int(MetricLoginSuccess),
				LoginFailure:           int(MetricLoginFailure),
				LoginTwoFactorRequired: int(MetricLoginTwoFactorRequired),
				LoginPasswordUpgraded:  int(MetricLoginPasswordUpgraded),
				SessionIssued:          int(MetricSessionIssued),
			},
			Events: flows.LoginEvents{
				LoginSuccess:      auditEventLoginSuccess,
				LoginFailure:      auditEventLoginFailure,
				TwoFactorRequired: auditEventTwoFactorRequired,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:       ErrEngineNotReady,
				AuthenticationFailed: ErrAuthenticationFailed,
				TwoFactorRequired:    ErrTwoFactorRequired,
				Internal:             ErrInternal,
			},
		},
		PasswordReset: flows.PasswordResetDeps{
			TokenTTL:   e.config.Tokens.TTL,
			Now:        e.now,
			IsNotFound: isNotFound,
			GetUserByEmail: func(ctx context.Context, email string) (flows.PasswordResetUser, error) {
				user, err := e.store.FindUserByEmail(ctx, email)
				if err != nil {
					return flows.PasswordResetUser{}, err
				}
				return flows.PasswordResetUser{UserID: user.ID, Email: user.Email}, nil
			},
			GetUserByID: func(ctx context.Context, userID string) (flows.PasswordResetUser, error) {
				user, err := e.store.FindUserByID(ctx, userID)
				if err != nil {
					return flows.PasswordResetUser{}, err
				}
				return flows.PasswordResetUser{UserID: user.ID, Email: user.Email}, nil
			},
			HashPassword:       e.hasher.Hash,
			UpdatePasswordHash: e.savePasswordHash,
			GenerateToken:      e.generateToken,
			HashToken:          e.codec.Hash,
			SaveToken:          e.tokenSaver(TokenForgotPassword),
			FindToken:          e.tokenFinder(TokenForgotPassword),
			DeleteToken:        e.tokenDeleter(TokenForgotPassword),
			Deliver: func(ctx context.Context, recipient, raw string) {
				e.deliverToken(ctx, TemplateForgotPassword, recipient, raw)
			},
			MetricInc: metricInc,
			EmitAudit: e.emitAudit,
			Warn:      e.warnf,
			Metrics: flows.PasswordResetMetrics{
				PasswordResetRequest: int(MetricPasswordResetRequest),
				PasswordResetSuccess: int(MetricPasswordResetSuccess),
				PasswordResetFailure: int(MetricPasswordResetFailure),
				TokenIssueFailure:    int(MetricTokenIssueFailure),
				TokenRedeemRace:      int(MetricTokenRedeemRace),
			},
			Events: flows.PasswordResetEvents{
				PasswordResetRequest: auditEventPasswordResetReq,
				PasswordResetConfirm: auditEventPasswordResetDone,
			},
			Errors: flows.PasswordResetErrors{
				EngineNotReady: ErrEngineNotReady,
				InvalidToken:   ErrInvalidToken,
				Internal:       ErrInternal,
			},
		},
		TOTP: flows.TOTPDeps{
			Now:        e.now,
			IsNotFound: isNotFound,
			GetUserByID: func(ctx context.Context, userID string) (flows.TOTPUser, error) {
				user, err := e.store.FindUserByID(ctx, userID)
				if err != nil {
					return flows.TOTPUser{}, err
				}
				return flows.TOTPUser{
					UserID:     user.ID,
					Email:      user.Email,
					TempSecret: user.TwoFactor.TempSecret,
					Secret:     user.TwoFactor.Secret,
				}, nil
			},
			SaveSecrets: func(ctx context.Context, userID, tempSecret, secret string) error {
				return e.updateUser(ctx, userID, func(u *User) {
					u.TwoFactor = TwoFactor{TempSecret: tempSecret, Secret: secret}
				})
			},
			GenerateSecret: e.totp.GenerateSecret,
			VerifyCode:     e.totp.VerifyCode,
			MetricInc:      metricInc,
			EmitAudit:      e.emitAudit,
			Metrics: flows.TOTPMetrics{
				TOTPEnrollmentStarted: int(MetricTOTPEnrollmentStarted),
				TOTPEnabled:           int(MetricTOTPEnabled),
				TOTPDisabled:          int(MetricTOTPDisabled),
				TOTPFailure:           int(MetricTOTPFailure),
			},
			Events: flows.TOTPEvents{
				TOTPSetupRequested: auditEventTOTPSetupRequested,
				TOTPEnabled:        auditEventTOTPEnabled,
				TOTPDisabled:       auditEventTOTPDisabled,
				TOTPFailure:        auditEventTOTPFailure,
			},
			Errors: flows.TOTPErrors{
				EngineNotReady:  ErrEngineNotReady,
				UserNotFound:    ErrUserNotFound,
				AlreadyEnrolled: ErrTOTPAlreadyEnrolled,
				NotInitialized:  ErrTOTPNotInitialized,
				NotEnrolled:     ErrTOTPNotEnrolled,
				InvalidCode:     ErrInvalidTOTPCode,
				Internal:        ErrInternal,
			},
		},
	}
}

func (e *Engine) createUserRecord(ctx context.Context, email, passwordHash string) (flows.AccountUserRecord, error) {
	now := e.now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateUser(ctx, user); err != nil {
		return flows.AccountUserRecord{}, err
	}
	return accountRecord(user), nil
}

// updateUser reads the current record, applies mutate and saves it. Saves
// are whole-record, so concurrent updates to one user are last-write-wins.
func (e *Engine) updateUser(ctx context.Context, userID string, mutate func(*User)) error {
	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	mutate(user)
	user.UpdatedAt = e.now().UTC()
	return e.store.SaveUser(ctx, user)
}

func (e *Engine) savePasswordHash(ctx context.Context, userID, passwordHash string) error {
	return e.updateUser(ctx, userID, func(u *User) { u.PasswordHash = passwordHash })
}

func (e *Engine) generateToken() (string, string, error) {
	raw, err := e.codec.Generate()
	if err != nil {
		return "", "", err
	}
	return raw, e.codec.Hash(raw), nil
}

func (e *Engine) tokenSaver(kind TokenKind) func(context.Context, string, string, time.Time) error {
	return func(ctx context.Context, userID, hash string, createdAt time.Time) error {
		return e.store.CreateToken(ctx, kind, &Token{
			UserID:    userID,
			Hash:      hash,
			CreatedAt: createdAt.UTC(),
		})
	}
}

func (e *Engine) tokenFinder(kind TokenKind) func(context.Context, string) (flows.TokenRecord, error) {
	return func(ctx context.Context, hash string) (flows.TokenRecord, error) {
		token, err := e.store.FindTokenByHash(ctx, kind, hash)
		if err != nil {
			return flows.TokenRecord{}, err
		}
		return flows.TokenRecord{UserID: token.UserID, CreatedAt: token.CreatedAt}, nil
	}
}

func (e *Engine) tokenDeleter(kind TokenKind) func(context.Context, string) (bool, error) {
	return func(ctx context.Context, hash string) (bool, error) {
		return e.store.DeleteToken(ctx, kind, hash)
	}
}

func accountRecord(u *User) flows.AccountUserRecord {
	return flows.AccountUserRecord{
		UserID:       u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func loginAttemptFromRecord(rec *flows.LoginAttemptRecord) *LoginAttempt {
	return &LoginAttempt{
		ID:               rec.ID,
		Email:            rec.Email,
		UserID:           rec.UserID,
		IPAddress:        rec.IPAddress,
		UserAgent:        rec.UserAgent,
		TwoFactorEnabled: rec.TwoFactorEnabled,
		Successful:       rec.Successful,
		CreatedAt:        rec.CreatedAt.UTC(),
	}
}
