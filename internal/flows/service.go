package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.CreateAttempt != nil
}

func (s Service) CreateAccount(ctx context.Context, req AccountCreateRequest) (*AccountCreateResult, error) {
	return RunCreateAccount(ctx, req, s.deps.Account)
}

func (s Service) UpdateAccount(ctx context.Context, userID string, req AccountUpdateRequest) (AccountUserRecord, error) {
	return RunUpdateAccount(ctx, userID, req, s.deps.Account)
}

func (s Service) IssueVerification(ctx context.Context, userID, email string) error {
	return RunIssueVerification(ctx, userID, email, s.deps.EmailVerification)
}

func (s Service) ResendVerification(ctx context.Context, userID string) error {
	return RunResendVerification(ctx, userID, s.deps.EmailVerification)
}

func (s Service) ConfirmEmailVerification(ctx context.Context, rawToken string) error {
	return RunConfirmEmailVerification(ctx, rawToken, s.deps.EmailVerification)
}

func (s Service) Login(ctx context.Context, email, password, totpCode string) (*LoginResult, error) {
	return RunLogin(ctx, email, password, totpCode, s.deps.Login)
}

func (s Service) RequestPasswordReset(ctx context.Context, email string) error {
	return RunRequestPasswordReset(ctx, email, s.deps.PasswordReset)
}

func (s Service) ResetPassword(ctx context.Context, rawToken, email, newPassword string) error {
	return RunResetPassword(ctx, rawToken, email, newPassword, s.deps.PasswordReset)
}

func (s Service) GenerateTOTPSetup(ctx context.Context, userID string) (*TOTPProvision, error) {
	return RunGenerateTOTPSetup(ctx, userID, s.deps.TOTP)
}

func (s Service) ConfirmTOTPSetup(ctx context.Context, userID, code string) error {
	return RunConfirmTOTPSetup(ctx, userID, code, s.deps.TOTP)
}

func (s Service) DisableTOTP(ctx context.Context, userID, code string) error {
	return RunDisableTOTP(ctx, userID, code, s.deps.TOTP)
}
