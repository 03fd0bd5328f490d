package flows

import "time"

// TokenRecord is the flow-local view of a stored verification or
// forgot-password token.
type TokenRecord struct {
	UserID    string
	CreatedAt time.Time
}

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Account           AccountDeps
	EmailVerification EmailVerificationDeps
	Login             LoginDeps
	PasswordReset     PasswordResetDeps
	TOTP              TOTPDeps
}
