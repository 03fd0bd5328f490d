package goCreds

import "errors"

var (
	// ErrValidation marks a request rejected for its shape before any state was read.
	ErrValidation = errors.New("validation error")
	// ErrEmailTaken is returned when registration or an email change collides with an existing account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrAlreadyVerified is returned when activating an account that is already verified.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrAuthenticationFailed is the single failure returned by Login for unknown
	// users, wrong passwords and wrong second-factor codes.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrTwoFactorRequired is returned by Login when the account is enrolled in
	// TOTP and no code was submitted.
	ErrTwoFactorRequired = errors.New("two-factor code required")
	// ErrInvalidToken covers missing, expired and mismatched verification or reset tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrTOTPAlreadyEnrolled is returned when enrollment begins on an enrolled account.
	ErrTOTPAlreadyEnrolled = errors.New("two-factor already enabled")
	// ErrTOTPNotInitialized is returned when confirming without a pending enrollment.
	ErrTOTPNotInitialized = errors.New("two-factor enrollment not initialized")
	// ErrTOTPNotEnrolled is returned when disabling two-factor on an account that is not enrolled.
	ErrTOTPNotEnrolled = errors.New("two-factor not enabled")
	// ErrInvalidTOTPCode is returned by enrollment operations for a wrong code.
	ErrInvalidTOTPCode = errors.New("invalid two-factor code")
	// ErrCurrentPasswordMismatch is returned by UpdateAccount when the current password is wrong.
	ErrCurrentPasswordMismatch = errors.New("current password is incorrect")
	// ErrSessionInvalid is returned by Authenticate for bad, expired or orphaned session tokens.
	ErrSessionInvalid = errors.New("invalid session")
	// ErrUserNotFound is returned by account operations addressed to an unknown user ID.
	ErrUserNotFound = errors.New("user not found")
	// ErrInternal wraps unexpected store and crypto failures.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned when a method is called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrRecordNotFound is returned by CredentialStore implementations for
	// missing or expired records.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned by CredentialStore implementations when a
	// create or save violates email uniqueness.
	ErrDuplicateEmail = errors.New("duplicate email")
)

// ErrorKind classifies engine errors for transport mapping.
type ErrorKind uint8

const (
	// KindInternal is the zero value so unknown errors fall back to it.
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindAuthenticationFailed
	KindTwoFactorRequired
	KindInvalidToken
	KindForbidden
)

// String returns the lowercase kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindTwoFactorRequired:
		return "two_factor_required"
	case KindInvalidToken:
		return "invalid_token"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrValidation, KindValidation},
	{ErrInvalidTOTPCode, KindValidation},
	{ErrEmailTaken, KindConflict},
	{ErrAlreadyVerified, KindConflict},
	{ErrTOTPAlreadyEnrolled, KindConflict},
	{ErrCurrentPasswordMismatch, KindConflict},
	{ErrAuthenticationFailed, KindAuthenticationFailed},
	{ErrSessionInvalid, KindAuthenticationFailed},
	{ErrUserNotFound, KindAuthenticationFailed},
	{ErrTwoFactorRequired, KindTwoFactorRequired},
	{ErrInvalidToken, KindInvalidToken},
	{ErrTOTPNotInitialized, KindForbidden},
	{ErrTOTPNotEnrolled, KindForbidden},
}

// KindOf returns the kind of err, or KindInternal when err is not one of the
// engine's classified sentinels.
func KindOf(err error) ErrorKind {
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return KindInternal
}
