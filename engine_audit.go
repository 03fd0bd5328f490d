package goCreds

import (
	"context"
	"errors"
)

const (
	auditEventRegisterSuccess     = "register_success"
	auditEventRegisterDuplicate   = "register_duplicate"
	auditEventVerificationIssued  = "verification_issued"
	auditEventVerificationConfirm = "verification_confirm"
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventTwoFactorRequired   = "two_factor_required"
	auditEventPasswordResetReq    = "password_reset_request"
	auditEventPasswordResetDone   = "password_reset_confirm"
	auditEventTOTPSetupRequested  = "totp_setup_requested"
	auditEventTOTPEnabled         = "totp_enabled"
	auditEventTOTPDisabled        = "totp_disabled"
	auditEventTOTPFailure         = "totp_failure"
	auditEventAccountUpdated      = "account_updated"
	auditEventAccountRejected     = "account_update_rejected"
	auditEventSessionRejected     = "session_rejected"
)

// AuditErrorCode is the stable error label carried in [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrValidation        AuditErrorCode = "validation"
	auditErrDuplicate         AuditErrorCode = "duplicate"
	auditErrAlreadyVerified   AuditErrorCode = "already_verified"
	auditErrAuthentication    AuditErrorCode = "authentication_failed"
	auditErrTwoFactorRequired AuditErrorCode = "two_factor_required"
	auditErrInvalidToken      AuditErrorCode = "invalid_token"
	auditErrTOTPState         AuditErrorCode = "totp_state"
	auditErrTOTPInvalid       AuditErrorCode = "totp_invalid"
	auditErrPasswordMismatch  AuditErrorCode = "current_password_mismatch"
	auditErrSessionInvalid    AuditErrorCode = "session_invalid"
	auditErrUserNotFound      AuditErrorCode = "user_not_found"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        ClientIPFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrAlreadyVerified):
		return auditErrAlreadyVerified
	case errors.Is(err, ErrAuthenticationFailed):
		return auditErrAuthentication
	case errors.Is(err, ErrTwoFactorRequired):
		return auditErrTwoFactorRequired
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrTOTPAlreadyEnrolled),
		errors.Is(err, ErrTOTPNotInitialized),
		errors.Is(err, ErrTOTPNotEnrolled):
		return auditErrTOTPState
	case errors.Is(err, ErrInvalidTOTPCode):
		return auditErrTOTPInvalid
	case errors.Is(err, ErrCurrentPasswordMismatch):
		return auditErrPasswordMismatch
	case errors.Is(err, ErrSessionInvalid):
		return auditErrSessionInvalid
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	default:
		return auditErrInternal
	}
}
