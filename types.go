package goCreds

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	internalaudit "github.com/MrEthical07/goCreds/internal/audit"
)

// TwoFactorState is the TOTP enrollment state derived from [TwoFactor].
type TwoFactorState uint8

const (
	// TwoFactorDisabled means neither a pending nor an active secret is set.
	TwoFactorDisabled TwoFactorState = iota
	// TwoFactorPending means enrollment has begun and awaits confirmation.
	TwoFactorPending
	// TwoFactorEnrolled means login requires a TOTP code.
	TwoFactorEnrolled
)

func (s TwoFactorState) String() string {
	switch s {
	case TwoFactorPending:
		return "pending"
	case TwoFactorEnrolled:
		return "enrolled"
	default:
		return "disabled"
	}
}

// TwoFactor holds the TOTP secrets of a user. At most one field is non-empty.
type TwoFactor struct {
	TempSecret string
	Secret     string
}

// State derives the enrollment state. Secret takes precedence.
func (t TwoFactor) State() TwoFactorState {
	switch {
	case t.Secret != "":
		return TwoFactorEnrolled
	case t.TempSecret != "":
		return TwoFactorPending
	default:
		return TwoFactorDisabled
	}
}

// Enabled reports whether login requires a second factor.
func (t TwoFactor) Enabled() bool {
	return t.State() == TwoFactorEnrolled
}

// User is the persisted identity record.
//
// Email is stored normalized (see [NormalizeEmail]) and is unique across the
// store. PasswordHash never holds plaintext.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsVerified   bool
	TwoFactor    TwoFactor
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenKind separates the verification and forgot-password token namespaces.
type TokenKind uint8

const (
	// TokenVerification tokens activate an account.
	TokenVerification TokenKind = iota + 1
	// TokenForgotPassword tokens authorize a password reset.
	TokenForgotPassword
)

func (k TokenKind) String() string {
	switch k {
	case TokenVerification:
		return "verification"
	case TokenForgotPassword:
		return "forgot_password"
	default:
		return "unknown"
	}
}

// Token is a single-use capability record. Hash is the keyed hash of the raw
// token; the raw value is never persisted.
type Token struct {
	UserID    string
	Hash      string
	CreatedAt time.Time
}

// LoginAttempt is the audit record of one Login call.
type LoginAttempt struct {
	ID               string
	Email            string
	UserID           string
	IPAddress        string
	UserAgent        string
	TwoFactorEnabled bool
	Successful       bool
	CreatedAt        time.Time
}

// RegisterResult is returned by [Engine.Register]. It never carries the raw
// verification token.
type RegisterResult struct {
	User         User
	SessionToken string
}

// LoginResult is returned by [Engine.Login] on success.
type LoginResult struct {
	UserID       string
	SessionToken string
}

// TOTPEnrollment is returned by [Engine.BeginTOTPEnrollment]. URI is an
// otpauth:// provisioning URI suitable for rendering as a QR code.
type TOTPEnrollment struct {
	Secret string
	URI    string
}

// AccountUpdate is the input for [Engine.UpdateAccount]. Empty fields are left
// unchanged. NewPassword requires CurrentPassword.
type AccountUpdate struct {
	CurrentPassword string
	NewPassword     string
	Email           string
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// LoggerSink is an [AuditSink] that writes events through a zerolog logger.
type LoggerSink = internalaudit.LoggerSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLoggerSink creates a [LoggerSink] writing at info level through logger.
func NewLoggerSink(logger zerolog.Logger) *LoggerSink {
	return internalaudit.NewLoggerSink(logger)
}
