package goCreds

import (
	"context"
	"time"
)

// Login authenticates email and password, plus a TOTP code when the account
// is enrolled. Client IP and user agent are read from ctx (see
// [WithClientIP] and [WithUserAgent]).
//
// Exactly one [LoginAttempt] is stored per call and updated as the call
// progresses. Unknown email, wrong password and wrong TOTP code all return
// [ErrAuthenticationFailed]. An enrolled account without a code returns
// [ErrTwoFactorRequired] before the password is checked.
func (e *Engine) Login(ctx context.Context, email, password, totpCode string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() {
			e.metrics.Observe(MetricLoginLatency, time.Since(start))
		}()
	}

	res, err := e.flow.Login(ctx, NormalizeEmail(email), password, totpCode)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		UserID:       res.UserID,
		SessionToken: res.SessionToken,
	}, nil
}
