package httpapi

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	goCreds "github.com/MrEthical07/goCreds"
)

// statusFor maps an engine error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	kind := goCreds.KindOf(err)
	switch kind {
	case goCreds.KindValidation, goCreds.KindInvalidToken:
		return http.StatusBadRequest, kind.String()
	case goCreds.KindConflict:
		if errors.Is(err, goCreds.ErrAlreadyVerified) {
			return http.StatusBadRequest, "already_verified"
		}
		return http.StatusConflict, kind.String()
	case goCreds.KindAuthenticationFailed:
		return http.StatusUnauthorized, kind.String()
	case goCreds.KindTwoFactorRequired:
		return http.StatusPartialContent, kind.String()
	case goCreds.KindForbidden:
		return http.StatusForbidden, kind.String()
	default:
		return http.StatusInternalServerError, kind.String()
	}
}

// writeEngineError renders err. Internal failures are logged and reported
// to Sentry; their detail never reaches the client.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		sentry.CaptureException(err)
		writeError(w, status, code, "internal server error", nil)
		return
	}
	writeError(w, status, code, err.Error(), nil)
}
