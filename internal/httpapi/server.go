package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	goCreds "github.com/MrEthical07/goCreds"
	"github.com/MrEthical07/goCreds/middleware"
)

// Engine is the part of *goCreds.Engine the API calls.
type Engine interface {
	Register(ctx context.Context, email, password string) (*goCreds.RegisterResult, error)
	Activate(ctx context.Context, rawToken string) error
	ResendActivation(ctx context.Context, userID string) error
	Login(ctx context.Context, email, password, totpCode string) (*goCreds.LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, email, newPassword string) error
	Authenticate(ctx context.Context, sessionToken string) (*goCreds.User, error)
	UpdateAccount(ctx context.Context, userID string, upd goCreds.AccountUpdate) (*goCreds.User, error)
	BeginTOTPEnrollment(ctx context.Context, userID string) (*goCreds.TOTPEnrollment, error)
	ConfirmTOTPEnrollment(ctx context.Context, userID, code string) error
	DisableTOTP(ctx context.Context, userID, code string) error
}

type Options struct {
	Engine Engine
	Logger zerolog.Logger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

type Server struct {
	engine   Engine
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) http.Handler {
	s := &Server{
		engine:   opts.Engine,
		logger:   opts.Logger.With().Str("component", "httpapi").Logger(),
		validate: newValidator(),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(middleware.ClientInfo)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	r.Get("/api/health-check", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/activate", s.activate)
		r.Post("/forgot-password", s.forgotPassword)
		r.Post("/reset-password", s.resetPassword)
	})

	unauthorized := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusUnauthorized, goCreds.KindAuthenticationFailed.String(), goCreds.ErrSessionInvalid.Error(), nil)
	})
	r.Route("/api/account", func(r chi.Router) {
		r.Use(middleware.Guard(s.engine, unauthorized))
		r.Get("/", s.getAccount)
		r.Patch("/", s.updateAccount)
		r.Get("/resend-activation-email", s.resendActivation)
		r.Get("/enable-two-factor", s.beginTwoFactor)
		r.Post("/enable-two-factor", s.confirmTwoFactor)
		r.Post("/disable-two-factor", s.disableTwoFactor)
	})

	return r
}

func currentUser(r *http.Request) *goCreds.User {
	u, _ := middleware.UserFromContext(r.Context())
	return u
}
