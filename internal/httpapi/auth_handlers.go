package httpapi

import (
	"net/http"
	"time"

	goCreds "github.com/MrEthical07/goCreds"
)

type userView struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	IsVerified       bool      `json:"isVerified"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func newUserView(u *goCreds.User) userView {
	return userView{
		ID:               u.ID,
		Email:            u.Email,
		IsVerified:       u.IsVerified,
		TwoFactorEnabled: u.TwoFactor.Enabled(),
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type registerResponse struct {
	User  userView `json:"user"`
	Token string   `json:"token"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !s.decode(w, r, &body) {
		return
	}

	res, err := s.engine.Register(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, registerResponse{
		User:  newUserView(&res.User),
		Token: res.SessionToken,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
	Code     string `json:"code" validate:"omitempty,len=6,numeric"`
}

type loginResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !s.decode(w, r, &body) {
		return
	}

	res, err := s.engine.Login(r.Context(), body.Email, body.Password, body.Code)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, loginResponse{UserID: res.UserID, Token: res.SessionToken})
}

type activateRequest struct {
	Token string `json:"token" validate:"required"`
}

func (s *Server) activate(w http.ResponseWriter, r *http.Request) {
	var body activateRequest
	if !s.decode(w, r, &body) {
		return
	}

	if err := s.engine.Activate(r.Context(), body.Token); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "account activated")
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// forgotPassword answers 202 whether or not the account exists.
func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var body forgotPasswordRequest
	if !s.decode(w, r, &body) {
		return
	}

	if err := s.engine.RequestPasswordReset(r.Context(), body.Email); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeMessage(w, http.StatusAccepted, "if the account exists, a reset email has been sent")
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body resetPasswordRequest
	if !s.decode(w, r, &body) {
		return
	}

	if err := s.engine.ResetPassword(r.Context(), body.Token, body.Email, body.Password); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "password updated")
}
