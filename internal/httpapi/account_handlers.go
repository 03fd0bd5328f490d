package httpapi

import (
	"net/http"

	goCreds "github.com/MrEthical07/goCreds"
)

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, newUserView(currentUser(r)))
}

type updateAccountRequest struct {
	Email           string `json:"email" validate:"omitempty,email"`
	CurrentPassword string `json:"currentPassword" validate:"required_with=NewPassword,max=128"`
	NewPassword     string `json:"newPassword" validate:"omitempty,min=6,max=128"`
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	var body updateAccountRequest
	if !s.decode(w, r, &body) {
		return
	}

	u, err := s.engine.UpdateAccount(r.Context(), currentUser(r).ID, goCreds.AccountUpdate{
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
		Email:           body.Email,
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, newUserView(u))
}

func (s *Server) resendActivation(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ResendActivation(r.Context(), currentUser(r).ID); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeMessage(w, http.StatusAccepted, "activation email sent")
}

type twoFactorSetupView struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

func (s *Server) beginTwoFactor(w http.ResponseWriter, r *http.Request) {
	enr, err := s.engine.BeginTOTPEnrollment(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, twoFactorSetupView{Secret: enr.Secret, URI: enr.URI})
}

type twoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func (s *Server) confirmTwoFactor(w http.ResponseWriter, r *http.Request) {
	var body twoFactorCodeRequest
	if !s.decode(w, r, &body) {
		return
	}

	if err := s.engine.ConfirmTOTPEnrollment(r.Context(), currentUser(r).ID, body.Code); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "two-factor authentication enabled")
}

func (s *Server) disableTwoFactor(w http.ResponseWriter, r *http.Request) {
	var body twoFactorCodeRequest
	if !s.decode(w, r, &body) {
		return
	}

	if err := s.engine.DisableTOTP(r.Context(), currentUser(r).ID, body.Code); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "two-factor authentication disabled")
}
