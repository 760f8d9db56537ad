package handlers

import (
	"errors"
	"net/http"

	"github.com/pribylovaa/account-auth/internal/models"
	"github.com/pribylovaa/account-auth/internal/service"
	apierrors "github.com/pribylovaa/account-auth/internal/transport/http/apierrors"
)

type loginRequest struct {
	// Login — логин или email.
	Login    string `json:"login"`
	Password string `json:"password"`
}

type registerRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Login           string `json:"login"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func tokenFromPair(p *models.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "bearer",
	}
}

// Login — POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if in.Login == "" || in.Password == "" {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, err := h.svc.Login(r.Context(), in.Login, in.Password, r.UserAgent())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenFromPair(pair))
}

// Registration — POST /auth/registration.
func (h *Handlers) Registration(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	_, err := h.svc.Register(r.Context(), service.RegisterInput{
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Login:           in.Login,
		Email:           in.Email,
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "user registered"})
}

// Refresh — POST /auth/refresh. Refresh-токен берётся только из cookie.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var presented string

	c, err := r.Cookie(h.cookie.Name)
	switch {
	case err == nil:
		presented = c.Value
	case !errors.Is(err, http.ErrNoCookie):
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), presented)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenFromPair(pair))
}
