package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/account-auth/internal/models"
	"github.com/pribylovaa/account-auth/internal/service"
	apierrors "github.com/pribylovaa/account-auth/internal/transport/http/apierrors"
	"github.com/pribylovaa/account-auth/internal/transport/http/middleware"
)

type changePasswordRequest struct {
	Password           string `json:"password"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

type changeLoginRequest struct {
	NewLogin string `json:"new_login"`
}

type historyEntry struct {
	LoginTime time.Time `json:"login_time"`
	UserAgent string    `json:"user_agent"`
}

type historyResponse struct {
	History []historyEntry `json:"history"`
}

type profileResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Login     string    `json:"login"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// ChangePassword — PATCH /account/change-password.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	account, ok := h.account(w, r)
	if !ok {
		return
	}

	var in changePasswordRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	err := h.svc.ChangePassword(r.Context(), account, in.Password, in.NewPassword, in.ConfirmNewPassword)
	if err != nil {
		// Неверный текущий пароль при смене — 400.
		if errors.Is(err, service.ErrInvalidCredentials) {
			err = apierrors.ErrWrongCurrentPassword
		}
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "password changed"})
}

// ChangeLogin — PATCH /account/change-login.
func (h *Handlers) ChangeLogin(w http.ResponseWriter, r *http.Request) {
	account, ok := h.account(w, r)
	if !ok {
		return
	}

	var in changeLoginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangeLogin(r.Context(), account, in.NewLogin); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "login changed"})
}

// AuthHistory — GET /account/auth-history?limit=N.
func (h *Handlers) AuthHistory(w http.ResponseWriter, r *http.Request) {
	account, ok := h.account(w, r)
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			apierrors.WriteError(w, r, apierrors.ErrBadRequest)
			return
		}
		limit = n
	}

	records, err := h.svc.AuthHistory(r.Context(), account, limit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := historyResponse{History: make([]historyEntry, 0, len(records))}
	for _, rec := range records {
		out.History = append(out.History, historyEntry{LoginTime: rec.LoginTime, UserAgent: rec.UserAgent})
	}

	writeJSON(w, http.StatusOK, out)
}

// UserInfo — GET /account/user-info.
func (h *Handlers) UserInfo(w http.ResponseWriter, r *http.Request) {
	account, ok := h.account(w, r)
	if !ok {
		return
	}

	p := h.svc.UserInfo(account)
	writeJSON(w, http.StatusOK, profileResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Login:     p.Login,
		Email:     p.Email,
		Role:      p.Role,
	})
}

// account достаёт аккаунт, положенный middleware.AuthBearer.
// Маршрут без этого мидлвара — ошибка сборки роутера, отвечаем 401.
func (h *Handlers) account(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	a, ok := middleware.AccountFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return nil, false
	}

	return a, true
}
