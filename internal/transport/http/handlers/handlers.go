// handlers — REST-обработчики auth-сервиса. Бизнес-логика живёт в service;
// здесь только разбор запроса, вызов сервиса и формирование ответа.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/account-auth/internal/config"
	"github.com/pribylovaa/account-auth/internal/models"
	"github.com/pribylovaa/account-auth/internal/service"
	apierrors "github.com/pribylovaa/account-auth/internal/transport/http/apierrors"
)

// maxBodyBytes ограничивает размер JSON-тела запроса.
const maxBodyBytes = 64 << 10

// Service — операции сервиса, которые вызывают обработчики.
type Service interface {
	Login(ctx context.Context, identifier, password, userAgent string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*models.Account, error)
	Register(ctx context.Context, in service.RegisterInput) (*models.Account, error)
	ChangePassword(ctx context.Context, account *models.Account, current, next, confirm string) error
	ChangeLogin(ctx context.Context, account *models.Account, newLogin string) error
	AuthHistory(ctx context.Context, account *models.Account, limit int) ([]models.AuditRecord, error)
	UserInfo(account *models.Account) models.Profile
}

var _ Service = (*service.Service)(nil)

// CookieOptions — атрибуты cookie с refresh-токеном.
type CookieOptions struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// CookieFromConfig собирает CookieOptions; maxAge обычно равен сроку жизни refresh-токена.
func CookieFromConfig(cfg config.CookieConfig, maxAge time.Duration) CookieOptions {
	return CookieOptions{
		Name:     cfg.Name,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure(),
		SameSite: parseSameSite(cfg.SameSite),
		MaxAge:   maxAge,
	}
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc    Service
	cookie CookieOptions
}

func New(svc Service, cookie CookieOptions) *Handlers {
	if cookie.Name == "" {
		cookie.Name = "refresh_token"
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}

	return &Handlers{svc: svc, cookie: cookie}
}

// messageResponse — ответ операций без полезной нагрузки.
type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля и хвост после объекта.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrBadRequest, err)
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data", apierrors.ErrBadRequest)
	}

	return nil
}

// setRefreshCookie кладёт refresh-токен в http-only cookie.
func (h *Handlers) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		MaxAge:   int(h.cookie.MaxAge / time.Second),
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: h.cookie.SameSite,
	})
}

// parseSameSite допускает только lax и strict; остальное сводится к lax.
func parseSameSite(v string) http.SameSite {
	if strings.EqualFold(v, config.SameSiteStrict) {
		return http.SameSiteStrictMode
	}

	return http.SameSiteLaxMode
}
