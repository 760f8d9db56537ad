package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/account-auth/internal/models"
	logctx "github.com/pribylovaa/account-auth/internal/pkg/log"
	"github.com/pribylovaa/account-auth/internal/service"
	apierrors "github.com/pribylovaa/account-auth/internal/transport/http/apierrors"
)

type accountCtxKey struct{}

// Authenticator разрешает access-токен в аккаунт.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.Account, error)
}

// AuthBearer извлекает Bearer-токен из Authorization, разрешает его в аккаунт
// и кладёт аккаунт в контекст. Без валидного токена отвечает 401.
// Логгер запроса дополняется account_id.
func AuthBearer(auth Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := auth.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				logctx.From(r.Context()).Debug("bearer_rejected",
					slog.String("path", r.URL.Path),
					slog.String("err", err.Error()),
				)
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), accountCtxKey{}, account)
			ctx = logctx.With(ctx, slog.String("account_id", account.ID.String()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountFrom возвращает аккаунт, положенный AuthBearer.
func AccountFrom(ctx context.Context) (*models.Account, bool) {
	a, ok := ctx.Value(accountCtxKey{}).(*models.Account)
	return a, ok && a != nil
}

// bearerToken возвращает токен из "Authorization: Bearer <token>" или "".
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "

	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(h[len(prefix):])
}

var _ Authenticator = (*service.Service)(nil)
