package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	logctx "github.com/pribylovaa/account-auth/internal/pkg/log"
	apierrors "github.com/pribylovaa/account-auth/internal/transport/http/apierrors"
)

var errPanic = errors.New("internal")

// Recover перехватывает panic, конвертирует в 500/internal и пишет унифицированный ответ.
// Детали паники не утекают на клиент. http.ErrAbortHandler пробрасывается дальше.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).
					LogAttrs(r.Context(), slog.LevelError, "panic",
						slog.String("path", r.URL.Path),
						slog.Any("reason", rec),
					)
				apierrors.WriteError(w, r, errPanic)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
