package middleware

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"

	logctx "github.com/pribylovaa/account-auth/internal/pkg/log"
)

// Logging кладёт request-scoped логгер (с request_id) в контекст и пишет
// одну запись на запрос. Должен стоять после RequestID.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := RequestIDFrom(r.Context()); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}
			r = r.WithContext(logctx.Into(r.Context(), reqLogger))

			// Статус по умолчанию 200, если обработчик не вызвал WriteHeader.
			snap := httpsnoop.CaptureMetrics(next, w, r)

			level := slog.LevelInfo
			if snap.Code >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			reqLogger.LogAttrs(r.Context(), level, "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", snap.Code),
				slog.Duration("dur", snap.Duration),
				slog.Int64("bytes", snap.Written),
			)
		})
	}
}
