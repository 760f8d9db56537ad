package middleware

import (
	"context"
	"encoding/hex"
	"net/http"

	"github.com/google/uuid"
)

type requestIDCtxKey struct{}

// maxRequestIDLen ограничивает длину внешнего X-Request-Id, попадающего в логи.
const maxRequestIDLen = 128

// RequestID обеспечивает наличие X-Request-Id:
//  1. читает заголовок X-Request-Id, если есть;
//  2. иначе генерирует случайный id (32 hex-символа);
//  3. кладёт id в Response Header, Request Header (его читает apierrors.WriteError)
//     и в контекст.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" || len(id) > maxRequestIDLen {
				id = genID()
				r.Header.Set("X-Request-Id", id)
			}
			w.Header().Set("X-Request-Id", id)

			ctx := context.WithValue(r.Context(), requestIDCtxKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFrom возвращает id запроса из контекста или "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}

func genID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
