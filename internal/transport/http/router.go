package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/account-auth/internal/metrics"
	"github.com/pribylovaa/account-auth/internal/transport/http/handlers"
	"github.com/pribylovaa/account-auth/internal/transport/http/middleware"
)

// DefaultBasePath — префикс REST-эндпойнтов.
const DefaultBasePath = "/api/v1"

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api/v1"; если пустой — роуты регистрируются на корне.
	Cookie   handlers.CookieOptions
	Metrics  *metrics.Metrics // nil — без HTTP-метрик
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc handlers.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		opts.Metrics.Middleware,         // метрики по шаблону маршрута, включая ответы Recover
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	root.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"message": "auth service is running"})
	})
	root.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy"})
	})

	// Зависимости хендлеров.
	h := handlers.New(svc, opts.Cookie)

	// Регистрация маршрутов.
	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, svc, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, svc, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, auth middleware.Authenticator, h *handlers.Handlers) {
	// auth
	r.Post("/auth/login", h.Login)
	r.Post("/auth/registration", h.Registration)
	r.Post("/auth/refresh", h.Refresh)

	// account (Bearer access token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthBearer(auth))

		r.Patch("/account/change-password", h.ChangePassword)
		r.Patch("/account/change-login", h.ChangeLogin)
		r.Get("/account/auth-history", h.AuthHistory)
		r.Get("/account/user-info", h.UserInfo)
	})
}

func writeJSON(w http.ResponseWriter, v map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
