// middleware — HTTP-мидлвары auth-сервиса: request id, логирование, recover,
// дедлайн запроса и Bearer-аутентификация. Подключаются к chi через Use.
package middleware

import (
	"net/http"
)

// Middleware — стандартный net/http мидлвар, совместимый с chi.Router.Use.
type Middleware func(http.Handler) http.Handler
