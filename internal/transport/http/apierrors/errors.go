// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход он принимает ошибку сервиса (сентинелы пакета service), а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Источник истинности по маппингу — таблица errorTable ниже.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/account-auth/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrBadRequest — тело или параметры запроса не разбираются. HTTP 400.
	ErrBadRequest = errors.New("invalid argument")

	// ErrWrongCurrentPassword — текущий пароль при смене пароля неверен. HTTP 400.
	ErrWrongCurrentPassword = errors.New("invalid current password")
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorTable — порядок важен: первый errors.Is выигрывает.
var errorTable = []mapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid credentials"},
	{service.ErrMissingToken, http.StatusUnauthorized, "missing_token", "refresh token not found"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", "invalid refresh token"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "unauthorized"},
	{ErrWrongCurrentPassword, http.StatusBadRequest, "invalid_current_password", "invalid current password"},
	{service.ErrPasswordMismatch, http.StatusBadRequest, "password_mismatch", "passwords do not match"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", "invalid email format"},
	{service.ErrWeakPassword, http.StatusBadRequest, "weak_password", "password is too weak"},
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_argument", "invalid argument"},
	{ErrBadRequest, http.StatusBadRequest, "invalid_argument", "invalid argument"},
	{service.ErrLoginTaken, http.StatusConflict, "login_taken", "login already taken"},
	{service.ErrEmailTaken, http.StatusConflict, "email_taken", "email already taken"},
	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг.
//   - err не найдена в таблице - 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	if err != nil {
		for _, m := range errorTable {
			if errors.Is(err, m.target) {
				return m.status, ErrorResponse{
					Error: APIError{Code: m.code, Message: m.message},
				}
			}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
