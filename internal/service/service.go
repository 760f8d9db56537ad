// service содержит бизнес-логику auth-сервиса: вход, ротацию refresh-токенов,
// разрешение access-токена в аккаунт и операции над аккаунтом.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для конкурентного
//     использования, если потокобезопасны переданные хранилища и кэш ротации.
//   - Ошибки возвращаются сентинелами ниже и маппятся транспортом на HTTP-статусы.
//   - Запись в журнал входов идёт в фоне через ограниченную очередь и не влияет
//     на результат входа: сбой или переполнение логируется и учитывается в метриках.
//   - Close дописывает очередь аудита; вызывается после остановки HTTP-сервера.
package service

import (
	"errors"
	"time"

	"github.com/pribylovaa/account-auth/internal/cache"
	"github.com/pribylovaa/account-auth/internal/hasher"
	"github.com/pribylovaa/account-auth/internal/storage"
	"github.com/pribylovaa/account-auth/internal/token"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна, аккаунт не найден или неактивен.
	// HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPasswordMismatch — пароль и его подтверждение не совпадают. HTTP 400.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrLoginTaken — логин занят другим аккаунтом. HTTP 409.
	ErrLoginTaken = errors.New("login already taken")

	// ErrEmailTaken — e-mail занят другим аккаунтом. HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrMissingToken — refresh-токен не передан. HTTP 401.
	ErrMissingToken = errors.New("refresh token not found")

	// ErrInvalidToken — refresh-токен не прошёл проверку подписи/срока/типа,
	// его владелец не найден или токен уже ротирован. HTTP 401.
	ErrInvalidToken = errors.New("invalid refresh token")

	// ErrUnauthorized — access-токен не разрешается в активный аккаунт. HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidEmail — e-mail имеет некорректный формат. HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политике. HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrInvalidInput — обязательное поле пустое или слишком длинное. HTTP 400.
	ErrInvalidInput = errors.New("invalid input")
)

// Имена операций для метрик.
const (
	opLogin        = "login"
	opRefresh      = "refresh"
	opAuthenticate = "authenticate"
	opRegister     = "register"
)

// Metrics — счётчики, которые обновляет сервис.
type Metrics interface {
	AuthOp(op string, err error)
	AuditFailure()
}

type noopMetrics struct{}

func (noopMetrics) AuthOp(string, error) {}
func (noopMetrics) AuditFailure()        {}

// Service описывает бизнес-логику auth-сервиса.
type Service struct {
	accounts storage.AccountStorage
	audit    storage.AuditStorage
	tokens   *token.Codec
	hasher   *hasher.Hasher
	rotation cache.RotationCache // nil — ротация без серверного состояния
	metrics  Metrics
	now      func() time.Time
	auditQ   *auditQueue
}

type options struct {
	auditQueueSize    int
	auditWriteTimeout time.Duration
}

// Option настраивает Service при создании.
type Option func(*options)

// WithAuditQueue задаёт ёмкость очереди аудита и таймаут одной записи.
// Нулевые значения оставляют значения по умолчанию.
func WithAuditQueue(size int, writeTimeout time.Duration) Option {
	return func(o *options) {
		o.auditQueueSize = size
		o.auditWriteTimeout = writeTimeout
	}
}

// New создаёт новый экземпляр Service и запускает воркер очереди аудита.
func New(accounts storage.AccountStorage, audit storage.AuditStorage, tokens *token.Codec, h *hasher.Hasher, opts ...Option) *Service {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		accounts: accounts,
		audit:    audit,
		tokens:   tokens,
		hasher:   h,
		metrics:  noopMetrics{},
		now:      time.Now,
	}
	s.auditQ = newAuditQueue(audit, o.auditQueueSize, o.auditWriteTimeout, func() { s.metrics.AuditFailure() })

	return s
}

// Close дописывает накопленные записи аудита и останавливает воркер.
// Повторный вызов безопасен; записи после Close отбрасываются.
func (s *Service) Close() {
	s.auditQ.close()
}

// SetRotationCache включает защиту от повторного использования refresh-токенов.
func (s *Service) SetRotationCache(c cache.RotationCache) {
	s.rotation = c
}

// SetMetrics подключает метрики (nil отключает).
func (s *Service) SetMetrics(m Metrics) {
	if m == nil {
		s.metrics = noopMetrics{}
		return
	}

	s.metrics = m
}

// SetClock подменяет источник времени для меток аудита и создания аккаунтов.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}
