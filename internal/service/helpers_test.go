package service

import (
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/account-auth/internal/config"
	"github.com/pribylovaa/account-auth/internal/hasher"
	"github.com/pribylovaa/account-auth/internal/models"
	"github.com/pribylovaa/account-auth/internal/token"
	"github.com/pribylovaa/account-auth/mocks"
)

var t0 = time.Unix(1_700_000_000, 0).UTC()

func authCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-secret",
		Algorithm:       "HS256",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "auth-service",
	}
}

// Слабые параметры, чтобы тесты были быстрыми.
func passwordCfg() config.PasswordConfig {
	return config.PasswordConfig{Algorithm: hasher.AlgPBKDF2SHA256, PBKDF2Iterations: 1000}
}

type fakeMetrics struct {
	mu            sync.Mutex
	ops           map[string][]error
	auditFailures int
}

func (m *fakeMetrics) AuthOp(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ops == nil {
		m.ops = map[string][]error{}
	}
	m.ops[op] = append(m.ops[op], err)
}

func (m *fakeMetrics) failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auditFailures
}

func (m *fakeMetrics) AuditFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditFailures++
}

type fixture struct {
	svc      *Service
	accounts *mocks.MockAccountStorage
	audit    *mocks.MockAuditStorage
	codec    *token.Codec
	hasher   *hasher.Hasher
	metrics  *fakeMetrics
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWith(t, passwordCfg(), opts...)
}

// newFixtureWith — фикстура с заданной политикой хэширования.
// Close сервиса регистрируется после контроллера gomock, поэтому очередь аудита
// дописывается до проверки ожиданий моков.
func newFixtureWith(t *testing.T, pcfg config.PasswordConfig, opts ...Option) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	accounts := mocks.NewMockAccountStorage(ctrl)
	audit := mocks.NewMockAuditStorage(ctrl)

	codec, err := token.New(authCfg(), token.WithClock(func() time.Time { return t0 }))
	require.NoError(t, err)

	h, err := hasher.New(pcfg)
	require.NoError(t, err)

	svc := New(accounts, audit, codec, h, opts...)
	t.Cleanup(svc.Close)
	svc.SetClock(func() time.Time { return t0 })

	m := &fakeMetrics{}
	svc.SetMetrics(m)

	return &fixture{svc: svc, accounts: accounts, audit: audit, codec: codec, hasher: h, metrics: m}
}

// account создаёт активный аккаунт с дайджестом пароля.
func (f *fixture) account(t *testing.T, login, password string) *models.Account {
	t.Helper()

	digest, err := f.hasher.Hash(password)
	require.NoError(t, err)

	return &models.Account{
		ID:           uuid.New(),
		FirstName:    "Alice",
		LastName:     "Liddell",
		Login:        login,
		Email:        login + "@example.com",
		PasswordHash: digest,
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    t0.Add(-time.Hour),
	}
}

// codecAt — codec с тем же секретом, но с другими часами (для выпуска
// просроченных токенов).
func codecAt(t *testing.T, at time.Time) *token.Codec {
	t.Helper()

	c, err := token.New(authCfg(), token.WithClock(func() time.Time { return at }))
	require.NoError(t, err)
	return c
}
