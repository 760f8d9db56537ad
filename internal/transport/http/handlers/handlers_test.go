package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/account-auth/internal/config"
	"github.com/pribylovaa/account-auth/internal/models"
	"github.com/pribylovaa/account-auth/internal/service"
	apierrors "github.com/pribylovaa/account-auth/internal/transport/http/apierrors"
	"github.com/pribylovaa/account-auth/internal/transport/http/middleware"
)

// Пакет unit-тестов для handlers.
//
// Покрытие:
//   - разбор тела: неизвестные поля, хвост, пустые обязательные поля -> 400;
//   - login/refresh ставят http-only cookie с refresh-токеном и Max-Age;
//   - refresh без cookie -> 401 missing_token;
//   - маппинг ошибок сервиса (409, 401, 400 для неверного текущего пароля);
//   - account-эндпойнты берут аккаунт из контекста и отдают профиль/историю.

// fakeService — Service с подменяемыми функциями; незаданная функция паникует.
type fakeService struct {
	login          func(ctx context.Context, identifier, password, userAgent string) (*models.TokenPair, error)
	refresh        func(ctx context.Context, token string) (*models.TokenPair, error)
	register       func(ctx context.Context, in service.RegisterInput) (*models.Account, error)
	changePassword func(ctx context.Context, a *models.Account, current, next, confirm string) error
	changeLogin    func(ctx context.Context, a *models.Account, login string) error
	authHistory    func(ctx context.Context, a *models.Account, limit int) ([]models.AuditRecord, error)
}

func (f *fakeService) Login(ctx context.Context, identifier, password, userAgent string) (*models.TokenPair, error) {
	return f.login(ctx, identifier, password, userAgent)
}

func (f *fakeService) Refresh(ctx context.Context, token string) (*models.TokenPair, error) {
	return f.refresh(ctx, token)
}

func (f *fakeService) Authenticate(context.Context, string) (*models.Account, error) {
	return nil, service.ErrUnauthorized
}

func (f *fakeService) Register(ctx context.Context, in service.RegisterInput) (*models.Account, error) {
	return f.register(ctx, in)
}

func (f *fakeService) ChangePassword(ctx context.Context, a *models.Account, current, next, confirm string) error {
	return f.changePassword(ctx, a, current, next, confirm)
}

func (f *fakeService) ChangeLogin(ctx context.Context, a *models.Account, login string) error {
	return f.changeLogin(ctx, a, login)
}

func (f *fakeService) AuthHistory(ctx context.Context, a *models.Account, limit int) ([]models.AuditRecord, error) {
	return f.authHistory(ctx, a, limit)
}

func (f *fakeService) UserInfo(a *models.Account) models.Profile {
	return a.Profile()
}

var testPair = &models.TokenPair{AccessToken: "acc.tok.en", RefreshToken: "ref.tok.en"}

func newHandlers(svc Service) *Handlers {
	return New(svc, CookieFromConfig(config.CookieConfig{
		Name:     "refresh_token",
		Path:     "/",
		SameSite: "strict",
	}, 24*time.Hour))
}

func doJSON(ctx context.Context, t *testing.T, hf http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "curl/8.0")
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	hf(rr, req)
	return rr
}

func errCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error.Code
}

// withAccount кладёт аккаунт в контекст так же, как это делает AuthBearer.
func withAccount(t *testing.T, a *models.Account) context.Context {
	t.Helper()

	var ctx context.Context
	auth := authFunc(func(context.Context, string) (*models.Account, error) { return a, nil })
	h := middleware.AuthBearer(auth)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, ctx)
	return ctx
}

type authFunc func(context.Context, string) (*models.Account, error)

func (f authFunc) Authenticate(ctx context.Context, tok string) (*models.Account, error) {
	return f(ctx, tok)
}

func TestLogin_OK_SetsCookie(t *testing.T) {
	t.Parallel()

	var gotUA, gotLogin string
	h := newHandlers(&fakeService{
		login: func(_ context.Context, identifier, _ string, ua string) (*models.TokenPair, error) {
			gotLogin, gotUA = identifier, ua
			return testPair, nil
		},
	})

	rr := doJSON(context.Background(), t, h.Login, http.MethodPost, `{"login":"alice","password":"Secret123"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "alice", gotLogin)
	require.Equal(t, "curl/8.0", gotUA)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, testPair.AccessToken, resp.AccessToken)
	require.Equal(t, testPair.RefreshToken, resp.RefreshToken)
	require.Equal(t, "bearer", resp.TokenType)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	require.Equal(t, "refresh_token", c.Name)
	require.Equal(t, testPair.RefreshToken, c.Value)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Equal(t, int((24 * time.Hour).Seconds()), c.MaxAge)
	require.Equal(t, http.SameSiteStrictMode, c.SameSite)
}

func TestLogin_BadRequest(t *testing.T) {
	t.Parallel()

	h := newHandlers(&fakeService{})

	for name, body := range map[string]string{
		"not_json":       `login=alice`,
		"unknown_field":  `{"login":"alice","password":"x","admin":true}`,
		"trailing":       `{"login":"alice","password":"x"}{}`,
		"empty_login":    `{"login":"","password":"x"}`,
		"empty_password": `{"login":"alice"}`,
	} {
		rr := doJSON(context.Background(), t, h.Login, http.MethodPost, body)
		require.Equal(t, http.StatusBadRequest, rr.Code, name)
		require.Equal(t, "invalid_argument", errCode(t, rr), name)
		require.Empty(t, rr.Result().Cookies(), name)
	}
}

func TestLogin_InvalidCredentials_401(t *testing.T) {
	t.Parallel()

	h := newHandlers(&fakeService{
		login: func(context.Context, string, string, string) (*models.TokenPair, error) {
			return nil, fmt.Errorf("service.auth.Login: %w", service.ErrInvalidCredentials)
		},
	})

	rr := doJSON(context.Background(), t, h.Login, http.MethodPost, `{"login":"alice","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "invalid_credentials", errCode(t, rr))
	require.Empty(t, rr.Result().Cookies())
}

func TestRegistration(t *testing.T) {
	t.Parallel()

	var got service.RegisterInput
	h := newHandlers(&fakeService{
		register: func(_ context.Context, in service.RegisterInput) (*models.Account, error) {
			got = in
			if in.Login == "taken" {
				return nil, service.ErrLoginTaken
			}
			return &models.Account{ID: uuid.New()}, nil
		},
	})

	body := `{"first_name":"Alice","last_name":"Liddell","login":"alice","email":"alice@example.com","password":"Secret123","confirm_password":"Secret123"}`
	rr := doJSON(context.Background(), t, h.Registration, http.MethodPost, body)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, service.RegisterInput{
		FirstName:       "Alice",
		LastName:        "Liddell",
		Login:           "alice",
		Email:           "alice@example.com",
		Password:        "Secret123",
		ConfirmPassword: "Secret123",
	}, got)

	rr = doJSON(context.Background(), t, h.Registration, http.MethodPost, strings.Replace(body, `"alice"`, `"taken"`, 1))
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "login_taken", errCode(t, rr))
}

func TestRefresh_FromCookie(t *testing.T) {
	t.Parallel()

	var presented string
	h := newHandlers(&fakeService{
		refresh: func(_ context.Context, tok string) (*models.TokenPair, error) {
			presented = tok
			if tok == "" {
				return nil, service.ErrMissingToken
			}
			return testPair, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "old.refresh.token"})
	rr := httptest.NewRecorder()
	h.Refresh(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "old.refresh.token", presented)
	require.Equal(t, testPair.RefreshToken, rr.Result().Cookies()[0].Value)

	rr = httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "missing_token", errCode(t, rr))
}

func TestChangePassword_MapsErrors(t *testing.T) {
	t.Parallel()

	alice := &models.Account{ID: uuid.New(), Login: "alice"}

	tests := []struct {
		name       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{name: "wrong_current", svcErr: service.ErrInvalidCredentials, wantStatus: http.StatusBadRequest, wantCode: "invalid_current_password"},
		{name: "mismatch", svcErr: service.ErrPasswordMismatch, wantStatus: http.StatusBadRequest, wantCode: "password_mismatch"},
		{name: "weak", svcErr: service.ErrWeakPassword, wantStatus: http.StatusBadRequest, wantCode: "weak_password"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHandlers(&fakeService{
				changePassword: func(context.Context, *models.Account, string, string, string) error {
					return fmt.Errorf("service.account.ChangePassword: %w", tt.svcErr)
				},
			})

			body := `{"password":"a","new_password":"b","confirm_new_password":"c"}`
			rr := doJSON(withAccount(t, alice), t, h.ChangePassword, http.MethodPatch, body)
			require.Equal(t, tt.wantStatus, rr.Code)
			require.Equal(t, tt.wantCode, errCode(t, rr))
		})
	}
}

func TestChangePassword_OK(t *testing.T) {
	t.Parallel()

	alice := &models.Account{ID: uuid.New(), Login: "alice"}

	var gotAccount *models.Account
	var gotArgs []string
	h := newHandlers(&fakeService{
		changePassword: func(_ context.Context, a *models.Account, current, next, confirm string) error {
			gotAccount, gotArgs = a, []string{current, next, confirm}
			return nil
		},
	})

	body := `{"password":"Secret123","new_password":"NewSecret456","confirm_new_password":"NewSecret456"}`
	rr := doJSON(withAccount(t, alice), t, h.ChangePassword, http.MethodPatch, body)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Same(t, alice, gotAccount)
	require.Equal(t, []string{"Secret123", "NewSecret456", "NewSecret456"}, gotArgs)
}

func TestChangeLogin(t *testing.T) {
	t.Parallel()

	alice := &models.Account{ID: uuid.New(), Login: "alice"}
	h := newHandlers(&fakeService{
		changeLogin: func(_ context.Context, _ *models.Account, login string) error {
			if login == "bob" {
				return service.ErrLoginTaken
			}
			return nil
		},
	})

	rr := doJSON(withAccount(t, alice), t, h.ChangeLogin, http.MethodPatch, `{"new_login":"alice2"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(withAccount(t, alice), t, h.ChangeLogin, http.MethodPatch, `{"new_login":"bob"}`)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "login_taken", errCode(t, rr))
}

func TestAuthHistory(t *testing.T) {
	t.Parallel()

	alice := &models.Account{ID: uuid.New(), Login: "alice"}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var gotLimit int
	h := newHandlers(&fakeService{
		authHistory: func(_ context.Context, _ *models.Account, limit int) ([]models.AuditRecord, error) {
			gotLimit = limit
			return []models.AuditRecord{{AccountID: alice.ID, LoginTime: at, UserAgent: "curl/8.0"}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/?limit=10", nil).WithContext(withAccount(t, alice))
	rr := httptest.NewRecorder()
	h.AuthHistory(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 10, gotLimit)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	require.True(t, resp.History[0].LoginTime.Equal(at))
	require.Equal(t, "curl/8.0", resp.History[0].UserAgent)

	for _, bad := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest(http.MethodGet, "/?limit="+bad, nil).WithContext(withAccount(t, alice))
		rr := httptest.NewRecorder()
		h.AuthHistory(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code, bad)
	}
}

func TestUserInfo(t *testing.T) {
	t.Parallel()

	alice := &models.Account{
		ID:           uuid.New(),
		FirstName:    "Alice",
		LastName:     "Liddell",
		Login:        "alice",
		Email:        "alice@example.com",
		PasswordHash: "$pbkdf2-sha256$secret",
		Role:         models.RoleUser,
	}
	h := newHandlers(&fakeService{})

	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(withAccount(t, alice))
	rr := httptest.NewRecorder()
	h.UserInfo(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotContains(t, rr.Body.String(), "pbkdf2")

	var resp profileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, alice.ID, resp.ID)
	require.Equal(t, "alice@example.com", resp.Email)
	require.Equal(t, models.RoleUser, resp.Role)
}

func TestAccountHandlers_WithoutAccount_401(t *testing.T) {
	t.Parallel()

	h := newHandlers(&fakeService{})

	rr := doJSON(context.Background(), t, h.UserInfo, http.MethodGet, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "unauthorized", errCode(t, rr))
}

func TestParseSameSite(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.SameSiteStrictMode, parseSameSite("Strict"))
	require.Equal(t, http.SameSiteLaxMode, parseSameSite("none"))
	require.Equal(t, http.SameSiteLaxMode, parseSameSite("lax"))
	require.Equal(t, http.SameSiteLaxMode, parseSameSite(""))
}
