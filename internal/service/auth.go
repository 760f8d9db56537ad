package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/account-auth/internal/models"
	logctx "github.com/pribylovaa/account-auth/internal/pkg/log"
	"github.com/pribylovaa/account-auth/internal/pkg/redact"
	"github.com/pribylovaa/account-auth/internal/storage"
)

// Login выполняет вход по логину или email и паролю.
//
// Неизвестный идентификатор, неактивный аккаунт и неверный пароль неразличимы
// снаружи (ErrInvalidCredentials). При успехе в очередь аудита ставится ровно
// одна запись с userAgent; запись не задерживает ответ и не влияет на результат.
func (s *Service) Login(ctx context.Context, identifier, password, userAgent string) (pair *models.TokenPair, err error) {
	const op = "service.auth.Login"

	defer func() { s.metrics.AuthOp(opLogin, err) }()

	log := logctx.From(ctx)

	account, err := s.accounts.AccountByLoginOrEmail(ctx, identifier)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		s.hasher.SimulateVerify(password)
		log.Debug("login_failed",
			slog.String("op", op),
			slog.String("identifier", redact.Identifier(identifier)),
			slog.String("reason", "not_found"),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !s.hasher.Verify(password, account.PasswordHash) || !account.IsActive {
		log.Debug("login_failed",
			slog.String("op", op),
			slog.String("identifier", redact.Identifier(identifier)),
			slog.String("reason", "bad_password_or_inactive"),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if s.hasher.NeedsRehash(account.PasswordHash) {
		s.rehash(ctx, account, password)
	}

	pair, refreshClaims, err := s.tokens.IssuePair(account.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.rotation != nil {
		if err := s.rotation.Remember(ctx, account.ID, refreshClaims.ID, s.tokens.RefreshTTL()); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.appendAudit(ctx, account, userAgent)

	log.Info("login_succeeded",
		slog.String("op", op),
		slog.String("account_id", account.ID.String()),
	)

	return pair, nil
}

// Refresh обменивает действующий refresh-токен на новую пару.
//
// Access-токен здесь не принимается. При включённом кэше ротации
// предшественник уже использованного токена отклоняется.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (pair *models.TokenPair, err error) {
	const op = "service.auth.Refresh"

	defer func() { s.metrics.AuthOp(opRefresh, err) }()

	if refreshToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingToken)
	}

	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	if claims.Type != models.TokenRefresh {
		return nil, fmt.Errorf("%s: %w: unexpected token type %q", op, ErrInvalidToken, claims.Type)
	}

	account, err := s.accounts.AccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w: account not found", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !account.IsActive {
		return nil, fmt.Errorf("%s: %w: account inactive", op, ErrInvalidToken)
	}

	pair, next, err := s.tokens.IssuePair(account.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.rotation != nil {
		if claims.ID == "" {
			return nil, fmt.Errorf("%s: %w: missing jti", op, ErrInvalidToken)
		}

		ok, err := s.rotation.Rotate(ctx, account.ID, claims.ID, next.ID, s.tokens.RefreshTTL())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if !ok {
			logctx.From(ctx).Warn("refresh_replay_rejected",
				slog.String("op", op),
				slog.String("account_id", account.ID.String()),
			)
			return nil, fmt.Errorf("%s: %w: superseded", op, ErrInvalidToken)
		}
	}

	return pair, nil
}

// Authenticate разрешает access-токен в активный аккаунт.
// Refresh-токен здесь не принимается.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (account *models.Account, err error) {
	const op = "service.auth.Authenticate"

	defer func() { s.metrics.AuthOp(opAuthenticate, err) }()

	if accessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	claims, err := s.tokens.Verify(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	}

	if claims.Type != models.TokenAccess {
		return nil, fmt.Errorf("%s: %w: unexpected token type %q", op, ErrUnauthorized, claims.Type)
	}

	account, err = s.accounts.AccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w: account not found", op, ErrUnauthorized)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !account.IsActive {
		return nil, fmt.Errorf("%s: %w: account inactive", op, ErrUnauthorized)
	}

	return account, nil
}

// appendAudit ставит запись о входе в очередь; переполнение только логируется.
func (s *Service) appendAudit(ctx context.Context, account *models.Account, userAgent string) {
	const op = "service.auth.appendAudit"

	record := &models.AuditRecord{
		AccountID: account.ID,
		LoginTime: s.now().UTC(),
		UserAgent: userAgent,
	}

	if !s.auditQ.enqueue(ctx, record) {
		s.metrics.AuditFailure()
		logctx.From(ctx).Warn("audit_dropped",
			slog.String("op", op),
			slog.String("account_id", account.ID.String()),
		)
	}
}

// rehash перевыпускает дайджест пароля под текущую конфигурацию; ошибка только логируется.
func (s *Service) rehash(ctx context.Context, account *models.Account, password string) {
	const op = "service.auth.rehash"

	digest, err := s.hasher.Hash(password)
	if err == nil {
		updated := *account
		updated.PasswordHash = digest
		err = s.accounts.UpdateAccount(ctx, &updated)
	}

	if err != nil {
		logctx.From(ctx).Warn("password_rehash_failed",
			slog.String("op", op),
			slog.String("account_id", account.ID.String()),
			slog.String("err", err.Error()),
		)
		return
	}

	logctx.From(ctx).Debug("password_rehashed",
		slog.String("op", op),
		slog.String("account_id", account.ID.String()),
	)
}
