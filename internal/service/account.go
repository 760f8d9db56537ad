package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pribylovaa/account-auth/internal/models"
	logctx "github.com/pribylovaa/account-auth/internal/pkg/log"
	"github.com/pribylovaa/account-auth/internal/pkg/redact"
	"github.com/pribylovaa/account-auth/internal/storage"
)

// Ограничения полей совпадают с размерами колонок таблицы users.
const (
	maxNameLen     = 100
	maxLoginLen    = 50
	maxEmailLen    = 100
	minPasswordLen = 8

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// RegisterInput — данные формы регистрации.
type RegisterInput struct {
	FirstName       string
	LastName        string
	Login           string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register создаёт новый активный аккаунт с ролью user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (account *models.Account, err error) {
	const op = "service.account.Register"

	defer func() { s.metrics.AuthOp(opRegister, err) }()

	firstName, err := requireField(in.FirstName, maxNameLen)
	if err != nil {
		return nil, fmt.Errorf("%s: first_name: %w", op, err)
	}

	lastName, err := requireField(in.LastName, maxNameLen)
	if err != nil {
		return nil, fmt.Errorf("%s: last_name: %w", op, err)
	}

	login, err := requireField(in.Login, maxLoginLen)
	if err != nil {
		return nil, fmt.Errorf("%s: login: %w", op, err)
	}

	email, err := validateEmail(in.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Password != in.ConfirmPassword {
		return nil, fmt.Errorf("%s: %w", op, ErrPasswordMismatch)
	}

	if err := s.validatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.ensureFree(ctx, login, email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	account = &models.Account{
		ID:           uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		Login:        login,
		Email:        email,
		PasswordHash: digest,
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.accounts.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapConflict(err))
	}

	logctx.From(ctx).Info("account_registered",
		slog.String("op", op),
		slog.String("account_id", account.ID.String()),
		slog.String("email", redact.Email(email)),
	)

	return account, nil
}

// ChangePassword меняет пароль аккаунта после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, account *models.Account, current, next, confirm string) error {
	const op = "service.account.ChangePassword"

	if !s.hasher.Verify(current, account.PasswordHash) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if next != confirm {
		return fmt.Errorf("%s: %w", op, ErrPasswordMismatch)
	}

	if err := s.validatePassword(next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	digest, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	updated := *account
	updated.PasswordHash = digest

	if err := s.accounts.UpdateAccount(ctx, &updated); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	account.PasswordHash = digest

	logctx.From(ctx).Info("password_changed",
		slog.String("op", op),
		slog.String("account_id", account.ID.String()),
	)

	return nil
}

// ChangeLogin меняет логин аккаунта. Тот же логин — no-op.
func (s *Service) ChangeLogin(ctx context.Context, account *models.Account, newLogin string) error {
	const op = "service.account.ChangeLogin"

	login, err := requireField(newLogin, maxLoginLen)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if login == account.Login {
		return nil
	}

	existing, err := s.accounts.AccountByLogin(ctx, login)
	switch {
	case err == nil && existing.ID != account.ID:
		return fmt.Errorf("%s: %w", op, ErrLoginTaken)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%s: %w", op, err)
	}

	updated := *account
	updated.Login = login

	if err := s.accounts.UpdateAccount(ctx, &updated); err != nil {
		return fmt.Errorf("%s: %w", op, mapConflict(err))
	}

	account.Login = login

	logctx.From(ctx).Info("login_changed",
		slog.String("op", op),
		slog.String("account_id", account.ID.String()),
		slog.String("login", redact.Login(login)),
	)

	return nil
}

// AuthHistory возвращает историю входов аккаунта от новых к старым.
// limit <= 0 означает значение по умолчанию; слишком большой limit урезается.
func (s *Service) AuthHistory(ctx context.Context, account *models.Account, limit int) ([]models.AuditRecord, error) {
	const op = "service.account.AuthHistory"

	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	records, err := s.audit.AuditByAccount(ctx, account.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return records, nil
}

// UserInfo возвращает публичный профиль аккаунта.
func (s *Service) UserInfo(account *models.Account) models.Profile {
	return account.Profile()
}

// ensureFree проверяет, что логин и email свободны.
func (s *Service) ensureFree(ctx context.Context, login, email string) error {
	_, err := s.accounts.AccountByLogin(ctx, login)
	if err == nil {
		return ErrLoginTaken
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	_, err = s.accounts.AccountByEmail(ctx, email)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	return nil
}

// mapConflict переводит нарушение уникальности хранилища в ошибку сервиса.
// Гонка между проверкой и вставкой закрывается уникальными индексами.
func mapConflict(err error) error {
	switch {
	case errors.Is(err, storage.ErrLoginExists):
		return ErrLoginTaken
	case errors.Is(err, storage.ErrEmailExists):
		return ErrEmailTaken
	default:
		return err
	}
}

// requireField обрезает пробелы и проверяет, что значение непустое и не длиннее maxLen рун.
func requireField(v string, maxLen int) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" || utf8.RuneCountInString(v) > maxLen {
		return "", ErrInvalidInput
	}

	return v, nil
}

// validateEmail проверяет формат адреса. Регистр сохраняется: поиск по email точный.
func validateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || utf8.RuneCountInString(email) > maxEmailLen {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}

	return email, nil
}

// validatePassword — минимальная политика: не короче minPasswordLen рун и не
// длиннее, чем принимает хэшер (для bcrypt это 72 байта).
func (s *Service) validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return ErrWeakPassword
	}

	if len(pw) > s.hasher.MaxPasswordBytes() {
		return ErrInvalidInput
	}

	return nil
}
