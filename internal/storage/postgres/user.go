package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/account-auth/internal/models"
	"github.com/pribylovaa/account-auth/internal/storage"
)

const accountColumns = `id, first_name, last_name, login, email, password_hash, role, is_active, created_at`

// SaveAccount создает новый аккаунт в БД.
func (s *Storage) SaveAccount(ctx context.Context, account *models.Account) error {
	const op = "storage.postgres.SaveAccount"

	query := `
		INSERT INTO users(id, first_name, last_name, login, email, password_hash, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.Exec(ctx, query,
		account.ID,
		account.FirstName,
		account.LastName,
		account.Login,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.IsActive,
		account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapUniqueViolation(err))
	}

	return nil
}

// AccountByLoginOrEmail находит аккаунт по логину или email.
func (s *Storage) AccountByLoginOrEmail(ctx context.Context, identifier string) (*models.Account, error) {
	const op = "storage.postgres.AccountByLoginOrEmail"

	query := `
		SELECT ` + accountColumns + `
		FROM users
		WHERE login = $1 OR email = $1
		ORDER BY (login = $1) DESC
		LIMIT 1
	`

	account, err := scanAccount(s.db.QueryRow(ctx, query, identifier))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// AccountByID находит аккаунт по ID.
func (s *Storage) AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "storage.postgres.AccountByID"

	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`

	account, err := scanAccount(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// AccountByLogin находит аккаунт по логину.
func (s *Storage) AccountByLogin(ctx context.Context, login string) (*models.Account, error) {
	const op = "storage.postgres.AccountByLogin"

	query := `SELECT ` + accountColumns + ` FROM users WHERE login = $1`

	account, err := scanAccount(s.db.QueryRow(ctx, query, login))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// AccountByEmail находит аккаунт по email.
func (s *Storage) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.postgres.AccountByEmail"

	query := `SELECT ` + accountColumns + ` FROM users WHERE email = $1`

	account, err := scanAccount(s.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return account, nil
}

// UpdateAccount перезаписывает изменяемые поля аккаунта.
func (s *Storage) UpdateAccount(ctx context.Context, account *models.Account) error {
	const op = "storage.postgres.UpdateAccount"

	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, login = $4, password_hash = $5, is_active = $6
		WHERE id = $1
	`

	tag, err := s.db.Exec(ctx, query,
		account.ID,
		account.FirstName,
		account.LastName,
		account.Login,
		account.PasswordHash,
		account.IsActive,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapUniqueViolation(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.FirstName,
		&a.LastName,
		&a.Login,
		&a.Email,
		&a.PasswordHash,
		&a.Role,
		&a.IsActive,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	return &a, nil
}

// mapUniqueViolation переводит нарушение уникального индекса в ошибку storage.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}

	switch pgErr.ConstraintName {
	case "users_login_key":
		return storage.ErrLoginExists
	case "users_email_key":
		return storage.ErrEmailExists
	default:
		return storage.ErrAlreadyExists
	}
}
