package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/account-auth/internal/models"
	"github.com/pribylovaa/account-auth/internal/storage"
)

const accountColumns = `id, first_name, last_name, login, email, password_hash, role, is_active, created_at`

type accountRow struct {
	ID           uuid.UUID `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Login        string    `db:"login"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r accountRow) toModel() *models.Account {
	return &models.Account{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Login:        r.Login,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

// SaveAccount создает новый аккаунт.
func (s *Storage) SaveAccount(ctx context.Context, account *models.Account) error {
	const op = "storage.sqlite.SaveAccount"

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users(id, first_name, last_name, login, email, password_hash, role, is_active, created_at)
		VALUES (:id, :first_name, :last_name, :login, :email, :password_hash, :role, :is_active, :created_at)
	`, accountRow{
		ID:           account.ID,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		Login:        account.Login,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		Role:         account.Role,
		IsActive:     account.IsActive,
		CreatedAt:    account.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapConstraint(err))
	}

	return nil
}

// AccountByLoginOrEmail находит аккаунт по логину или email.
func (s *Storage) AccountByLoginOrEmail(ctx context.Context, identifier string) (*models.Account, error) {
	const op = "storage.sqlite.AccountByLoginOrEmail"

	query := `SELECT ` + accountColumns + ` FROM users
		WHERE login = ? OR email = ?
		ORDER BY (login = ?) DESC
		LIMIT 1`

	return s.getAccount(ctx, op, query, identifier, identifier, identifier)
}

// AccountByID находит аккаунт по ID.
func (s *Storage) AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "storage.sqlite.AccountByID"

	return s.getAccount(ctx, op, `SELECT `+accountColumns+` FROM users WHERE id = ?`, id)
}

// AccountByLogin находит аккаунт по логину.
func (s *Storage) AccountByLogin(ctx context.Context, login string) (*models.Account, error) {
	const op = "storage.sqlite.AccountByLogin"

	return s.getAccount(ctx, op, `SELECT `+accountColumns+` FROM users WHERE login = ?`, login)
}

// AccountByEmail находит аккаунт по email.
func (s *Storage) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.sqlite.AccountByEmail"

	return s.getAccount(ctx, op, `SELECT `+accountColumns+` FROM users WHERE email = ?`, email)
}

// UpdateAccount перезаписывает изменяемые поля аккаунта.
func (s *Storage) UpdateAccount(ctx context.Context, account *models.Account) error {
	const op = "storage.sqlite.UpdateAccount"

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET first_name = ?, last_name = ?, login = ?, password_hash = ?, is_active = ?
		WHERE id = ?
	`,
		account.FirstName,
		account.LastName,
		account.Login,
		account.PasswordHash,
		account.IsActive,
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapConstraint(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) getAccount(ctx context.Context, op, query string, args ...any) (*models.Account, error) {
	var row accountRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return row.toModel(), nil
}
