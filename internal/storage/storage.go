package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pribylovaa/account-auth/internal/models"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности.
	ErrAlreadyExists = errors.New("already exists")
	// ErrLoginExists — логин занят; errors.Is(err, ErrAlreadyExists) тоже true.
	ErrLoginExists = fmt.Errorf("login %w", ErrAlreadyExists)
	// ErrEmailExists — email занят; errors.Is(err, ErrAlreadyExists) тоже true.
	ErrEmailExists = fmt.Errorf("email %w", ErrAlreadyExists)
)

// AccountStorage выполняет операции над аккаунтами.
type AccountStorage interface {
	// SaveAccount создает новый аккаунт.
	SaveAccount(ctx context.Context, account *models.Account) error
	// AccountByLoginOrEmail находит аккаунт, у которого логин или email
	// совпадает с identifier (точное сравнение). Совпадение по логину приоритетнее.
	AccountByLoginOrEmail(ctx context.Context, identifier string) (*models.Account, error)
	// AccountByID находит аккаунт по ID.
	AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	// AccountByLogin находит аккаунт по логину.
	AccountByLogin(ctx context.Context, login string) (*models.Account, error)
	// AccountByEmail находит аккаунт по email.
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	// UpdateAccount перезаписывает изменяемые поля аккаунта (логин, хэш пароля,
	// имя, активность) одной строкой.
	UpdateAccount(ctx context.Context, account *models.Account) error
}

// AuditStorage ведет журнал успешных входов (только добавление).
type AuditStorage interface {
	// AppendAudit добавляет запись о входе.
	AppendAudit(ctx context.Context, record *models.AuditRecord) error
	// AuditByAccount возвращает не более limit последних записей аккаунта,
	// от новых к старым.
	AuditByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.AuditRecord, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	AccountStorage
	AuditStorage
	Close()
}
