// sqlite — локальное хранилище аккаунтов и журнала входов на SQLite (sqlx + go-sqlite3).
// Подходит для разработки и тестов; схема та же, что у postgres.
package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/pribylovaa/account-auth/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Storage struct {
	db *sqlx.DB
}

// New открывает базу SQLite по DSN (например, "file:auth.db" или ":memory:").
func New(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// SQLite сериализует запись; одно соединение исключает SQLITE_BUSY и
	// сохраняет базу ":memory:" между запросами.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Migrate применяет встроенные миграции goose. Возвращает число применённых миграций.
func (s *Storage) Migrate(ctx context.Context) (int, error) {
	const op = "storage.sqlite.Migrate"

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db.DB, sub)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return len(results), nil
}

// Close закрывает базу.
func (s *Storage) Close() {
	_ = s.db.Close()
}

// mapConstraint переводит нарушение уникальности SQLite в ошибку storage.
func mapConstraint(err error) error {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) {
		return err
	}

	switch sqErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique:
		msg := sqErr.Error()
		switch {
		case strings.Contains(msg, "users.login"):
			return storage.ErrLoginExists
		case strings.Contains(msg, "users.email"):
			return storage.ErrEmailExists
		}
		return storage.ErrAlreadyExists
	case sqlite3.ErrConstraintPrimaryKey:
		return storage.ErrAlreadyExists
	}

	return err
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
