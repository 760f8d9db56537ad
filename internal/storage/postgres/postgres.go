package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pribylovaa/account-auth/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Storage struct {
	db *pgxpool.Pool
}

// New создает новое подключение к PostgreSQL.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Migrate применяет встроенные миграции goose через database/sql поверх пула.
// Возвращает число применённых миграций.
func (s *Storage) Migrate(ctx context.Context) (int, error) {
	const op = "storage.postgres.Migrate"

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sqlDB := stdlib.OpenDBFromPool(s.db)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, sub)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return len(results), nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.db.Close()
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
