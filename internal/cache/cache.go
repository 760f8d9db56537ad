// cache хранит указатель на последний выданный refresh-токен аккаунта (его jti).
//
// Указатель позволяет отличить актуальный refresh-токен от уже ротированного
// предшественника: ротация выполняется одним атомарным compare-and-swap.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyID — пустой jti в Remember/Rotate.
var ErrEmptyID = errors.New("empty token id")

// RotationCache — минимальный контракт хранилища указателей ротации.
type RotationCache interface {
	// Remember безусловно запоминает jti как актуальный для аккаунта на ttl.
	Remember(ctx context.Context, accountID uuid.UUID, jti string, ttl time.Duration) error
	// Rotate атомарно заменяет expected на next. Возвращает false, если
	// текущий указатель отсутствует или не равен expected.
	Rotate(ctx context.Context, accountID uuid.UUID, expected, next string, ttl time.Duration) (bool, error)
	// Close освобождает ресурсы.
	Close() error
}
