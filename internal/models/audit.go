package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord — запись истории входов. Создаётся ровно один раз на каждый
// успешный логин и никогда не изменяется.
type AuditRecord struct {
	AccountID uuid.UUID
	LoginTime time.Time
	// UserAgent — описание клиента (обычно заголовок User-Agent).
	UserAgent string
}
