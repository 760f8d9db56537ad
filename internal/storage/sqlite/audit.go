package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/account-auth/internal/models"
)

type auditRow struct {
	AccountID uuid.UUID `db:"user_id"`
	LoginTime time.Time `db:"login_time"`
	UserAgent string    `db:"user_agent"`
}

// AppendAudit добавляет запись о входе.
func (s *Storage) AppendAudit(ctx context.Context, record *models.AuditRecord) error {
	const op = "storage.sqlite.AppendAudit"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_history(user_id, login_time, user_agent) VALUES (?, ?, ?)`,
		record.AccountID, record.LoginTime.UTC(), record.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AuditByAccount возвращает последние записи аккаунта, от новых к старым.
func (s *Storage) AuditByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.AuditRecord, error) {
	const op = "storage.sqlite.AuditByAccount"

	var rows []auditRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, login_time, user_agent
		FROM auth_history
		WHERE user_id = ?
		ORDER BY login_time DESC, id DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	records := make([]models.AuditRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, models.AuditRecord{
			AccountID: r.AccountID,
			LoginTime: r.LoginTime.UTC(),
			UserAgent: r.UserAgent,
		})
	}

	return records, nil
}
