package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pribylovaa/account-auth/internal/models"
)

// AppendAudit добавляет запись о входе в auth_history.
func (s *Storage) AppendAudit(ctx context.Context, record *models.AuditRecord) error {
	const op = "storage.postgres.AppendAudit"

	query := `
		INSERT INTO auth_history(user_id, login_time, user_agent)
		VALUES ($1, $2, $3)
	`

	if _, err := s.db.Exec(ctx, query, record.AccountID, record.LoginTime, record.UserAgent); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AuditByAccount возвращает последние записи аккаунта, от новых к старым.
func (s *Storage) AuditByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.AuditRecord, error) {
	const op = "storage.postgres.AuditByAccount"

	query := `
		SELECT user_id, login_time, user_agent
		FROM auth_history
		WHERE user_id = $1
		ORDER BY login_time DESC, id DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	records := make([]models.AuditRecord, 0, limit)
	for rows.Next() {
		var r models.AuditRecord
		if err := rows.Scan(&r.AccountID, &r.LoginTime, &r.UserAgent); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return records, nil
}
