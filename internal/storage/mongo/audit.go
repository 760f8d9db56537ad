package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/account-auth/internal/models"
)

// auditDoc — документ коллекции auth_history.
type auditDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	AccountID string             `bson:"account_id"`
	LoginTime time.Time          `bson:"login_time"`
	UserAgent string             `bson:"user_agent"`
}

// AppendAudit добавляет запись о входе.
func (a *Audit) AppendAudit(ctx context.Context, record *models.AuditRecord) error {
	const op = "storage.mongo.AppendAudit"

	doc := auditDoc{
		AccountID: record.AccountID.String(),
		LoginTime: record.LoginTime.UTC(),
		UserAgent: record.UserAgent,
	}

	if _, err := a.history.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AuditByAccount возвращает последние записи аккаунта, от новых к старым.
func (a *Audit) AuditByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.AuditRecord, error) {
	const op = "storage.mongo.AuditByAccount"

	opts := options.Find().
		SetSort(bson.D{{Key: "login_time", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := a.history.Find(ctx, bson.M{"account_id": accountID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	records := make([]models.AuditRecord, 0, limit)
	for cur.Next(ctx) {
		var d auditDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		id, err := uuid.Parse(d.AccountID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		records = append(records, models.AuditRecord{
			AccountID: id,
			LoginTime: d.LoginTime.UTC(),
			UserAgent: d.UserAgent,
		})
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return records, nil
}
