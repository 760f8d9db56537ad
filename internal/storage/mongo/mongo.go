// mongo — журнал входов в MongoDB (альтернативный backend для audit.backend=mongo).
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pribylovaa/account-auth/internal/storage"
)

const (
	auditCollection = "auth_history"
	defaultDBName   = "auth"
)

// Audit — тонкий адаптер журнала входов поверх коллекции MongoDB.
type Audit struct {
	client  *mongodriver.Client
	history *mongodriver.Collection
}

// New подключается к MongoDB, проверяет соединение и обеспечивает индексы.
func New(ctx context.Context, uri string) (*Audit, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	a := &Audit{
		client:  cli,
		history: cli.Database(databaseFromURI(uri)).Collection(auditCollection),
	}

	if err := a.ensureIndexes(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	return a, nil
}

// Close отключает клиента.
func (a *Audit) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}

// ensureIndexes создает индекс для выборки истории аккаунта от новых к старым.
func (a *Audit) ensureIndexes(ctx context.Context) error {
	model := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "login_time", Value: -1}},
		Options: options.Index().SetName("account_login_time_desc"),
	}

	if _, err := a.history.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}

var _ storage.AuditStorage = (*Audit)(nil)
