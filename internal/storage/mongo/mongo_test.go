package mongo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/account-auth/internal/models"
)

// testTimeout — общий дедлайн на операции с БД в тестах.
const testTimeout = 10 * time.Second

// TestMain запускает MongoDB в контейнере один раз на весь пакет тестов.
// Адрес прокидывается в ENV AUDIT_MONGO_URL, каждый тест работает в своей БД.
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
	}

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("AUDIT_MONGO_URL", fmt.Sprintf("mongodb://%s:%s", host, port.Port()))

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

// newTestAudit подключается к отдельной тестовой БД.
func newTestAudit(t *testing.T) *Audit {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	base := strings.TrimSuffix(os.Getenv("AUDIT_MONGO_URL"), "/")
	uri := base + "/auth_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	a, err := New(ctx, uri)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = a.history.Database().Drop(ctx)
		_ = a.Close(ctx)
	})

	return a
}

func TestDatabaseFromURI(t *testing.T) {
	t.Parallel()

	require.Equal(t, "accounts", databaseFromURI("mongodb://localhost:27017/accounts"))
	require.Equal(t, defaultDBName, databaseFromURI("mongodb://localhost:27017"))
	require.Equal(t, defaultDBName, databaseFromURI("mongodb://localhost:27017/"))
	require.Equal(t, defaultDBName, databaseFromURI("::bad::"))
}

func TestNew_EmptyURI(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "")
	require.Error(t, err)
}

func TestIntegration_AppendAndList(t *testing.T) {
	a := newTestAudit(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	id := uuid.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, a.AppendAudit(ctx, &models.AuditRecord{
			AccountID: id,
			LoginTime: base.Add(time.Duration(i) * time.Minute),
			UserAgent: fmt.Sprintf("agent-%d", i),
		}))
	}
	require.NoError(t, a.AppendAudit(ctx, &models.AuditRecord{AccountID: uuid.New(), LoginTime: base, UserAgent: "other"}))

	all, err := a.AuditByAccount(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "agent-2", all[0].UserAgent)
	require.Equal(t, id, all[0].AccountID)
	require.True(t, all[0].LoginTime.Equal(base.Add(2*time.Minute)))

	two, err := a.AuditByAccount(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	require.Equal(t, "agent-1", two[1].UserAgent)
}
