package rulesource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aalemi-dev/apmbridge/rules"
)

func setupPostgres(t *testing.T) DatabaseConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:15",
			Env: map[string]string{
				"POSTGRES_USER":     "testuser",
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_DB":       "testdb",
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return DatabaseConfig{
		Host:        host,
		Port:        port.Port(),
		User:        "testuser",
		Password:    "testpass",
		DbName:      "testdb",
		SSLMode:     "disable",
		Name:        "checkout",
		AutoMigrate: true,
	}
}

func TestDatabaseSource_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	cfg := setupPostgres(t)
	ctx := context.Background()

	src, err := NewDatabaseSource(KindPostgres, cfg)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()
	assert.Equal(t, "postgres:rule_tables/checkout", src.Name())

	_, err = src.Fetch(ctx)
	assert.ErrorIs(t, err, ErrTableNotFound)

	require.NoError(t, src.Publish(ctx, []byte(olderTable)))
	require.NoError(t, src.Publish(ctx, []byte(newerTable)))
	assert.ErrorIs(t, src.Publish(ctx, []byte(invalidTable)), rules.ErrUnknownType)

	e, err := Load(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", e.Version())

	other := cfg
	other.Name = "billing"
	other.AutoMigrate = false
	otherSrc, err := NewDatabaseSource(KindPostgres, other)
	require.NoError(t, err)
	defer func() { _ = otherSrc.Close() }()
	_, err = otherSrc.Fetch(ctx)
	assert.ErrorIs(t, err, ErrTableNotFound, "rows of other tables are not visible")
}
