//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/session/postgres"
	"github.com/MrEthical07/goSession/session/sessiontest"
)

const (
	dbUser     = "postgres"
	dbPassword = "secret"
	dbName     = "gosession"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername(dbUser),
		tcpostgres.WithPassword(dbPassword),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	port, err := container.MappedPort(ctx, nat.Port("5432"))
	require.NoError(t, err)

	hostPort := net.JoinHostPort("localhost", port.Port())
	url := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", dbUser, dbPassword, hostPort, dbName)
	require.NoError(t, postgres.Migrate(postgres.MigrationDSN(url)))
	// A second run must be a no-op.
	require.NoError(t, postgres.Migrate(postgres.MigrationDSN(url)))

	pool, err := postgres.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestStoreConformance(t *testing.T) {
	pool := startPostgres(t)

	sessiontest.Run(t, func(t *testing.T, now func() time.Time) session.Store {
		_, err := pool.Exec(context.Background(), `TRUNCATE sessions`)
		require.NoError(t, err)
		return postgres.NewStore(pool, now)
	})
}

func TestPurgeExpired(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	clock := sessiontest.NewClock(time.UnixMilli(1_700_000_000_000))
	s := postgres.NewStore(pool, clock.Now)

	require.NoError(t, s.Put(ctx, sessiontest.NewRecord("h1", "alice", clock.Now())))
	clock.Advance(2 * time.Hour)
	require.NoError(t, s.Put(ctx, sessiontest.NewRecord("h2", "alice", clock.Now())))

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	handles, err := s.ListByUser(ctx, "t1", "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"h2"}, handles)
}
