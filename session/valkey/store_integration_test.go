//go:build integration

package valkey_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	valkeycontainer "github.com/testcontainers/testcontainers-go/modules/valkey"
	"github.com/valkey-io/valkey-go"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/session/sessiontest"
	valkeystore "github.com/MrEthical07/goSession/session/valkey"
)

func TestStoreConformance(t *testing.T) {
	ctx := context.Background()

	container, err := valkeycontainer.Run(ctx, "valkey/valkey:8-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	port, err := container.MappedPort(ctx, nat.Port("6379"))
	require.NoError(t, err)

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{net.JoinHostPort("localhost", port.Port())},
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	sessiontest.Run(t, func(t *testing.T, now func() time.Time) session.Store {
		require.NoError(t, client.Do(ctx, client.B().Flushall().Build()).Error())
		return valkeystore.NewStore(client, "gs", now)
	})
}
