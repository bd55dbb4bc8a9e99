//go:build integration

package redis

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/starship-shop/internal/domain/credits"
)

func TestStore_RealRedis(t *testing.T) {
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	addr, err := c.Endpoint(ctx, "")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	s := New(client, "it:")

	cs := credits.NewStore(s)
	balance, err := cs.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, balance)

	balance, err = cs.Add(315_000)
	require.NoError(t, err)
	_, err = cs.Save(ctx, balance)
	require.NoError(t, err)

	balance, err = credits.NewStore(s).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(315_000), balance)
}
