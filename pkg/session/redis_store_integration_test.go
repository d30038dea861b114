//go:build integration

package session

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "start Redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})

	t.Cleanup(func() {
		client.Close()
		container.Terminate(ctx)
	})

	return client
}

func TestRedisStore_Integration_Expiry(t *testing.T) {
	client := setupRedisContainer(t)
	store := NewRedisStore(client, time.Second)
	ctx := context.Background()

	s := New(12)
	s.ApplySelectionChange(testSelection(1, 2, 3))
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Selection, 3)

	time.Sleep(1500 * time.Millisecond)

	_, err = store.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Integration_SharedBetweenStores(t *testing.T) {
	client := setupRedisContainer(t)
	ctx := context.Background()

	writer := NewRedisStore(client, time.Minute)
	reader := NewRedisStore(client, time.Minute)

	s := New(20)
	require.NoError(t, s.ApplyPageChange(40, 20))
	require.NoError(t, writer.Save(ctx, s))

	got, err := reader.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.PageIndex)
	require.Equal(t, 20, got.PageSize)
}
