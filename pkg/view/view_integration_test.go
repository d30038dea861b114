//go:build integration

package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/artic-browser/internal/testutil"
	"github.com/Sternrassler/artic-browser/pkg/client"
	"github.com/Sternrassler/artic-browser/pkg/pagination"
	"github.com/Sternrassler/artic-browser/pkg/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start Redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisClient := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})

	return redisClient
}

func newRedisService(t *testing.T, redisClient *redis.Client, mock *testutil.MockArtic, limit int) *Service {
	t.Helper()

	cfg := client.DefaultConfig(redisClient, "ArticBrowser/1.0 (integration@test.local)")
	cfg.BaseURL = mock.URL()
	cfg.RateLimit = limit
	api, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { api.Close() })

	return NewService(api, session.NewRedisStore(redisClient, time.Minute), Config{PageSize: 10})
}

// TestIntegration_SessionSharedAcrossServices covers the full flow
// open -> page change -> auto-select on one instance, then reload on another.
func TestIntegration_SessionSharedAcrossServices(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockArtic(100)
	defer mock.Close()

	ctx := context.Background()
	first := newRedisService(t, redisClient, mock, 0)
	second := newRedisService(t, redisClient, mock, 0)

	v, err := first.Open(ctx)
	require.NoError(t, err)
	id := v.SessionID

	_, err = first.PageChange(ctx, id, 30, 10)
	require.NoError(t, err)

	_, run, err := first.AutoSelect(ctx, id, 15)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, run.Pages)

	loaded, err := second.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.PageIndex)
	assert.Equal(t, 100, loaded.Total)
	require.Len(t, loaded.Selection, 15)
	assert.Equal(t, int64(31), loaded.Selection[0].ID)
	assert.Equal(t, int64(45), loaded.Selection[14].ID)
	assert.Equal(t, session.DefaultPendingCount, loaded.PendingCount)

	require.NoError(t, second.Close(ctx, id))
	_, err = first.Load(ctx, id)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

// TestIntegration_AutoSelectStopsOnSpentBudget checks that a spent request
// budget ends the run as a failure and keeps what was gathered.
func TestIntegration_AutoSelectStopsOnSpentBudget(t *testing.T) {
	redisClient := setupRedis(t)
	mock := testutil.NewMockArtic(100)
	defer mock.Close()

	ctx := context.Background()
	svc := newRedisService(t, redisClient, mock, 2)

	v, err := svc.Open(ctx)
	require.NoError(t, err)

	state, run, err := svc.AutoSelect(ctx, v.SessionID, 25)
	require.NoError(t, err)

	assert.Equal(t, pagination.StopFailed, run.Stop)
	assert.True(t, errors.Is(run.Err, client.ErrRateLimited), "run error = %v", run.Err)
	assert.Len(t, state.Selection, 10)
	assert.Equal(t, 2, mock.GetRequestCount())
}
