package redis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// setupTestClient starts a throwaway Redis container and returns a
// connected client. The cleanup function must be called after the test
// completes.
func setupTestClient(t *testing.T) (*Client, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err, "failed to get connection string")

	client, err := New(ctx, ClientConfig{
		Addr: strings.TrimPrefix(uri, "redis://"),
	})
	require.NoError(t, err, "failed to connect")

	cleanup := func() {
		_ = client.Close()
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return client, cleanup
}
