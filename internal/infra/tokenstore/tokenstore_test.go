package tokenstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgeros/console-bfa-go/internal/infra/tokenstore"
)

func TestFile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := tokenstore.NewFile(path)

	token, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "missing file means no token")

	require.NoError(t, store.Save(ctx, "tok-1"))
	require.NoError(t, store.Save(ctx, "tok-2"))

	token, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Delete(ctx))
	require.NoError(t, store.Delete(ctx), "second delete is a no-op")

	token, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestRedis_RoundTrip(t *testing.T) {
	url := os.Getenv("LEDGEROS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LEDGEROS_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	store, err := tokenstore.NewRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Delete(ctx)
		_ = store.Close()
	})

	require.NoError(t, store.Save(ctx, "tok"))
	token, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	require.NoError(t, store.Delete(ctx))
	token, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}
