package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/crispydelights/storefront/pkg/errors"
)

func setupTestRedis(t *testing.T) (goredis.UniversalClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

const snapshot = `[{"id":1,"name":"Classic Crispy Bucket","price":"$19.99","image":"/images/crispy-bucket.jpg","quantity":1}]`

func TestSnapshotStore_SaveAndLoad(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSnapshotStore(client, 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "cart:s1", []byte(snapshot)))

	got, err := store.Load(ctx, "cart:s1")
	require.NoError(t, err)
	assert.Equal(t, snapshot, string(got))
	assert.Equal(t, time.Duration(0), mr.TTL("cart:s1"))
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewSnapshotStore(client, 0)

	_, err := store.Load(context.Background(), "cart:nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSnapshotStore_TTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSnapshotStore(client, 2*time.Hour)

	require.NoError(t, store.Save(context.Background(), "cart:s1", []byte(snapshot)))
	assert.Equal(t, 2*time.Hour, mr.TTL("cart:s1"))

	mr.FastForward(3 * time.Hour)
	_, err := store.Load(context.Background(), "cart:s1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSnapshotStore_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSnapshotStore(client, 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "cart:s1", []byte(snapshot)))
	require.NoError(t, store.Delete(ctx, "cart:s1"))
	assert.False(t, mr.Exists("cart:s1"))

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(ctx, "cart:s1"))
}

func TestSnapshotStore_ConnectionError(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewSnapshotStore(client, 0)
	mr.Close()

	ctx := context.Background()
	_, err := store.Load(ctx, "cart:s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)

	assert.Error(t, store.Save(ctx, "cart:s1", []byte(snapshot)))
	assert.Error(t, store.Delete(ctx, "cart:s1"))
}
