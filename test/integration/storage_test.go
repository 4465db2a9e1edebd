package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitbuilder587/fantasy-tales/internal/domain"
	"github.com/kitbuilder587/fantasy-tales/internal/storage"
	pgStore "github.com/kitbuilder587/fantasy-tales/internal/storage/postgres"
	redisStore "github.com/kitbuilder587/fantasy-tales/internal/storage/redis"
)

func uniqueKey(t *testing.T) string {
	return fmt.Sprintf("%s-%d:", t.Name(), time.Now().UnixNano())
}

func backends(t *testing.T) map[string]storage.Store {
	t.Helper()
	ctx := context.Background()

	rs, err := redisStore.New(ctx, redisStore.Config{Addr: redisAddr, KeyPrefix: "fantasy-tales:"})
	require.NoError(t, err)
	t.Cleanup(func() { rs.Close() })

	return map[string]storage.Store{
		"postgres": pgStore.NewStore(testDB),
		"redis":    rs,
	}
}

func TestStore_RoundTrip_Integration(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			key := uniqueKey(t) + domain.HistoryKey

			_, ok, err := store.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok, "missing key reports ok=false")

			require.NoError(t, store.Set(ctx, key, `["one"]`))
			require.NoError(t, store.Set(ctx, key, `["two","one"]`))

			got, ok, err := store.Get(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `["two","one"]`, got)
		})
	}
}

func TestStore_ChatIsolation_Integration(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			base := uniqueKey(t)
			chat1 := storage.WithPrefix(store, base+"chat:1:")
			chat2 := storage.WithPrefix(store, base+"chat:2:")

			require.NoError(t, chat1.Set(ctx, domain.HistoryKey, `["for one"]`))

			_, ok, err := chat2.Get(ctx, domain.HistoryKey)
			require.NoError(t, err)
			assert.False(t, ok)

			got, ok, err := chat1.Get(ctx, domain.HistoryKey)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `["for one"]`, got)
		})
	}
}

func TestPostgresStore_Migrate_Idempotent(t *testing.T) {
	store := pgStore.NewStore(testDB)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Migrate(context.Background()))
}

func TestRedisStore_UsesPrefix_Integration(t *testing.T) {
	ctx := context.Background()
	prefixed, err := redisStore.New(ctx, redisStore.Config{Addr: redisAddr, KeyPrefix: "p1:"})
	require.NoError(t, err)
	defer prefixed.Close()

	other, err := redisStore.New(ctx, redisStore.Config{Addr: redisAddr, KeyPrefix: "p2:"})
	require.NoError(t, err)
	defer other.Close()

	key := uniqueKey(t)
	require.NoError(t, prefixed.Set(ctx, key, "v"))

	_, ok, err := other.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
