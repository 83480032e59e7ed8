package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_Expiry(t *testing.T) {
	b := NewMemoryBackend(0)
	defer b.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, b.Set(ctx, "forever", []byte("2"), 0))

	now = now.Add(59 * time.Second)
	raw, err := b.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), raw)

	now = now.Add(time.Second)
	_, err = b.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)

	ok, err := b.Exists(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryBackend_JanitorEvicts(t *testing.T) {
	b := NewMemoryBackend(0)
	defer b.Close()

	now := time.Now()
	b.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "a", []byte("x"), time.Second))
	require.NoError(t, b.Set(ctx, "b", []byte("y"), time.Hour))

	now = now.Add(2 * time.Second)
	b.evictExpired()
	assert.Equal(t, 1, b.Len())
}

func TestMemoryBackend_ConcurrentAccess(t *testing.T) {
	b := NewMemoryBackend(10 * time.Millisecond)
	defer b.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := UserKey(int64(n % 4))
			for j := 0; j < 100; j++ {
				_ = b.Set(ctx, key, []byte("v"), time.Minute)
				_, _ = b.Get(ctx, key)
				_ = b.Del(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryBackend_CloseIsIdempotent(t *testing.T) {
	b := NewMemoryBackend(time.Millisecond)
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}

func newMiniredisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBackendFromClient(client), mr
}

func TestRedisBackend_Operations(t *testing.T) {
	b, mr := newMiniredisBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "product:1", []byte(`{"id":1}`), 10*time.Minute))
	raw, err := b.Get(ctx, "product:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(raw))
	assert.Equal(t, 10*time.Minute, mr.TTL("product:1"))

	ok, err := b.Exists(ctx, "product:1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.Del(ctx, "product:1", "product:2"))
	_, err = b.Get(ctx, "product:1")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, b.Del(ctx))
	assert.NoError(t, b.Ping(ctx))
}

func TestRedisBackend_TTLExpiry(t *testing.T) {
	b, mr := newMiniredisBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "blacklist:tok", []byte(`"2026-01-01T00:00:00Z"`), 7*24*time.Hour))

	mr.FastForward(7*24*time.Hour - time.Second)
	ok, err := b.Exists(ctx, "blacklist:tok")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Second)
	ok, err = b.Exists(ctx, "blacklist:tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBackend_ServerDownDegradesStore(t *testing.T) {
	b, mr := newMiniredisBackend(t)
	store := NewStore(b, nil)
	ctx := context.Background()

	require.True(t, store.Set(ctx, "user:1", map[string]int{"id": 1}, time.Hour))
	mr.Close()

	var dest map[string]int
	assert.False(t, store.Get(ctx, "user:1", &dest))
	assert.False(t, store.Exists(ctx, "blacklist:x"))
	assert.False(t, store.Set(ctx, "user:1", dest, time.Hour))
}

func TestNewRedisBackend_BadURL(t *testing.T) {
	_, err := NewRedisBackend(context.Background(), "not-a-url", 5)
	assert.Error(t, err)
}

func TestNewRedisBackend_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBackend(context.Background(), "redis://"+mr.Addr()+"/0", 5)
	require.NoError(t, err)
	defer b.Close()

	assert.NoError(t, b.Ping(context.Background()))
}

func TestRedisBackend_VersionStampsExpire(t *testing.T) {
	b, mr := newMiniredisBackend(t)
	store := NewStore(b, nil)
	ctx := context.Background()

	require.NotEmpty(t, store.Version(ctx, OrdersNamespace(42)))
	assert.Greater(t, mr.TTL(VersionKey(OrdersNamespace(42))), time.Duration(0))
	assert.Equal(t, VersionTTL, mr.TTL(VersionKey(OrdersNamespace(42))))

	require.True(t, store.BumpVersion(ctx, NamespaceProducts))
	assert.Greater(t, mr.TTL(VersionKey(NamespaceProducts)), time.Duration(0))

	mr.FastForward(VersionTTL)
	assert.False(t, mr.Exists(VersionKey(NamespaceProducts)))
	assert.NotEmpty(t, store.Version(ctx, NamespaceProducts))
}
