package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stores := map[string]Store{
		"redis":  NewRedisStore(client),
		"memory": NewMemoryStore(16, time.Hour),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrMiss)

			require.NoError(t, SetJSON(ctx, s, Key("role-permissions", "ops"), []string{"a:b:c"}, time.Hour))
			var got []string
			require.NoError(t, GetJSON(ctx, s, "role-permissions:ops", &got))
			assert.Equal(t, []string{"a:b:c"}, got)

			require.NoError(t, s.Del(ctx, "role-permissions:ops", "unknown"))
			_, err = s.Get(ctx, "role-permissions:ops")
			assert.ErrorIs(t, err, ErrMiss)

			require.NoError(t, s.Set(ctx, "bad", "{not json", time.Hour))
			assert.Error(t, GetJSON(ctx, s, "bad", &got))
		})
	}
}

func TestRedisStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "user-roles:7", `["ops"]`, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("user-roles:7"))

	mr.FastForward(time.Hour + time.Second)
	_, err := s.Get(ctx, "user-roles:7")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoreTTL(t *testing.T) {
	s := NewMemoryStore(4, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	assert.Eventually(t, func() bool {
		_, err := s.Get(ctx, "k")
		return err == ErrMiss
	}, time.Second, 10*time.Millisecond)
}
