package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = Close() })
	return mr
}

func TestHealthCheck(t *testing.T) {
	SetClient(nil)
	assert.Error(t, HealthCheck())

	setupMiniredis(t)
	assert.True(t, Enabled())
	assert.NoError(t, HealthCheck())
}

func TestPresence(t *testing.T) {
	mr := setupMiniredis(t)

	require.NoError(t, SetUserPresence(2, "bob", true))
	require.NoError(t, SetUserPresence(1, "alice", true))

	ids, err := GetOnlineUsers()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, ids)

	p, err := GetUserPresence(1)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.True(t, p.Online)
	assert.Equal(t, PresenceTTL, mr.TTL(presenceKey(1)))

	require.NoError(t, RefreshUserPresence(1))

	require.NoError(t, SetUserPresence(2, "bob", false))
	online, err := IsUserOnline(2)
	require.NoError(t, err)
	assert.False(t, online)
	p, err = GetUserPresence(2)
	require.NoError(t, err)
	assert.False(t, p.Online)
}

func TestCleanExpiredPresence(t *testing.T) {
	mr := setupMiniredis(t)

	require.NoError(t, SetUserPresence(1, "alice", true))
	require.NoError(t, SetUserPresence(2, "bob", true))
	mr.FastForward(PresenceTTL + time.Second)
	require.NoError(t, SetUserPresence(2, "bob", true))

	removed, err := CleanExpiredPresence()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ids, err := GetOnlineUsers()
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, ids)

	assert.Error(t, RefreshUserPresence(1))
}

func TestOfflineQueue(t *testing.T) {
	mr := setupMiniredis(t)
	q := OfflineQueue{}

	require.NoError(t, q.Push("carol", "/queue/messages", []byte("one")))
	require.NoError(t, q.Push("carol", "/queue/messages", []byte("two")))
	require.NoError(t, q.Push("carol", "/queue/other", []byte("x")))

	stored, err := mr.List(offlineKey("carol", "/queue/messages"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, stored)
	assert.True(t, mr.TTL(offlineKey("carol", "/queue/messages")) > 0)

	total, err := q.PendingTotal()
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	pending, err := q.Drain("carol", "/queue/messages")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "one", string(pending[0].Body))
	assert.Equal(t, "two", string(pending[1].Body))
	assert.Equal(t, "/queue/messages", pending[0].Destination)

	pending, err = q.Drain("carol", "/queue/messages")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOfflineQueue_KeepsNewest(t *testing.T) {
	setupMiniredis(t)
	q := OfflineQueue{}

	for i := 0; i < OfflineMessagesMax+5; i++ {
		require.NoError(t, q.Push("dave", "/queue/messages", []byte{byte(i)}))
	}
	pending, err := q.Drain("dave", "/queue/messages")
	require.NoError(t, err)
	require.Len(t, pending, OfflineMessagesMax)
	assert.Equal(t, []byte{5}, pending[0].Body)
}

func TestNotInitialized(t *testing.T) {
	SetClient(nil)
	assert.Error(t, SetUserPresence(1, "a", true))
	assert.Error(t, OfflineQueue{}.Push("a", "/queue/x", nil))
}

func TestPresenceCache(t *testing.T) {
	mr := setupMiniredis(t)
	cache := PresenceCache{}
	require.NoError(t, SetUserPresence(3, "dave", true))

	mr.FastForward(PresenceTTL / 2)
	require.NoError(t, cache.RefreshUserPresence(3))
	assert.Equal(t, PresenceTTL, mr.TTL(presenceKey(3)))

	mr.FastForward(PresenceTTL + time.Second)
	assert.Error(t, cache.RefreshUserPresence(3))
	n, err := cache.CleanExpiredPresence()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
