package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	err = client.FlushDB(ctx).Err()
	require.NoError(t, err)

	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = client.FlushDB(ctx).Err()
	_ = client.Close()
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(nil)
	assert.Error(t, err)
	assert.Nil(t, s)

	s, err = NewStore(redis.NewClient(&redis.Options{Addr: "localhost:6379"}))
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestStore_DedupRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	s, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()
	txHash := "0xABCDEF0123"

	processed, err := s.HasProcessed(ctx, txHash)
	assert.NoError(t, err)
	assert.False(t, processed)

	err = s.MarkProcessed(ctx, txHash, time.Hour)
	assert.NoError(t, err)

	processed, err = s.HasProcessed(ctx, txHash)
	assert.NoError(t, err)
	assert.True(t, processed)

	// Key is lowercased, so casing variants hit the same record
	processed, err = s.HasProcessed(ctx, "0xabcdef0123")
	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestStore_CooldownAcquire(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	s, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	ok, err := s.TryAcquireCooldown(ctx, 42, 500*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, ok)

	// Second acquire within the window is denied
	ok, err = s.TryAcquireCooldown(ctx, 42, 500*time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, ok)

	// One identity's cooldown does not block another
	ok, err = s.TryAcquireCooldown(ctx, 43, 500*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, ok)

	// After the window elapses the slot is free again
	time.Sleep(600 * time.Millisecond)
	ok, err = s.TryAcquireCooldown(ctx, 42, 500*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_Watermark(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	s, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	block, err := s.LastProcessedBlock(ctx)
	assert.NoError(t, err)
	assert.Zero(t, block)

	require.NoError(t, s.SetLastProcessedBlock(ctx, 1234567))

	block, err = s.LastProcessedBlock(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1234567), block)
}

func TestStore_GraphRoundTrip(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	s, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = s.GetGraph(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	accounts := []FollowedAccount{
		{ID: 100, Wallets: []string{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}},
		{ID: 200, Wallets: []string{"0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", "0xcccccccccccccccccccccccccccccccccccccccc"}},
	}
	require.NoError(t, s.SaveGraph(ctx, 7, accounts, time.Hour))

	got, err := s.GetGraph(ctx, 7)
	assert.NoError(t, err)
	assert.Equal(t, accounts, got)

	// Reverse index was populated as a side effect of the save
	followers, err := s.Followers(ctx, "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	assert.NoError(t, err)
	assert.Equal(t, []int64{7}, followers)

	// Deleting the cached graph keeps the reverse index intact
	require.NoError(t, s.DeleteGraph(ctx, 7))

	_, err = s.GetGraph(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	followers, err = s.Followers(ctx, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	assert.NoError(t, err)
	assert.Equal(t, []int64{7}, followers)
}

func TestStore_ReverseIndexAccumulates(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	s, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()
	wallet := "0xdddddddddddddddddddddddddddddddddddddddd"

	require.NoError(t, s.SaveGraph(ctx, 1, []FollowedAccount{{ID: 9, Wallets: []string{wallet}}}, time.Hour))
	require.NoError(t, s.SaveGraph(ctx, 2, []FollowedAccount{{ID: 9, Wallets: []string{wallet}}}, time.Hour))

	followers, err := s.Followers(ctx, wallet)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, followers)
}

func TestStore_Subscription(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	s, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	subscribed, err := s.IsSubscribed(ctx, 5)
	assert.NoError(t, err)
	assert.False(t, subscribed)

	require.NoError(t, s.SetSubscribed(ctx, 5))

	subscribed, err = s.IsSubscribed(ctx, 5)
	assert.NoError(t, err)
	assert.True(t, subscribed)

	require.NoError(t, s.ClearSubscribed(ctx, 5))

	subscribed, err = s.IsSubscribed(ctx, 5)
	assert.NoError(t, err)
	assert.False(t, subscribed)
}

func TestStore_Watchlist(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	s, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()
	wallet := "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

	require.NoError(t, s.WatchlistAdd(ctx, 1, 100))
	require.NoError(t, s.WatchlistAdd(ctx, 1, 200))
	require.NoError(t, s.AddWatching(ctx, 1, []string{wallet}))

	members, err := s.WatchlistMembers(ctx, 1)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int64{100, 200}, members)

	watching, err := s.Watching(ctx, wallet)
	assert.NoError(t, err)
	assert.Equal(t, []int64{1}, watching)

	require.NoError(t, s.WatchlistRemove(ctx, 1, 100))
	require.NoError(t, s.RemoveWatching(ctx, 1, []string{wallet}))

	members, err = s.WatchlistMembers(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, []int64{200}, members)

	watching, err = s.Watching(ctx, wallet)
	assert.NoError(t, err)
	assert.Empty(t, watching)

	require.NoError(t, s.WatchlistClear(ctx, 1))

	members, err = s.WatchlistMembers(ctx, 1)
	assert.NoError(t, err)
	assert.Empty(t, members)
}
