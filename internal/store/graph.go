package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// FollowedAccount is one entry of a cached social graph: a followed identity
// and the wallet addresses it controls (verified + custody, lowercased).
type FollowedAccount struct {
	ID      int64    `json:"id"`
	Wallets []string `json:"wallets"`
}

// GetGraph returns the cached social graph entry for an identity, or
// ErrNotFound when the cache is cold or expired.
func (s *Store) GetGraph(ctx context.Context, id int64) ([]FollowedAccount, error) {
	val, err := s.client.Get(ctx, keyFollowing(id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get graph: %w", err)
	}

	var accounts []FollowedAccount
	if err := json.Unmarshal([]byte(val), &accounts); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}
	return accounts, nil
}

// SaveGraph persists a built social graph entry with a TTL and, in the same
// pipeline, folds every (wallet -> identity) pair into the reverse index.
// The reverse index sets carry no expiry: they accumulate, and staleness is
// filtered out at read time by the subscription check.
func (s *Store) SaveGraph(ctx context.Context, id int64, accounts []FollowedAccount, ttl time.Duration) error {
	b, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyFollowing(id), b, ttl)
	for _, account := range accounts {
		for _, wallet := range account.Wallets {
			pipe.SAdd(ctx, keyFollowers(wallet), id)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}
	return nil
}

// DeleteGraph drops the cached entry so the next build refetches the follow
// list. Reverse-index entries are intentionally left in place.
func (s *Store) DeleteGraph(ctx context.Context, id int64) error {
	if err := s.client.Del(ctx, keyFollowing(id)).Err(); err != nil {
		return fmt.Errorf("delete graph: %w", err)
	}
	return nil
}

// Followers returns every identity whose cached graph has included the
// wallet. Entries may be stale; callers filter through IsSubscribed.
func (s *Store) Followers(ctx context.Context, wallet string) ([]int64, error) {
	members, err := s.client.SMembers(ctx, keyFollowers(wallet)).Result()
	if err != nil {
		return nil, fmt.Errorf("get followers: %w", err)
	}
	return parseIDs(members), nil
}

// SetSubscribed flips the opted-in flag for an identity.
func (s *Store) SetSubscribed(ctx context.Context, id int64) error {
	if err := s.client.Set(ctx, keySubscribed(id), "1", 0).Err(); err != nil {
		return fmt.Errorf("set subscribed: %w", err)
	}
	return nil
}

// ClearSubscribed removes the opted-in flag. Reverse-index entries for the
// identity stay behind and are filtered out on read.
func (s *Store) ClearSubscribed(ctx context.Context, id int64) error {
	if err := s.client.Del(ctx, keySubscribed(id)).Err(); err != nil {
		return fmt.Errorf("clear subscribed: %w", err)
	}
	return nil
}

// IsSubscribed reports whether the identity currently opted in.
func (s *Store) IsSubscribed(ctx context.Context, id int64) (bool, error) {
	val, err := s.client.Get(ctx, keySubscribed(id)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get subscribed: %w", err)
	}
	return val == "1", nil
}

func parseIDs(members []string) []int64 {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
