package store

import (
	"context"
	"fmt"
)

// Watchlist state is separate from the follow graph: it is an explicit
// per-user list of identities to watch, with its own wallet-keyed reverse
// sets used by the webhook ingestion path.

func (s *Store) WatchlistAdd(ctx context.Context, userID, targetID int64) error {
	if err := s.client.SAdd(ctx, keyWatchlist(userID), targetID).Err(); err != nil {
		return fmt.Errorf("watchlist add: %w", err)
	}
	return nil
}

func (s *Store) WatchlistRemove(ctx context.Context, userID, targetID int64) error {
	if err := s.client.SRem(ctx, keyWatchlist(userID), targetID).Err(); err != nil {
		return fmt.Errorf("watchlist remove: %w", err)
	}
	return nil
}

func (s *Store) WatchlistClear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, keyWatchlist(userID)).Err(); err != nil {
		return fmt.Errorf("watchlist clear: %w", err)
	}
	return nil
}

func (s *Store) WatchlistMembers(ctx context.Context, userID int64) ([]int64, error) {
	members, err := s.client.SMembers(ctx, keyWatchlist(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("watchlist members: %w", err)
	}
	return parseIDs(members), nil
}

// AddWatching registers userID for notifications on activity of the given
// wallets.
func (s *Store) AddWatching(ctx context.Context, userID int64, wallets []string) error {
	if len(wallets) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, wallet := range wallets {
		pipe.SAdd(ctx, keyWatching(wallet), userID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add watching: %w", err)
	}
	return nil
}

// RemoveWatching drops userID from the reverse sets of the given wallets.
func (s *Store) RemoveWatching(ctx context.Context, userID int64, wallets []string) error {
	if len(wallets) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, wallet := range wallets {
		pipe.SRem(ctx, keyWatching(wallet), userID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove watching: %w", err)
	}
	return nil
}

// Watching returns every identity that explicitly watches the wallet.
func (s *Store) Watching(ctx context.Context, wallet string) ([]int64, error) {
	members, err := s.client.SMembers(ctx, keyWatching(wallet)).Result()
	if err != nil {
		return nil, fmt.Errorf("get watching: %w", err)
	}
	return parseIDs(members), nil
}
