package graph

import (
	"context"
	"fmt"
)

// The watchlist is an explicit opt-in separate from the follow graph: the
// user picks individual accounts and gets notified on their wallet activity
// through the webhook path, regardless of cooldown-era graph cache state.

// WatchlistAdd puts the target on the user's watchlist and registers the
// user against every wallet the target controls.
func (s *Service) WatchlistAdd(ctx context.Context, userID, targetID int64) error {
	if err := s.store.WatchlistAdd(ctx, userID, targetID); err != nil {
		return err
	}
	wallets, err := s.targetWallets(ctx, userID, targetID)
	if err != nil {
		return err
	}
	return s.store.AddWatching(ctx, userID, wallets)
}

// WatchlistRemove takes the target off the watchlist and deregisters the
// user from the target's wallets.
func (s *Service) WatchlistRemove(ctx context.Context, userID, targetID int64) error {
	if err := s.store.WatchlistRemove(ctx, userID, targetID); err != nil {
		return err
	}
	wallets, err := s.targetWallets(ctx, userID, targetID)
	if err != nil {
		return err
	}
	return s.store.RemoveWatching(ctx, userID, wallets)
}

// WatchlistAddAll watches everyone the user follows. Returns the number of
// accounts added.
func (s *Service) WatchlistAddAll(ctx context.Context, userID int64) (int, error) {
	accounts, err := s.BuildGraph(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, account := range accounts {
		if err := s.store.WatchlistAdd(ctx, userID, account.ID); err != nil {
			return 0, err
		}
		if err := s.store.AddWatching(ctx, userID, account.Wallets); err != nil {
			return 0, err
		}
	}
	return len(accounts), nil
}

// WatchlistRemoveAll clears the watchlist and every wallet registration
// derived from the user's current graph.
func (s *Service) WatchlistRemoveAll(ctx context.Context, userID int64) error {
	if err := s.store.WatchlistClear(ctx, userID); err != nil {
		return err
	}
	accounts, err := s.BuildGraph(ctx, userID)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if err := s.store.RemoveWatching(ctx, userID, account.Wallets); err != nil {
			return err
		}
	}
	return nil
}

// Watchlist returns the identities the user currently watches.
func (s *Service) Watchlist(ctx context.Context, userID int64) ([]int64, error) {
	return s.store.WatchlistMembers(ctx, userID)
}

// targetWallets resolves the target's wallets through the user's own follow
// graph; a target the user does not follow has no resolvable wallets here.
func (s *Service) targetWallets(ctx context.Context, userID, targetID int64) ([]string, error) {
	accounts, err := s.BuildGraph(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve target wallets: %w", err)
	}
	for _, account := range accounts {
		if account.ID == targetID {
			return account.Wallets, nil
		}
	}
	return nil, nil
}
