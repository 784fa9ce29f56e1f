package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/monsignal/signal-engine/internal/directory"
	"github.com/monsignal/signal-engine/internal/models"
	"github.com/monsignal/signal-engine/internal/store"
)

// FollowSource is the slice of the directory service the graph needs.
type FollowSource interface {
	Following(ctx context.Context, id int64, maxPages int) ([]directory.Follow, error)
}

// Service maintains the materialized social graph: a cached follow list per
// subscriber, the wallet-keyed reverse index derived from it, the
// subscription flags, and the explicit per-user watchlist.
type Service struct {
	store    *store.Store
	dir      FollowSource
	logger   *logrus.Logger
	graphTTL time.Duration
	maxPages int
}

// ServiceConfig holds the dependencies for a graph Service.
type ServiceConfig struct {
	Store    *store.Store
	Dir      FollowSource
	Logger   *logrus.Logger
	GraphTTL time.Duration
	MaxPages int
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.GraphTTL <= 0 {
		cfg.GraphTTL = time.Hour
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 10
	}
	return &Service{
		store:    cfg.Store,
		dir:      cfg.Dir,
		logger:   cfg.Logger,
		graphTTL: cfg.GraphTTL,
		maxPages: cfg.MaxPages,
	}
}

// BuildGraph returns the subscriber's social graph entry, fetching and
// caching it when the cache is cold. Saving the entry also folds every
// (wallet -> subscriber) pair into the reverse index; those reverse entries
// never expire, staleness is handled by the subscription check on read.
func (s *Service) BuildGraph(ctx context.Context, id int64) ([]store.FollowedAccount, error) {
	cached, err := s.store.GetGraph(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	follows, err := s.dir.Following(ctx, id, s.maxPages)
	if err != nil {
		return nil, fmt.Errorf("fetch follow list for %d: %w", id, err)
	}

	accounts := make([]store.FollowedAccount, 0, len(follows))
	for _, follow := range follows {
		wallets := walletsOf(follow.User)
		if len(wallets) == 0 {
			continue
		}
		accounts = append(accounts, store.FollowedAccount{
			ID:      follow.User.ID,
			Wallets: wallets,
		})
	}

	if err := s.store.SaveGraph(ctx, id, accounts, s.graphTTL); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"id":       id,
		"accounts": len(accounts),
	}).Info("built social graph")

	return accounts, nil
}

// RefreshGraph drops the cached entry and rebuilds it, picking up new
// follows and wallets.
func (s *Service) RefreshGraph(ctx context.Context, id int64) error {
	if err := s.store.DeleteGraph(ctx, id); err != nil {
		return err
	}
	_, err := s.BuildGraph(ctx, id)
	return err
}

// ResolveWatchers returns every identity whose graph has ever included the
// wallet. The result may contain unsubscribed identities; callers filter
// through IsSubscribed.
func (s *Service) ResolveWatchers(ctx context.Context, wallet string) ([]int64, error) {
	return s.store.Followers(ctx, models.NormalizeAddress(wallet))
}

// Subscribe opts the identity in and synchronously builds its graph so the
// reverse index exists before any event can be matched against it.
func (s *Service) Subscribe(ctx context.Context, id int64) error {
	if err := s.store.SetSubscribed(ctx, id); err != nil {
		return err
	}
	if _, err := s.BuildGraph(ctx, id); err != nil {
		return err
	}
	return nil
}

// Unsubscribe clears the opted-in flag. Reverse-index entries are left in
// place on purpose: cleaning them up would be a distributed deletion, and
// the subscription check already excludes the identity from any fanout.
func (s *Service) Unsubscribe(ctx context.Context, id int64) error {
	return s.store.ClearSubscribed(ctx, id)
}

func (s *Service) IsSubscribed(ctx context.Context, id int64) (bool, error) {
	return s.store.IsSubscribed(ctx, id)
}

func walletsOf(user directory.User) []string {
	seen := make(map[string]struct{})
	wallets := make([]string, 0, len(user.VerifiedAddresses.EthAddresses)+1)

	add := func(addr string) {
		normalized := models.NormalizeAddress(addr)
		if normalized == "" {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		wallets = append(wallets, normalized)
	}

	for _, addr := range user.VerifiedAddresses.EthAddresses {
		add(addr)
	}
	add(user.CustodyAddress)

	return wallets
}
