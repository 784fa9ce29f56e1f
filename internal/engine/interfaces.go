package engine

import (
	"context"

	"github.com/monsignal/signal-engine/internal/directory"
	"github.com/monsignal/signal-engine/internal/models"
)

// EventSource supplies recent transfer events, newest first, best-effort
// fresh.
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]models.TradeEvent, error)
}

// WalletResolver maps wallet addresses to the identities controlling them.
type WalletResolver interface {
	IdentitiesForWallets(ctx context.Context, addresses []string) (map[string][]directory.User, error)
}

// WatcherIndex is the slice of the graph service the dispatcher needs:
// reverse lookup plus the subscription filter that compensates for the
// index's accepted staleness.
type WatcherIndex interface {
	ResolveWatchers(ctx context.Context, wallet string) ([]int64, error)
	IsSubscribed(ctx context.Context, id int64) (bool, error)
}

// Sink accepts one notification batch. Delivery is fire-and-forget.
type Sink interface {
	Publish(ctx context.Context, ids []int64, title, body, targetURL string) error
}
