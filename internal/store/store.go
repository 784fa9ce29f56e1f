package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/monsignal/signal-engine/internal/models"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps the external key/value + set store with the engine's key
// shapes. All durable engine state lives behind it; the engine itself keeps
// no long-lived in-process state.
type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

// Key shapes are part of the external contract and must not change: the
// surrounding app and its tests address the same records.
func keyFollowing(id int64) string { return fmt.Sprintf("following:%d", id) }

func keyFollowers(wallet string) string { return "followers:" + models.NormalizeAddress(wallet) }

func keySubscribed(id int64) string { return fmt.Sprintf("subscribed:%d", id) }

func keyWatchlist(id int64) string { return fmt.Sprintf("watchlist:%d", id) }

func keyWatching(wallet string) string { return "watching:" + models.NormalizeAddress(wallet) }

func keyProcessed(txHash string) string { return "processed:" + strings.ToLower(txHash) }

func keyCooldown(id int64) string { return fmt.Sprintf("notif_cooldown:%d", id) }

const keyLastBlock = "last_processed_block"
