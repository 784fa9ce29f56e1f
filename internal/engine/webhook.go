package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/monsignal/signal-engine/internal/models"
	"github.com/monsignal/signal-engine/internal/signal"
)

// WebhookResult summarizes one webhook-delivered event.
type WebhookResult struct {
	AlreadyProcessed  bool
	TotalWatchers     int
	NotificationsSent int
}

// ProcessWatchedTrade handles a single event pushed by the indexer webhook.
// Unlike the poll path, watchers come from the explicit watchlist sets
// (`watching:{wallet}`) and both non-zero endpoints of the transfer count.
// The dedup mark is written right after the check, before any fanout work:
// the webhook is retried by the sender, so shrinking the duplicate window
// matters more than retrying a half-done fanout.
func (d *Dispatcher) ProcessWatchedTrade(ctx context.Context, trade models.TradeEvent, dedupTTL time.Duration) (WebhookResult, error) {
	processed, err := d.store.HasProcessed(ctx, trade.TxHash)
	if err != nil {
		return WebhookResult{}, err
	}
	if processed {
		return WebhookResult{AlreadyProcessed: true}, nil
	}
	if err := d.store.MarkProcessed(ctx, trade.TxHash, dedupTTL); err != nil {
		return WebhookResult{}, err
	}

	var addresses []string
	for _, addr := range []string{trade.FromAddress, trade.ToAddress} {
		if !models.IsZeroAddress(addr) {
			addresses = append(addresses, models.NormalizeAddress(addr))
		}
	}

	watcherSet := make(map[int64]struct{})
	for _, addr := range addresses {
		watchers, err := d.store.Watching(ctx, addr)
		if err != nil {
			return WebhookResult{}, fmt.Errorf("resolve watchlist watchers: %w", err)
		}
		for _, id := range watchers {
			watcherSet[id] = struct{}{}
		}
	}
	if len(watcherSet) == 0 {
		return WebhookResult{}, nil
	}

	username := "Someone"
	if len(addresses) > 0 {
		users, err := d.dir.IdentitiesForWallets(ctx, addresses)
		if err != nil {
			d.logger.WithError(err).Warn("trader identity lookup failed")
		} else {
			for _, addr := range addresses {
				if matches := users[addr]; len(matches) > 0 {
					username = matches[0].Username
					break
				}
			}
		}
	}

	eligible := make([]int64, 0, len(watcherSet))
	for id := range watcherSet {
		ok, err := d.store.TryAcquireCooldown(ctx, id, d.cooldown)
		if err != nil {
			d.logger.WithError(err).WithField("id", id).Warn("cooldown acquire failed")
			continue
		}
		if ok {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return WebhookResult{TotalWatchers: len(watcherSet)}, nil
	}

	verb := actionVerb(signal.Classify(trade).Type)
	symbol := trade.TokenAddress
	if len(symbol) > 6 {
		symbol = symbol[:6]
	}
	title := fmt.Sprintf("%s %s", username, verb)
	body := fmt.Sprintf("Just %s %s... on Monad. Tap to copy trade.", verb, symbol)
	targetURL := fmt.Sprintf("%s?signal=%s", d.appURL, trade.TxHash)

	sent := 0
	if err := d.sink.Publish(ctx, eligible, title, body, targetURL); err != nil {
		d.logger.WithError(err).WithField("tx", trade.TxHash).Error("notification delivery failed")
	} else {
		sent = len(eligible)
	}

	d.logger.WithFields(logrus.Fields{
		"tx":       trade.TxHash,
		"watchers": len(watcherSet),
		"sent":     sent,
	}).Info("watched trade processed")

	return WebhookResult{TotalWatchers: len(watcherSet), NotificationsSent: sent}, nil
}
