package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/monsignal/signal-engine/internal/models"
	"github.com/monsignal/signal-engine/internal/signal"
	"github.com/monsignal/signal-engine/internal/store"
)

// SkipReason explains why an event produced no notification.
type SkipReason string

const (
	ReasonAlreadyProcessed SkipReason = "already_processed"
	ReasonZeroAddress      SkipReason = "zero_address"
	ReasonNoIdentity       SkipReason = "no_identity"
	ReasonNoSubscribers    SkipReason = "no_subscribers"
	ReasonAllRateLimited   SkipReason = "all_rate_limited"
)

// Result is the terminal state of one event's pass through the dispatcher.
type Result struct {
	Dispatched        bool
	Reason            SkipReason // set only when skipped
	NotificationsSent int
}

// Dispatcher runs the per-event fanout: dedup, classify, resolve the trader
// identity, find watchers, filter by subscription and cooldown, deliver.
// Each event makes exactly one pass; every terminal path leaves the event
// marked processed, except a dedup hit (the mark already exists) and a
// transient upstream failure before any side effect was committed.
type Dispatcher struct {
	store  *store.Store
	dir    WalletResolver
	graph  WatcherIndex
	sink   Sink
	logger *logrus.Logger

	appURL   string
	dedupTTL time.Duration
	cooldown time.Duration
}

// DispatcherConfig holds dependencies and tuning for a Dispatcher.
type DispatcherConfig struct {
	Store    *store.Store
	Dir      WalletResolver
	Graph    WatcherIndex
	Sink     Sink
	Logger   *logrus.Logger
	AppURL   string
	DedupTTL time.Duration
	Cooldown time.Duration
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Dispatcher{
		store:    cfg.Store,
		dir:      cfg.Dir,
		graph:    cfg.Graph,
		sink:     cfg.Sink,
		logger:   cfg.Logger,
		appURL:   cfg.AppURL,
		dedupTTL: cfg.DedupTTL,
		cooldown: cfg.Cooldown,
	}
}

// ProcessTrade runs one event through the fanout state machine.
func (d *Dispatcher) ProcessTrade(ctx context.Context, trade models.TradeEvent) (Result, error) {
	processed, err := d.store.HasProcessed(ctx, trade.TxHash)
	if err != nil {
		return Result{}, err
	}
	if processed {
		return Result{Reason: ReasonAlreadyProcessed}, nil
	}

	sig := signal.Classify(trade)
	if !sig.Actionable() {
		// Consumed, never an error: mark so the event is not rechecked
		if err := d.store.MarkProcessed(ctx, trade.TxHash, d.dedupTTL); err != nil {
			return Result{}, err
		}
		return Result{Reason: ReasonZeroAddress}, nil
	}

	trader, err := d.resolveTrader(ctx, sig.Trader)
	if err != nil {
		// Upstream failure before any side effect: abandon unmarked so the
		// next pass retries
		return Result{}, fmt.Errorf("resolve trader identity: %w", err)
	}
	if trader == nil {
		if err := d.store.MarkProcessed(ctx, trade.TxHash, d.dedupTTL); err != nil {
			return Result{}, err
		}
		return Result{Reason: ReasonNoIdentity}, nil
	}

	watchers, err := d.graph.ResolveWatchers(ctx, sig.Trader)
	if err != nil {
		return Result{}, fmt.Errorf("resolve watchers: %w", err)
	}
	if len(watchers) == 0 {
		if err := d.store.MarkProcessed(ctx, trade.TxHash, d.dedupTTL); err != nil {
			return Result{}, err
		}
		return Result{Reason: ReasonNoSubscribers}, nil
	}

	recipients := d.rateFilter(ctx, watchers)
	if len(recipients) == 0 {
		if err := d.store.MarkProcessed(ctx, trade.TxHash, d.dedupTTL); err != nil {
			return Result{}, err
		}
		return Result{Reason: ReasonAllRateLimited}, nil
	}

	title, body := signalContent(sig.Type, trader.Username, trade.TokenAddress)
	targetURL := fmt.Sprintf("%s?tx=%s", d.appURL, trade.TxHash)

	sent := 0
	if err := d.sink.Publish(ctx, recipients, title, body, targetURL); err != nil {
		// Lost notifications are accepted over a retry that could reorder
		// with the dedup mark
		d.logger.WithError(err).WithField("tx", trade.TxHash).Error("notification delivery failed")
	} else {
		sent = len(recipients)
	}

	if err := d.store.MarkProcessed(ctx, trade.TxHash, d.dedupTTL); err != nil {
		return Result{}, err
	}

	d.logger.WithFields(logrus.Fields{
		"tx":         trade.TxHash,
		"type":       sig.Type,
		"trader":     trader.Username,
		"recipients": len(recipients),
		"sent":       sent,
	}).Info("signal dispatched")

	return Result{Dispatched: true, NotificationsSent: sent}, nil
}

type traderIdentity struct {
	ID       int64
	Username string
}

// resolveTrader maps the trader wallet to its social identity via the
// directory's reverse wallet lookup. First match wins. A nil result with a
// nil error means no identity controls the wallet.
func (d *Dispatcher) resolveTrader(ctx context.Context, wallet string) (*traderIdentity, error) {
	users, err := d.dir.IdentitiesForWallets(ctx, []string{wallet})
	if err != nil {
		return nil, err
	}
	matches := users[models.NormalizeAddress(wallet)]
	if len(matches) == 0 {
		return nil, nil
	}
	return &traderIdentity{ID: matches[0].ID, Username: matches[0].Username}, nil
}

// rateFilter keeps only the watchers that are currently subscribed and win
// their cooldown slot. Evaluated per recipient so one user's cooldown never
// blocks another; the cooldown record is written only on a successful
// acquire. Per-recipient store errors drop that recipient rather than the
// whole event.
func (d *Dispatcher) rateFilter(ctx context.Context, watchers []int64) []int64 {
	eligible := make([]int64, 0, len(watchers))
	for _, id := range watchers {
		subscribed, err := d.graph.IsSubscribed(ctx, id)
		if err != nil {
			d.logger.WithError(err).WithField("id", id).Warn("subscription check failed")
			continue
		}
		if !subscribed {
			continue
		}
		ok, err := d.store.TryAcquireCooldown(ctx, id, d.cooldown)
		if err != nil {
			d.logger.WithError(err).WithField("id", id).Warn("cooldown acquire failed")
			continue
		}
		if ok {
			eligible = append(eligible, id)
		}
	}
	return eligible
}

func signalContent(tradeType models.TradeType, username, tokenAddress string) (title, body string) {
	verb := actionVerb(tradeType)
	// Token symbol resolution is deliberately stubbed: show an address prefix
	symbol := tokenAddress
	if len(symbol) > 8 {
		symbol = symbol[:8]
	}
	title = fmt.Sprintf("@%s %s tokens", username, verb)
	body = fmt.Sprintf("%s just %s %s... on Monad", username, verb, symbol)
	return title, body
}

func actionVerb(tradeType models.TradeType) string {
	switch tradeType {
	case models.TradeBuy:
		return "bought"
	case models.TradeSell:
		return "sold"
	default:
		return "transferred"
	}
}
