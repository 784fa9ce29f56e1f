package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/monsignal/signal-engine/internal/directory"
	"github.com/monsignal/signal-engine/internal/engine"
	"github.com/monsignal/signal-engine/internal/graph"
	"github.com/monsignal/signal-engine/internal/models"
	"github.com/monsignal/signal-engine/internal/notify"
	"github.com/monsignal/signal-engine/internal/signal"
	"github.com/monsignal/signal-engine/internal/store"
	"github.com/monsignal/signal-engine/internal/trades"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Graph      *graph.Service         // social graph + subscriptions + watchlist
	Batch      *engine.BatchProcessor // poll-path batch pass
	Dispatcher *engine.Dispatcher     // webhook-path fanout
	Store      *store.Store           // watermark status reads
	Trades     *trades.Client         // trade event source
	Directory  *directory.Client      // identity lookups for display
	Notify     *notify.Client         // welcome notifications
	Logger     *logrus.Logger         // structured logger
	DevMode    bool                   // detailed error responses

	WebhookDedupTTL time.Duration // dedup window for webhook-ingested events
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// SubscriptionGet reports whether the identity in the id query parameter is
// opted in.
func (h *Handlers) SubscriptionGet(c echo.Context) error {
	id, err := queryID(c, "id")
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid id", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	subscribed, err := h.Graph.IsSubscribed(ctx, id)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to check subscription", errDetails(err))
	}
	return c.JSON(http.StatusOK, SubscriptionResponse{Subscribed: subscribed})
}

// Subscribe opts the user in and synchronously builds their social graph so
// matching can start immediately.
func (h *Handlers) Subscribe(c echo.Context) error {
	var req SubscribeRequest
	if err := c.Bind(&req); err != nil || req.ID == 0 {
		return h.err(c, http.StatusBadRequest, "id required", nil)
	}

	// Graph building paginates against the directory, give it room
	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if err := h.Graph.Subscribe(ctx, req.ID); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to subscribe", errDetails(err))
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Subscribed to notifications"})
}

// Unsubscribe clears the opt-in flag. Reverse-index entries stay behind and
// are filtered at fanout time.
func (h *Handlers) Unsubscribe(c echo.Context) error {
	var req SubscribeRequest
	if err := c.Bind(&req); err != nil || req.ID == 0 {
		return h.err(c, http.StatusBadRequest, "id required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Graph.Unsubscribe(ctx, req.ID); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to unsubscribe", errDetails(err))
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Unsubscribed from notifications"})
}

// Following returns the user's cached social graph entry, building it on a
// cache miss.
func (h *Handlers) Following(c echo.Context) error {
	id, err := queryID(c, "id")
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid id", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	accounts, err := h.Graph.BuildGraph(ctx, id)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to fetch following", errDetails(err))
	}

	views := make([]FollowedAccountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, FollowedAccountView{ID: account.ID, Wallets: account.Wallets})
	}
	return c.JSON(http.StatusOK, FollowingResponse{Following: views})
}

// GraphRefresh invalidates and rebuilds the user's social graph, picking up
// new follows.
func (h *Handlers) GraphRefresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil || req.ID == 0 {
		return h.err(c, http.StatusBadRequest, "id required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if err := h.Graph.RefreshGraph(ctx, req.ID); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to refresh graph", errDetails(err))
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// WatchlistGet lists the identities the user watches.
func (h *Handlers) WatchlistGet(c echo.Context) error {
	id, err := queryID(c, "id")
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid id", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	members, err := h.Graph.Watchlist(ctx, id)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to fetch watchlist", errDetails(err))
	}
	return c.JSON(http.StatusOK, WatchlistResponse{Watchlist: members, Count: len(members)})
}

// WatchlistPost applies one watchlist mutation: add, remove, add_all or
// remove_all.
func (h *Handlers) WatchlistPost(c echo.Context) error {
	var req WatchlistRequest
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return h.err(c, http.StatusBadRequest, "userId required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	switch req.Action {
	case "add":
		if req.TargetID == 0 {
			return h.err(c, http.StatusBadRequest, "targetId required for add", nil)
		}
		if err := h.Graph.WatchlistAdd(ctx, req.UserID, req.TargetID); err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to update watchlist", errDetails(err))
		}
		return c.JSON(http.StatusOK, WatchlistActionResponse{Success: true, Action: "added", TargetID: req.TargetID})

	case "remove":
		if req.TargetID == 0 {
			return h.err(c, http.StatusBadRequest, "targetId required for remove", nil)
		}
		if err := h.Graph.WatchlistRemove(ctx, req.UserID, req.TargetID); err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to update watchlist", errDetails(err))
		}
		return c.JSON(http.StatusOK, WatchlistActionResponse{Success: true, Action: "removed", TargetID: req.TargetID})

	case "add_all":
		count, err := h.Graph.WatchlistAddAll(ctx, req.UserID)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to update watchlist", errDetails(err))
		}
		return c.JSON(http.StatusOK, WatchlistActionResponse{Success: true, Action: "added_all", Count: count})

	case "remove_all":
		if err := h.Graph.WatchlistRemoveAll(ctx, req.UserID); err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to update watchlist", errDetails(err))
		}
		return c.JSON(http.StatusOK, WatchlistActionResponse{Success: true, Action: "removed_all"})

	default:
		return h.err(c, http.StatusBadRequest, "invalid action", map[string]any{"action": req.Action})
	}
}

// RecentTrades returns the most recent transfer events from the source.
// Accepts limit query parameter (default: 50, range: 1-200)
func (h *Handlers) RecentTrades(c echo.Context) error {
	limit, err := queryLimit(c, 50)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Trades.Recent(ctx, limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to fetch trades", errDetails(err))
	}

	// Total count is best-effort display data
	total, err := h.Trades.Count(ctx)
	if err != nil {
		h.Logger.WithError(err).Warn("trade count lookup failed")
	}
	return c.JSON(http.StatusOK, TradesResponse{Items: items, Total: total})
}

// TradesByAddresses returns recent events touching any of the
// comma-separated wallet addresses.
func (h *Handlers) TradesByAddresses(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("addresses"))
	if raw == "" {
		return h.err(c, http.StatusBadRequest, "addresses parameter required", nil)
	}
	addresses := strings.Split(raw, ",")

	limit, err := queryLimit(c, 50)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Trades.ByAddresses(ctx, addresses, limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to fetch trades", errDetails(err))
	}
	return c.JSON(http.StatusOK, TradesResponse{Items: items})
}

// SignalDetail renders one trade by transaction hash with its classification
// and resolved trader identity.
func (h *Handlers) SignalDetail(c echo.Context) error {
	txHash := strings.TrimSpace(c.Param("txHash"))
	if txHash == "" {
		return h.err(c, http.StatusBadRequest, "txHash required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	trade, err := h.Trades.ByTxHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, trades.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "signal not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to fetch signal", errDetails(err))
	}

	sig := signal.Classify(*trade)

	var trader *TraderView
	if sig.Actionable() {
		users, err := h.Directory.IdentitiesForWallets(ctx, []string{sig.Trader})
		if err != nil {
			h.Logger.WithError(err).Warn("trader identity lookup failed")
		} else if matches := users[sig.Trader]; len(matches) > 0 {
			user := matches[0]
			displayName := user.DisplayName
			if displayName == "" {
				displayName = user.Username
			}
			trader = &TraderView{
				ID:          user.ID,
				Username:    user.Username,
				DisplayName: displayName,
				PfpURL:      user.PfpURL,
			}
		}
	}

	symbol := trade.TokenAddress
	if len(symbol) > 6 {
		symbol = symbol[:6] + "..."
	}

	return c.JSON(http.StatusOK, SignalDetailResponse{Signal: SignalView{
		ID:          trade.ID,
		Type:        sig.Type.String(),
		Trader:      trader,
		Token:       TokenView{Symbol: symbol, Name: "Unknown Token", Address: trade.TokenAddress},
		Amount:      models.FormatAmount(trade.Amount, 18),
		Timestamp:   time.Unix(trade.BlockTimestamp, 0).UTC().Format(time.RFC3339),
		TxHash:      trade.TxHash,
		FromAddress: trade.FromAddress,
		ToAddress:   trade.ToAddress,
	}})
}

// ProcessSignals runs one batch pass: fetch recent events, dispatch, advance
// the watermark. Idempotent: replays are absorbed by the dedup store.
func (h *Handlers) ProcessSignals(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	result, err := h.Batch.Run(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to process signals", errDetails(err))
	}
	return c.JSON(http.StatusOK, result)
}

// ProcessStatus reports the current watermark.
func (h *Handlers) ProcessStatus(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	block, err := h.Store.LastProcessedBlock(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get status", errDetails(err))
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok", LastProcessedBlock: block})
}

// WebhookTrade ingests one event pushed by the indexer and fans it out to
// explicit watchers. Idempotent via the shared dedup store.
func (h *Handlers) WebhookTrade(c echo.Context) error {
	var payload TradeWebhookPayload
	if err := c.Bind(&payload); err != nil || payload.TxHash == "" {
		return h.err(c, http.StatusBadRequest, "invalid payload", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	event := models.TradeEvent{
		TxHash:         payload.TxHash,
		FromAddress:    payload.FromAddress,
		ToAddress:      payload.ToAddress,
		TokenAddress:   payload.TokenAddress,
		Amount:         payload.Amount,
		BlockNumber:    payload.BlockNumber,
		BlockTimestamp: payload.BlockTimestamp,
	}

	result, err := h.Dispatcher.ProcessWatchedTrade(ctx, event, h.WebhookDedupTTL)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to process webhook", errDetails(err))
	}

	resp := WebhookTradeResponse{
		Success:           true,
		NotificationsSent: result.NotificationsSent,
		TotalWatchers:     result.TotalWatchers,
	}
	if result.AlreadyProcessed {
		resp.Message = "Already processed"
	}
	return c.JSON(http.StatusOK, resp)
}

// WebhookEvents handles miniapp lifecycle events from the host platform.
func (h *Handlers) WebhookEvents(c echo.Context) error {
	var payload AppEventPayload
	if err := c.Bind(&payload); err != nil || payload.ID == 0 {
		return h.err(c, http.StatusBadRequest, "invalid payload", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	switch payload.Event {
	case "frame_added":
		if err := h.Notify.PublishWelcome(ctx, payload.ID, ""); err != nil {
			h.Logger.WithError(err).WithField("id", payload.ID).Warn("welcome notification failed")
		}
	case "notifications_enabled":
		if err := h.Notify.Publish(ctx, []int64{payload.ID},
			"Notifications enabled",
			"You'll receive trading signals from people you follow", ""); err != nil {
			h.Logger.WithError(err).WithField("id", payload.ID).Warn("notification failed")
		}
	case "frame_removed", "notifications_disabled":
		// The delivery service stops sending on its own; nothing to clean up
	}

	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func errDetails(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

func queryID(c echo.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, errors.New("missing parameter")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid parameter")
	}
	return id, nil
}

func queryLimit(c echo.Context, def int) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 200 {
		return 0, errors.New("invalid limit")
	}
	return n, nil
}
