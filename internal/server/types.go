package server

import "github.com/monsignal/signal-engine/internal/models"

// ErrorResponse is the standardized error payload for every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"` // dev mode only
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// StatusResponse reports the engine's resume point.
type StatusResponse struct {
	Status             string `json:"status"`
	LastProcessedBlock int64  `json:"lastProcessedBlock"`
}

// SubscribeRequest identifies the user subscribing or unsubscribing.
type SubscribeRequest struct {
	ID int64 `json:"id"`
}

// SubscriptionResponse reports a user's current opt-in state.
type SubscriptionResponse struct {
	Subscribed bool `json:"subscribed"`
}

// WatchlistRequest mutates a user's watchlist.
type WatchlistRequest struct {
	UserID   int64  `json:"userId"`
	TargetID int64  `json:"targetId,omitempty"`
	Action   string `json:"action"` // add | remove | add_all | remove_all
}

// WatchlistResponse returns the watchlist contents.
type WatchlistResponse struct {
	Watchlist []int64 `json:"watchlist"`
	Count     int     `json:"count"`
}

// WatchlistActionResponse confirms a watchlist mutation.
type WatchlistActionResponse struct {
	Success  bool   `json:"success"`
	Action   string `json:"action"`
	TargetID int64  `json:"targetId,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// RefreshRequest triggers a social graph rebuild for one user.
type RefreshRequest struct {
	ID int64 `json:"id"`
}

// FollowingResponse lists the accounts a user follows with their wallets.
type FollowingResponse struct {
	Following []FollowedAccountView `json:"following"`
}

// FollowedAccountView is one entry of a user's cached social graph.
type FollowedAccountView struct {
	ID      int64    `json:"id"`
	Wallets []string `json:"wallets"`
}

// TradesResponse wraps a list of raw transfer events. Total is the indexer's
// overall trade count, populated on the recent feed only.
type TradesResponse struct {
	Items []models.TradeEvent `json:"items"`
	Total int64               `json:"total,omitempty"`
}

// TradeWebhookPayload is the event shape pushed by the indexer webhook.
type TradeWebhookPayload struct {
	TxHash         string `json:"txHash"`
	FromAddress    string `json:"fromAddress"`
	ToAddress      string `json:"toAddress"`
	TokenAddress   string `json:"tokenAddress"`
	Amount         string `json:"amount"`
	BlockNumber    int64  `json:"blockNumber"`
	BlockTimestamp int64  `json:"blockTimestamp"`
}

// WebhookTradeResponse reports the fanout outcome of one webhook event.
type WebhookTradeResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message,omitempty"`
	NotificationsSent int    `json:"notificationsSent"`
	TotalWatchers     int    `json:"totalWatchers"`
}

// AppEventPayload is a miniapp lifecycle event from the host platform.
type AppEventPayload struct {
	ID    int64  `json:"id"`
	Event string `json:"event"` // frame_added | frame_removed | notifications_enabled | notifications_disabled
}

// SignalDetailResponse is the display view of one classified trade.
type SignalDetailResponse struct {
	Signal SignalView `json:"signal"`
}

// SignalView renders a trade for the client, trader identity included when
// one resolves.
type SignalView struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Trader      *TraderView `json:"trader"`
	Token       TokenView   `json:"token"`
	Amount      string      `json:"amount"`
	Timestamp   string      `json:"timestamp"`
	TxHash      string      `json:"txHash"`
	FromAddress string      `json:"fromAddress"`
	ToAddress   string      `json:"toAddress"`
}

// TraderView is the resolved social identity behind a trade.
type TraderView struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	PfpURL      string `json:"pfpUrl,omitempty"`
}

// TokenView describes the traded token. Symbol resolution is stubbed to an
// address prefix.
type TokenView struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Address string `json:"address"`
}
