package signal

import "github.com/monsignal/signal-engine/internal/models"

// Classify derives trade semantics from a raw transfer event.
//
// A transfer from the zero address is a mint, read as a buy by the receiver.
// A transfer to the zero address is a burn, read as a sell by the sender.
// Anything else is a plain transfer attributed to the sender, with the
// receiver kept as counterparty.
//
// Classify never fails: degenerate input (both endpoints zero) yields a
// signal whose Actionable() is false, and the caller decides what to do
// with it.
func Classify(trade models.TradeEvent) models.Signal {
	from := models.NormalizeAddress(trade.FromAddress)
	to := models.NormalizeAddress(trade.ToAddress)

	switch {
	case from == models.ZeroAddress:
		return models.Signal{Type: models.TradeBuy, Trader: to}
	case to == models.ZeroAddress:
		return models.Signal{Type: models.TradeSell, Trader: from}
	default:
		return models.Signal{Type: models.TradeTransfer, Trader: from, Counterparty: to}
	}
}
