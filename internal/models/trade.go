package models

import "strings"

// ZeroAddress is the canonical null sentinel: transfers from it are mints,
// transfers to it are burns.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

type TradeType string

func (t TradeType) String() string {
	return string(t)
}

const (
	TradeBuy      TradeType = "buy"
	TradeSell     TradeType = "sell"
	TradeTransfer TradeType = "transfer"
)

// TradeEvent is one on-chain token transfer as reported by the indexer.
// (TxHash, LogIndex) is globally unique; the feed may deliver events out of
// order and more than once.
type TradeEvent struct {
	ID             string `json:"id"`
	TxHash         string `json:"txHash"`
	LogIndex       int    `json:"logIndex"`
	BlockNumber    int64  `json:"blockNumber"`
	BlockTimestamp int64  `json:"blockTimestamp"`
	TokenAddress   string `json:"tokenAddress"`
	FromAddress    string `json:"fromAddress"`
	ToAddress      string `json:"toAddress"`
	Amount         string `json:"amount"` // raw base units, decimal string
}

// Signal is the derived view of a TradeEvent used for matching. It is never
// persisted.
type Signal struct {
	Type         TradeType
	Trader       string
	Counterparty string // empty unless Type is transfer
}

// Actionable reports whether the signal names a real trader. Non-actionable
// signals are consumed for dedup but never matched against subscribers.
func (s Signal) Actionable() bool {
	return s.Trader != "" && s.Trader != ZeroAddress
}

// NormalizeAddress lowercases a wallet address. All store keys and
// comparisons use the normalized form.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// IsZeroAddress reports whether addr is the null sentinel (case-insensitive).
func IsZeroAddress(addr string) bool {
	return NormalizeAddress(addr) == ZeroAddress
}
