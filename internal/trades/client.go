package trades

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/monsignal/signal-engine/internal/models"
)

// Client reads indexed transfer events from the chain indexer's GraphQL API.
// The feed is best-effort fresh, newest first, and may repeat events; the
// engine's dedup layer absorbs that.
type Client struct {
	URL         string
	AdminSecret string
	HTTP        *http.Client
}

func NewClient(graphqlURL, adminSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		URL:         strings.TrimSpace(graphqlURL),
		AdminSecret: strings.TrimSpace(adminSecret),
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("indexer http %d", e.StatusCode)
	}
	return fmt.Sprintf("indexer http %d: %s", e.StatusCode, b)
}

const tradeFields = `
        id
        txHash
        logIndex
        blockNumber
        blockTimestamp
        tokenAddress
        fromAddress
        toAddress
        amount`

// Recent returns up to limit most-recent transfer events, newest first.
func (c *Client) Recent(ctx context.Context, limit int) ([]models.TradeEvent, error) {
	query := `
    query RecentTrades($limit: Int!) {
      Trade(limit: $limit, order_by: {blockTimestamp: desc}) {` + tradeFields + `
      }
    }`

	var out tradesResponse
	if err := c.query(ctx, query, map[string]any{"limit": limit}, &out); err != nil {
		return nil, fmt.Errorf("fetch recent trades: %w", err)
	}
	return out.Data.Trade, nil
}

// ByAddresses returns recent events touching any of the wallets, as sender
// or receiver.
func (c *Client) ByAddresses(ctx context.Context, addresses []string, limit int) ([]models.TradeEvent, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	normalized := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		normalized = append(normalized, models.NormalizeAddress(addr))
	}

	query := `
    query TradesByAddresses($addresses: [String!]!, $limit: Int!) {
      Trade(
        limit: $limit,
        order_by: {blockTimestamp: desc},
        where: {
          _or: [
            {fromAddress: {_in: $addresses}},
            {toAddress: {_in: $addresses}}
          ]
        }
      ) {` + tradeFields + `
      }
    }`

	var out tradesResponse
	if err := c.query(ctx, query, map[string]any{"addresses": normalized, "limit": limit}, &out); err != nil {
		return nil, fmt.Errorf("fetch trades by addresses: %w", err)
	}
	return out.Data.Trade, nil
}

// ByTxHash looks up a single event by transaction hash. Returns ErrNotFound
// when the indexer has no such trade.
func (c *Client) ByTxHash(ctx context.Context, txHash string) (*models.TradeEvent, error) {
	query := `
    query TradeByTxHash($txHash: String!) {
      Trade(where: {txHash: {_eq: $txHash}}, limit: 1) {` + tradeFields + `
      }
    }`

	var out tradesResponse
	if err := c.query(ctx, query, map[string]any{"txHash": strings.ToLower(txHash)}, &out); err != nil {
		return nil, fmt.Errorf("fetch trade by hash: %w", err)
	}
	if len(out.Data.Trade) == 0 {
		return nil, ErrNotFound
	}
	return &out.Data.Trade[0], nil
}

// Count returns the total number of indexed trades.
func (c *Client) Count(ctx context.Context) (int64, error) {
	query := `
    query TradeCount {
      Trade_aggregate {
        aggregate {
          count
        }
      }
    }`

	var out countResponse
	if err := c.query(ctx, query, nil, &out); err != nil {
		return 0, fmt.Errorf("fetch trade count: %w", err)
	}
	return out.Data.TradeAggregate.Aggregate.Count, nil
}

func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.AdminSecret != "" {
		req.Header.Set("x-hasura-admin-secret", c.AdminSecret)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}

	var envelope graphqlEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql: %s", envelope.Errors[0].Message)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
