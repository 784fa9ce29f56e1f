package trades

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradeJSON(txHash string, block int64) map[string]any {
	return map[string]any{
		"id":             txHash + "-0",
		"txHash":         txHash,
		"logIndex":       0,
		"blockNumber":    block,
		"blockTimestamp": 1700000000,
		"tokenAddress":   "0x1111111111111111111111111111111111111111",
		"fromAddress":    "0x0000000000000000000000000000000000000000",
		"toAddress":      "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"amount":         "500000000000000000",
	}
}

func TestClient_Recent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "testing", r.Header.Get("x-hasura-admin-secret"))

		body, _ := io.ReadAll(r.Body)
		var req graphqlRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Contains(t, req.Query, "RecentTrades")
		assert.EqualValues(t, 50, req.Variables["limit"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"Trade": []any{tradeJSON("0xabc", 100), tradeJSON("0xdef", 99)},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "testing", 5*time.Second)

	events, err := c.Recent(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "0xabc", events[0].TxHash)
	assert.Equal(t, int64(100), events[0].BlockNumber)
	assert.Equal(t, "500000000000000000", events[0].Amount)
}

func TestClient_ByTxHashNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"Trade": []any{}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)

	_, err := c.ByTxHash(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ByAddressesNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req graphqlRequest
		require.NoError(t, json.Unmarshal(body, &req))

		addrs, ok := req.Variables["addresses"].([]any)
		require.True(t, ok)
		assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", addrs[0])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"Trade": []any{tradeJSON("0xabc", 5)}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)

	events, err := c.ByAddresses(context.Background(), []string{"0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestClient_ByAddressesEmptyInput(t *testing.T) {
	c := NewClient("http://unused.invalid", "", time.Second)

	events, err := c.ByAddresses(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestClient_GraphQLErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []any{map[string]any{"message": "field 'Trade' not found"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)

	_, err := c.Recent(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Trade' not found")
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)

	_, err := c.Count(context.Background())
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
}
