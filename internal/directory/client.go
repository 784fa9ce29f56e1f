package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/monsignal/signal-engine/internal/models"
)

// pageSize is the directory's maximum following-list page.
const pageSize = 100

// Client talks to the social-identity directory: who follows whom, and
// which identity controls a given wallet.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(apiKey),
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
		return fmt.Sprintf("directory http %d", e.StatusCode)
	}
	return fmt.Sprintf("directory http %d: %s", e.StatusCode, b)
}

// Following fetches the full follow list of an identity, paginating until
// the directory runs out of pages or maxPages is reached. The bound keeps a
// huge or adversarial follow list from turning into an unbounded crawl.
func (c *Client) Following(ctx context.Context, id int64, maxPages int) ([]Follow, error) {
	if maxPages < 1 {
		maxPages = 1
	}

	var all []Follow
	cursor := ""

	for page := 0; page < maxPages; page++ {
		resp, err := c.followingPage(ctx, id, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Users...)

		cursor = resp.Next.Cursor
		if cursor == "" {
			break
		}
	}

	return all, nil
}

func (c *Client) followingPage(ctx context.Context, id int64, cursor string) (*followingResponse, error) {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(id, 10))
	q.Set("limit", strconv.Itoa(pageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var out followingResponse
	if err := c.get(ctx, "/following", q, &out); err != nil {
		return nil, fmt.Errorf("fetch following page: %w", err)
	}
	return &out, nil
}

// IdentitiesForWallets resolves wallet addresses to the identities that
// control them. Addresses missing from the result simply have no identity;
// when several identities share a wallet the first one wins downstream.
func (c *Client) IdentitiesForWallets(ctx context.Context, addresses []string) (map[string][]User, error) {
	if len(addresses) == 0 {
		return map[string][]User{}, nil
	}

	normalized := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		normalized = append(normalized, models.NormalizeAddress(addr))
	}

	q := url.Values{}
	q.Set("addresses", strings.Join(normalized, ","))

	var out bulkByAddressResponse
	if err := c.get(ctx, "/user/bulk-by-address", q, &out); err != nil {
		return nil, fmt.Errorf("lookup wallets: %w", err)
	}

	result := make(map[string][]User, len(out))
	for addr, users := range out {
		result[models.NormalizeAddress(addr)] = users
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
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

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
