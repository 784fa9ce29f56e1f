package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FollowingPaginates(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/following", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("x-api-key"))
		require.Equal(t, "42", r.URL.Query().Get("id"))

		calls++
		resp := followingResponse{}
		switch r.URL.Query().Get("cursor") {
		case "":
			resp.Users = []Follow{{User: User{ID: 100, Username: "alice"}}}
			resp.Next.Cursor = "page2"
		case "page2":
			resp.Users = []Follow{{User: User{ID: 200, Username: "bob"}}}
		default:
			t.Fatalf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)

	follows, err := c.Following(context.Background(), 42, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, follows, 2)
	assert.Equal(t, int64(100), follows[0].User.ID)
	assert.Equal(t, "bob", follows[1].User.Username)
}

func TestClient_FollowingRespectsPageBound(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		resp := followingResponse{Users: []Follow{{User: User{ID: int64(calls)}}}}
		resp.Next.Cursor = "more" // never runs out
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)

	follows, err := c.Following(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, follows, 3)
}

func TestClient_IdentitiesForWallets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/bulk-by-address", r.URL.Path)
		// Addresses are normalized before they hit the wire
		assert.Equal(t, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", r.URL.Query().Get("addresses"))

		_ = json.NewEncoder(w).Encode(bulkByAddressResponse{
			"0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA": {{ID: 7, Username: "carol"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)

	users, err := c.IdentitiesForWallets(context.Background(), []string{"0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"})
	require.NoError(t, err)

	// Response keys are normalized too
	got, ok := users["0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"]
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "carol", got[0].Username)
}

func TestClient_IdentitiesForWalletsEmptyInput(t *testing.T) {
	c := NewClient("http://unused.invalid", "", time.Second)

	users, err := c.IdentitiesForWallets(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestClient_ErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)

	_, err := c.Following(context.Background(), 1, 1)
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Contains(t, httpErr.Error(), "429")
}
