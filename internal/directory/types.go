package directory

// User is a social account as returned by the directory service.
type User struct {
	ID                int64             `json:"id"`
	Username          string            `json:"username"`
	DisplayName       string            `json:"display_name"`
	PfpURL            string            `json:"pfp_url,omitempty"`
	CustodyAddress    string            `json:"custody_address"`
	VerifiedAddresses VerifiedAddresses `json:"verified_addresses"`
}

// VerifiedAddresses holds the wallet addresses a user has verified ownership
// of, distinct from the custody address the account itself is keyed by.
type VerifiedAddresses struct {
	EthAddresses []string `json:"eth_addresses"`
}

// Follow wraps one entry of a following list.
type Follow struct {
	User User `json:"user"`
}

type followingResponse struct {
	Users []Follow `json:"users"`
	Next  struct {
		Cursor string `json:"cursor"`
	} `json:"next"`
}

type bulkByAddressResponse map[string][]User
