// Package directory resolves human-readable handles to addresses through the
// Lens account directory.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultEndpoint = "https://api.lens.xyz/graphql"
	DefaultOrigin   = "https://send.token"
)

// DefaultNamespace is the lens/ username namespace.
var DefaultNamespace = common.HexToAddress("0x1aA55B9042f08f45825dC4b651B64c9F98Af4615")

// ErrNotFound means the directory answered but holds no account for the handle.
var ErrNotFound = errors.New("handle not found")

// Resolver looks up the account address registered for localName in namespace.
type Resolver interface {
	ResolveHandle(ctx context.Context, namespace common.Address, localName string) (common.Address, error)
}

const accountQuery = `query Account($request: AccountRequest!) { account(request: $request) { address } }`

// Client talks to the directory's GraphQL endpoint.
type Client struct {
	Endpoint string
	Origin   string
	HTTP     *http.Client
}

func NewClient(endpoint, origin string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if origin == "" {
		origin = DefaultOrigin
	}
	return &Client{
		Endpoint: endpoint,
		Origin:   origin,
		HTTP:     &http.Client{Timeout: 15 * time.Second},
	}
}

var _ Resolver = (*Client)(nil)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type accountResponse struct {
	Data struct {
		Account *struct {
			Address string `json:"address"`
		} `json:"account"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

func (c *Client) ResolveHandle(ctx context.Context, namespace common.Address, localName string) (common.Address, error) {
	localName = strings.TrimSpace(localName)
	if localName == "" {
		return common.Address{}, ErrNotFound
	}
	body, err := json.Marshal(gqlRequest{
		Query: accountQuery,
		Variables: map[string]any{
			"request": map[string]any{
				"username": map[string]any{
					"localName": localName,
					"namespace": namespace.Hex(),
				},
			},
		},
	})
	if err != nil {
		return common.Address{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return common.Address{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Origin != "" {
		req.Header.Set("Origin", c.Origin)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return common.Address{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return common.Address{}, fmt.Errorf("directory lookup failed: %s", resp.Status)
	}
	var out accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return common.Address{}, fmt.Errorf("decode directory response: %w", err)
	}
	if len(out.Errors) > 0 {
		return common.Address{}, fmt.Errorf("directory: %s", out.Errors[0].Message)
	}
	if out.Data.Account == nil {
		return common.Address{}, ErrNotFound
	}
	if !common.IsHexAddress(out.Data.Account.Address) {
		return common.Address{}, fmt.Errorf("directory returned malformed address %q", out.Data.Account.Address)
	}
	return common.HexToAddress(out.Data.Account.Address), nil
}
