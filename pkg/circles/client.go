// Package circles is a thin client for the Circles network: reads go to the
// Circles JSON-RPC endpoint and the profile service, mutations are signed and
// submitted by the wallet the client is bound to.
package circles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/naveenspark/circlespay/pkg/jsonrpc"
)

// Config locates the Circles services and hub contracts.
type Config struct {
	RPCURL            string
	ProfileServiceURL string
	V1Hub             common.Address
	V2Hub             common.Address
}

// Requester submits EIP-1193 requests to a wallet.
type Requester interface {
	Request(ctx context.Context, method string, params []any, out any) error
}

// Client is the Circles ledger client.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	wallet      Requester
	account     common.Address
	receiptPoll time.Duration
	nextID      atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithWallet binds the client to a wallet account so it can submit mutations.
func WithWallet(w Requester, account common.Address) Option {
	return func(c *Client) {
		c.wallet = w
		c.account = account
	}
}

// WithReceiptPollInterval sets how often transaction receipts are polled.
func WithReceiptPollInterval(d time.Duration) Option {
	return func(c *Client) { c.receiptPoll = d }
}

// New creates a new Circles client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		receiptPoll: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Account returns the wallet account the client signs with (zero if unbound).
func (c *Client) Account() common.Address {
	return c.account
}

// CanSign reports whether the client is bound to a wallet.
func (c *Client) CanSign() bool {
	return c.wallet != nil
}

// call performs a JSON-RPC call against the Circles RPC endpoint.
func (c *Client) call(ctx context.Context, method string, out any, params ...any) error {
	req := jsonrpc.NewRequest(c.nextID.Add(1), method, params)
	var resp jsonrpc.Response
	if err := c.doRequest(ctx, http.MethodPost, c.cfg.RPCURL, req, &resp); err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) profileURL(path string) string {
	return strings.TrimRight(c.cfg.ProfileServiceURL, "/") + path
}

func (c *Client) doRequest(ctx context.Context, method, url string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
