// Package chain connects the dispersal workflow to a real JSON-RPC node.
package chain

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// Client is an ethclient whose reads retry transient failures with backoff.
// Reverts are never retried.
type Client struct {
	*ethclient.Client

	Attempts int
	Backoff  time.Duration
	Log      *logrus.Entry
}

// Dial connects with keep-alives and a per-request timeout for HTTP endpoints.
func Dial(ctx context.Context, rawURL string) (*Client, error) {
	var (
		rc  *rpc.Client
		err error
	)
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		httpClient := &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    100,
				IdleConnTimeout: 90 * time.Second,
			},
		}
		rc, err = rpc.DialOptions(ctx, rawURL, rpc.WithHTTPClient(httpClient))
	} else {
		rc, err = rpc.DialContext(ctx, rawURL)
	}
	if err != nil {
		return nil, err
	}
	return NewClient(ethclient.NewClient(rc)), nil
}

func NewClient(ec *ethclient.Client) *Client {
	return &Client{
		Client:   ec,
		Attempts: 3,
		Backoff:  200 * time.Millisecond,
		Log:      logrus.NewEntry(logrus.StandardLogger()),
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "Too Many Requests") || strings.Contains(s, "-32005") || strings.Contains(s, "429")
}

// revertCode is the JSON-RPC code nodes use for execution reverts.
const revertCode = 3

// retryable treats reverts and "not found" as final. Every other node or
// transport error, rate limits included, is worth another try.
func retryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ethereum.NotFound) {
		return false
	}
	if isRateLimitError(err) {
		return true
	}
	if strings.Contains(err.Error(), "execution reverted") {
		return false
	}
	var re rpc.Error
	if errors.As(err, &re) && re.ErrorCode() == revertCode {
		return false
	}
	var de rpc.DataError
	if errors.As(err, &de) && de.ErrorData() != nil {
		return false
	}
	return true
}

// withRetry runs fn up to c.Attempts times; the backoff doubles after rate-limit errors.
func withRetry[T any](ctx context.Context, c *Client, op string, fn func() (T, error)) (T, error) {
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := c.Backoff
	var (
		out T
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err = fn()
		if !retryable(ctx, err) || attempt == attempts {
			return out, err
		}
		if c.Log != nil {
			c.Log.WithError(err).WithFields(logrus.Fields{"op": op, "attempt": attempt}).Debug("rpc retry")
		}
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-time.After(backoff):
		}
		if isRateLimitError(err) {
			backoff *= 2
		}
	}
	return out, err
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return withRetry(ctx, c, "eth_call", func() ([]byte, error) {
		return c.Client.CallContract(ctx, msg, blockNumber)
	})
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return withRetry(ctx, c, "eth_getBalance", func() (*big.Int, error) {
		return c.Client.BalanceAt(ctx, account, blockNumber)
	})
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return withRetry(ctx, c, "eth_estimateGas", func() (uint64, error) {
		return c.Client.EstimateGas(ctx, msg)
	})
}
