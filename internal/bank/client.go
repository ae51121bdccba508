package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/digimart/depositengine/internal/domain"
)

var (
	// ErrBankUnreachable covers timeouts, connection failures and non-2xx
	// responses. The next scheduled poll is the retry; the client never
	// retries on its own.
	ErrBankUnreachable = errors.New("bank api unreachable")

	// ErrInvalidResponseShape means the bank answered with a body that is
	// not JSON. Almost always a misconfigured URL; surfaced loudly.
	ErrInvalidResponseShape = errors.New("bank api returned non-JSON response")
)

// Client issues one HTTP request per poll cycle per configured bank and
// returns the decoded JSON document.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch performs the configured HTTP call and decodes the response body.
// The caller's context bounds the whole exchange.
func (c *Client) Fetch(ctx context.Context, cfg *domain.BankAPIConfig) (any, error) {
	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.APIURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", cfg.Name, err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if cfg.Credentials != nil && cfg.Credentials.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Credentials.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBankUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: HTTP %d", ErrBankUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrBankUnreachable, err)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponseShape, err)
	}
	return doc, nil
}
