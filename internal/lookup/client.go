// Package lookup wraps the external company-identifier provider behind a
// narrow, budget-gated interface.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client resolves a normalized company name to an authoritative identifier.
// An empty result with a nil error never occurs: no-match is an error.
type Client interface {
	Resolve(ctx context.Context, normalizedName string) (string, error)
}

// ErrNoMatch reports that the provider answered but had no identifier for
// the name. Callers treat it like any other miss.
var ErrNoMatch = eris.New("lookup: no match")

// HTTPOptions configures the HTTP lookup client.
type HTTPOptions struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration // per-call ceiling; a hung provider cannot stall the batch
	RatePerSec float64
	Burst      int
}

// HTTPClient implements Client against the provider's HTTP endpoint.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient creates an HTTPClient with defaults filled in.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &HTTPClient{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		httpc:   &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
	}
}

// Resolve queries the provider for one normalized name.
func (c *HTTPClient) Resolve(ctx context.Context, normalizedName string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "lookup: rate limiter wait")
	}

	endpoint := fmt.Sprintf("%s/v1/companies/resolve?name=%s", c.baseURL, url.QueryEscape(normalizedName))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", eris.Wrap(err, "lookup: build request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "lookup: call provider")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNoMatch
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", eris.Errorf("lookup: provider returned %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		CompanyID string `json:"company_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", eris.Wrap(err, "lookup: decode response")
	}
	if payload.CompanyID == "" {
		return "", ErrNoMatch
	}
	return payload.CompanyID, nil
}
