// Copyright 2026 Fairgate Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseBytes limits provider responses to 1 MiB to prevent OOM
// from a malicious or misconfigured provider.
const maxResponseBytes = 1 << 20

// DefaultRequestTimeout is the hard per-request timeout for provider calls
const DefaultRequestTimeout = 5 * time.Second

// apiKeyHeader carries the provider API key on every request
const apiKeyHeader = "X-Api-Key"

// StatusError is returned for non-success HTTP responses from the
// reputation provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(
		"unexpected status %d: %s",
		e.StatusCode,
		e.Body,
	)
}

// Retryable returns true for outcomes worth retrying: rate limiting
// (429) and server-side failures (5xx). Other client errors are
// terminal.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// scoreResponse is the provider's response body for a score lookup
type scoreResponse struct {
	Wallet string `json:"wallet"`
	Score  int    `json:"score"`
}

// Client is an HTTP client for the reputation provider REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom *http.Client for the provider client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRequestTimeout sets the hard per-request timeout. The default is
// DefaultRequestTimeout.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a new reputation provider API client. The baseURL
// should be the base URL of the provider API.
func NewClient(
	baseURL string,
	apiKey string,
	opts ...ClientOption,
) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultRequestTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchScore retrieves the live reputation score for a wallet address.
// Corresponds to GET /score?wallet=<address>.
func (c *Client) FetchScore(
	ctx context.Context,
	wallet string,
) (int, error) {
	reqURL := c.baseURL + "/score?wallet=" + url.QueryEscape(wallet)
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		reqURL,
		nil,
	)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	if resp == nil || resp.Body == nil {
		return 0, errors.New("nil response from provider")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(
			io.LimitReader(resp.Body, 1024),
		)
		return 0, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	var parsed scoreResponse
	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err := decoder.Decode(&parsed); err != nil {
		return 0, fmt.Errorf(
			"decoding score for %s: %w",
			wallet,
			err,
		)
	}
	return parsed.Score, nil
}
