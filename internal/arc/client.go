package arc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultBaseURL is the ARC NCGP grants API.
const DefaultBaseURL = "https://dataportal.arc.gov.au/NCGP/API/grants"

const userAgent = "arc-ci-ranker/1.0"

const defaultMaxRetries = 5

// retryStatusCodes are the transient statuses worth retrying.
var retryStatusCodes = map[int]bool{
	429: true, // Too Many Requests
	500: true, // Internal Server Error
	502: true, // Bad Gateway
	503: true, // Service Unavailable
	504: true, // Gateway Timeout
}

// Client talks to the ARC grants API over a pooled connection with
// bounded exponential-backoff retries on transient failures.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	maxRetries    uint64
	retryInterval time.Duration
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		baseURL:       baseURL,
		maxRetries:    defaultMaxRetries,
		retryInterval: 500 * time.Millisecond,
	}
}

// ListPage fetches one page of the grants listing endpoint.
func (c *Client) ListPage(ctx context.Context, page, size int) (*listEnvelope, error) {
	q := url.Values{}
	q.Set("page[number]", strconv.Itoa(page))
	q.Set("page[size]", strconv.Itoa(size))

	var env listEnvelope
	if err := c.getJSON(ctx, c.baseURL+"?"+q.Encode(), &env); err != nil {
		return nil, fmt.Errorf("fetching listing page %d: %w", page, err)
	}
	return &env, nil
}

// GrantDetail fetches the full detail document for one grant identifier.
func (c *Client) GrantDetail(ctx context.Context, id string) (*grantAttributes, error) {
	var env detailEnvelope
	if err := c.getJSON(ctx, c.baseURL+"/"+url.PathEscape(id), &env); err != nil {
		return nil, fmt.Errorf("fetching grant %s: %w", id, err)
	}
	return &env.Data.Attributes, nil
}

// getJSON executes a GET and decodes the JSON body into out. Timeouts and
// the transient status allowlist are retried with exponential backoff up to
// the retry budget; everything else fails immediately.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
				return err
			}
			return backoff.Permanent(fmt.Errorf("executing request: %w", err))
		}
		defer resp.Body.Close()

		if retryStatusCodes[resp.StatusCode] {
			return fmt.Errorf("transient status code %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return backoff.Permanent(fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, body))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval

	return backoff.Retry(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx),
	)
}
