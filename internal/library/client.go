package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/addonctl/addonctl/internal/branding"
	"github.com/addonctl/addonctl/internal/errs"
	"github.com/cenkalti/backoff/v5"
	"github.com/dustin/go-humanize"
)

// DefaultRetries is how many times a transient failure is retried.
const DefaultRetries = 3

// Client talks to the asset library HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    uint
	retryDelay time.Duration
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(u, "/")
	}
}

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n int) Option {
	return func(cl *Client) {
		if n < 0 {
			n = 0
		}
		cl.retries = uint(n)
	}
}

// WithRetryDelay sets the initial backoff interval.
func WithRetryDelay(d time.Duration) Option {
	return func(cl *Client) {
		cl.retryDelay = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithLogger sets the logger used for retry and download diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// New creates a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(branding.LibraryURL(), "/"),
		httpClient: http.DefaultClient,
		retries:    DefaultRetries,
		retryDelay: 500 * time.Millisecond,
		userAgent:  branding.CLIName(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client queries.
func (c *Client) BaseURL() string { return c.baseURL }

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.Code)
}

// Transient reports whether the request is worth retrying.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.MaxInterval = 10 * c.retryDelay
	return b
}

// get fetches rawURL, retrying network errors, 429 and 5xx responses.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	attempt := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, fmt.Errorf("requesting %s: %w", rawURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, resp.Body)
			serr := &StatusError{URL: rawURL, Code: resp.StatusCode}
			if serr.Transient() {
				return nil, serr
			}
			return nil, backoff.Permanent(serr)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading response from %s: %w", rawURL, err)
		}
		return body, nil
	}

	body, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.retries+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Warn("retrying request", "url", rawURL, "err", err, "wait", wait)
		}),
	)
	if err != nil {
		var serr *StatusError
		if errors.As(err, &serr) && serr.Code == http.StatusNotFound {
			return nil, errs.E(errs.KindNotFound, "fetching "+rawURL, err)
		}
		return nil, errs.E(errs.KindIO, "fetching "+rawURL, err)
	}
	return body, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errs.E(errs.KindIO, "decoding response from "+rawURL, err)
	}
	return nil
}

// Download fetches an archive and returns its raw bytes.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errs.E(errs.KindNotFound, "downloading", errors.New("asset has no download url"))
	}
	start := time.Now()
	data, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("downloaded archive",
		"url", url,
		"size", humanize.Bytes(uint64(len(data))),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return data, nil
}
