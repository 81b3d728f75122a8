package hifi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidewave/coda/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Coda/1.0"
)

// Tokens are the API tokens issued for this client application. The
// service hands out streams with different capabilities per token, so a
// full session logs in twice: once with the playlist token and once
// with the general one.
type Tokens struct {
	API      string
	Playlist string
	Preview  string
}

// Session holds the credentials of one logged-in user.
// SubscriptionType caps the stream quality the account may request;
// empty means not yet determined.
type Session struct {
	UserID            string
	SessionID         string
	PlaylistSessionID string
	CountryCode       string
	SubscriptionType  string
}

// LoggedIn reports whether the session carries user credentials.
func (s Session) LoggedIn() bool {
	return s.UserID != "" && s.SessionID != ""
}

// Client talks to the remote catalog API. It implements
// domain.CatalogClient, domain.FavoritesClient, domain.PlaylistClient,
// and domain.StreamClient.
type Client struct {
	baseURL    string
	tokens     Tokens
	session    Session
	country    string // configured override for the session country
	httpClient *http.Client
	limiter    *rate.Limiter // nil disables request pacing
	pageSize   int
	logger     *slog.Logger
}

// NewClient creates an API client. requestsPerSecond <= 0 disables
// client-side pacing; the 429 abort contract applies either way.
func NewClient(baseURL string, tokens Tokens, requestsPerSecond float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:  limiter,
		pageSize: 100,
		logger:   logger,
	}
}

// SetPageSize overrides how many items paged endpoints request per call.
func (c *Client) SetPageSize(n int) {
	if n > 0 {
		c.pageSize = n
	}
}

// SetSession installs user credentials for subsequent requests.
func (c *Client) SetSession(s Session) { c.session = s }

// SetCountry overrides the country code sent with every request.
func (c *Client) SetCountry(country string) { c.country = country }

// LoggedIn reports whether the client has user credentials.
func (c *Client) LoggedIn() bool { return c.session.LoggedIn() }

// UserID returns the id of the session user, or "".
func (c *Client) UserID() string { return c.session.UserID }

// do performs one API request and returns the response body and
// headers. Error mapping: network failure => ErrServerOffline,
// 401 => ErrAuthFailed, 404 => ErrNotFound, 412 => ErrTokenConflict,
// 429 => ErrRateLimited.
func (c *Client) do(ctx context.Context, method, path string, query, form url.Values, header http.Header) ([]byte, http.Header, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}

	if query == nil {
		query = url.Values{}
	}
	if country := c.countryCode(); country != "" {
		query.Set("countryCode", country)
	}
	if !c.session.LoggedIn() {
		// Anonymous requests carry the preview token as a query param
		query.Set("token", c.tokens.Preview)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, strings.TrimLeft(path, "/"), query.Encode())

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.session.LoggedIn() {
		// Playlist endpoints require the session created with the
		// playlist token.
		if strings.Contains(path, "playlist") {
			req.Header.Set("X-Session-Id", c.session.PlaylistSessionID)
		} else {
			req.Header.Set("X-Session-Id", c.session.SessionID)
		}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	c.logger.Debug("api request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed", "path", path, "error", err)
		return nil, nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, resp.Header, nil
	}

	reason := resp.Status
	var apiErr errorJSON
	if json.Unmarshal(data, &apiErr) == nil && apiErr.UserMessage != "" {
		reason = apiErr.UserMessage
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.Error("api auth error", "path", path, "reason", reason)
		return nil, resp.Header, domain.ErrAuthFailed
	case http.StatusNotFound:
		return nil, resp.Header, domain.ErrNotFound
	case http.StatusPreconditionFailed:
		c.logger.Warn("api version token rejected", "path", path, "reason", reason)
		return nil, resp.Header, domain.ErrTokenConflict
	case http.StatusTooManyRequests:
		c.logger.Warn("api rate limited", "path", path)
		return nil, resp.Header, domain.ErrRateLimited
	}

	c.logger.Error("api request error", "path", path, "status", resp.StatusCode, "reason", reason)
	return nil, resp.Header, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, reason)
}

// getJSON performs a GET and decodes the body into dest.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	data, _, err := c.do(ctx, http.MethodGet, path, query, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// getPaged walks a paged list endpoint until totalNumberOfItems is
// reached, pageSize items per call.
func (c *Client) getPaged(ctx context.Context, path string, query url.Values, pageSize int) ([]json.RawMessage, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	items := make([]json.RawMessage, 0, pageSize)
	offset := 0
	for {
		q := url.Values{}
		for k, vs := range query {
			q[k] = vs
		}
		q.Set("limit", fmt.Sprint(pageSize))
		if offset > 0 {
			q.Set("offset", fmt.Sprint(offset))
		}
		var page pagedList
		if err := c.getJSON(ctx, path, q, &page); err != nil {
			return items, err
		}
		items = append(items, page.Items...)
		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= page.TotalNumberOfItems {
			return items, nil
		}
	}
}

func (c *Client) countryCode() string {
	if c.country != "" {
		return c.country
	}
	return c.session.CountryCode
}

// requireLogin returns ErrNotLoggedIn when no user session is present.
func (c *Client) requireLogin() error {
	if !c.session.LoggedIn() {
		return domain.ErrNotLoggedIn
	}
	return nil
}
