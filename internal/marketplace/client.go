// Package marketplace is the HTTP client for the Harmoney investor API.
// Every operation goes through one request-issuing primitive so the session
// cookie and rotating CSRF token are threaded identically on all calls.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbennett2212/harmoney-autobuy/internal/config"
	"github.com/mbennett2212/harmoney-autobuy/internal/model"
	"github.com/mbennett2212/harmoney-autobuy/internal/session"
)

// UnexpectedStatusError indicates a response whose status did not match the
// documented contract for the endpoint.
type UnexpectedStatusError struct {
	Endpoint string
	Got      int
	Want     int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d (want %d)", e.Endpoint, e.Got, e.Want)
}

// Client issues requests against the marketplace API. It owns no session
// state; tokens live in the Session it is given and are refreshed from
// every response via Observe.
type Client struct {
	baseURL   string
	branch    string
	referer   string
	origin    string
	userAgent string
	session   *session.Session
	client    *http.Client
}

// NewClient creates a marketplace client with optional proxy support.
func NewClient(cfg *config.Config, sess *session.Session) *Client {
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		baseURL:   cfg.Marketplace.BaseURL,
		branch:    cfg.Marketplace.Branch,
		referer:   cfg.Marketplace.Referer,
		origin:    cfg.Marketplace.Origin,
		userAgent: cfg.Marketplace.UserAgent,
		session:   sess,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// do performs one API call: canonical headers plus current tokens, status
// assertion, and an Observe pass over the response so a rotated CSRF token
// or refreshed cookie is captured before the payload is decoded.
func (c *Client) do(ctx context.Context, method, path string, payload any, want int, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: marshal payload: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", path, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", c.referer)
	req.Header.Set("Origin", c.origin)
	req.Header.Set("Connection", "keep-alive")
	if cookie := c.session.Cookie(); cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookie})
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		if csrf := c.session.CSRF(); csrf != "" {
			req.Header.Set(session.CSRFHeader, csrf)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	c.session.Observe(resp.Header, resp.Cookies())

	if resp.StatusCode != want {
		io.Copy(io.Discard, resp.Body)
		return &UnexpectedStatusError{Endpoint: path, Got: resp.StatusCode, Want: want}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", path, err)
		}
	}
	return nil
}

// SignIn posts credentials to the accounts endpoint. The session cookie on
// the response, when present, is captured into the session.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	payload := map[string]any{
		"branch": c.branch,
		"account": map[string]string{
			"email":    email,
			"password": password,
		},
	}
	return c.do(ctx, http.MethodPost, "/accounts/sign_in", payload, http.StatusCreated, nil)
}

// Account fetches the investor account record.
func (c *Client) Account(ctx context.Context) (*model.Account, error) {
	acct := &model.Account{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/investor/account", nil, http.StatusOK, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Funds fetches the available account balance.
func (c *Client) Funds(ctx context.Context) (decimal.Decimal, error) {
	var funds model.Funds
	if err := c.do(ctx, http.MethodGet, "/api/v1/investor/funds", nil, http.StatusOK, &funds); err != nil {
		return decimal.Zero, err
	}
	return funds.AvailableBalance, nil
}

// Loans fetches the current marketplace loan listings.
func (c *Client) Loans(ctx context.Context) ([]model.LoanListing, error) {
	var listings model.LoanListings
	if err := c.do(ctx, http.MethodGet, "/api/v1/investor/marketplace/loans", nil, http.StatusOK, &listings); err != nil {
		return nil, err
	}
	return listings.Items, nil
}

// OrderSummary runs the quote phase of a purchase. The server rotates the
// CSRF token on this call; the refreshed value lands in the session and is
// required by PlaceOrderBatch.
func (c *Client) OrderSummary(ctx context.Context, req model.OrderRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/investor/order_batches/summary", req, http.StatusOK, nil)
}

// PlaceOrderBatch runs the confirm phase of a purchase.
func (c *Client) PlaceOrderBatch(ctx context.Context, req model.OrderRequest) error {
	return c.do(ctx, http.MethodPost, "/api/v1/investor/order_batches", req, http.StatusCreated, nil)
}
