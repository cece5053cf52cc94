package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"parking-companion/config"
)

// Client talks to the parking reservation API on behalf of the page.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client for the configured backend. The session cookie, when
// configured, is seeded into the cookie jar so requests carry the login session.
func NewClient(cfg config.BackendConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", cfg.BaseURL, err)
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Backend client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if cfg.Session != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: cfg.SessionCookie, Value: cfg.Session, Path: "/"}})
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), 1)
	}

	return &Client{
		baseURL: base,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			Jar:       jar,
		},
		limiter: limiter,
	}, nil
}

// ListParkings fetches parking locations around a point.
func (c *Client) ListParkings(ctx context.Context, q Query) ([]ParkingItem, error) {
	var out parkingsResponse
	if err := c.getJSON(ctx, "/api/parkings", q.values(), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ActiveReservation asks the server whether the user currently holds a reservation.
func (c *Client) ActiveReservation(ctx context.Context) (*ActiveStatus, error) {
	var out ActiveStatus
	if err := c.getJSON(ctx, "/api/me/active_reservation", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reserve requests a reservation of the given parking. The body is decoded for
// every status code; only transport and decoding failures are returned as errors.
func (c *Client) Reserve(ctx context.Context, osmID string) (*ActionResult, error) {
	return c.postAction(ctx, "/api/parkings/"+url.PathEscape(osmID)+"/reserve", []byte("{}"))
}

// Finish ends the user's active reservation.
func (c *Client) Finish(ctx context.Context) (*ActionResult, error) {
	return c.postAction(ctx, "/api/reservations/finish", nil)
}

func (c *Client) endpoint(path string, params map[string]string) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, req.Method, req.URL.Path, err)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, params), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, path, err)
	}
	return nil
}

func (c *Client) postAction(ctx context.Context, path string, body []byte) (*ActionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ActionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %s (status %d): %v", ErrInvalidResponse, path, resp.StatusCode, err)
	}
	result.StatusCode = resp.StatusCode
	return &result, nil
}
