package lichess

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://lichess.org"

// Source fetches the games a user finished at or after since.
type Source interface {
	FetchPage(ctx context.Context, userID string, since time.Time) (Page, error)
}

// HeaderProvider allows injecting per-request headers (e.g. Authorization).
type HeaderProvider func() map[string]string

// Client talks to the lichess user games export endpoint.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider
	limiter *rate.Limiter
	logger  *zap.Logger

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithToken sends a personal API token as a bearer header.
func WithToken(token string) Option {
	token = strings.TrimSpace(token)
	return func(c *Client) {
		if token == "" {
			return
		}
		c.headers = func() map[string]string { return map[string]string{"Authorization": "Bearer " + token} }
	}
}

// WithMinInterval spaces consecutive requests at least d apart.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithDial overrides the transport dialer; tests use an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4, MaxResponseBodySize: 64 << 20},
		limiter:        rate.NewLimiter(rate.Every(time.Second), 1),
		logger:         zap.NewNop(),
		defaultTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage issues one export request. 429 is reported as a rate-limited page;
// any other non-2xx status or transport failure wraps ErrSourceUnavailable.
func (c *Client) FetchPage(ctx context.Context, userID string, since time.Time) (Page, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Page{}, err
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.exportURL(userID, since))
	req.Header.Set("Accept", "application/x-ndjson")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, ctxErr
		}
		return Page{}, &SourceError{Err: err}
	}

	status := resp.StatusCode()
	if status == fasthttp.StatusTooManyRequests {
		c.logger.Warn("lichess_rate_limited", zap.String("user", userID))
		return Page{RateLimited: true}, nil
	}
	if status < 200 || status >= 300 {
		return Page{}, &SourceError{Status: status, Body: truncate(string(resp.Body()), 512)}
	}

	games, skipped := DecodeNDJSON(resp.Body())
	for _, s := range skipped {
		c.logger.Warn("lichess_line_skipped", zap.String("user", userID), zap.Int("line", s.Line), zap.Error(s.Err))
	}
	return Page{Games: games, Skipped: skipped}, nil
}

func (c *Client) exportURL(userID string, since time.Time) string {
	q := url.Values{}
	q.Set("since", strconv.FormatInt(since.UnixMilli(), 10))
	q.Set("pgnInJson", "true")
	q.Set("clocks", "true")
	return c.baseURL + "/api/games/user/" + url.PathEscape(strings.ToLower(strings.TrimSpace(userID))) + "?" + q.Encode()
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
