package shopapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"storefront-client/internal/domain/session"
	"storefront-client/internal/infrastructure/notify"
)

const (
	defaultTimeout = 10 * time.Second

	HeaderExpireAccessToken  = "expire-access-token"
	HeaderExpireRefreshToken = "expire-refresh-token"
)

// Endpoints 為會改變 session 狀態的路徑。
type Endpoints struct {
	Login        string
	Register     string
	Logout       string
	RefreshToken string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:        "login",
		Register:     "register",
		Logout:       "logout",
		RefreshToken: "refresh-access-token",
	}
}

// Config 為 client 的固定設定。
type Config struct {
	BaseURL string
	Timeout time.Duration
	// AccessTokenTTL/RefreshTokenTTL 會以秒數透過 header 告知後端期望的 token 壽命。
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Endpoints       Endpoints
}

// Doer 為底層 HTTP 傳輸。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client 是帶自動續期的 storefront API client，可被多個 goroutine 共用。
type Client struct {
	cfg       Config
	base      *url.URL
	endpoints Endpoints
	doer      Doer
	session   *session.Session
	notifier  notify.Notifier
	extra     []Middleware
	handler   Handler

	refreshGroup singleflight.Group
	refreshing   atomic.Int32
	refreshCount atomic.Int64

	notifying sync.WaitGroup
}

// Option 調整 Client 的相依元件。
type Option func(*Client)

// WithDoer 替換 HTTP 傳輸（預設為帶 timeout 的 http.Client）。
func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithNotifier 設定錯誤通知對象。
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithMiddleware 在授權與傳送之間加入額外的 middleware。
func WithMiddleware(m ...Middleware) Option {
	return func(c *Client) { c.extra = append(c.extra, m...) }
}

// New 建立 Client。sess 為必要參數，其生命週期由呼叫端管理。
func New(cfg Config, sess *session.Session, opts ...Option) (*Client, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		cfg:       cfg,
		base:      base,
		endpoints: normalizeEndpoints(cfg.Endpoints),
		session:   sess,
		notifier:  notify.LogNotifier{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = &http.Client{Timeout: cfg.Timeout}
	}
	if c.notifier == nil {
		c.notifier = notify.Discard
	}
	c.handler = c.buildChain()
	return c, nil
}

func normalizeEndpoints(e Endpoints) Endpoints {
	def := DefaultEndpoints()
	pick := func(v, fallback string) string {
		if v == "" {
			return fallback
		}
		return normalizePath(v)
	}
	return Endpoints{
		Login:        pick(e.Login, def.Login),
		Register:     pick(e.Register, def.Register),
		Logout:       pick(e.Logout, def.Logout),
		RefreshToken: pick(e.RefreshToken, def.RefreshToken),
	}
}

// Session 回傳 client 使用的 session。
func (c *Client) Session() *session.Session { return c.session }

// Endpoints 回傳正規化後的端點設定。
func (c *Client) Endpoints() Endpoints { return c.endpoints }

// State 回傳目前狀態；refresh 進行中時為 StateRefreshing。
func (c *Client) State() session.State {
	st := c.session.State()
	if st == session.StateAuthenticated && c.refreshing.Load() > 0 {
		return session.StateRefreshing
	}
	return st
}

// RefreshCount 回傳已送出的 refresh 請求次數。
func (c *Client) RefreshCount() int64 { return c.refreshCount.Load() }

// Do 送出請求。401 過期會在內部續期並重送，呼叫端只會看到最終結果。
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	return c.handler(ctx, req.clone())
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	req := &Request{Method: http.MethodGet, Path: path, Query: query, Header: http.Header{}}
	return c.doJSON(ctx, req, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.send(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.send(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string, in, out any) error {
	return c.send(ctx, http.MethodDelete, path, in, out)
}

func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	req, err := NewJSONRequest(method, path, in)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, req, out)
}

func (c *Client) doJSON(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// transport 為 chain 最內層，實際送出 HTTP 請求。
func (c *Client) transport(ctx context.Context, req *Request) (*Response, error) {
	u := c.base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, newNetworkError(req, err)
	}
	c.applyDefaultHeaders(httpReq.Header)
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := c.doer.Do(httpReq)
	if err != nil {
		return nil, newNetworkError(req, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, newNetworkError(req, fmt.Errorf("read body: %w", err))
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       raw,
		Request:    req,
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return resp, newStatusError(req, httpResp.StatusCode, raw)
	}
	return resp, nil
}

func (c *Client) applyDefaultHeaders(h http.Header) {
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	if c.cfg.AccessTokenTTL > 0 {
		h.Set(HeaderExpireAccessToken, ttlSeconds(c.cfg.AccessTokenTTL))
	}
	if c.cfg.RefreshTokenTTL > 0 {
		h.Set(HeaderExpireRefreshToken, ttlSeconds(c.cfg.RefreshTokenTTL))
	}
}

// ttlSeconds 以整秒表示 TTL，不足一秒的部分無條件進位。
func ttlSeconds(d time.Duration) string {
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	return strconv.FormatInt(int64(secs), 10)
}

// Wait 等待已送出的錯誤通知完成，或直到 ctx 結束。短生命週期的程式（CLI）應在結束前呼叫。
func (c *Client) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.notifying.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
