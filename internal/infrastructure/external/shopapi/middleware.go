package shopapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"storefront-client/internal/domain/session"
)

const genericErrorMessage = "something went wrong, please try again"

// Handler 處理一個請求，失敗時可能同時回傳 Response 與 error。
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Middleware 包裝 Handler；可直接放行結果，或以新的呼叫（例如重送）取代結果。
type Middleware func(next Handler) Handler

// Chain 依序套用 middleware，第一個為最外層。
func Chain(h Handler, m ...Middleware) Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

func (c *Client) buildChain() Handler {
	stages := []Middleware{
		c.notifyErrors,
		c.purgeOnUnauthorized,
		c.refreshOnExpired,
		c.captureCredentials,
		c.authorize,
	}
	stages = append(stages, c.extra...)
	return Chain(c.transport, stages...)
}

// authorize 在請求上附加目前的 access token。
func (c *Client) authorize(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if req.Header.Get("Authorization") == "" {
			if token := c.session.AccessToken(); token != "" {
				req.Header.Set("Authorization", token)
			}
		}
		return next(ctx, req)
	}
}

// authResponse 為 login/register 成功回應。
type authResponse struct {
	Message string `json:"message"`
	Data    struct {
		AccessToken  string          `json:"access_token"`
		RefreshToken string          `json:"refresh_token"`
		User         json.RawMessage `json:"user"`
	} `json:"data"`
}

// captureCredentials 在 login/register 成功時保存憑證，logout 成功時清除。
func (c *Client) captureCredentials(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		resp, err := next(ctx, req)
		if err != nil {
			return resp, err
		}

		switch req.endpoint() {
		case c.endpoints.Login, c.endpoints.Register:
			var body authResponse
			if err := resp.Decode(&body); err != nil {
				return resp, err
			}
			if body.Data.AccessToken == "" {
				return resp, fmt.Errorf("%s response missing access_token", req.Path)
			}
			creds := session.Credentials{AccessToken: body.Data.AccessToken, RefreshToken: body.Data.RefreshToken}
			if err := c.session.SignIn(context.WithoutCancel(ctx), creds, body.Data.User); err != nil {
				return resp, err
			}
			log.Printf("[shopapi] signed in via %s", req.Path)
		case c.endpoints.Logout:
			if err := c.session.SignOut(context.WithoutCancel(ctx)); err != nil {
				log.Printf("[shopapi] sign out: %v", err)
			}
		}
		return resp, nil
	}
}

// refreshOnExpired 在 401 EXPIRED_TOKEN 時續期並重送一次。
// refresh 端點本身與重送請求不會再觸發 refresh。
func (c *Client) refreshOnExpired(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		resp, err := next(ctx, req)
		if err == nil || !IsExpiredToken(err) {
			return resp, err
		}
		if req.replayed || req.endpoint() == c.endpoints.RefreshToken {
			return resp, err
		}

		token, rerr := c.tokenForReplay(ctx, req.Header.Get("Authorization"))
		if errors.Is(rerr, ErrNoRefreshToken) {
			return resp, err
		}
		if rerr != nil {
			return nil, rerr
		}

		retry := req.clone()
		retry.replayed = true
		retry.Header.Set("Authorization", token)
		return next(ctx, retry)
	}
}

// tokenForReplay 若 token 已被其他請求換新則直接使用，否則加入（或發起）refresh。
func (c *Client) tokenForReplay(ctx context.Context, used string) (string, error) {
	if current := c.session.AccessToken(); current != "" && current != used {
		return current, nil
	}
	return c.refreshAccessToken(ctx)
}

// purgeOnUnauthorized 處理無法復原的 401：清除憑證並通知訂閱者重置狀態。
func (c *Client) purgeOnUnauthorized(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		resp, err := next(ctx, req)
		if err != nil && IsUnauthorized(err) {
			log.Printf("[shopapi] %s %s unauthorized, clearing session", req.Method, req.Path)
			if perr := c.session.Invalidate(context.WithoutCancel(ctx)); perr != nil {
				log.Printf("[shopapi] invalidate session: %v", perr)
			}
		}
		return resp, err
	}
}

// notifyErrors 對 422/401 以外的失敗送出一次非同步通知。
func (c *Client) notifyErrors(next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		resp, err := next(ctx, req)
		if err != nil {
			c.notifyFailure(ctx, err)
		}
		return resp, err
	}
}

func (c *Client) notifyFailure(ctx context.Context, err error) {
	e, ok := AsError(err)
	if !ok {
		return
	}
	if e.StatusCode == http.StatusUnprocessableEntity || e.StatusCode == http.StatusUnauthorized {
		return
	}
	if !e.markNotified() {
		return
	}

	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = genericErrorMessage
	}
	nctx := context.WithoutCancel(ctx)
	c.notifying.Add(1)
	go func() {
		defer c.notifying.Done()
		if nerr := c.notifier.Notify(nctx, msg); nerr != nil {
			log.Printf("[shopapi] notify failed: %v", nerr)
		}
	}()
}
