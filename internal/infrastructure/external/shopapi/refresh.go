package shopapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"storefront-client/internal/domain/session"
)

// refreshKey 是 singleflight 的固定鍵，同一時間只會有一個 refresh 請求。
const refreshKey = "refresh-access-token"

type refreshResponse struct {
	Message string `json:"message"`
	Data    struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// refreshAccessToken 取得新的 access token。並行呼叫者共用同一個進行中的 refresh，
// 結束（不論成功或失敗）後 singleflight 會移除該鍵，下一次過期會重新發起。
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	ch := c.refreshGroup.DoChan(refreshKey, func() (interface{}, error) {
		return c.doRefresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		token, _ := res.Val.(string)
		return token, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) doRefresh(ctx context.Context) (string, error) {
	c.refreshing.Add(1)
	defer c.refreshing.Add(-1)

	creds := c.session.Credentials()
	if creds.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	c.refreshCount.Add(1)
	log.Printf("[shopapi] access token expired, refreshing")

	req, err := NewJSONRequest(http.MethodPost, c.endpoints.RefreshToken, map[string]string{
		"refresh_token": creds.RefreshToken,
	})
	if err != nil {
		return "", err
	}
	resp, err := c.handler(ctx, req)
	if err != nil {
		c.invalidate(ctx, err)
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	var body refreshResponse
	if err := resp.Decode(&body); err != nil {
		c.invalidate(ctx, err)
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	if body.Data.AccessToken == "" {
		err := errors.New("refresh response missing access_token")
		c.invalidate(ctx, err)
		return "", err
	}
	if err := c.session.SetAccessToken(ctx, creds.RefreshToken, body.Data.AccessToken); err != nil {
		if errors.Is(err, session.ErrSessionChanged) {
			log.Printf("[shopapi] session changed during refresh, dropping new token")
			return "", fmt.Errorf("refresh access token: %w", err)
		}
		c.invalidate(ctx, err)
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	log.Printf("[shopapi] access token refreshed")
	return body.Data.AccessToken, nil
}

func (c *Client) invalidate(ctx context.Context, cause error) {
	log.Printf("[shopapi] refresh failed, clearing session: %v", cause)
	if err := c.session.Invalidate(context.WithoutCancel(ctx)); err != nil {
		log.Printf("[shopapi] invalidate session: %v", err)
	}
}
