package auth

import (
	"context"
	"time"
)

// Session 為 mock 後端保存的 refresh token。refresh token 不輪替，
// 直到過期或被登出作廢前都能換發新的 access token。
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent string
	IPAddress string
	CreatedAt time.Time
}

func (s Session) Revoked() bool {
	return s.RevokedAt != nil && !s.RevokedAt.IsZero()
}

// Active 檢查 session 是否仍可使用。
func (s Session) Active(now time.Time) bool {
	return s.Check(now) == nil
}

// Check 回傳 refresh token 不可用的原因：作廢為 ErrTokenInvalid，過期為 ErrTokenExpired。
func (s Session) Check(now time.Time) error {
	if s.Revoked() {
		return ErrTokenInvalid
	}
	if !now.Before(s.ExpiresAt) {
		return ErrTokenExpired
	}
	return nil
}

// Revoke 標記作廢時間；已作廢的 session 保留原本的時間。
func (s *Session) Revoke(now time.Time) {
	if s.Revoked() {
		return
	}
	s.RevokedAt = &now
}

// SessionStore 提供 refresh token 儲存/查詢/撤銷。
type SessionStore interface {
	SaveSession(ctx context.Context, sess Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string) error
}

// TokenMeta 為簽發 token 時附帶的來源資訊與 client 要求的壽命。
type TokenMeta struct {
	UserAgent string
	IP        string
	TTL       TokenTTL
}
