package auth

import (
	"errors"
	"time"
)

// BearerPrefix 為 access token 回傳給前端時帶的前綴。
const BearerPrefix = "Bearer "

var (
	// ErrTokenExpired 為 access token 過期，API 會回 401 EXPIRED_TOKEN。
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenPair 封裝 access/refresh token。
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// TokenTTL 為單次簽發的壽命，零值代表使用預設值。
type TokenTTL struct {
	Access  time.Duration
	Refresh time.Duration
}
