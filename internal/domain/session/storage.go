package session

import (
	"context"
	"errors"
)

// 儲存鍵值，與前端 localStorage 使用的鍵一致。
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyProfile      = "profile"
)

// ErrKeyNotFound 表示儲存體中沒有該鍵。
var ErrKeyNotFound = errors.New("storage key not found")

// ErrSessionChanged 表示 refresh 進行中 session 已被登出或換成其他憑證。
var ErrSessionChanged = errors.New("session changed during refresh")

// Storage 是可跨重啟保存的 key-value 儲存體。
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Credentials 封裝 access/refresh token。
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Empty 兩個 token 都沒有時為 true。
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}
