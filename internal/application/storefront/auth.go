package storefront

import (
	"context"
	"errors"
	"strings"

	"storefront-client/internal/domain/shop"
)

// AuthAPI 處理登入、註冊、登出。憑證的保存由 client 的 chain 負責。
type AuthAPI struct {
	api API
}

type AuthInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in AuthInput) normalize() (AuthInput, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || in.Password == "" {
		return in, errors.New("email and password required")
	}
	return in, nil
}

func (a *AuthAPI) Login(ctx context.Context, in AuthInput) (shop.AuthData, error) {
	return a.authenticate(ctx, a.api.Endpoints().Login, in)
}

func (a *AuthAPI) Register(ctx context.Context, in AuthInput) (shop.AuthData, error) {
	return a.authenticate(ctx, a.api.Endpoints().Register, in)
}

func (a *AuthAPI) authenticate(ctx context.Context, path string, in AuthInput) (shop.AuthData, error) {
	in, err := in.normalize()
	if err != nil {
		return shop.AuthData{}, err
	}
	var out shop.SuccessResponse[shop.AuthData]
	if err := a.api.Post(ctx, path, in, &out); err != nil {
		return shop.AuthData{}, err
	}
	return out.Data, nil
}

// Logout 通知後端登出，成功後 session 會被清空。
func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.api.Post(ctx, a.api.Endpoints().Logout, nil, nil)
}

// CurrentUser 回傳 session 快取的使用者；未登入時 ok 為 false。
func (a *AuthAPI) CurrentUser() (shop.User, bool) {
	var u shop.User
	if err := a.api.Session().DecodeProfile(&u); err != nil {
		return shop.User{}, false
	}
	return u, true
}
