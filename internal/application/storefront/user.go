package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"storefront-client/internal/domain/shop"
	"storefront-client/internal/infrastructure/external/shopapi"
)

// MaxAvatarSize 為頭像上傳上限（1MB）。
const MaxAvatarSize = 1 << 20

type UserAPI struct {
	api API
}

// Me 取得目前使用者，並更新 session 快取。
func (u *UserAPI) Me(ctx context.Context) (shop.User, error) {
	var out shop.SuccessResponse[json.RawMessage]
	if err := u.api.Get(ctx, "me", nil, &out); err != nil {
		return shop.User{}, err
	}
	return u.cacheProfile(ctx, out.Data)
}

// UpdateProfile 修改個人資料或密碼，成功後同步 session 快取。
func (u *UserAPI) UpdateProfile(ctx context.Context, in shop.ProfileUpdate) (shop.User, error) {
	if in.NewPassword != "" && in.Password == "" {
		return shop.User{}, errors.New("current password required to change password")
	}
	var out shop.SuccessResponse[json.RawMessage]
	if err := u.api.Put(ctx, "user", in, &out); err != nil {
		return shop.User{}, err
	}
	return u.cacheProfile(ctx, out.Data)
}

func (u *UserAPI) cacheProfile(ctx context.Context, raw json.RawMessage) (shop.User, error) {
	var user shop.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return shop.User{}, fmt.Errorf("decode user: %w", err)
	}
	if err := u.api.Session().SetProfile(ctx, raw); err != nil {
		return user, err
	}
	return user, nil
}

// UploadAvatar 上傳頭像，回傳後端儲存的檔名。
func (u *UserAPI) UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarSize+1))
	if err != nil {
		return "", fmt.Errorf("read avatar: %w", err)
	}
	if len(data) > MaxAvatarSize {
		return "", fmt.Errorf("avatar exceeds %d bytes", MaxAvatarSize)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req := &shopapi.Request{
		Method: http.MethodPost,
		Path:   "user/upload-avatar",
		Header: http.Header{"Content-Type": {mw.FormDataContentType()}},
		Body:   buf.Bytes(),
	}
	resp, err := u.api.Do(ctx, req)
	if err != nil {
		return "", err
	}
	var out shop.SuccessResponse[string]
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	return out.Data, nil
}
