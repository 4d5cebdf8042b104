package storefront

import (
	"context"
	"net/url"

	"storefront-client/internal/domain/session"
	"storefront-client/internal/infrastructure/external/shopapi"
)

// API 為 storefront 呼叫所需的 client 能力，*shopapi.Client 即滿足。
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Put(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string, in, out any) error
	Do(ctx context.Context, req *shopapi.Request) (*shopapi.Response, error)
	Session() *session.Session
	Endpoints() shopapi.Endpoints
}

// Storefront 集合各資源的 API。
type Storefront struct {
	Auth       *AuthAPI
	Products   *ProductAPI
	Categories *CategoryAPI
	Purchases  *PurchaseAPI
	Users      *UserAPI
}

func New(api API) *Storefront {
	return &Storefront{
		Auth:       &AuthAPI{api: api},
		Products:   &ProductAPI{api: api},
		Categories: &CategoryAPI{api: api},
		Purchases:  &PurchaseAPI{api: api},
		Users:      &UserAPI{api: api},
	}
}
