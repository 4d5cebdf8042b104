package storefront

import (
	"context"
	"errors"
	"net/url"

	"storefront-client/internal/domain/shop"
)

type ProductAPI struct {
	api API
}

func (p *ProductAPI) List(ctx context.Context, cfg shop.ListConfig) (shop.ProductList, error) {
	var out shop.SuccessResponse[shop.ProductList]
	if err := p.api.Get(ctx, "products", cfg.Query(), &out); err != nil {
		return shop.ProductList{}, err
	}
	return out.Data, nil
}

// Get 取得單一商品；id 也可以是 GenerateNameID 產生的網址片段。
func (p *ProductAPI) Get(ctx context.Context, id string) (shop.Product, error) {
	id = shop.IDFromNameID(id)
	if id == "" {
		return shop.Product{}, errors.New("product id required")
	}
	var out shop.SuccessResponse[shop.Product]
	if err := p.api.Get(ctx, "products/"+url.PathEscape(id), nil, &out); err != nil {
		return shop.Product{}, err
	}
	return out.Data, nil
}

type CategoryAPI struct {
	api API
}

func (c *CategoryAPI) List(ctx context.Context) ([]shop.Category, error) {
	var out shop.SuccessResponse[[]shop.Category]
	if err := c.api.Get(ctx, "categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
