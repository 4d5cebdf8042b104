package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"storefront-client/internal/domain/shop"
)

// PurchaseAPI 操作購物車與訂單。
type PurchaseAPI struct {
	api API
}

func (p *PurchaseAPI) AddToCart(ctx context.Context, item shop.CartItem) (shop.Purchase, error) {
	if err := validateItem(item); err != nil {
		return shop.Purchase{}, err
	}
	var out shop.SuccessResponse[shop.Purchase]
	if err := p.api.Post(ctx, "purchases/add-to-cart", item, &out); err != nil {
		return shop.Purchase{}, err
	}
	return out.Data, nil
}

// List 依狀態列出購買紀錄，PurchaseAll 為全部（不含購物車）。
func (p *PurchaseAPI) List(ctx context.Context, status shop.PurchaseStatus) ([]shop.Purchase, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid purchase status %d", status)
	}
	q := url.Values{"status": {strconv.Itoa(int(status))}}
	var out shop.SuccessResponse[[]shop.Purchase]
	if err := p.api.Get(ctx, "purchases", q, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (p *PurchaseAPI) Cart(ctx context.Context) ([]shop.Purchase, error) {
	return p.List(ctx, shop.PurchaseInCart)
}

func (p *PurchaseAPI) Update(ctx context.Context, item shop.CartItem) (shop.Purchase, error) {
	if err := validateItem(item); err != nil {
		return shop.Purchase{}, err
	}
	var out shop.SuccessResponse[shop.Purchase]
	if err := p.api.Put(ctx, "purchases/update-purchase", item, &out); err != nil {
		return shop.Purchase{}, err
	}
	return out.Data, nil
}

// Buy 將購物車中的品項結帳，回傳變為待確認的紀錄。
func (p *PurchaseAPI) Buy(ctx context.Context, items []shop.CartItem) ([]shop.Purchase, error) {
	if len(items) == 0 {
		return nil, errors.New("no items to buy")
	}
	for _, it := range items {
		if err := validateItem(it); err != nil {
			return nil, err
		}
	}
	var out shop.SuccessResponse[[]shop.Purchase]
	if err := p.api.Post(ctx, "purchases/buy-products", items, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Delete 刪除購物車中的紀錄，回傳刪除筆數。
func (p *PurchaseAPI) Delete(ctx context.Context, purchaseIDs []string) (int, error) {
	if len(purchaseIDs) == 0 {
		return 0, nil
	}
	var out shop.SuccessResponse[shop.DeleteResult]
	if err := p.api.Delete(ctx, "purchases", purchaseIDs, &out); err != nil {
		return 0, err
	}
	return out.Data.DeletedCount, nil
}

func validateItem(it shop.CartItem) error {
	if it.ProductID == "" {
		return errors.New("product_id required")
	}
	if it.BuyCount <= 0 {
		return fmt.Errorf("buy_count must be positive, got %d", it.BuyCount)
	}
	return nil
}
