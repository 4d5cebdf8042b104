package shop

import "time"

// PurchaseStatus 為購買紀錄狀態。
type PurchaseStatus int

const (
	PurchaseInCart              PurchaseStatus = -1
	PurchaseAll                 PurchaseStatus = 0
	PurchaseWaitForConfirmation PurchaseStatus = 1
	PurchaseWaitForGetting      PurchaseStatus = 2
	PurchaseInProgress          PurchaseStatus = 3
	PurchaseDelivered           PurchaseStatus = 4
	PurchaseCancelled           PurchaseStatus = 5
)

func (s PurchaseStatus) Valid() bool {
	return s >= PurchaseInCart && s <= PurchaseCancelled
}

type Purchase struct {
	ID                  string         `json:"_id"`
	BuyCount            int            `json:"buy_count"`
	Price               int64          `json:"price"`
	PriceBeforeDiscount int64          `json:"price_before_discount"`
	Status              PurchaseStatus `json:"status"`
	User                string         `json:"user"`
	Product             Product        `json:"product"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// CartItem 為加入/更新購物車與結帳時的品項。
type CartItem struct {
	ProductID string `json:"product_id"`
	BuyCount  int    `json:"buy_count"`
}
