package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-client/internal/domain/shop"
)

func bindCartItem(c *gin.Context) (shop.CartItem, bool) {
	var item shop.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		writeError(c, http.StatusBadRequest, "invalid body")
		return item, false
	}
	if fields := validateCartItem(item); len(fields) > 0 {
		writeFieldErrors(c, fields)
		return item, false
	}
	return item, true
}

func validateCartItem(item shop.CartItem) map[string]string {
	fields := map[string]string{}
	if item.ProductID == "" {
		fields["product_id"] = "product_id is required"
	}
	if item.BuyCount <= 0 {
		fields["buy_count"] = "buy_count must be positive"
	}
	return fields
}

func writePurchaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shop.ErrOutOfStock):
		writeFieldErrors(c, map[string]string{"buy_count": err.Error()})
	case errors.Is(err, shop.ErrProductNotFound), errors.Is(err, shop.ErrPurchaseNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleAddToCart(c *gin.Context) {
	item, ok := bindCartItem(c)
	if !ok {
		return
	}
	p, err := s.store.AddToCart(c.Request.Context(), currentUserID(c), item)
	if err != nil {
		writePurchaseError(c, err)
		return
	}
	writeSuccess(c, "Thêm sản phẩm vào giỏ hàng thành công", p)
}

func (s *Server) handleUpdatePurchase(c *gin.Context) {
	item, ok := bindCartItem(c)
	if !ok {
		return
	}
	p, err := s.store.UpdateCartItem(c.Request.Context(), currentUserID(c), item)
	if err != nil {
		writePurchaseError(c, err)
		return
	}
	writeSuccess(c, "Cập nhật đơn thành công", p)
}

func (s *Server) handleBuyProducts(c *gin.Context) {
	var items []shop.CartItem
	if err := c.ShouldBindJSON(&items); err != nil || len(items) == 0 {
		writeError(c, http.StatusBadRequest, "invalid body")
		return
	}
	for _, it := range items {
		if fields := validateCartItem(it); len(fields) > 0 {
			writeFieldErrors(c, fields)
			return
		}
	}
	out, err := s.store.BuyProducts(c.Request.Context(), currentUserID(c), items)
	if err != nil {
		writePurchaseError(c, err)
		return
	}
	writeSuccess(c, "Mua thành công", out)
}

func (s *Server) handleListPurchases(c *gin.Context) {
	status := shop.PurchaseStatus(parseIntDefault(c.Query("status"), int(shop.PurchaseAll)))
	if !status.Valid() {
		writeFieldErrors(c, map[string]string{"status": "status is invalid"})
		return
	}
	out, err := s.store.ListPurchases(c.Request.Context(), currentUserID(c), status)
	if err != nil {
		writePurchaseError(c, err)
		return
	}
	writeSuccess(c, "Lấy đơn mua thành công", out)
}

func (s *Server) handleDeletePurchases(c *gin.Context) {
	var ids []string
	if err := c.ShouldBindJSON(&ids); err != nil {
		writeError(c, http.StatusBadRequest, "invalid body")
		return
	}
	n, err := s.store.DeletePurchases(c.Request.Context(), currentUserID(c), ids)
	if err != nil {
		writePurchaseError(c, err)
		return
	}
	writeSuccess(c, "Xoá đơn thành công", shop.DeleteResult{DeletedCount: n})
}
