package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-client/internal/domain/shop"
)

func (s *Server) handleListProducts(c *gin.Context) {
	cfg := shop.ParseListConfig(c.Request.URL.Query())
	fields := map[string]string{}
	switch cfg.SortBy {
	case "", shop.SortByCreatedAt, shop.SortByView, shop.SortBySold, shop.SortByPrice:
	default:
		fields["sort_by"] = "sort_by must be one of createdAt, view, sold, price"
	}
	switch cfg.Order {
	case "", shop.OrderAsc, shop.OrderDesc:
	default:
		fields["order"] = "order must be asc or desc"
	}
	if cfg.PriceMax > 0 && cfg.PriceMin > cfg.PriceMax {
		fields["price_min"] = "price_min must not exceed price_max"
	}
	if len(fields) > 0 {
		writeFieldErrors(c, fields)
		return
	}

	list, err := s.store.ListProducts(c.Request.Context(), cfg)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(c, "Lấy các sản phẩm thành công", list)
}

func (s *Server) handleGetProduct(c *gin.Context) {
	p, err := s.store.GetProduct(c.Request.Context(), c.Param("id"))
	if errors.Is(err, shop.ErrProductNotFound) {
		writeError(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(c, "Lấy sản phẩm thành công", p)
}

func (s *Server) handleListCategories(c *gin.Context) {
	cats, err := s.store.Categories(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(c, "Lấy categories thành công", cats)
}
