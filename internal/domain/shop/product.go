package shop

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type Product struct {
	ID                  string    `json:"_id"`
	Images              []string  `json:"images"`
	Price               int64     `json:"price"`
	Rating              float64   `json:"rating"`
	PriceBeforeDiscount int64     `json:"price_before_discount"`
	Quantity            int       `json:"quantity"`
	Sold                int       `json:"sold"`
	View                int       `json:"view"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Category            Category  `json:"category"`
	Image               string    `json:"image"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Pagination 為商品列表的分頁資訊，PageSize 為總頁數。
type Pagination struct {
	Page     int `json:"page"`
	Limit    int `json:"limit"`
	PageSize int `json:"page_size"`
}

type ProductList struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// SortBy 為商品排序欄位。
type SortBy string

const (
	SortByCreatedAt SortBy = "createdAt"
	SortByView      SortBy = "view"
	SortBySold      SortBy = "sold"
	SortByPrice     SortBy = "price"
)

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ListConfig 為 GET products 的查詢條件，零值欄位不送出。
type ListConfig struct {
	Page         int
	Limit        int
	SortBy       SortBy
	Order        Order
	Exclude      string
	RatingFilter int
	PriceMax     int64
	PriceMin     int64
	Name         string
	Category     string
}

// Query 轉成 URL 查詢參數。
func (c ListConfig) Query() url.Values {
	q := url.Values{}
	setInt := func(key string, v int64) {
		if v > 0 {
			q.Set(key, strconv.FormatInt(v, 10))
		}
	}
	setInt("page", int64(c.Page))
	setInt("limit", int64(c.Limit))
	setInt("rating_filter", int64(c.RatingFilter))
	setInt("price_max", c.PriceMax)
	setInt("price_min", c.PriceMin)
	if c.SortBy != "" {
		q.Set("sort_by", string(c.SortBy))
	}
	if c.Order != "" {
		q.Set("order", string(c.Order))
	}
	if c.Exclude != "" {
		q.Set("exclude", c.Exclude)
	}
	if c.Name != "" {
		q.Set("name", c.Name)
	}
	if c.Category != "" {
		q.Set("category", c.Category)
	}
	return q
}

// ParseListConfig 由查詢參數還原 ListConfig，無法解析的數字視為未設定。
func ParseListConfig(q url.Values) ListConfig {
	atoi := func(key string) int64 {
		v, err := strconv.ParseInt(q.Get(key), 10, 64)
		if err != nil || v < 0 {
			return 0
		}
		return v
	}
	return ListConfig{
		Page:         int(atoi("page")),
		Limit:        int(atoi("limit")),
		SortBy:       SortBy(q.Get("sort_by")),
		Order:        Order(q.Get("order")),
		Exclude:      q.Get("exclude"),
		RatingFilter: int(atoi("rating_filter")),
		PriceMax:     atoi("price_max"),
		PriceMin:     atoi("price_min"),
		Name:         q.Get("name"),
		Category:     q.Get("category"),
	}
}

var (
	specialChars = regexp.MustCompile("[!@%^*()+=<>?/,.:;'\"&#\\[\\]~$_`{}|\\\\-]")
	whitespace   = regexp.MustCompile(`\s`)
)

// GenerateNameID 產生商品網址片段，例如 "Ao-thun-nam-i,<id>"。
func GenerateNameID(name, id string) string {
	clean := specialChars.ReplaceAllString(name, "")
	return whitespace.ReplaceAllString(clean, "-") + "-i," + id
}

// IDFromNameID 從網址片段取回商品 id。
func IDFromNameID(nameID string) string {
	parts := strings.Split(nameID, "-i,")
	return parts[len(parts)-1]
}

// DiscountRate 回傳折扣百分比字串，例如 "20%"。
func DiscountRate(priceBeforeDiscount, price int64) string {
	if priceBeforeDiscount <= 0 {
		return "0%"
	}
	rate := math.Ceil((1 - float64(price)/float64(priceBeforeDiscount)) * 100)
	return strconv.Itoa(int(rate)) + "%"
}
