package memory

import (
	"fmt"
	"time"

	"storefront-client/internal/domain/shop"
)

// SeedCatalog 建立示範分類與商品，建立時間依序遞增以便排序。
func (s *Store) SeedCatalog() {
	base := s.now().UTC().Add(-24 * time.Hour)
	shirts := s.AddCategory("Áo thun")
	watches := s.AddCategory("Đồng hồ")
	phones := s.AddCategory("Điện thoại")

	items := []shop.Product{
		{Name: "Áo thun nam cổ tròn", Price: 89000, PriceBeforeDiscount: 120000, Quantity: 120, Sold: 340, Rating: 4.6, Category: shirts},
		{Name: "Áo thun oversize unisex", Price: 149000, PriceBeforeDiscount: 199000, Quantity: 80, Sold: 120, Rating: 4.2, Category: shirts},
		{Name: "Đồng hồ nam dây da", Price: 450000, PriceBeforeDiscount: 650000, Quantity: 25, Sold: 60, Rating: 4.8, Category: watches},
		{Name: "Đồng hồ thông minh", Price: 990000, PriceBeforeDiscount: 1290000, Quantity: 10, Sold: 15, Rating: 3.9, Category: watches},
		{Name: "Điện thoại phổ thông", Price: 590000, PriceBeforeDiscount: 690000, Quantity: 40, Sold: 210, Rating: 4.1, Category: phones},
		{Name: "Điện thoại màn hình lớn", Price: 3990000, PriceBeforeDiscount: 4590000, Quantity: 5, Sold: 8, Rating: 4.9, Category: phones},
	}
	for i, p := range items {
		p.Description = p.Name
		p.Images = []string{fmt.Sprintf("product-%d.jpg", i+1)}
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.AddProduct(p)
	}
}
