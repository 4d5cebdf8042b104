package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	authDomain "storefront-client/internal/domain/auth"
	"storefront-client/internal/domain/shop"
	authinfra "storefront-client/internal/infrastructure/auth"
)

const (
	defaultPage  = 1
	defaultLimit = 30
)

// Store 為 mock API 使用的記憶體資料庫，可併發使用。
type Store struct {
	mu         sync.RWMutex
	users      map[string]authDomain.User
	sessions   map[string]authDomain.Session
	categories []shop.Category
	products   map[string]shop.Product
	purchases  map[string]shop.Purchase
	idSeq      int64
	now        func() time.Time
}

// NewStore 建立新的記憶體 Store 實例。
func NewStore() *Store {
	return &Store{
		users:     make(map[string]authDomain.User),
		sessions:  make(map[string]authDomain.Session),
		products:  make(map[string]shop.Product),
		purchases: make(map[string]shop.Purchase),
		now:       time.Now,
	}
}

// WithClock 替換時間來源。
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// ID generator (simple incremental)，呼叫端需持有寫鎖。
func (s *Store) nextID(prefix string) string {
	s.idSeq++
	return fmt.Sprintf("%s-%d", prefix, s.idSeq)
}

// SeedUsers 建立預設帳號供登入測試，密碼皆為 password123。
func (s *Store) SeedUsers(cost int) error {
	hash, err := authinfra.HashPasswordCost("password123", cost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for _, u := range []struct {
		email string
		name  string
		roles []authDomain.Role
	}{
		{"admin@example.com", "Admin", []authDomain.Role{authDomain.RoleUser, authDomain.RoleAdmin}},
		{"user@example.com", "User", []authDomain.Role{authDomain.RoleUser}},
	} {
		id := s.nextID("user")
		s.users[id] = authDomain.User{
			ID:        id,
			Email:     u.email,
			Password:  hash,
			Name:      u.name,
			Roles:     u.roles,
			Status:    authDomain.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return nil
}

// FindByEmail 依 email 查詢使用者。
func (s *Store) FindByEmail(ctx context.Context, email string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return authDomain.User{}, authDomain.ErrNotFound
}

// FindByID 依 ID 查詢使用者。
func (s *Store) FindByID(ctx context.Context, id string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return authDomain.User{}, authDomain.ErrNotFound
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, user authDomain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return authDomain.ErrEmailTaken
		}
	}
	s.users[user.ID] = user
	return nil
}

// UpdateUser 覆寫既有使用者。
func (s *Store) UpdateUser(ctx context.Context, user authDomain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return authDomain.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

// SessionStore impl
func (s *Store) SaveSession(ctx context.Context, sess authDomain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (authDomain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return authDomain.Session{}, authDomain.ErrNotFound
	}
	return sess, nil
}

func (s *Store) RevokeSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil
	}
	sess.Revoke(s.now())
	s.sessions[token] = sess
	return nil
}

// AddCategory 新增分類並回傳其 ID。
func (s *Store) AddCategory(name string) shop.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := shop.Category{ID: s.nextID("cat"), Name: name}
	s.categories = append(s.categories, c)
	return c
}

func (s *Store) Categories(ctx context.Context) ([]shop.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]shop.Category(nil), s.categories...), nil
}

// AddProduct 新增商品，ID 與建立時間由 Store 產生。
func (s *Store) AddProduct(p shop.Product) shop.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID("prod")
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	p.UpdatedAt = p.CreatedAt
	if p.Image == "" && len(p.Images) > 0 {
		p.Image = p.Images[0]
	}
	s.products[p.ID] = p
	return p
}

// GetProduct 取得商品並累加瀏覽數。
func (s *Store) GetProduct(ctx context.Context, id string) (shop.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return shop.Product{}, shop.ErrProductNotFound
	}
	p.View++
	s.products[id] = p
	return p, nil
}

// ListProducts 依條件篩選、排序並分頁。
func (s *Store) ListProducts(ctx context.Context, cfg shop.ListConfig) (shop.ProductList, error) {
	s.mu.RLock()
	items := make([]shop.Product, 0, len(s.products))
	for _, p := range s.products {
		if matchProduct(p, cfg) {
			items = append(items, p)
		}
	}
	s.mu.RUnlock()

	sortProducts(items, cfg.SortBy, cfg.Order)

	page, limit := cfg.Page, cfg.Limit
	if page <= 0 {
		page = defaultPage
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	pageSize := (len(items) + limit - 1) / limit
	start := (page - 1) * limit
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return shop.ProductList{
		Products:   items[start:end],
		Pagination: shop.Pagination{Page: page, Limit: limit, PageSize: pageSize},
	}, nil
}

func matchProduct(p shop.Product, cfg shop.ListConfig) bool {
	if cfg.Category != "" && p.Category.ID != cfg.Category {
		return false
	}
	if cfg.Exclude != "" && p.ID == cfg.Exclude {
		return false
	}
	if cfg.RatingFilter > 0 && p.Rating < float64(cfg.RatingFilter) {
		return false
	}
	if cfg.PriceMin > 0 && p.Price < cfg.PriceMin {
		return false
	}
	if cfg.PriceMax > 0 && p.Price > cfg.PriceMax {
		return false
	}
	if cfg.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(cfg.Name)) {
		return false
	}
	return true
}

func sortProducts(items []shop.Product, by shop.SortBy, order shop.Order) {
	key := func(p shop.Product) float64 {
		switch by {
		case shop.SortByView:
			return float64(p.View)
		case shop.SortBySold:
			return float64(p.Sold)
		case shop.SortByPrice:
			return float64(p.Price)
		default:
			return float64(p.CreatedAt.UnixNano())
		}
	}
	asc := order == shop.OrderAsc
	sort.SliceStable(items, func(i, j int) bool {
		ki, kj := key(items[i]), key(items[j])
		if ki == kj {
			return items[i].ID < items[j].ID
		}
		if asc {
			return ki < kj
		}
		return ki > kj
	})
}

// AddToCart 加入購物車，同商品已在購物車時累加數量。
func (s *Store) AddToCart(ctx context.Context, userID string, item shop.CartItem) (shop.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[item.ProductID]
	if !ok {
		return shop.Purchase{}, shop.ErrProductNotFound
	}
	now := s.now().UTC()
	if existing, ok := s.cartItemLocked(userID, item.ProductID); ok {
		if existing.BuyCount+item.BuyCount > p.Quantity {
			return shop.Purchase{}, shop.ErrOutOfStock
		}
		existing.BuyCount += item.BuyCount
		existing.Product = p
		existing.UpdatedAt = now
		s.purchases[existing.ID] = existing
		return existing, nil
	}
	if item.BuyCount > p.Quantity {
		return shop.Purchase{}, shop.ErrOutOfStock
	}
	pur := shop.Purchase{
		ID:                  s.nextID("pur"),
		BuyCount:            item.BuyCount,
		Price:               p.Price,
		PriceBeforeDiscount: p.PriceBeforeDiscount,
		Status:              shop.PurchaseInCart,
		User:                userID,
		Product:             p,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.purchases[pur.ID] = pur
	return pur, nil
}

// UpdateCartItem 修改購物車中商品的數量。
func (s *Store) UpdateCartItem(ctx context.Context, userID string, item shop.CartItem) (shop.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.cartItemLocked(userID, item.ProductID)
	if !ok {
		return shop.Purchase{}, shop.ErrPurchaseNotFound
	}
	p := s.products[item.ProductID]
	if item.BuyCount > p.Quantity {
		return shop.Purchase{}, shop.ErrOutOfStock
	}
	existing.BuyCount = item.BuyCount
	existing.Product = p
	existing.UpdatedAt = s.now().UTC()
	s.purchases[existing.ID] = existing
	return existing, nil
}

// BuyProducts 結帳：品項轉為待確認並扣庫存。不在購物車的品項會直接建立紀錄。
// 任何品項庫存不足時整筆失敗，不會部分扣庫存。
func (s *Store) BuyProducts(ctx context.Context, userID string, items []shop.CartItem) ([]shop.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	need := make(map[string]int, len(items))
	for _, it := range items {
		p, ok := s.products[it.ProductID]
		if !ok {
			return nil, shop.ErrProductNotFound
		}
		need[it.ProductID] += it.BuyCount
		if need[it.ProductID] > p.Quantity {
			return nil, fmt.Errorf("%s: %w", p.Name, shop.ErrOutOfStock)
		}
	}

	now := s.now().UTC()
	out := make([]shop.Purchase, 0, len(items))
	for _, it := range items {
		p := s.products[it.ProductID]
		p.Quantity -= it.BuyCount
		p.Sold += it.BuyCount
		s.products[p.ID] = p

		pur, ok := s.cartItemLocked(userID, it.ProductID)
		if !ok {
			pur = shop.Purchase{
				ID:                  s.nextID("pur"),
				Price:               p.Price,
				PriceBeforeDiscount: p.PriceBeforeDiscount,
				User:                userID,
				CreatedAt:           now,
			}
		}
		pur.BuyCount = it.BuyCount
		pur.Status = shop.PurchaseWaitForConfirmation
		pur.Product = p
		pur.UpdatedAt = now
		s.purchases[pur.ID] = pur
		out = append(out, pur)
	}
	return out, nil
}

// ListPurchases 依狀態列出使用者的紀錄；PurchaseAll 為購物車以外的全部。
func (s *Store) ListPurchases(ctx context.Context, userID string, status shop.PurchaseStatus) ([]shop.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shop.Purchase, 0)
	for _, p := range s.purchases {
		if p.User != userID {
			continue
		}
		if status == shop.PurchaseAll {
			if p.Status == shop.PurchaseInCart {
				continue
			}
		} else if p.Status != status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// DeletePurchases 刪除購物車中的紀錄，回傳刪除筆數。非本人或已結帳的紀錄會被略過。
func (s *Store) DeletePurchases(ctx context.Context, userID string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		p, ok := s.purchases[id]
		if !ok || p.User != userID || p.Status != shop.PurchaseInCart {
			continue
		}
		delete(s.purchases, id)
		n++
	}
	return n, nil
}

func (s *Store) cartItemLocked(userID, productID string) (shop.Purchase, bool) {
	for _, p := range s.purchases {
		if p.User == userID && p.Status == shop.PurchaseInCart && p.Product.ID == productID {
			return p, true
		}
	}
	return shop.Purchase{}, false
}

// RevokeUserSessions 作廢使用者所有 refresh token。
func (s *Store) RevokeUserSessions(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for token, sess := range s.sessions {
		if sess.UserID != userID || sess.Revoked() {
			continue
		}
		sess.Revoke(now)
		s.sessions[token] = sess
	}
	return nil
}
