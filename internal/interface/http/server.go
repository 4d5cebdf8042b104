package httpapi

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-client/internal/application/auth"
	"storefront-client/internal/infra/memory"
	authinfra "storefront-client/internal/infrastructure/auth"
	"storefront-client/internal/infrastructure/config"
)

const (
	errNameExpiredToken  = "EXPIRED_TOKEN"
	errNameInvalidToken  = "INVALID_TOKEN"
	errNameMissingHeader = "AUTHORIZATION_HEADER_IS_REQUIRED"

	headerExpireAccessToken  = "expire-access-token"
	headerExpireRefreshToken = "expire-refresh-token"
)

// Server 封裝 mock storefront API 的路由與依賴。
type Server struct {
	engine     *gin.Engine
	store      *memory.Store
	hasher     authinfra.BcryptHasher
	tokenSvc   *authinfra.JWTIssuer
	loginUC    *auth.LoginUseCase
	registerUC *auth.RegisterUseCase
	logoutUC   *auth.LogoutUseCase
	refreshUC  *auth.RefreshUseCase
	now        func() time.Time

	avatarMu sync.RWMutex
	avatars  map[string][]byte
}

// Option 調整 Server。
type Option func(*Server)

// WithClock 替換 token 簽發/驗證與資料建立的時間來源，供測試模擬過期。
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithHashCost 指定 bcrypt 成本，測試可用 authinfra.MinCost 加速。
func WithHashCost(cost int) Option {
	return func(s *Server) { s.hasher.Cost = cost }
}

// NewServer 建立 mock API 伺服器，資料存放於記憶體。
func NewServer(cfg config.MockAPIConfig, opts ...Option) *Server {
	s := &Server{
		store:   memory.NewStore(),
		now:     time.Now,
		avatars: make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store.WithClock(s.now)

	s.tokenSvc = authinfra.NewJWTIssuer(cfg.Secret, cfg.TokenTTL, cfg.RefreshTTL, s.store, s.store).WithClock(s.now)
	s.loginUC = auth.NewLoginUseCase(s.store, s.hasher, s.tokenSvc)
	s.registerUC = auth.NewRegisterUseCase(s.store, s.hasher, s.tokenSvc).WithClock(s.now)
	s.logoutUC = auth.NewLogoutUseCase(s.tokenSvc)
	s.refreshUC = auth.NewRefreshUseCase(s.tokenSvc)

	if cfg.Seed {
		cost := s.hasher.Cost
		if cost == 0 {
			cost = authinfra.MinCost
		}
		if err := s.store.SeedUsers(cost); err != nil {
			log.Printf("[MockAPI] seed users failed: %v", err)
		}
		s.store.SeedCatalog()
	}

	s.registerRoutes()
	return s
}

// Handler 回傳路由處理器，供 HTTP server 掛載。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Store 主要用於測試注入初始資料。
func (s *Server) Store() *memory.Store {
	return s.store
}
