package httpapi

import (
	"github.com/gin-gonic/gin"

	"storefront-client/internal/interface/http/handler"
)

func (s *Server) registerRoutes() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.ginLogger(), corsMiddleware())
	r.MaxMultipartMemory = maxAvatarSize

	r.Any("/ping", gin.WrapH(handler.Ping("mockapi")))
	r.GET("/health", s.handleHealth)

	r.POST("/login", s.handleLogin)
	r.POST("/register", s.handleRegister)
	r.POST("/refresh-access-token", s.handleRefresh)
	r.POST("/logout", s.requireAuth(), s.handleLogout)

	r.GET("/products", s.handleListProducts)
	r.GET("/products/:id", s.handleGetProduct)
	r.GET("/categories", s.handleListCategories)
	r.GET("/images/:name", s.handleImage)

	authed := r.Group("/", s.requireAuth())
	authed.GET("/me", s.handleMe)
	authed.PUT("/user", s.handleUpdateUser)
	authed.POST("/user/upload-avatar", s.handleUploadAvatar)

	purchases := authed.Group("/purchases")
	purchases.GET("", s.handleListPurchases)
	purchases.DELETE("", s.handleDeletePurchases)
	purchases.POST("/add-to-cart", s.handleAddToCart)
	purchases.PUT("/update-purchase", s.handleUpdatePurchase)
	purchases.POST("/buy-products", s.handleBuyProducts)

	s.engine = r
}
