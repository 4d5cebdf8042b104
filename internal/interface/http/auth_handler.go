package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-client/internal/application/auth"
	authDomain "storefront-client/internal/domain/auth"
)

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	s.authenticate(c, "Đăng nhập thành công", s.loginUC.Execute)
}

func (s *Server) handleRegister(c *gin.Context) {
	s.authenticate(c, "Đăng ký thành công", s.registerUC.Execute)
}

func (s *Server) authenticate(c *gin.Context, okMsg string, exec func(ctx context.Context, in auth.LoginInput) (auth.LoginResult, error)) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid body")
		return
	}

	res, err := exec(c.Request.Context(), auth.LoginInput{
		Email:     body.Email,
		Password:  body.Password,
		UserAgent: c.GetHeader("User-Agent"),
		IP:        c.ClientIP(),
		TTL:       requestedTTL(c),
	})
	if err != nil {
		log.Printf("[Auth] %s failure for %s: %v", c.FullPath(), body.Email, err)
		writeUseCaseError(c, err)
		return
	}

	writeSuccess(c, okMsg, gin.H{
		"access_token":          res.Token.AccessToken,
		"expires":               int(res.Token.AccessExpiry.Sub(s.now()).Seconds()),
		"refresh_token":         res.Token.RefreshToken,
		"expires_refresh_token": int(res.Token.RefreshExpiry.Sub(s.now()).Seconds()),
		"user":                  res.User.Profile(),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid body")
		return
	}

	res, err := s.refreshUC.Execute(c.Request.Context(), body.RefreshToken, requestedTTL(c).Access)
	var fe *auth.FieldError
	switch {
	case err == nil:
	case errors.As(err, &fe):
		writeFieldErrors(c, fe.Fields)
		return
	case errors.Is(err, authDomain.ErrTokenExpired):
		writeUnauthorized(c, errNameExpiredToken, "refresh token expired")
		return
	default:
		log.Printf("[Auth] refresh failure: %v", err)
		writeUnauthorized(c, errNameInvalidToken, "invalid refresh token")
		return
	}

	writeSuccess(c, "Refresh Token thành công", gin.H{"access_token": res.AccessToken})
}

// handleLogout 作廢 body 帶的 refresh token，未帶時作廢該使用者全部 session。
func (s *Server) handleLogout(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&body)

	if body.RefreshToken != "" {
		if err := s.logoutUC.Execute(c.Request.Context(), body.RefreshToken); err != nil {
			log.Printf("[Auth] logout revoke failed: %v", err)
		}
	} else if err := s.store.RevokeUserSessions(c.Request.Context(), currentUserID(c)); err != nil {
		log.Printf("[Auth] logout revoke failed: %v", err)
	}

	writeSuccess(c, "Đăng xuất thành công", nil)
}
