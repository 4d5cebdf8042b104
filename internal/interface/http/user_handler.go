package httpapi

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "storefront-client/internal/domain/auth"
	"storefront-client/internal/domain/shop"
)

const maxAvatarSize = 1 << 20

func (s *Server) currentUser(c *gin.Context) (authDomain.User, bool) {
	u, err := s.store.FindByID(c.Request.Context(), currentUserID(c))
	if errors.Is(err, authDomain.ErrNotFound) {
		writeError(c, http.StatusNotFound, "user not found")
		return u, false
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return u, false
	}
	return u, true
}

func (s *Server) handleMe(c *gin.Context) {
	u, ok := s.currentUser(c)
	if !ok {
		return
	}
	writeSuccess(c, "Lấy người dùng thành công", u.Profile())
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	var body shop.ProfileUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid body")
		return
	}
	u, ok := s.currentUser(c)
	if !ok {
		return
	}

	if body.NewPassword != "" {
		if !s.hasher.Compare(u.Password, body.Password) {
			writeFieldErrors(c, map[string]string{"password": "password is incorrect"})
			return
		}
		if len(body.NewPassword) < 6 {
			writeFieldErrors(c, map[string]string{"new_password": "password length must be 6-160"})
			return
		}
		hashed, err := s.hasher.Hash(body.NewPassword)
		if err != nil {
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		u.Password = hashed
	}
	if body.Name != "" {
		u.Name = body.Name
	}
	if body.Phone != "" {
		u.Phone = body.Phone
	}
	if body.Address != "" {
		u.Address = body.Address
	}
	if body.Avatar != "" {
		u.Avatar = body.Avatar
	}
	if body.DateOfBirth != nil {
		u.DateOfBirth = body.DateOfBirth
	}
	u.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateUser(c.Request.Context(), u); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeSuccess(c, "Cập nhật người dùng thành công", u.Profile())
}

func (s *Server) handleUploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		writeFieldErrors(c, map[string]string{"image": "image is required"})
		return
	}
	if fh.Size > maxAvatarSize {
		writeFieldErrors(c, map[string]string{"image": "image exceeds 1MB"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	s.avatarMu.Lock()
	s.avatars[name] = data
	s.avatarMu.Unlock()

	writeSuccess(c, "Upload ảnh thành công", name)
}

func (s *Server) handleImage(c *gin.Context) {
	s.avatarMu.RLock()
	data, ok := s.avatars[c.Param("name")]
	s.avatarMu.RUnlock()
	if !ok {
		writeError(c, http.StatusNotFound, "image not found")
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
