package auth

import (
	"errors"
	"time"

	"storefront-client/internal/domain/shop"
)

// Role 定義系統角色，值與 API 回傳一致。
type Role = shop.Role

const (
	RoleAdmin = shop.RoleAdmin
	RoleUser  = shop.RoleUser
)

// Status 定義帳號狀態。
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusLocked   Status = "locked"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User 基本帳號資料。
type User struct {
	ID          string
	Email       string
	Password    string // 雜湊後密碼
	Roles       []Role
	Status      Status
	Name        string
	Phone       string
	Address     string
	Avatar      string
	DateOfBirth *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate 基本欄位檢查。
func (u User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if len(u.Roles) == 0 {
		return errors.New("role is required")
	}
	if u.Status == "" {
		return errors.New("status is required")
	}
	return nil
}

// IsActive 檢查是否可登入。
func (u User) IsActive() bool {
	return u.Status == StatusActive
}

// Profile 轉成對外回傳的使用者資料（不含密碼）。
func (u User) Profile() shop.User {
	roles := append([]Role(nil), u.Roles...)
	return shop.User{
		ID:          u.ID,
		Roles:       roles,
		Email:       u.Email,
		Name:        u.Name,
		DateOfBirth: u.DateOfBirth,
		Avatar:      u.Avatar,
		Address:     u.Address,
		Phone:       u.Phone,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
