package shop

import (
	"strings"
	"time"
)

// Role 為使用者角色。
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// User 為後端回傳的個人資料。
type User struct {
	ID          string     `json:"_id"`
	Roles       []Role     `json:"roles"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Avatar      string     `json:"avatar,omitempty"`
	Address     string     `json:"address,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ProfileUpdate 為 PUT user 的 body，空欄位不送出。
type ProfileUpdate struct {
	Name        string     `json:"name,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Address     string     `json:"address,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Avatar      string     `json:"avatar,omitempty"`
	Password    string     `json:"password,omitempty"`
	NewPassword string     `json:"new_password,omitempty"`
}

// AvatarURL 回傳頭像完整網址，未設定頭像時回傳空字串。
func AvatarURL(baseURL, avatar string) string {
	if avatar == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/images/" + avatar
}
