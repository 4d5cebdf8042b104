package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront-client/internal/domain/auth"
)

// UserRepository 存取使用者。
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (auth.User, error)
	FindByID(ctx context.Context, id string) (auth.User, error)
	CreateUser(ctx context.Context, user auth.User) error
}

// PasswordHasher 驗證/產生密碼雜湊。
type PasswordHasher interface {
	Compare(hashed, plain string) bool
	Hash(plain string) (string, error)
}

// TokenIssuer 簽發/驗證 token。
type TokenIssuer interface {
	Issue(ctx context.Context, user auth.User, meta auth.TokenMeta) (auth.TokenPair, error)
	RefreshAccess(ctx context.Context, refreshToken string, ttl time.Duration) (string, time.Time, error)
	RevokeRefresh(ctx context.Context, token string) error
}

// FieldError 為可逐欄顯示的驗證錯誤，API 會以 422 回傳。
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func fieldError(field, msg string) *FieldError {
	return &FieldError{Fields: map[string]string{field: msg}}
}

const (
	minPasswordLen = 6
	maxPasswordLen = 160
)

// LoginUseCase 驗證帳密並簽發 token。
type LoginUseCase struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewLoginUseCase(users UserRepository, hasher PasswordHasher, tokens TokenIssuer) *LoginUseCase {
	return &LoginUseCase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IP        string
	TTL       auth.TokenTTL
}

type LoginResult struct {
	User  auth.User
	Token auth.TokenPair
}

func (uc *LoginUseCase) Execute(ctx context.Context, input LoginInput) (LoginResult, error) {
	var out LoginResult
	email := normalizeEmail(input.Email)
	if email == "" {
		return out, fieldError("email", "email is required")
	}
	if input.Password == "" {
		return out, fieldError("password", "password is required")
	}

	user, err := uc.users.FindByEmail(ctx, email)
	if errors.Is(err, auth.ErrNotFound) {
		return out, fieldError("email", "email does not exist")
	}
	if err != nil {
		return out, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return out, errors.New("user disabled or locked")
	}
	if !uc.hasher.Compare(user.Password, input.Password) {
		return out, fieldError("password", "password is incorrect")
	}

	token, err := uc.tokens.Issue(ctx, user, auth.TokenMeta{UserAgent: input.UserAgent, IP: input.IP, TTL: input.TTL})
	if err != nil {
		return out, fmt.Errorf("issue token: %w", err)
	}

	out.User = user
	out.Token = token
	return out, nil
}

// RegisterUseCase 建立帳號並直接登入。
type RegisterUseCase struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	now    func() time.Time
}

func NewRegisterUseCase(users UserRepository, hasher PasswordHasher, tokens TokenIssuer) *RegisterUseCase {
	return &RegisterUseCase{users: users, hasher: hasher, tokens: tokens, now: time.Now}
}

// WithClock 替換建立時間來源。
func (uc *RegisterUseCase) WithClock(now func() time.Time) *RegisterUseCase {
	if now != nil {
		uc.now = now
	}
	return uc
}

func (uc *RegisterUseCase) Execute(ctx context.Context, input LoginInput) (LoginResult, error) {
	var out LoginResult
	email := normalizeEmail(input.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return out, fieldError("email", "email is invalid")
	}
	if n := len(input.Password); n < minPasswordLen || n > maxPasswordLen {
		return out, fieldError("password", fmt.Sprintf("password length must be %d-%d", minPasswordLen, maxPasswordLen))
	}

	if _, err := uc.users.FindByEmail(ctx, email); err == nil {
		return out, fieldError("email", auth.ErrEmailTaken.Error())
	} else if !errors.Is(err, auth.ErrNotFound) {
		return out, fmt.Errorf("find user: %w", err)
	}

	hashed, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return out, fmt.Errorf("hash password: %w", err)
	}
	now := uc.now().UTC()
	user := auth.User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  hashed,
		Roles:     []auth.Role{auth.RoleUser},
		Status:    auth.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return out, fieldError("email", err.Error())
		}
		return out, fmt.Errorf("create user: %w", err)
	}

	token, err := uc.tokens.Issue(ctx, user, auth.TokenMeta{UserAgent: input.UserAgent, IP: input.IP, TTL: input.TTL})
	if err != nil {
		return out, fmt.Errorf("issue token: %w", err)
	}
	out.User = user
	out.Token = token
	return out, nil
}

// LogoutUseCase 處理 refresh token 作廢。
type LogoutUseCase struct {
	tokens TokenIssuer
}

func NewLogoutUseCase(tokens TokenIssuer) *LogoutUseCase {
	return &LogoutUseCase{tokens: tokens}
}

func (uc *LogoutUseCase) Execute(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return errors.New("refresh token required")
	}
	return uc.tokens.RevokeRefresh(ctx, refreshToken)
}

// RefreshUseCase 以 refresh token 換發 access token。
type RefreshUseCase struct {
	tokens TokenIssuer
}

func NewRefreshUseCase(tokens TokenIssuer) *RefreshUseCase {
	return &RefreshUseCase{tokens: tokens}
}

type RefreshResult struct {
	AccessToken  string
	AccessExpiry time.Time
}

func (uc *RefreshUseCase) Execute(ctx context.Context, refreshToken string, ttl time.Duration) (RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return RefreshResult{}, fieldError("refresh_token", "refresh_token is required")
	}
	access, exp, err := uc.tokens.RefreshAccess(ctx, refreshToken, ttl)
	if err != nil {
		return RefreshResult{}, err
	}
	return RefreshResult{AccessToken: access, AccessExpiry: exp}, nil
}

func normalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
