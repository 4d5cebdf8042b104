package authinfra

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"storefront-client/internal/domain/auth"
)

// JWTIssuer 實作 TokenIssuer，產生/驗證 JWT access token。
type JWTIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	sessions   auth.SessionStore
	users      UserFinder
	now        func() time.Time
}

// NewJWTIssuer 建立 JWT 簽發器。
func NewJWTIssuer(secret string, accessTTL, refreshTTL time.Duration, sessions auth.SessionStore, users UserFinder) *JWTIssuer {
	return &JWTIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		sessions:   sessions,
		users:      users,
		now:        time.Now,
	}
}

// WithClock 替換時間來源，簽發與驗證都會使用。
func (j *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	if now != nil {
		j.now = now
	}
	return j
}

// Claims 定義 access token 的 payload。
type Claims struct {
	UserID string   `json:"uid"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserFinder 簡化 user repo 需求，僅用於 refresh 時查詢使用者。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (auth.User, error)
}

// Issue 產生 access/refresh token 並儲存 session。
func (j *JWTIssuer) Issue(ctx context.Context, user auth.User, meta auth.TokenMeta) (auth.TokenPair, error) {
	now := j.now()
	accessTTL := pick(meta.TTL.Access, j.accessTTL)
	refreshTTL := pick(meta.TTL.Refresh, j.refreshTTL)

	access, accessExp, err := j.signAccess(user, now, accessTTL)
	if err != nil {
		return auth.TokenPair{}, err
	}

	refreshToken, err := randomToken()
	if err != nil {
		return auth.TokenPair{}, err
	}
	refreshExp := now.Add(refreshTTL)
	if j.sessions != nil {
		if err := j.sessions.SaveSession(ctx, auth.Session{
			Token:     refreshToken,
			UserID:    user.ID,
			ExpiresAt: refreshExp,
			UserAgent: meta.UserAgent,
			IPAddress: meta.IP,
			CreatedAt: now,
		}); err != nil {
			return auth.TokenPair{}, err
		}
	}

	return auth.TokenPair{
		AccessToken:   access,
		RefreshToken:  refreshToken,
		AccessExpiry:  accessExp,
		RefreshExpiry: refreshExp,
	}, nil
}

// RefreshAccess 以 refresh token 換發新的 access token，refresh token 本身不輪替。
func (j *JWTIssuer) RefreshAccess(ctx context.Context, token string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(token) == "" {
		return "", time.Time{}, fmt.Errorf("refresh token required")
	}
	if j.sessions == nil {
		return "", time.Time{}, fmt.Errorf("session store not configured")
	}

	sess, err := j.sessions.GetSession(ctx, token)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("get session: %w", err)
	}
	now := j.now()
	if err := sess.Check(now); err != nil {
		return "", time.Time{}, err
	}

	user, err := j.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return "", time.Time{}, fmt.Errorf("user disabled")
	}
	return j.signAccess(user, now, pick(ttl, j.accessTTL))
}

// RevokeRefresh 作廢 refresh token，未設定 session store 時略過。
func (j *JWTIssuer) RevokeRefresh(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" || j.sessions == nil {
		return nil
	}
	return j.sessions.RevokeSession(ctx, token)
}

// ParseAccessToken 驗證並解析 access token，可帶或不帶 "Bearer " 前綴。
// 過期回傳 auth.ErrTokenExpired，其他錯誤皆包成 auth.ErrTokenInvalid。
func (j *JWTIssuer) ParseAccessToken(token string) (Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, auth.BearerPrefix))
	if token == "" {
		return Claims{}, auth.ErrTokenInvalid
	}

	var claims Claims
	tkn, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithExpirationRequired())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Claims{}, auth.ErrTokenExpired
	}
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", auth.ErrTokenInvalid, err)
	}
	if !tkn.Valid {
		return Claims{}, auth.ErrTokenInvalid
	}
	return claims, nil
}

func (j *JWTIssuer) signAccess(user auth.User, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, string(r))
	}
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return auth.BearerPrefix + signed, exp, nil
}

func pick(override, fallback time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return fallback
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
