package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "storefront-client/internal/domain/auth"
)

type fakeUserRepo struct {
	user    domain.User
	err     error
	created []domain.User
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (domain.User, error) {
	if f.err != nil {
		return domain.User{}, f.err
	}
	if f.user.Email != email {
		return domain.User{}, domain.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, _ string) (domain.User, error) {
	if f.err != nil {
		return domain.User{}, f.err
	}
	return f.user, nil
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u domain.User) error {
	f.created = append(f.created, u)
	return nil
}

type fakeHasher struct {
	match bool
}

func (f fakeHasher) Compare(_, _ string) bool { return f.match }

func (f fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

type fakeTokens struct {
	pair    domain.TokenPair
	err     error
	revoked string
	meta    domain.TokenMeta
}

func (f *fakeTokens) Issue(_ context.Context, _ domain.User, meta domain.TokenMeta) (domain.TokenPair, error) {
	f.meta = meta
	if f.err != nil {
		return domain.TokenPair{}, f.err
	}
	return f.pair, nil
}

func (f *fakeTokens) RefreshAccess(_ context.Context, _ string, _ time.Duration) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return f.pair.AccessToken, f.pair.AccessExpiry, nil
}

func (f *fakeTokens) RevokeRefresh(_ context.Context, token string) error {
	f.revoked = token
	return f.err
}

func TestLoginSuccess(t *testing.T) {
	user := domain.User{
		ID:       "u1",
		Email:    "user@example.com",
		Roles:    []domain.Role{domain.RoleUser},
		Status:   domain.StatusActive,
		Password: "hashed",
	}
	tokens := &fakeTokens{pair: domain.TokenPair{
		AccessToken:   "access",
		RefreshToken:  "refresh",
		AccessExpiry:  time.Now().Add(time.Minute),
		RefreshExpiry: time.Now().Add(time.Hour),
	}}
	uc := NewLoginUseCase(&fakeUserRepo{user: user}, fakeHasher{match: true}, tokens)
	res, err := uc.Execute(context.Background(), LoginInput{
		Email:    " User@Example.com",
		Password: "secret",
		TTL:      domain.TokenTTL{Access: 10 * time.Second},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Token.AccessToken != "access" || res.Token.RefreshToken != "refresh" {
		t.Fatalf("unexpected token: %+v", res.Token)
	}
	if tokens.meta.TTL.Access != 10*time.Second {
		t.Fatalf("ttl not forwarded: %+v", tokens.meta)
	}
}

func TestLoginFailsOnStatusOrPassword(t *testing.T) {
	user := domain.User{
		ID:       "u1",
		Email:    "user@example.com",
		Roles:    []domain.Role{domain.RoleUser},
		Status:   domain.StatusDisabled,
		Password: "hashed",
	}
	uc := NewLoginUseCase(&fakeUserRepo{user: user}, fakeHasher{match: false}, &fakeTokens{})

	if _, err := uc.Execute(context.Background(), LoginInput{Email: "user@example.com", Password: "x"}); err == nil {
		t.Fatalf("expected error for disabled user")
	}
	user.Status = domain.StatusActive
	uc = NewLoginUseCase(&fakeUserRepo{user: user}, fakeHasher{match: false}, &fakeTokens{})
	_, err := uc.Execute(context.Background(), LoginInput{Email: "user@example.com", Password: "x"})
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Fields["password"] == "" {
		t.Fatalf("expected password field error, got %v", err)
	}
}

func TestLoginUnknownEmailIsFieldError(t *testing.T) {
	uc := NewLoginUseCase(&fakeUserRepo{}, fakeHasher{}, &fakeTokens{})
	_, err := uc.Execute(context.Background(), LoginInput{Email: "nobody@example.com", Password: "x"})
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Fields["email"] == "" {
		t.Fatalf("expected email field error, got %v", err)
	}
}

func TestLoginErrorFromRepo(t *testing.T) {
	uc := NewLoginUseCase(&fakeUserRepo{err: errors.New("db down")}, fakeHasher{}, &fakeTokens{})
	_, err := uc.Execute(context.Background(), LoginInput{Email: "a", Password: "b"})
	var fe *FieldError
	if err == nil || errors.As(err, &fe) {
		t.Fatalf("expected plain error from repo, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	repo := &fakeUserRepo{user: domain.User{Email: "taken@example.com"}}
	tokens := &fakeTokens{pair: domain.TokenPair{AccessToken: "access"}}
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	uc := NewRegisterUseCase(repo, fakeHasher{}, tokens).WithClock(func() time.Time { return now })

	tests := []struct {
		name      string
		input     LoginInput
		wantField string
	}{
		{name: "invalid email", input: LoginInput{Email: "nope", Password: "secret1"}, wantField: "email"},
		{name: "short password", input: LoginInput{Email: "new@example.com", Password: "123"}, wantField: "password"},
		{name: "taken email", input: LoginInput{Email: "taken@example.com", Password: "secret1"}, wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.input)
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Fields[tt.wantField] == "" {
				t.Fatalf("expected %s field error, got %v", tt.wantField, err)
			}
		})
	}

	res, err := uc.Execute(context.Background(), LoginInput{Email: "New@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected user created, got %d", len(repo.created))
	}
	created := repo.created[0]
	if created.Email != "new@example.com" || created.Password != "hashed:secret1" || !created.CreatedAt.Equal(now) {
		t.Fatalf("unexpected created user %+v", created)
	}
	if res.Token.AccessToken != "access" || res.User.ID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestLogoutRevokesRefresh(t *testing.T) {
	tokens := &fakeTokens{}
	uc := NewLogoutUseCase(tokens)
	if err := uc.Execute(context.Background(), "refresh-token"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens.revoked != "refresh-token" {
		t.Fatalf("expected token revoked")
	}
	if err := uc.Execute(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestRefresh(t *testing.T) {
	tokens := &fakeTokens{pair: domain.TokenPair{AccessToken: "Bearer new"}}
	uc := NewRefreshUseCase(tokens)

	res, err := uc.Execute(context.Background(), "r1", 0)
	if err != nil || res.AccessToken != "Bearer new" {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}
	if _, err := uc.Execute(context.Background(), " ", 0); err == nil {
		t.Fatalf("expected error for blank token")
	}
	tokens.err = domain.ErrTokenExpired
	if _, err := uc.Execute(context.Background(), "r1", 0); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}
