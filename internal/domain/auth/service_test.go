package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/novamart/novamart-api/internal/domain/user"
	"github.com/novamart/novamart-api/internal/pkg/jwt"
	"github.com/novamart/novamart-api/internal/pkg/password"
)

type fakeUserRepo struct {
	users map[string]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*user.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	if _, exists := f.users[u.Email]; exists {
		return user.ErrEmailAlreadyExists
	}
	f.users[u.Email] = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

func newTestAuthService() (*Service, *fakeUserRepo) {
	repo := newFakeUserRepo()
	jwtSvc := jwt.NewService("auth-test-secret", time.Hour, 24*time.Hour)
	return NewService(repo, jwtSvc), repo
}

func TestRegisterIssuesTokens(t *testing.T) {
	svc, repo := newTestAuthService()

	tokens, err := svc.Register(context.Background(), "  ShopPer@Example.COM ", "s3cret-password")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if tokens.Role != "customer" {
		t.Fatalf("expected customer role, got %q", tokens.Role)
	}
	if tokens.ExpiresIn != 3600 || tokens.RefreshExpiresIn != 86400 {
		t.Fatalf("expected lifetimes 3600/86400, got %d/%d", tokens.ExpiresIn, tokens.RefreshExpiresIn)
	}

	u, ok := repo.users["shopper@example.com"]
	if !ok {
		t.Fatal("expected email to be normalized to lowercase")
	}
	if !password.Verify("s3cret-password", u.PasswordHash) {
		t.Fatal("stored hash does not verify against the password")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService()

	if _, err := svc.Register(context.Background(), "dup@example.com", "password-1"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), "DUP@example.com", "password-2")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAuthService()

	if _, err := svc.Register(context.Background(), "login@example.com", "right-password"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Login(context.Background(), "login@example.com", "right-password"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := svc.Login(context.Background(), "login@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}

	if _, err := svc.Login(context.Background(), "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	svc, _ := newTestAuthService()

	tokens, err := svc.Register(context.Background(), "refresh@example.com", "password")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	renewed, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if renewed.AccessToken == "" {
		t.Fatal("expected a new access token")
	}

	if _, err := svc.Refresh(context.Background(), tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not work as refresh token, got %v", err)
	}

	if _, err := svc.Refresh(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
