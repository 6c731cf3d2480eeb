package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/portalconselheiros/portal/internal/auth"
	"github.com/portalconselheiros/portal/internal/repo"
	"github.com/portalconselheiros/portal/internal/user"
)

type stubUserRepo struct {
	user user.User
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if strings.EqualFold(email, s.user.Email) {
		return s.user, nil
	}
	return user.User{}, repo.ErrNotFound
}

func (s *stubUserRepo) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	if id == s.user.ID {
		return s.user, nil
	}
	return user.User{}, repo.ErrNotFound
}

type stubRedis struct {
	store map[string]string
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if s.store == nil {
		s.store = make(map[string]string)
	}
	s.store[key] = fmt.Sprint(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	val, ok := s.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := s.store[key]; ok {
			delete(s.store, key)
			removed++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(removed)
	return cmd
}

func newTestService(t *testing.T, password string) (*AuthService, user.User) {
	t.Helper()

	hash, err := auth.Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	u := user.User{
		ID:        uuid.New(),
		Email:     "admin@senac.br",
		SenhaHash: hash,
		Role:      user.RoleAdmin,
	}

	jwtMgr := auth.NewJWTManager(strings.Repeat("a", 32), strings.Repeat("b", 32), time.Minute, time.Hour)
	svc := NewAuthService(&stubUserRepo{user: u}, &stubRedis{}, jwtMgr)
	return svc, u
}

func TestLoginEmitsTokensWithRole(t *testing.T) {
	svc, u := newTestService(t, "SenhaForte123!")

	result, err := svc.Login(context.Background(), "ADMIN@senac.br", "SenhaForte123!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.JWT().ParseAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Subject != u.ID.String() {
		t.Fatalf("expected subject %s, got %s", u.ID, claims.Subject)
	}
	if claims.Role != "ADMIN" {
		t.Fatalf("expected role ADMIN, got %s", claims.Role)
	}
	if result.RefreshToken == "" {
		t.Fatal("expected refresh token")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newTestService(t, "SenhaForte123!")

	if _, err := svc.Login(context.Background(), "admin@senac.br", "errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t, "SenhaForte123!")

	if _, err := svc.Login(context.Background(), "outro@senac.br", "SenhaForte123!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	svc, u := newTestService(t, "SenhaForte123!")

	result, err := svc.Login(context.Background(), u.Email, "SenhaForte123!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	accessToken, err := svc.Refresh(context.Background(), result.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	claims, err := svc.JWT().ParseAccessToken(accessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != u.ID.String() {
		t.Fatalf("expected subject %s, got %s", u.ID, claims.Subject)
	}
}

func TestRefreshRejectsAfterLogout(t *testing.T) {
	svc, u := newTestService(t, "SenhaForte123!")

	result, err := svc.Login(context.Background(), u.Email, "SenhaForte123!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), result.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), result.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	svc, _ := newTestService(t, "SenhaForte123!")

	if _, err := svc.Refresh(context.Background(), "não-é-um-jwt"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}
