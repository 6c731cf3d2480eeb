package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/portalconselheiros/portal/internal/auth"
	"github.com/portalconselheiros/portal/internal/repo"
	"github.com/portalconselheiros/portal/internal/user"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	// Propositalmente indistinto entre e-mail inexistente e senha errada.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrRefreshInvalid indica refresh token inválido, expirado ou revogado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
)

type userRepository interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação e sessões.
type AuthService struct {
	users userRepository
	redis redisCommander
	jwt   *auth.JWTManager
}

// NewAuthService cria novo serviço.
func NewAuthService(users userRepository, redisClient redisCommander, jwtMgr *auth.JWTManager) *AuthService {
	return &AuthService{users: users, redis: redisClient, jwt: jwtMgr}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	User         user.User `json:"user"`
}

// Login autentica por e-mail e senha e emite o par de tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(password, u.SenhaHash)
	if err != nil {
		log.Warn().Err(err).Msg("login: verificação de senha falhou")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Msg("login: senha inválida")
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwt.GenerateAccessToken(u.ID.String(), u.Email, string(u.Role))
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(u.ID.String())
	if err != nil {
		return nil, err
	}

	// Allow-list no Redis: refresh só é aceito enquanto a chave existir,
	// o que torna a sessão revogável antes da expiração do JWT.
	key := auth.RefreshRedisKey(u.ID.String(), auth.HashRefreshToken(refreshToken))
	if err := s.redis.Set(ctx, key, "1", s.jwt.RefreshTTL()).Err(); err != nil {
		return nil, err
	}

	return &LoginResult{AccessToken: accessToken, RefreshToken: refreshToken, User: u}, nil
}

// Refresh valida o token de refresh e emite novo token de acesso.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", ErrRefreshInvalid
	}

	key := auth.RefreshRedisKey(claims.Subject, auth.HashRefreshToken(refreshToken))
	if err := s.redis.Get(ctx, key).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrRefreshInvalid
		}
		return "", err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", ErrRefreshInvalid
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrRefreshInvalid
		}
		return "", err
	}

	return s.jwt.GenerateAccessToken(u.ID.String(), u.Email, string(u.Role))
}

// Logout revoga o refresh token correspondente.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.ParseRefreshToken(refreshToken)
	if err != nil {
		return ErrRefreshInvalid
	}

	key := auth.RefreshRedisKey(claims.Subject, auth.HashRefreshToken(refreshToken))
	return s.redis.Del(ctx, key).Err()
}

// GetUserByID resolve o usuário autenticado (rota /me).
func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return s.users.GetByID(ctx, id)
}
