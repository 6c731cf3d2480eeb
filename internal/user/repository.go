package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portalconselheiros/portal/internal/repo"
)

const dbTimeout = 3 * time.Second

// Repository fornece acesso à tabela de usuários.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var u User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, senha_hash, role, created_at, updated_at
		FROM users
		WHERE lower(email) = lower($1)
	`, strings.TrimSpace(email)).Scan(&u.ID, &u.Email, &u.SenhaHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, repo.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var u User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, senha_hash, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.SenhaHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, repo.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Upsert insere o usuário ou mantém o existente (usado pelo seed).
func (r *Repository) Upsert(ctx context.Context, email, senhaHash string, role Role) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var u User
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (email, senha_hash, role)
		VALUES (lower($1), $2, $3)
		ON CONFLICT (email) DO UPDATE SET updated_at = now()
		RETURNING id, email, senha_hash, role, created_at, updated_at
	`, email, senhaHash, role).Scan(&u.ID, &u.Email, &u.SenhaHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, repo.MapError(err)
	}
	return u, nil
}
