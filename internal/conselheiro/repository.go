package conselheiro

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portalconselheiros/portal/internal/repo"
)

const dbTimeout = 3 * time.Second

// Repository fornece acesso aos dados de conselheiros.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectColumns = `id, nome, email, cargo, instituicao, foto_ref_url, ativo, created_at, updated_at`

func scanConselheiro(row pgx.Row) (Conselheiro, error) {
	var c Conselheiro
	err := row.Scan(&c.ID, &c.Nome, &c.Email, &c.Cargo, &c.Instituicao, &c.FotoRefURL, &c.Ativo, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conselheiro{}, repo.ErrNotFound
		}
		return Conselheiro{}, err
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context) ([]Conselheiro, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM conselheiros ORDER BY nome ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conselheiro
	for rows.Next() {
		c, err := scanConselheiro(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListAtivosComFoto devolve os elegíveis para reconhecimento facial.
func (r *Repository) ListAtivosComFoto(ctx context.Context) ([]Conselheiro, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM conselheiros
		WHERE ativo = true AND foto_ref_url IS NOT NULL
		ORDER BY nome ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conselheiro
	for rows.Next() {
		c, err := scanConselheiro(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Conselheiro, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanConselheiro(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM conselheiros WHERE id = $1`, id))
}

func (r *Repository) Insert(ctx context.Context, arg CreateParams) (Conselheiro, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c, err := scanConselheiro(r.db.QueryRow(ctx, `
		INSERT INTO conselheiros (nome, email, cargo, instituicao)
		VALUES ($1, $2, $3, $4)
		RETURNING `+selectColumns+`
	`, arg.Nome, arg.Email, arg.Cargo, arg.Instituicao))
	if err != nil {
		return Conselheiro{}, repo.MapError(err)
	}
	return c, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, arg UpdateParams) (Conselheiro, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c, err := scanConselheiro(r.db.QueryRow(ctx, `
		UPDATE conselheiros SET
			nome        = COALESCE($2, nome),
			email       = COALESCE($3, email),
			cargo       = COALESCE($4, cargo),
			instituicao = COALESCE($5, instituicao),
			ativo       = COALESCE($6, ativo),
			updated_at  = now()
		WHERE id = $1
		RETURNING `+selectColumns+`
	`, id, arg.Nome, arg.Email, arg.Cargo, arg.Instituicao, arg.Ativo))
	if err != nil {
		return Conselheiro{}, repo.MapError(err)
	}
	return c, nil
}

func (r *Repository) UpdateFotoRef(ctx context.Context, id uuid.UUID, fotoURL string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `
		UPDATE conselheiros SET foto_ref_url = $2, updated_at = now() WHERE id = $1
	`, id, fotoURL)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM conselheiros WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM conselheiros`).Scan(&total)
	return total, err
}
