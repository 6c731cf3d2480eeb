package reuniao

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/portalconselheiros/portal/internal/conselheiro"
	"github.com/portalconselheiros/portal/internal/repo"
)

const dbTimeout = 3 * time.Second

// Repository fornece acesso a reuniões e presenças.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanReuniao(row pgx.Row) (Reuniao, error) {
	var m Reuniao
	err := row.Scan(&m.ID, &m.Titulo, &m.Descricao, &m.Data, &m.Local, &m.Status, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reuniao{}, repo.ErrNotFound
		}
		return Reuniao{}, err
	}
	return m, nil
}

// List devolve reuniões ordenadas por data decrescente, com criador,
// presenças (incluindo conselheiro) e sessão de stream.
func (r *Repository) List(ctx context.Context) ([]Reuniao, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, titulo, descricao, data, local, status, created_by, created_at, updated_at
		FROM reunioes
		ORDER BY data DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reuniao
	for rows.Next() {
		m, err := scanReuniao(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := r.loadRelations(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Get devolve uma reunião com todas as relações carregadas.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Reuniao, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	m, err := scanReuniao(r.db.QueryRow(ctx, `
		SELECT id, titulo, descricao, data, local, status, created_by, created_at, updated_at
		FROM reunioes
		WHERE id = $1
	`, id))
	if err != nil {
		return Reuniao{}, err
	}
	if err := r.loadRelations(ctx, &m); err != nil {
		return Reuniao{}, err
	}
	return m, nil
}

func (r *Repository) loadRelations(ctx context.Context, m *Reuniao) error {
	if m.CreatedBy != nil {
		var criador Criador
		err := r.db.QueryRow(ctx, `SELECT id, email FROM users WHERE id = $1`, *m.CreatedBy).
			Scan(&criador.ID, &criador.Email)
		if err == nil {
			m.Criador = &criador
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
	}

	presencas, err := r.ListPresencas(ctx, m.ID)
	if err != nil {
		return err
	}
	m.Presencas = presencas

	var ss StreamSummary
	err = r.db.QueryRow(ctx, `
		SELECT id, room_name, status FROM stream_sessions WHERE reuniao_id = $1
	`, m.ID).Scan(&ss.ID, &ss.RoomName, &ss.Status)
	if err == nil {
		m.StreamSession = &ss
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}

func (r *Repository) Insert(ctx context.Context, arg CreateParams) (Reuniao, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if arg.Status == "" {
		arg.Status = StatusAgendada
	}

	m, err := scanReuniao(r.db.QueryRow(ctx, `
		INSERT INTO reunioes (titulo, descricao, data, local, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, titulo, descricao, data, local, status, created_by, created_at, updated_at
	`, arg.Titulo, arg.Descricao, arg.Data, arg.Local, arg.Status, arg.CreatedBy))
	if err != nil {
		return Reuniao{}, repo.MapError(err)
	}
	return m, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, arg UpdateParams) (Reuniao, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	m, err := scanReuniao(r.db.QueryRow(ctx, `
		UPDATE reunioes SET
			titulo     = COALESCE($2, titulo),
			descricao  = COALESCE($3, descricao),
			data       = COALESCE($4, data),
			local      = COALESCE($5, local),
			status     = COALESCE($6, status),
			updated_at = now()
		WHERE id = $1
		RETURNING id, titulo, descricao, data, local, status, created_by, created_at, updated_at
	`, id, arg.Titulo, arg.Descricao, arg.Data, arg.Local, arg.Status))
	if err != nil {
		return Reuniao{}, repo.MapError(err)
	}
	return m, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Reuniao, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanReuniao(r.db.QueryRow(ctx, `
		UPDATE reunioes SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, titulo, descricao, data, local, status, created_by, created_at, updated_at
	`, id, status))
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM reunioes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ListPresencas devolve as presenças da reunião ordenadas por chegada,
// com o conselheiro embutido.
func (r *Repository) ListPresencas(ctx context.Context, reuniaoID uuid.UUID) ([]Presenca, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.reuniao_id, p.conselheiro_id, p.presente, p.horario_chegada,
		       p.metodo_registro, p.confidence, p.device_id, p.created_at, p.updated_at,
		       c.id, c.nome, c.email, c.cargo, c.instituicao, c.foto_ref_url, c.ativo, c.created_at, c.updated_at
		FROM presencas p
		JOIN conselheiros c ON c.id = p.conselheiro_id
		WHERE p.reuniao_id = $1
		ORDER BY p.horario_chegada ASC NULLS LAST
	`, reuniaoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Presenca
	for rows.Next() {
		var p Presenca
		var c conselheiro.Conselheiro
		err := rows.Scan(
			&p.ID, &p.ReuniaoID, &p.ConselheiroID, &p.Presente, &p.HorarioChegada,
			&p.MetodoRegistro, &p.Confidence, &p.DeviceID, &p.CreatedAt, &p.UpdatedAt,
			&c.ID, &c.Nome, &c.Email, &c.Cargo, &c.Instituicao, &c.FotoRefURL, &c.Ativo, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		p.Conselheiro = &c
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertPresenca grava a presença em um único statement; submissões
// concorrentes para o mesmo par (reunião, conselheiro) resolvem por
// último-escreve-vence na constraint de unicidade.
func (r *Repository) UpsertPresenca(ctx context.Context, arg PresencaParams) (Presenca, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if arg.MetodoRegistro == "" {
		arg.MetodoRegistro = MetodoManual
	}

	var p Presenca
	err := r.db.QueryRow(ctx, `
		INSERT INTO presencas (reuniao_id, conselheiro_id, presente, horario_chegada, metodo_registro, confidence, device_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (reuniao_id, conselheiro_id) DO UPDATE SET
			presente        = EXCLUDED.presente,
			horario_chegada = COALESCE(EXCLUDED.horario_chegada, presencas.horario_chegada),
			metodo_registro = EXCLUDED.metodo_registro,
			confidence      = EXCLUDED.confidence,
			device_id       = COALESCE(EXCLUDED.device_id, presencas.device_id),
			updated_at      = now()
		RETURNING id, reuniao_id, conselheiro_id, presente, horario_chegada,
		          metodo_registro, confidence, device_id, created_at, updated_at
	`, arg.ReuniaoID, arg.ConselheiroID, arg.Presente, arg.HorarioChegada, arg.MetodoRegistro, arg.Confidence, arg.DeviceID).
		Scan(&p.ID, &p.ReuniaoID, &p.ConselheiroID, &p.Presente, &p.HorarioChegada,
			&p.MetodoRegistro, &p.Confidence, &p.DeviceID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Presenca{}, repo.MapError(err)
	}
	return p, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM reunioes`).Scan(&total)
	return total, err
}

// CountPresencasHoje conta presenças registradas no dia corrente.
func (r *Repository) CountPresencasHoje(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int64
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM presencas
		WHERE presente = true AND horario_chegada::date = now()::date
	`).Scan(&total)
	return total, err
}
