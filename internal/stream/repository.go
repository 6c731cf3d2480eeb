package stream

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

// Repository fornece acesso às sessões de stream.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectColumns = `s.id, s.reuniao_id, s.room_name, s.status, s.started_at, s.ended_at,
	s.participant_count, s.recording_id, s.created_at, s.updated_at, r.titulo`

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.ReuniaoID, &s.RoomName, &s.Status, &s.StartedAt, &s.EndedAt,
		&s.ParticipantCount, &s.RecordingID, &s.CreatedAt, &s.UpdatedAt, &s.ReuniaoTitulo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, repo.ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func (r *Repository) List(ctx context.Context) ([]Session, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+selectColumns+`
		FROM stream_sessions s
		JOIN reunioes r ON r.id = s.reuniao_id
		ORDER BY s.started_at DESC NULLS LAST
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanSession(r.db.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM stream_sessions s
		JOIN reunioes r ON r.id = s.reuniao_id
		WHERE s.id = $1
	`, id))
}

// GetByRoomName localiza a sessão pelo nome da sala no SFU.
func (r *Repository) GetByRoomName(ctx context.Context, roomName string) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanSession(r.db.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM stream_sessions s
		JOIN reunioes r ON r.id = s.reuniao_id
		WHERE s.room_name = $1
	`, roomName))
}

// UpdateByRoomName aplica atualização parcial à sessão da sala informada.
// Usado pelos webhooks do SFU, que só conhecem o nome da sala.
func (r *Repository) UpdateByRoomName(ctx context.Context, roomName string, arg UpdateParams) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	s, err := scanSession(r.db.QueryRow(ctx, `
		WITH updated AS (
			UPDATE stream_sessions SET
				status            = COALESCE($2, status),
				started_at        = COALESCE($3, started_at),
				ended_at          = COALESCE($4, ended_at),
				participant_count = COALESCE($5, participant_count),
				recording_id      = COALESCE($6, recording_id),
				updated_at        = now()
			WHERE room_name = $1
			RETURNING *
		)
		SELECT s.id, s.reuniao_id, s.room_name, s.status, s.started_at, s.ended_at,
		       s.participant_count, s.recording_id, s.created_at, s.updated_at, r.titulo
		FROM updated s
		JOIN reunioes r ON r.id = s.reuniao_id
	`, roomName, arg.Status, arg.StartedAt, arg.EndedAt, arg.ParticipantCount, arg.RecordingID))
	if err != nil {
		return Session{}, repo.MapError(err)
	}
	return s, nil
}

func (r *Repository) Insert(ctx context.Context, arg CreateParams) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if arg.Status == "" {
		arg.Status = StatusCreated
	}
	participantes := 0
	if arg.ParticipantCount != nil {
		participantes = *arg.ParticipantCount
	}

	s, err := scanSession(r.db.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO stream_sessions (reuniao_id, room_name, status, started_at, ended_at, participant_count, recording_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		)
		SELECT s.id, s.reuniao_id, s.room_name, s.status, s.started_at, s.ended_at,
		       s.participant_count, s.recording_id, s.created_at, s.updated_at, r.titulo
		FROM inserted s
		JOIN reunioes r ON r.id = s.reuniao_id
	`, arg.ReuniaoID, arg.RoomName, arg.Status, arg.StartedAt, arg.EndedAt, participantes, arg.RecordingID))
	if err != nil {
		return Session{}, repo.MapError(err)
	}
	return s, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, arg UpdateParams) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	s, err := scanSession(r.db.QueryRow(ctx, `
		WITH updated AS (
			UPDATE stream_sessions SET
				room_name         = COALESCE($2, room_name),
				status            = COALESCE($3, status),
				started_at        = COALESCE($4, started_at),
				ended_at          = COALESCE($5, ended_at),
				participant_count = COALESCE($6, participant_count),
				recording_id      = COALESCE($7, recording_id),
				updated_at        = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT s.id, s.reuniao_id, s.room_name, s.status, s.started_at, s.ended_at,
		       s.participant_count, s.recording_id, s.created_at, s.updated_at, r.titulo
		FROM updated s
		JOIN reunioes r ON r.id = s.reuniao_id
	`, id, arg.RoomName, arg.Status, arg.StartedAt, arg.EndedAt, arg.ParticipantCount, arg.RecordingID))
	if err != nil {
		return Session{}, repo.MapError(err)
	}
	return s, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM stream_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
