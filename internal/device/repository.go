package device

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

// Repository fornece acesso à whitelist de dispositivos.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectColumns = `d.id, d.device_id, d.modelo, d.autorizado, d.owner_user_id, d.ultimo_acesso, d.created_at, d.updated_at`

func (r *Repository) scanWithOwner(row pgx.Row) (Device, error) {
	var d Device
	var ownerID *uuid.UUID
	var ownerEmail *string
	err := row.Scan(&d.ID, &d.DeviceID, &d.Modelo, &d.Autorizado, &d.OwnerUserID, &d.UltimoAcesso,
		&d.CreatedAt, &d.UpdatedAt, &ownerID, &ownerEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Device{}, repo.ErrNotFound
		}
		return Device{}, err
	}
	if ownerID != nil && ownerEmail != nil {
		d.Owner = &Owner{ID: *ownerID, Email: *ownerEmail}
	}
	return d, nil
}

func (r *Repository) List(ctx context.Context) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+selectColumns+`, u.id, u.email
		FROM devices d
		LEFT JOIN users u ON u.id = d.owner_user_id
		ORDER BY d.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		d, err := r.scanWithOwner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Device, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return r.scanWithOwner(r.db.QueryRow(ctx, `
		SELECT `+selectColumns+`, u.id, u.email
		FROM devices d
		LEFT JOIN users u ON u.id = d.owner_user_id
		WHERE d.id = $1
	`, id))
}

// GetByDeviceID resolve o aparelho pelo identificador de hardware.
func (r *Repository) GetByDeviceID(ctx context.Context, deviceID string) (Device, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var d Device
	err := r.db.QueryRow(ctx, `
		SELECT d.id, d.device_id, d.modelo, d.autorizado, d.owner_user_id, d.ultimo_acesso, d.created_at, d.updated_at
		FROM devices d
		WHERE d.device_id = $1
	`, deviceID).Scan(&d.ID, &d.DeviceID, &d.Modelo, &d.Autorizado, &d.OwnerUserID, &d.UltimoAcesso, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Device{}, repo.ErrNotFound
		}
		return Device{}, err
	}
	return d, nil
}

func (r *Repository) Insert(ctx context.Context, arg CreateParams) (Device, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	autorizado := false
	if arg.Autorizado != nil {
		autorizado = *arg.Autorizado
	}

	d, err := r.scanWithOwner(r.db.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO devices (device_id, modelo, autorizado, owner_user_id)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		)
		SELECT `+insertedColumns+`, u.id, u.email
		FROM inserted d
		LEFT JOIN users u ON u.id = d.owner_user_id
	`, arg.DeviceID, arg.Modelo, autorizado, arg.OwnerUserID))
	if err != nil {
		return Device{}, repo.MapError(err)
	}
	return d, nil
}

const insertedColumns = `d.id, d.device_id, d.modelo, d.autorizado, d.owner_user_id, d.ultimo_acesso, d.created_at, d.updated_at`

func (r *Repository) Update(ctx context.Context, id uuid.UUID, arg UpdateParams) (Device, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	d, err := r.scanWithOwner(r.db.QueryRow(ctx, `
		WITH updated AS (
			UPDATE devices SET
				modelo        = COALESCE($2, modelo),
				autorizado    = COALESCE($3, autorizado),
				owner_user_id = COALESCE($4, owner_user_id),
				updated_at    = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+insertedColumns+`, u.id, u.email
		FROM updated d
		LEFT JOIN users u ON u.id = d.owner_user_id
	`, id, arg.Modelo, arg.Autorizado, arg.OwnerUserID))
	if err != nil {
		return Device{}, repo.MapError(err)
	}
	return d, nil
}

// Authorize altera a flag de autorização pelo device_id e registra quem autorizou.
func (r *Repository) Authorize(ctx context.Context, deviceID string, autorizado bool, ownerUserID uuid.UUID) (Device, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return r.scanWithOwner(r.db.QueryRow(ctx, `
		WITH updated AS (
			UPDATE devices SET autorizado = $2, owner_user_id = $3, updated_at = now()
			WHERE device_id = $1
			RETURNING *
		)
		SELECT `+insertedColumns+`, u.id, u.email
		FROM updated d
		LEFT JOIN users u ON u.id = d.owner_user_id
	`, deviceID, autorizado, ownerUserID))
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// TouchUltimoAcesso marca o último acesso do aparelho.
func (r *Repository) TouchUltimoAcesso(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE devices SET ultimo_acesso = now() WHERE id = $1`, id)
	return err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM devices`).Scan(&total)
	return total, err
}
