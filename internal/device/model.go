package device

import (
	"time"

	"github.com/google/uuid"
)

// Device representa um aparelho cadastrado na whitelist.
type Device struct {
	ID           uuid.UUID  `json:"id"`
	DeviceID     string     `json:"device_id"`
	Modelo       *string    `json:"modelo,omitempty"`
	Autorizado   bool       `json:"autorizado"`
	OwnerUserID  *uuid.UUID `json:"owner_user_id,omitempty"`
	UltimoAcesso *time.Time `json:"ultimo_acesso,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Owner *Owner `json:"owner,omitempty"`
}

// Owner resume o usuário responsável pelo aparelho.
type Owner struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// CreateParams captura os campos aceitos no cadastro.
type CreateParams struct {
	DeviceID    string
	Modelo      *string
	Autorizado  *bool
	OwnerUserID *uuid.UUID
}

// UpdateParams captura atualização parcial; nil mantém o valor atual.
type UpdateParams struct {
	Modelo      *string
	Autorizado  *bool
	OwnerUserID *uuid.UUID
}
