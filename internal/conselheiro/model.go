package conselheiro

import (
	"time"

	"github.com/google/uuid"
)

// Conselheiro representa um membro do conselho acompanhado em presença.
type Conselheiro struct {
	ID          uuid.UUID `json:"id"`
	Nome        string    `json:"nome"`
	Email       *string   `json:"email,omitempty"`
	Cargo       *string   `json:"cargo,omitempty"`
	Instituicao *string   `json:"instituicao,omitempty"`
	FotoRefURL  *string   `json:"foto_ref_url,omitempty"`
	Ativo       bool      `json:"ativo"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateParams captura os campos aceitos na criação.
type CreateParams struct {
	Nome        string
	Email       *string
	Cargo       *string
	Instituicao *string
}

// UpdateParams captura atualização parcial; nil mantém o valor atual.
type UpdateParams struct {
	Nome        *string
	Email       *string
	Cargo       *string
	Instituicao *string
	Ativo       *bool
}
