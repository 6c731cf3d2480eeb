package reuniao

import (
	"time"

	"github.com/google/uuid"

	"github.com/portalconselheiros/portal/internal/conselheiro"
)

// Status enumera o ciclo de vida de uma reunião.
// As transições são registradas, não impostas como máquina de estados.
type Status string

const (
	StatusAgendada    Status = "AGENDADA"
	StatusEmAndamento Status = "EM_ANDAMENTO"
	StatusEncerrada   Status = "ENCERRADA"
	StatusCancelada   Status = "CANCELADA"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAgendada, StatusEmAndamento, StatusEncerrada, StatusCancelada:
		return true
	}
	return false
}

// MetodoRegistro indica como uma presença foi registrada.
type MetodoRegistro string

const (
	MetodoManual MetodoRegistro = "MANUAL"
	MetodoFacial MetodoRegistro = "FACIAL"
)

// Criador resume quem agendou a reunião.
type Criador struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Reuniao representa um encontro do conselho com presenças associadas.
type Reuniao struct {
	ID        uuid.UUID  `json:"id"`
	Titulo    string     `json:"titulo"`
	Descricao *string    `json:"descricao,omitempty"`
	Data      time.Time  `json:"data"`
	Local     *string    `json:"local,omitempty"`
	Status    Status     `json:"status"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Criador       *Criador       `json:"criador,omitempty"`
	Presencas     []Presenca     `json:"presencas,omitempty"`
	StreamSession *StreamSummary `json:"stream_session,omitempty"`
}

// Presenca vincula um conselheiro a uma reunião.
type Presenca struct {
	ID             uuid.UUID      `json:"id"`
	ReuniaoID      uuid.UUID      `json:"reuniao_id"`
	ConselheiroID  uuid.UUID      `json:"conselheiro_id"`
	Presente       bool           `json:"presente"`
	HorarioChegada *time.Time     `json:"horario_chegada,omitempty"`
	MetodoRegistro MetodoRegistro `json:"metodo_registro"`
	Confidence     *float64       `json:"confidence,omitempty"`
	DeviceID       *string        `json:"device_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Conselheiro *conselheiro.Conselheiro `json:"conselheiro,omitempty"`
}

// StreamSummary resume a sessão de vídeo da reunião, quando existente.
type StreamSummary struct {
	ID       uuid.UUID `json:"id"`
	RoomName string    `json:"room_name"`
	Status   string    `json:"status"`
}

// CreateParams captura os campos aceitos na criação de reunião.
type CreateParams struct {
	Titulo    string
	Descricao *string
	Data      time.Time
	Local     *string
	Status    Status
	CreatedBy *uuid.UUID
}

// UpdateParams captura atualização parcial; nil mantém o valor atual.
type UpdateParams struct {
	Titulo    *string
	Descricao *string
	Data      *time.Time
	Local     *string
	Status    *Status
}

// PresencaParams alimenta o upsert de presença (chave reuniao+conselheiro).
type PresencaParams struct {
	ReuniaoID      uuid.UUID
	ConselheiroID  uuid.UUID
	Presente       bool
	HorarioChegada *time.Time
	MetodoRegistro MetodoRegistro
	Confidence     *float64
	DeviceID       *string
}
