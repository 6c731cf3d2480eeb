package stream

import (
	"time"

	"github.com/google/uuid"
)

// Status enumera o ciclo de vida de uma sessão de vídeo.
type Status string

const (
	StatusCreated Status = "CREATED"
	StatusActive  Status = "ACTIVE"
	StatusEnded   Status = "ENDED"
	StatusError   Status = "ERROR"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusActive, StatusEnded, StatusError:
		return true
	}
	return false
}

// Session mapeia 1:1 uma sala no SFU externo para uma reunião.
type Session struct {
	ID               uuid.UUID  `json:"id"`
	ReuniaoID        uuid.UUID  `json:"reuniao_id"`
	RoomName         string     `json:"room_name"`
	Status           Status     `json:"status"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	ParticipantCount int        `json:"participant_count"`
	RecordingID      *string    `json:"recording_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	ReuniaoTitulo *string `json:"reuniao_titulo,omitempty"`
}

// CreateParams captura os campos aceitos na criação.
type CreateParams struct {
	ReuniaoID        uuid.UUID
	RoomName         string
	Status           Status
	StartedAt        *time.Time
	EndedAt          *time.Time
	ParticipantCount *int
	RecordingID      *string
}

// UpdateParams captura atualização parcial; nil mantém o valor atual.
type UpdateParams struct {
	RoomName         *string
	Status           *Status
	StartedAt        *time.Time
	EndedAt          *time.Time
	ParticipantCount *int
	RecordingID      *string
}
