package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/portalconselheiros/portal/internal/stream"
)

// ListStreamSessions devolve todas as sessões de vídeo registradas.
func (h *Handler) ListStreamSessions(w http.ResponseWriter, r *http.Request) {
	lista, err := h.streams.List(r.Context())
	if err != nil {
		WriteRepoError(w, r, err, "sessão")
		return
	}

	WriteJSON(w, http.StatusOK, lista)
}

// GetStreamSession devolve uma sessão pelo ID.
func (h *Handler) GetStreamSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	s, err := h.streams.Get(r.Context(), id)
	if err != nil {
		WriteRepoError(w, r, err, "sessão")
		return
	}

	WriteJSON(w, http.StatusOK, s)
}

// CreateStreamSession registra a sala de vídeo de uma reunião.
// Cada reunião admite uma única sessão: repetição responde 409.
func (h *Handler) CreateStreamSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ReuniaoID string  `json:"reuniaoId"`
		RoomName  string  `json:"roomName"`
		Status    *string `json:"status"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	reuniaoID, err := uuid.Parse(payload.ReuniaoID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "reuniaoId inválido", nil)
		return
	}

	if strings.TrimSpace(payload.RoomName) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "roomName é obrigatório", nil)
		return
	}

	arg := stream.CreateParams{
		ReuniaoID: reuniaoID,
		RoomName:  strings.TrimSpace(payload.RoomName),
	}

	if payload.Status != nil {
		status := stream.Status(strings.ToUpper(strings.TrimSpace(*payload.Status)))
		if !status.Valid() {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "status desconhecido", nil)
			return
		}
		arg.Status = status
	}

	s, err := h.streams.Insert(r.Context(), arg)
	if err != nil {
		WriteRepoError(w, r, err, "sessão")
		return
	}

	WriteJSON(w, http.StatusCreated, s)
}

// UpdateStreamSession atualiza estado, contagem e gravação da sessão.
func (h *Handler) UpdateStreamSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		RoomName         *string `json:"roomName"`
		Status           *string `json:"status"`
		StartedAt        *string `json:"startedAt"`
		EndedAt          *string `json:"endedAt"`
		ParticipantCount *int    `json:"participantCount"`
		RecordingID      *string `json:"recordingId"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	arg := stream.UpdateParams{
		RoomName:         payload.RoomName,
		ParticipantCount: payload.ParticipantCount,
		RecordingID:      payload.RecordingID,
	}

	if payload.Status != nil {
		status := stream.Status(strings.ToUpper(strings.TrimSpace(*payload.Status)))
		if !status.Valid() {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "status desconhecido", nil)
			return
		}
		arg.Status = &status
	}

	if payload.StartedAt != nil {
		t, err := time.Parse(time.RFC3339, *payload.StartedAt)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "startedAt deve estar em RFC 3339", nil)
			return
		}
		arg.StartedAt = &t
	}

	if payload.EndedAt != nil {
		t, err := time.Parse(time.RFC3339, *payload.EndedAt)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "endedAt deve estar em RFC 3339", nil)
			return
		}
		arg.EndedAt = &t
	}

	s, err := h.streams.Update(r.Context(), id, arg)
	if err != nil {
		WriteRepoError(w, r, err, "sessão")
		return
	}

	WriteJSON(w, http.StatusOK, s)
}

// DeleteStreamSession remove o registro da sessão.
func (h *Handler) DeleteStreamSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.streams.Delete(r.Context(), id); err != nil {
		WriteRepoError(w, r, err, "sessão")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
