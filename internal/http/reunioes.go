package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	httpmiddleware "github.com/portalconselheiros/portal/internal/http/middleware"
	"github.com/portalconselheiros/portal/internal/reuniao"
)

// ListReunioes devolve as reuniões mais recentes primeiro.
func (h *Handler) ListReunioes(w http.ResponseWriter, r *http.Request) {
	lista, err := h.reunioes.List(r.Context())
	if err != nil {
		WriteRepoError(w, r, err, "reunião")
		return
	}

	WriteJSON(w, http.StatusOK, lista)
}

// GetReuniao devolve a reunião com criador, presenças e sessão de vídeo.
func (h *Handler) GetReuniao(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	m, err := h.reunioes.Get(r.Context(), id)
	if err != nil {
		WriteRepoError(w, r, err, "reunião")
		return
	}

	WriteJSON(w, http.StatusOK, m)
}

// CreateReuniao agenda uma nova reunião em nome do usuário autenticado.
func (h *Handler) CreateReuniao(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Titulo    string  `json:"titulo"`
		Descricao *string `json:"descricao"`
		Data      string  `json:"data"`
		Local     *string `json:"local"`
		Status    *string `json:"status"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.Titulo) == "" || strings.TrimSpace(payload.Data) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "titulo e data são obrigatórios", nil)
		return
	}

	data, err := time.Parse(time.RFC3339, payload.Data)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "data deve estar em RFC 3339", nil)
		return
	}

	status := reuniao.StatusAgendada
	if payload.Status != nil {
		status = reuniao.Status(strings.ToUpper(strings.TrimSpace(*payload.Status)))
		if !status.Valid() {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "status desconhecido", nil)
			return
		}
	}

	var createdBy *uuid.UUID
	if subject, err := uuid.Parse(httpmiddleware.GetSubject(r.Context())); err == nil {
		createdBy = &subject
	}

	m, err := h.reunioes.Insert(r.Context(), reuniao.CreateParams{
		Titulo:    strings.TrimSpace(payload.Titulo),
		Descricao: payload.Descricao,
		Data:      data,
		Local:     payload.Local,
		Status:    status,
		CreatedBy: createdBy,
	})
	if err != nil {
		WriteRepoError(w, r, err, "reunião")
		return
	}

	WriteJSON(w, http.StatusCreated, m)
}

// UpdateReuniao atualiza campos informados; omitidos permanecem.
func (h *Handler) UpdateReuniao(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Titulo    *string `json:"titulo"`
		Descricao *string `json:"descricao"`
		Data      *string `json:"data"`
		Local     *string `json:"local"`
		Status    *string `json:"status"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	arg := reuniao.UpdateParams{
		Titulo:    payload.Titulo,
		Descricao: payload.Descricao,
		Local:     payload.Local,
	}

	if payload.Data != nil {
		data, err := time.Parse(time.RFC3339, *payload.Data)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "data deve estar em RFC 3339", nil)
			return
		}
		arg.Data = &data
	}

	if payload.Status != nil {
		status := reuniao.Status(strings.ToUpper(strings.TrimSpace(*payload.Status)))
		if !status.Valid() {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "status desconhecido", nil)
			return
		}
		arg.Status = &status
	}

	m, err := h.reunioes.Update(r.Context(), id, arg)
	if err != nil {
		WriteRepoError(w, r, err, "reunião")
		return
	}

	WriteJSON(w, http.StatusOK, m)
}

// UpdateReuniaoStatus altera apenas o ciclo de vida da reunião.
func (h *Handler) UpdateReuniaoStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Status string `json:"status"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	status := reuniao.Status(strings.ToUpper(strings.TrimSpace(payload.Status)))
	if !status.Valid() {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "status desconhecido", nil)
		return
	}

	m, err := h.reunioes.UpdateStatus(r.Context(), id, status)
	if err != nil {
		WriteRepoError(w, r, err, "reunião")
		return
	}

	WriteJSON(w, http.StatusOK, m)
}

// DeleteReuniao remove a reunião e suas presenças em cascata.
func (h *Handler) DeleteReuniao(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.reunioes.Delete(r.Context(), id); err != nil {
		WriteRepoError(w, r, err, "reunião")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListPresencas devolve as presenças da reunião com dados do conselheiro.
func (h *Handler) ListPresencas(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if _, err := h.reunioes.Get(r.Context(), id); err != nil {
		WriteRepoError(w, r, err, "reunião")
		return
	}

	presencas, err := h.reunioes.ListPresencas(r.Context(), id)
	if err != nil {
		WriteRepoError(w, r, err, "presença")
		return
	}

	WriteJSON(w, http.StatusOK, presencas)
}

// RegisterPresenca registra ou atualiza presença manual de um conselheiro.
// A chave reunião+conselheiro é única: repetições atualizam o registro.
func (h *Handler) RegisterPresenca(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		ConselheiroID string `json:"conselheiroId"`
		Presente      *bool  `json:"presente"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	conselheiroID, err := uuid.Parse(payload.ConselheiroID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "conselheiroId inválido", nil)
		return
	}

	presente := true
	if payload.Presente != nil {
		presente = *payload.Presente
	}

	var chegada *time.Time
	if presente {
		now := time.Now()
		chegada = &now
	}

	p, err := h.reunioes.UpsertPresenca(r.Context(), reuniao.PresencaParams{
		ReuniaoID:      id,
		ConselheiroID:  conselheiroID,
		Presente:       presente,
		HorarioChegada: chegada,
		MetodoRegistro: reuniao.MetodoManual,
	})
	if err != nil {
		WriteRepoError(w, r, err, "presença")
		return
	}

	WriteJSON(w, http.StatusCreated, p)
}
