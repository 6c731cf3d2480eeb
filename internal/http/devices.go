package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	httpmiddleware "github.com/portalconselheiros/portal/internal/http/middleware"
	"github.com/portalconselheiros/portal/internal/device"
)

// ListDevices devolve a whitelist completa de aparelhos.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	lista, err := h.devices.List(r.Context())
	if err != nil {
		WriteRepoError(w, r, err, "device")
		return
	}

	WriteJSON(w, http.StatusOK, lista)
}

// GetDevice devolve um aparelho pelo ID interno.
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	d, err := h.devices.Get(r.Context(), id)
	if err != nil {
		WriteRepoError(w, r, err, "device")
		return
	}

	WriteJSON(w, http.StatusOK, d)
}

// CreateDevice cadastra um aparelho na whitelist.
func (h *Handler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DeviceID    string  `json:"deviceId"`
		Modelo      *string `json:"modelo"`
		Autorizado  *bool   `json:"autorizado"`
		OwnerUserID *string `json:"ownerUserId"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.DeviceID) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "deviceId é obrigatório", nil)
		return
	}

	arg := device.CreateParams{
		DeviceID:   strings.TrimSpace(payload.DeviceID),
		Modelo:     payload.Modelo,
		Autorizado: payload.Autorizado,
	}

	if payload.OwnerUserID != nil {
		owner, err := uuid.Parse(*payload.OwnerUserID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "ownerUserId inválido", nil)
			return
		}
		arg.OwnerUserID = &owner
	}

	d, err := h.devices.Insert(r.Context(), arg)
	if err != nil {
		WriteRepoError(w, r, err, "device")
		return
	}

	WriteJSON(w, http.StatusCreated, d)
}

// UpdateDevice atualiza campos informados; omitidos permanecem.
func (h *Handler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Modelo      *string `json:"modelo"`
		Autorizado  *bool   `json:"autorizado"`
		OwnerUserID *string `json:"ownerUserId"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	arg := device.UpdateParams{
		Modelo:     payload.Modelo,
		Autorizado: payload.Autorizado,
	}

	if payload.OwnerUserID != nil {
		owner, err := uuid.Parse(*payload.OwnerUserID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "ownerUserId inválido", nil)
			return
		}
		arg.OwnerUserID = &owner
	}

	d, err := h.devices.Update(r.Context(), id, arg)
	if err != nil {
		WriteRepoError(w, r, err, "device")
		return
	}

	WriteJSON(w, http.StatusOK, d)
}

// AuthorizeDevice autoriza (ou cria já autorizado) o aparelho pelo
// identificador físico, vinculando-o ao admin que fez a chamada.
func (h *Handler) AuthorizeDevice(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DeviceID   string `json:"deviceId"`
		Autorizado *bool  `json:"autorizado"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.DeviceID) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "deviceId é obrigatório", nil)
		return
	}

	autorizado := true
	if payload.Autorizado != nil {
		autorizado = *payload.Autorizado
	}

	owner, err := uuid.Parse(httpmiddleware.GetSubject(r.Context()))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject inválido", nil)
		return
	}

	d, err := h.devices.Authorize(r.Context(), strings.TrimSpace(payload.DeviceID), autorizado, owner)
	if err != nil {
		WriteRepoError(w, r, err, "device")
		return
	}

	WriteJSON(w, http.StatusOK, d)
}

// DeleteDevice remove o aparelho da whitelist.
func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.devices.Delete(r.Context(), id); err != nil {
		WriteRepoError(w, r, err, "device")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
