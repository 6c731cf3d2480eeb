package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/portalconselheiros/portal/internal/conselheiro"
	"github.com/portalconselheiros/portal/internal/device"
	"github.com/portalconselheiros/portal/internal/facerec"
	"github.com/portalconselheiros/portal/internal/storage"
	"github.com/portalconselheiros/portal/internal/util"
)

const maxUploadBytes = 10 << 20 // 10 MiB por foto

// ListConselheiros devolve todos os conselheiros ordenados por nome.
func (h *Handler) ListConselheiros(w http.ResponseWriter, r *http.Request) {
	lista, err := h.conselheiros.List(r.Context())
	if err != nil {
		WriteRepoError(w, r, err, "conselheiro")
		return
	}

	WriteJSON(w, http.StatusOK, lista)
}

// GetConselheiro devolve um conselheiro pelo ID.
func (h *Handler) GetConselheiro(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	c, err := h.conselheiros.Get(r.Context(), id)
	if err != nil {
		WriteRepoError(w, r, err, "conselheiro")
		return
	}

	WriteJSON(w, http.StatusOK, c)
}

// CreateConselheiro cadastra um novo conselheiro.
func (h *Handler) CreateConselheiro(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Nome        string  `json:"nome"`
		Email       *string `json:"email"`
		Cargo       *string `json:"cargo"`
		Instituicao *string `json:"instituicao"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if err := util.RequireString(payload.Nome, "nome"); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	if payload.Email != nil {
		if err := util.ValidateEmail(*payload.Email); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
	}

	c, err := h.conselheiros.Insert(r.Context(), conselheiro.CreateParams{
		Nome:        strings.TrimSpace(payload.Nome),
		Email:       payload.Email,
		Cargo:       payload.Cargo,
		Instituicao: payload.Instituicao,
	})
	if err != nil {
		WriteRepoError(w, r, err, "conselheiro")
		return
	}

	WriteJSON(w, http.StatusCreated, c)
}

// UpdateConselheiro atualiza campos informados; omitidos permanecem.
func (h *Handler) UpdateConselheiro(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	var payload struct {
		Nome        *string `json:"nome"`
		Email       *string `json:"email"`
		Cargo       *string `json:"cargo"`
		Instituicao *string `json:"instituicao"`
		Ativo       *bool   `json:"ativo"`
	}

	if err := DecodeJSON(r, &payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if payload.Email != nil {
		if err := util.ValidateEmail(*payload.Email); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
	}

	c, err := h.conselheiros.Update(r.Context(), id, conselheiro.UpdateParams{
		Nome:        payload.Nome,
		Email:       payload.Email,
		Cargo:       payload.Cargo,
		Instituicao: payload.Instituicao,
		Ativo:       payload.Ativo,
	})
	if err != nil {
		WriteRepoError(w, r, err, "conselheiro")
		return
	}

	WriteJSON(w, http.StatusOK, c)
}

// DeleteConselheiro remove o conselheiro e suas presenças em cascata.
func (h *Handler) DeleteConselheiro(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if err := h.conselheiros.Delete(r.Context(), id); err != nil {
		WriteRepoError(w, r, err, "conselheiro")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// UploadConselheiroFoto recebe a foto de referência e grava no bucket.
func (h *Handler) UploadConselheiroFoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return
	}

	if _, err := h.conselheiros.Get(r.Context(), id); err != nil {
		WriteRepoError(w, r, err, "conselheiro")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("photo")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "campo photo é obrigatório", nil)
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "não foi possível ler o arquivo", nil)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(contentType, "image/") {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "apenas imagens são aceitas", nil)
		return
	}

	ext := path.Ext(header.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("conselheiros/%s/ref-%d%s", id, time.Now().Unix(), ext)

	result, err := h.storage.Upload(r.Context(), storage.UploadInput{
		Key:          key,
		Body:         body,
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000",
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("upload de foto falhou")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível salvar a foto", nil)
		return
	}

	if err := h.conselheiros.UpdateFotoRef(r.Context(), id, result.URL); err != nil {
		WriteRepoError(w, r, err, "conselheiro")
		return
	}

	resposta := map[string]string{"foto_ref_url": result.URL}

	// Bucket privado: devolve também uma URL temporária para pré-visualização.
	if presigner, ok := h.storage.(storage.Presigner); ok {
		if preview, err := presigner.PresignGet(key, 15*time.Minute); err == nil {
			resposta["preview_url"] = preview
		}
	}

	WriteJSON(w, http.StatusOK, resposta)
}

// VerifyPresence recebe a foto capturada pelo tablet, envia ao serviço de
// reconhecimento e, havendo match, registra a presença na reunião.
func (h *Handler) VerifyPresence(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	reuniaoID, err := uuid.Parse(r.FormValue("reuniaoId"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "reuniaoId inválido", nil)
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "campo photo é obrigatório", nil)
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "presenca-*.jpg")
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível receber a foto", nil)
		return
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível receber a foto", nil)
		return
	}
	tmp.Close()

	deviceID := r.Header.Get(device.HeaderDeviceID)

	result, err := h.verifier.VerifyPresence(r.Context(), tmp.Name(), reuniaoID, deviceID)
	if err != nil {
		switch {
		case errors.Is(err, facerec.ErrNaoReconhecido):
			h.recordFaceRejected()
			WriteError(w, http.StatusNotFound, "NOT_RECOGNIZED", "conselheiro não reconhecido", nil)
		case errors.Is(err, facerec.ErrSemReferencias):
			h.recordFaceRejected()
			WriteError(w, http.StatusBadRequest, "VALIDATION", "nenhum conselheiro ativo com foto de referência", nil)
		default:
			h.recordFaceError()
			log.Error().Err(err).Msg("verificação facial falhou")
			WriteError(w, http.StatusBadGateway, "FACEREC_UNAVAILABLE", "serviço de reconhecimento indisponível", nil)
		}
		return
	}

	h.recordFaceVerified()
	WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) recordFaceVerified() {
	if h.collector != nil {
		h.collector.RecordFaceVerified()
	}
}

func (h *Handler) recordFaceRejected() {
	if h.collector != nil {
		h.collector.RecordFaceRejected()
	}
}

func (h *Handler) recordFaceError() {
	if h.collector != nil {
		h.collector.RecordFaceError()
	}
}
