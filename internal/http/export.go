package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportPresencas devolve o relatório de presenças de uma reunião.
// O formato (csv ou xlsx) vem do último segmento da rota.
func (h *Handler) ExportPresencas(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "reuniaoId")
	if !ok {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "reuniaoId inválido", nil)
		return
	}

	stamp := time.Now().Format("2006-01-02")

	var buf bytes.Buffer
	switch chi.URLParam(r, "format") {
	case "csv":
		if err := h.exports.PresencasCSV(r.Context(), id, &buf); err != nil {
			WriteRepoError(w, r, err, "reunião")
			return
		}
		sendAttachment(w, &buf, fmt.Sprintf("presencas-%s.csv", stamp), contentTypeCSV)
	case "xlsx":
		if err := h.exports.PresencasXLSX(r.Context(), id, &buf); err != nil {
			WriteRepoError(w, r, err, "reunião")
			return
		}
		sendAttachment(w, &buf, fmt.Sprintf("presencas-%s.xlsx", stamp), contentTypeXLSX)
	default:
		WriteError(w, http.StatusBadRequest, "VALIDATION", "formato deve ser csv ou xlsx", nil)
	}
}

// ExportConselheiros devolve o cadastro de conselheiros em CSV ou XLSX.
func (h *Handler) ExportConselheiros(w http.ResponseWriter, r *http.Request) {
	stamp := time.Now().Format("2006-01-02")

	var buf bytes.Buffer
	switch chi.URLParam(r, "format") {
	case "csv":
		if err := h.exports.ConselheirosCSV(r.Context(), &buf); err != nil {
			WriteRepoError(w, r, err, "conselheiro")
			return
		}
		sendAttachment(w, &buf, fmt.Sprintf("conselheiros-%s.csv", stamp), contentTypeCSV)
	case "xlsx":
		if err := h.exports.ConselheirosXLSX(r.Context(), &buf); err != nil {
			WriteRepoError(w, r, err, "conselheiro")
			return
		}
		sendAttachment(w, &buf, fmt.Sprintf("conselheiros-%s.xlsx", stamp), contentTypeXLSX)
	default:
		WriteError(w, http.StatusBadRequest, "VALIDATION", "formato deve ser csv ou xlsx", nil)
	}
}

func sendAttachment(w http.ResponseWriter, buf *bytes.Buffer, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Warn().Err(err).Msg("escrita do relatório interrompida")
	}
}
