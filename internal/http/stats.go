package http

import (
	"net/http"
)

// Stats devolve contadores do painel administrativo.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conselheiros, err := h.conselheiros.Count(ctx)
	if err != nil {
		WriteRepoError(w, r, err, "estatísticas")
		return
	}

	reunioes, err := h.reunioes.Count(ctx)
	if err != nil {
		WriteRepoError(w, r, err, "estatísticas")
		return
	}

	presencasHoje, err := h.reunioes.CountPresencasHoje(ctx)
	if err != nil {
		WriteRepoError(w, r, err, "estatísticas")
		return
	}

	devices, err := h.devices.Count(ctx)
	if err != nil {
		WriteRepoError(w, r, err, "estatísticas")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int64{
		"total_conselheiros": conselheiros,
		"total_reunioes":     reunioes,
		"presencas_hoje":     presencasHoje,
		"total_devices":      devices,
	})
}
