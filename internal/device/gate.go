package device

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/portalconselheiros/portal/internal/repo"
)

// HeaderDeviceID identifica o aparelho em rotas originadas do tablet.
const HeaderDeviceID = "x-device-id"

type gateStore interface {
	GetByDeviceID(ctx context.Context, deviceID string) (Device, error)
	TouchUltimoAcesso(ctx context.Context, id uuid.UUID) error
}

// Gate rejeita requisições de aparelhos desconhecidos ou não autorizados.
// O carimbo de último acesso é gravado fora do caminho crítico da requisição.
func Gate(store gateStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := r.Header.Get(HeaderDeviceID)
			if deviceID == "" {
				writeGateError(w, http.StatusBadRequest, "VALIDATION", "Device ID é obrigatório no cabeçalho x-device-id")
				return
			}

			d, err := store.GetByDeviceID(r.Context(), deviceID)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					writeGateError(w, http.StatusForbidden, "FORBIDDEN", "Dispositivo não autorizado")
					return
				}
				log.Error().Err(err).Str("device_id", deviceID).Msg("device gate: consulta falhou")
				writeGateError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
				return
			}

			if !d.Autorizado {
				writeGateError(w, http.StatusForbidden, "FORBIDDEN", "Dispositivo não autorizado")
				return
			}

			go func(id uuid.UUID) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := store.TouchUltimoAcesso(ctx, id); err != nil {
					log.Warn().Err(err).Str("device_id", deviceID).Msg("device gate: falha ao registrar último acesso")
				}
			}(d.ID)

			next.ServeHTTP(w, r)
		})
	}
}

func writeGateError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
