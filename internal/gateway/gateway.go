// Package gateway expõe a API de controle de mídia: salas, tokens de
// ingresso, gravação e webhooks do SFU.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	lkauth "github.com/livekit/protocol/auth"
	lkproto "github.com/livekit/protocol/livekit"
	"github.com/livekit/protocol/webhook"
	"github.com/rs/zerolog/log"

	"github.com/portalconselheiros/portal/internal/auth"
	httpapi "github.com/portalconselheiros/portal/internal/http"
	httpmiddleware "github.com/portalconselheiros/portal/internal/http/middleware"
	"github.com/portalconselheiros/portal/internal/livekit"
	"github.com/portalconselheiros/portal/internal/repo"
	"github.com/portalconselheiros/portal/internal/stream"
	"github.com/portalconselheiros/portal/internal/user"
)

var validSources = map[string]bool{
	"camera":             true,
	"microphone":         true,
	"screen_share":       true,
	"screen_share_audio": true,
}

type mediaService interface {
	CreateRoom(ctx context.Context, roomName string) (*lkproto.Room, error)
	DeleteRoom(ctx context.Context, roomName string) error
	ListRooms(ctx context.Context) ([]*lkproto.Room, error)
	GenerateToken(params livekit.TokenParams) (string, error)
	StartRecording(ctx context.Context, roomName, filename string) (string, error)
	StopRecording(ctx context.Context, egressID string) error
}

type sessionStore interface {
	GetByRoomName(ctx context.Context, roomName string) (stream.Session, error)
	UpdateByRoomName(ctx context.Context, roomName string, arg stream.UpdateParams) (stream.Session, error)
}

// Handler concentra as dependências dos endpoints do gateway.
type Handler struct {
	media         mediaService
	sessions      sessionStore
	webhookKeys   lkauth.KeyProvider
	recordingPath string
}

// NewHandler monta o handler do gateway.
func NewHandler(media *livekit.Service, sessions *stream.Repository, recordingPath string) *Handler {
	return &Handler{
		media:         media,
		sessions:      sessions,
		webhookKeys:   media.KeyProvider(),
		recordingPath: recordingPath,
	}
}

// NewRouter devolve o roteador do gateway. Rotas de controle exigem
// autenticação; o webhook valida a assinatura do próprio SFU.
func NewRouter(h *Handler, jwtManager *auth.JWTManager, allowOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(allowOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/webhooks", h.Webhook)

	r.Route("/api", func(control chi.Router) {
		control.Use(httpmiddleware.Auth(jwtManager))
		control.Use(httpmiddleware.RequireRoles(user.RoleAdmin, user.RoleModerator))

		control.Post("/rooms/create", h.CreateRoom)
		control.Post("/rooms/delete", h.DeleteRoom)
		control.Get("/rooms/list", h.ListRooms)
		control.Post("/tokens/generate", h.GenerateToken)
		control.Post("/egress/start", h.StartEgress)
		control.Post("/egress/stop", h.StopEgress)
	})

	return r
}

type roomSummary struct {
	Name            string `json:"name"`
	SID             string `json:"sid"`
	NumParticipants uint32 `json:"num_participants"`
	CreationTime    int64  `json:"creation_time"`
}

func summarizeRoom(room *lkproto.Room) roomSummary {
	return roomSummary{
		Name:            room.Name,
		SID:             room.Sid,
		NumParticipants: room.NumParticipants,
		CreationTime:    room.CreationTime,
	}
}

// CreateRoom cria (ou resolve) a sala da reunião no SFU.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RoomName string `json:"roomName"`
	}

	if err := httpapi.DecodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.RoomName) == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "VALIDATION", "roomName é obrigatório", nil)
		return
	}

	room, err := h.media.CreateRoom(r.Context(), strings.TrimSpace(payload.RoomName))
	if err != nil {
		log.Error().Err(err).Str("room", payload.RoomName).Msg("criação de sala falhou")
		httpapi.WriteError(w, http.StatusBadGateway, "SFU_UNAVAILABLE", "não foi possível criar a sala", nil)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, summarizeRoom(room))
}

// DeleteRoom encerra a sala e desconecta os participantes.
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RoomName string `json:"roomName"`
	}

	if err := httpapi.DecodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.RoomName) == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "VALIDATION", "roomName é obrigatório", nil)
		return
	}

	if err := h.media.DeleteRoom(r.Context(), strings.TrimSpace(payload.RoomName)); err != nil {
		log.Error().Err(err).Str("room", payload.RoomName).Msg("remoção de sala falhou")
		httpapi.WriteError(w, http.StatusBadGateway, "SFU_UNAVAILABLE", "não foi possível encerrar a sala", nil)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListRooms lista as salas ativas no SFU.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.media.ListRooms(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("listagem de salas falhou")
		httpapi.WriteError(w, http.StatusBadGateway, "SFU_UNAVAILABLE", "não foi possível listar salas", nil)
		return
	}

	out := make([]roomSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, summarizeRoom(room))
	}

	httpapi.WriteJSON(w, http.StatusOK, out)
}

// GenerateToken emite um token de ingresso com as permissões pedidas.
func (h *Handler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RoomName       string   `json:"roomName"`
		Identity       string   `json:"identity"`
		Name           string   `json:"name"`
		CanPublish     bool     `json:"canPublish"`
		CanSubscribe   bool     `json:"canSubscribe"`
		CanPublishData bool     `json:"canPublishData"`
		Sources        []string `json:"sources"`
		TTLMinutes     int      `json:"ttlMinutes"`
	}

	if err := httpapi.DecodeJSON(r, &payload); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.RoomName) == "" || strings.TrimSpace(payload.Identity) == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "VALIDATION", "roomName e identity são obrigatórios", nil)
		return
	}

	for _, source := range payload.Sources {
		if !validSources[source] {
			httpapi.WriteError(w, http.StatusBadRequest, "VALIDATION",
				fmt.Sprintf("source %q desconhecida", source), nil)
			return
		}
	}

	token, err := h.media.GenerateToken(livekit.TokenParams{
		RoomName:       strings.TrimSpace(payload.RoomName),
		Identity:       strings.TrimSpace(payload.Identity),
		Name:           payload.Name,
		CanPublish:     payload.CanPublish,
		CanSubscribe:   payload.CanSubscribe,
		CanPublishData: payload.CanPublishData,
		PublishSources: payload.Sources,
		TTL:            time.Duration(payload.TTLMinutes) * time.Minute,
	})
	if err != nil {
		log.Error().Err(err).Msg("emissão de token falhou")
		httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível emitir o token", nil)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

// StartEgress inicia a gravação composta da sala. O nome do arquivo é
// relativo: o serviço de mídia resolve o diretório e a extensão.
func (h *Handler) StartEgress(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RoomName string `json:"roomName"`
	}

	if err := httpapi.DecodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.RoomName) == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "VALIDATION", "roomName é obrigatório", nil)
		return
	}

	roomName := strings.TrimSpace(payload.RoomName)

	if _, err := h.sessions.GetByRoomName(r.Context(), roomName); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "sala sem sessão de transmissão registrada", nil)
			return
		}
		log.Error().Err(err).Str("room", roomName).Msg("consulta de sessão falhou")
		httpapi.WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível iniciar a gravação", nil)
		return
	}

	filename := fmt.Sprintf("%s-%s", roomName, time.Now().Format("20060102-150405"))

	egressID, err := h.media.StartRecording(r.Context(), roomName, filename)
	if err != nil {
		log.Error().Err(err).Str("room", roomName).Msg("início de gravação falhou")
		httpapi.WriteError(w, http.StatusBadGateway, "SFU_UNAVAILABLE", "não foi possível iniciar a gravação", nil)
		return
	}

	if _, err := h.sessions.UpdateByRoomName(r.Context(), roomName, stream.UpdateParams{
		RecordingID: &egressID,
	}); err != nil {
		log.Warn().Err(err).Str("room", roomName).Msg("sessão sem registro para a gravação")
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]string{
		"egressId": egressID,
		"file":     path.Join(h.recordingPath, filename+".mp4"),
	})
}

// StopEgress interrompe a gravação em andamento.
func (h *Handler) StopEgress(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EgressID string `json:"egressId"`
	}

	if err := httpapi.DecodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.EgressID) == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "VALIDATION", "egressId é obrigatório", nil)
		return
	}

	if err := h.media.StopRecording(r.Context(), strings.TrimSpace(payload.EgressID)); err != nil {
		log.Error().Err(err).Str("egress", payload.EgressID).Msg("parada de gravação falhou")
		httpapi.WriteError(w, http.StatusBadGateway, "SFU_UNAVAILABLE", "não foi possível parar a gravação", nil)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// Webhook processa eventos assinados do SFU e sincroniza o estado das
// sessões. Eventos de salas desconhecidas são registrados e ignorados.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	event, err := webhook.ReceiveWebhookEvent(r, h.webhookKeys)
	if err != nil {
		log.Warn().Err(err).Msg("webhook com assinatura inválida")
		httpapi.WriteError(w, http.StatusUnauthorized, "AUTH", "assinatura inválida", nil)
		return
	}

	roomName := ""
	if event.Room != nil {
		roomName = event.Room.Name
	}

	logger := log.With().Str("event", event.Event).Str("room", roomName).Logger()

	if roomName == "" {
		logger.Debug().Msg("webhook sem sala associada")
		httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var arg stream.UpdateParams
	now := time.Now()

	switch event.Event {
	case webhook.EventRoomStarted:
		status := stream.StatusActive
		arg.Status = &status
		arg.StartedAt = &now
	case webhook.EventRoomFinished:
		status := stream.StatusEnded
		arg.Status = &status
		arg.EndedAt = &now
	case webhook.EventParticipantJoined, webhook.EventParticipantLeft:
		count := int(event.Room.NumParticipants)
		arg.ParticipantCount = &count
	case webhook.EventEgressEnded:
		logger.Info().Msg("gravação finalizada")
		httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	default:
		logger.Debug().Msg("evento sem tratamento")
		httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if _, err := h.sessions.UpdateByRoomName(r.Context(), roomName, arg); err != nil {
		logger.Warn().Err(err).Msg("sala sem sessão registrada")
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
