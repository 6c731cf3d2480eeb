package livekit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/livekit/protocol/auth"
	lkproto "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog/log"
)

// Config guarda credenciais e destino de gravação do SFU.
type Config struct {
	Host                string
	APIKey              string
	APISecret           string
	RecordingOutputPath string
}

// Service é um envoltório fino sobre a API de controle do LiveKit:
// salas, tokens de ingresso e egress de gravação.
type Service struct {
	rooms  *lksdk.RoomServiceClient
	egress *lksdk.EgressClient
	cfg    Config
}

// NewService valida credenciais e instancia os clientes de controle.
func NewService(cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("livekit: host obrigatório")
	}
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.APISecret) == "" {
		return nil, errors.New("livekit: api key e secret obrigatórios")
	}
	if strings.TrimSpace(cfg.RecordingOutputPath) == "" {
		cfg.RecordingOutputPath = "./recordings"
	}

	return &Service{
		rooms:  lksdk.NewRoomServiceClient(cfg.Host, cfg.APIKey, cfg.APISecret),
		egress: lksdk.NewEgressClient(cfg.Host, cfg.APIKey, cfg.APISecret),
		cfg:    cfg,
	}, nil
}

// KeyProvider devolve o provedor usado na validação de webhooks assinados.
func (s *Service) KeyProvider() auth.KeyProvider {
	return auth.NewSimpleKeyProvider(s.cfg.APIKey, s.cfg.APISecret)
}

// CreateRoom cria a sala no SFU. Operação idempotente: se a sala já
// existe, resolve e devolve a existente.
func (s *Service) CreateRoom(ctx context.Context, roomName string) (*lkproto.Room, error) {
	room, err := s.rooms.CreateRoom(ctx, &lkproto.CreateRoomRequest{
		Name:            roomName,
		EmptyTimeout:    60 * 10,
		MaxParticipants: 20,
	})
	if err == nil {
		return room, nil
	}

	existing, listErr := s.findRoom(ctx, roomName)
	if listErr == nil && existing != nil {
		return existing, nil
	}
	return nil, fmt.Errorf("livekit: criar sala %s: %w", roomName, err)
}

func (s *Service) findRoom(ctx context.Context, roomName string) (*lkproto.Room, error) {
	resp, err := s.rooms.ListRooms(ctx, &lkproto.ListRoomsRequest{Names: []string{roomName}})
	if err != nil {
		return nil, err
	}
	for _, room := range resp.Rooms {
		if room.Name == roomName {
			return room, nil
		}
	}
	return nil, nil
}

// DeleteRoom encerra a sala e desconecta os participantes.
func (s *Service) DeleteRoom(ctx context.Context, roomName string) error {
	_, err := s.rooms.DeleteRoom(ctx, &lkproto.DeleteRoomRequest{Room: roomName})
	if err != nil {
		return fmt.Errorf("livekit: remover sala %s: %w", roomName, err)
	}
	return nil
}

// ListRooms lista as salas ativas no SFU.
func (s *Service) ListRooms(ctx context.Context) ([]*lkproto.Room, error) {
	resp, err := s.rooms.ListRooms(ctx, &lkproto.ListRoomsRequest{})
	if err != nil {
		return nil, fmt.Errorf("livekit: listar salas: %w", err)
	}
	return resp.Rooms, nil
}

// TokenParams descreve a capacidade concedida a um participante.
type TokenParams struct {
	RoomName        string
	Identity        string
	Name            string
	CanPublish      bool
	CanSubscribe    bool
	CanPublishData  bool
	PublishSources  []string
	TTL             time.Duration
}

// GenerateToken emite um JWT de ingresso na sala com os grants pedidos.
func (s *Service) GenerateToken(params TokenParams) (string, error) {
	if params.RoomName == "" || params.Identity == "" {
		return "", errors.New("livekit: roomName e identity obrigatórios")
	}

	name := params.Name
	if name == "" {
		name = params.Identity
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}

	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     params.RoomName,
	}
	grant.SetCanPublish(params.CanPublish)
	grant.SetCanSubscribe(params.CanSubscribe)
	grant.SetCanPublishData(params.CanPublishData)
	if len(params.PublishSources) > 0 {
		grant.CanPublishSources = params.PublishSources
	}

	at := auth.NewAccessToken(s.cfg.APIKey, s.cfg.APISecret).
		SetIdentity(params.Identity).
		SetName(name).
		SetVideoGrant(grant).
		SetValidFor(ttl)

	return at.ToJWT()
}

// recordingFilepath resolve o destino final de uma gravação a partir do
// nome base (sem diretório e sem extensão).
func (s *Service) recordingFilepath(filename string) string {
	return fmt.Sprintf("%s/%s.mp4", strings.TrimRight(s.cfg.RecordingOutputPath, "/"), filename)
}

// StartRecording inicia egress composto (MP4, layout grid, 1080p).
// O caminho de saída precisa ser acessível pelo processo de egress.
func (s *Service) StartRecording(ctx context.Context, roomName, filename string) (string, error) {
	info, err := s.egress.StartRoomCompositeEgress(ctx, &lkproto.RoomCompositeEgressRequest{
		RoomName: roomName,
		Layout:   "grid",
		Options: &lkproto.RoomCompositeEgressRequest_Preset{
			Preset: lkproto.EncodingOptionsPreset_H264_1080P_30,
		},
		FileOutputs: []*lkproto.EncodedFileOutput{{
			FileType: lkproto.EncodedFileType_MP4,
			Filepath: s.recordingFilepath(filename),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("livekit: iniciar egress da sala %s: %w", roomName, err)
	}

	log.Info().Str("room", roomName).Str("egress_id", info.EgressId).Msg("egress iniciado")
	return info.EgressId, nil
}

// StopRecording encerra o egress informado.
func (s *Service) StopRecording(ctx context.Context, egressID string) error {
	_, err := s.egress.StopEgress(ctx, &lkproto.StopEgressRequest{EgressId: egressID})
	if err != nil {
		return fmt.Errorf("livekit: encerrar egress %s: %w", egressID, err)
	}
	return nil
}
