package facerec

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/portalconselheiros/portal/internal/conselheiro"
	"github.com/portalconselheiros/portal/internal/reuniao"
)

var (
	// ErrNaoReconhecido indica que nenhum conselheiro passou do limiar de confiança.
	ErrNaoReconhecido = errors.New("conselheiro não reconhecido")
	// ErrSemReferencias indica que não há conselheiro ativo com foto de referência.
	ErrSemReferencias = errors.New("nenhum conselheiro elegível para reconhecimento")
)

type recognizer interface {
	Recognize(ctx context.Context, photoPath string, refs []ReferenceImage) (*RecognizeResult, error)
}

type conselheiroStore interface {
	ListAtivosComFoto(ctx context.Context) ([]conselheiro.Conselheiro, error)
	Get(ctx context.Context, id uuid.UUID) (conselheiro.Conselheiro, error)
}

type presencaStore interface {
	UpsertPresenca(ctx context.Context, arg reuniao.PresencaParams) (reuniao.Presenca, error)
}

// Service orquestra a verificação de presença por reconhecimento facial.
type Service struct {
	client       recognizer
	conselheiros conselheiroStore
	presencas    presencaStore
	threshold    float64
}

// NewService cria o serviço com o limiar de confiança configurado.
func NewService(client recognizer, conselheiros conselheiroStore, presencas presencaStore, threshold float64) *Service {
	return &Service{
		client:       client,
		conselheiros: conselheiros,
		presencas:    presencas,
		threshold:    threshold,
	}
}

// VerifyResult descreve o desfecho de uma verificação confirmada.
type VerifyResult struct {
	Conselheiro conselheiro.Conselheiro `json:"conselheiro"`
	Presenca    reuniao.Presenca        `json:"presenca"`
	Confidence  float64                 `json:"confidence"`
}

// VerifyPresence envia a foto capturada ao serviço externo e, em caso de
// match acima do limiar, grava a presença. O arquivo temporário é removido
// em todos os caminhos de saída.
func (s *Service) VerifyPresence(ctx context.Context, photoPath string, reuniaoID uuid.UUID, deviceID string) (*VerifyResult, error) {
	defer func() {
		if err := os.Remove(photoPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", photoPath).Msg("facerec: falha ao remover foto temporária")
		}
	}()

	elegiveis, err := s.conselheiros.ListAtivosComFoto(ctx)
	if err != nil {
		return nil, err
	}
	if len(elegiveis) == 0 {
		return nil, ErrSemReferencias
	}

	refs := make([]ReferenceImage, 0, len(elegiveis))
	for _, c := range elegiveis {
		if c.FotoRefURL == nil {
			continue
		}
		refs = append(refs, ReferenceImage{ID: c.ID.String(), URL: *c.FotoRefURL})
	}

	result, err := s.client.Recognize(ctx, photoPath, refs)
	if err != nil {
		return nil, err
	}

	// O serviço externo escolhe o candidato; aqui só se aplica o limiar.
	if !result.Recognized || result.MatchID == "" || result.Confidence < s.threshold {
		return nil, ErrNaoReconhecido
	}

	matchID, err := uuid.Parse(result.MatchID)
	if err != nil {
		return nil, ErrNaoReconhecido
	}

	matched, err := s.conselheiros.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}

	agora := time.Now().UTC()
	confidence := result.Confidence
	var device *string
	if deviceID != "" {
		device = &deviceID
	}

	presenca, err := s.presencas.UpsertPresenca(ctx, reuniao.PresencaParams{
		ReuniaoID:      reuniaoID,
		ConselheiroID:  matched.ID,
		Presente:       true,
		HorarioChegada: &agora,
		MetodoRegistro: reuniao.MetodoFacial,
		Confidence:     &confidence,
		DeviceID:       device,
	})
	if err != nil {
		return nil, err
	}

	return &VerifyResult{Conselheiro: matched, Presenca: presenca, Confidence: result.Confidence}, nil
}
