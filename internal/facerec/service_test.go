package facerec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/portalconselheiros/portal/internal/conselheiro"
	"github.com/portalconselheiros/portal/internal/reuniao"
)

type stubRecognizer struct {
	result *RecognizeResult
	err    error
}

func (s *stubRecognizer) Recognize(ctx context.Context, photoPath string, refs []ReferenceImage) (*RecognizeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubConselheiros struct {
	elegiveis []conselheiro.Conselheiro
}

func (s *stubConselheiros) ListAtivosComFoto(ctx context.Context) ([]conselheiro.Conselheiro, error) {
	return s.elegiveis, nil
}

func (s *stubConselheiros) Get(ctx context.Context, id uuid.UUID) (conselheiro.Conselheiro, error) {
	for _, c := range s.elegiveis {
		if c.ID == id {
			return c, nil
		}
	}
	return conselheiro.Conselheiro{}, errors.New("não encontrado")
}

type stubPresencas struct {
	upserts []reuniao.PresencaParams
}

func (s *stubPresencas) UpsertPresenca(ctx context.Context, arg reuniao.PresencaParams) (reuniao.Presenca, error) {
	s.upserts = append(s.upserts, arg)
	return reuniao.Presenca{
		ID:             uuid.New(),
		ReuniaoID:      arg.ReuniaoID,
		ConselheiroID:  arg.ConselheiroID,
		Presente:       arg.Presente,
		MetodoRegistro: arg.MetodoRegistro,
		Confidence:     arg.Confidence,
		DeviceID:       arg.DeviceID,
	}, nil
}

func tempPhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "captura.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o600); err != nil {
		t.Fatalf("write temp photo: %v", err)
	}
	return path
}

func fotoURL(s string) *string { return &s }

func eligible(id uuid.UUID) []conselheiro.Conselheiro {
	return []conselheiro.Conselheiro{{
		ID:         id,
		Nome:       "Maria Aparecida Santos",
		FotoRefURL: fotoURL("https://bucket.example/ref.jpg"),
		Ativo:      true,
	}}
}

func TestVerifyPresenceConfirmsMatch(t *testing.T) {
	matchID := uuid.New()
	presencas := &stubPresencas{}
	svc := NewService(
		&stubRecognizer{result: &RecognizeResult{Recognized: true, MatchID: matchID.String(), Confidence: 0.93}},
		&stubConselheiros{elegiveis: eligible(matchID)},
		presencas,
		0.8,
	)

	photo := tempPhoto(t)
	reuniaoID := uuid.New()

	result, err := svc.VerifyPresence(context.Background(), photo, reuniaoID, "tablet-senac-001")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if result.Conselheiro.ID != matchID {
		t.Fatalf("expected conselheiro %s, got %s", matchID, result.Conselheiro.ID)
	}
	if len(presencas.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(presencas.upserts))
	}

	up := presencas.upserts[0]
	if !up.Presente || up.MetodoRegistro != reuniao.MetodoFacial {
		t.Fatalf("unexpected upsert: %+v", up)
	}
	if up.DeviceID == nil || *up.DeviceID != "tablet-senac-001" {
		t.Fatalf("expected device id recorded, got %v", up.DeviceID)
	}

	if _, err := os.Stat(photo); !os.IsNotExist(err) {
		t.Fatal("temp photo must be removed after success")
	}
}

func TestVerifyPresenceRejectsLowConfidence(t *testing.T) {
	matchID := uuid.New()
	presencas := &stubPresencas{}
	svc := NewService(
		&stubRecognizer{result: &RecognizeResult{Recognized: true, MatchID: matchID.String(), Confidence: 0.5}},
		&stubConselheiros{elegiveis: eligible(matchID)},
		presencas,
		0.8,
	)

	photo := tempPhoto(t)

	if _, err := svc.VerifyPresence(context.Background(), photo, uuid.New(), ""); !errors.Is(err, ErrNaoReconhecido) {
		t.Fatalf("expected ErrNaoReconhecido, got %v", err)
	}
	if len(presencas.upserts) != 0 {
		t.Fatal("rejected match must not record presence")
	}
	if _, err := os.Stat(photo); !os.IsNotExist(err) {
		t.Fatal("temp photo must be removed after rejection")
	}
}

func TestVerifyPresenceWithoutEligibleReferences(t *testing.T) {
	svc := NewService(&stubRecognizer{}, &stubConselheiros{}, &stubPresencas{}, 0.8)

	photo := tempPhoto(t)

	if _, err := svc.VerifyPresence(context.Background(), photo, uuid.New(), ""); !errors.Is(err, ErrSemReferencias) {
		t.Fatalf("expected ErrSemReferencias, got %v", err)
	}
	if _, err := os.Stat(photo); !os.IsNotExist(err) {
		t.Fatal("temp photo must be removed even without references")
	}
}

func TestVerifyPresenceRemovesPhotoOnClientError(t *testing.T) {
	matchID := uuid.New()
	svc := NewService(
		&stubRecognizer{err: errors.New("serviço fora do ar")},
		&stubConselheiros{elegiveis: eligible(matchID)},
		&stubPresencas{},
		0.8,
	)

	photo := tempPhoto(t)

	if _, err := svc.VerifyPresence(context.Background(), photo, uuid.New(), ""); err == nil {
		t.Fatal("expected error from recognizer")
	}
	if _, err := os.Stat(photo); !os.IsNotExist(err) {
		t.Fatal("temp photo must be removed on client error")
	}
}
