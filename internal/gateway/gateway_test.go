package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	lkauth "github.com/livekit/protocol/auth"
	lkproto "github.com/livekit/protocol/livekit"

	"github.com/portalconselheiros/portal/internal/livekit"
	"github.com/portalconselheiros/portal/internal/repo"
	"github.com/portalconselheiros/portal/internal/stream"
)

const (
	testAPIKey    = "devkey"
	testAPISecret = "segredo-de-webhook-com-36-caracteres"
)

type stubMedia struct {
	rooms       []*lkproto.Room
	tokenParams *livekit.TokenParams
	egressID    string
	filename    string
}

func (s *stubMedia) CreateRoom(ctx context.Context, roomName string) (*lkproto.Room, error) {
	room := &lkproto.Room{Name: roomName, Sid: "RM_test"}
	s.rooms = append(s.rooms, room)
	return room, nil
}

func (s *stubMedia) DeleteRoom(ctx context.Context, roomName string) error { return nil }

func (s *stubMedia) ListRooms(ctx context.Context) ([]*lkproto.Room, error) {
	return s.rooms, nil
}

func (s *stubMedia) GenerateToken(params livekit.TokenParams) (string, error) {
	s.tokenParams = &params
	return "token-de-teste", nil
}

func (s *stubMedia) StartRecording(ctx context.Context, roomName, filename string) (string, error) {
	s.egressID = "EG_test"
	s.filename = filename
	return s.egressID, nil
}

func (s *stubMedia) StopRecording(ctx context.Context, egressID string) error { return nil }

type stubSessions struct {
	sessions map[string]stream.Session
	updates  map[string]stream.UpdateParams
}

func (s *stubSessions) GetByRoomName(ctx context.Context, roomName string) (stream.Session, error) {
	if sess, ok := s.sessions[roomName]; ok {
		return sess, nil
	}
	return stream.Session{}, repo.ErrNotFound
}

func (s *stubSessions) UpdateByRoomName(ctx context.Context, roomName string, arg stream.UpdateParams) (stream.Session, error) {
	if s.updates == nil {
		s.updates = make(map[string]stream.UpdateParams)
	}
	s.updates[roomName] = arg
	return stream.Session{RoomName: roomName}, nil
}

func newTestHandler() (*Handler, *stubMedia, *stubSessions) {
	media := &stubMedia{}
	sessions := &stubSessions{
		sessions: map[string]stream.Session{
			"sala": {RoomName: "sala", Status: stream.StatusCreated},
		},
	}

	h := &Handler{
		media:         media,
		sessions:      sessions,
		webhookKeys:   lkauth.NewSimpleKeyProvider(testAPIKey, testAPISecret),
		recordingPath: "/recordings",
	}
	return h, media, sessions
}

func TestCreateRoom(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/rooms/create",
		strings.NewReader(`{"roomName":"reuniao-março"}`))
	rec := httptest.NewRecorder()
	h.CreateRoom(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateRoomRequiresName(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/rooms/create", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.CreateRoom(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGenerateTokenMapsSources(t *testing.T) {
	h, media, _ := newTestHandler()

	body := `{"roomName":"sala","identity":"telao-1","canSubscribe":true,"sources":["camera","microphone"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/tokens/generate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.GenerateToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if media.tokenParams == nil {
		t.Fatal("expected token params recorded")
	}
	if len(media.tokenParams.PublishSources) != 2 || media.tokenParams.PublishSources[0] != "camera" {
		t.Fatalf("unexpected sources: %v", media.tokenParams.PublishSources)
	}

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["token"] != "token-de-teste" {
		t.Fatalf("unexpected token: %v", envelope.Data)
	}
}

func TestGenerateTokenRejectsUnknownSource(t *testing.T) {
	h, _, _ := newTestHandler()

	body := `{"roomName":"sala","identity":"telao-1","sources":["hologram"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/tokens/generate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.GenerateToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartEgressRecordsRecordingID(t *testing.T) {
	h, media, sessions := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/egress/start",
		strings.NewReader(`{"roomName":"sala"}`))
	rec := httptest.NewRecorder()
	h.StartEgress(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if media.egressID != "EG_test" {
		t.Fatal("expected recording started")
	}

	update, ok := sessions.updates["sala"]
	if !ok || update.RecordingID == nil || *update.RecordingID != "EG_test" {
		t.Fatalf("expected recording id persisted, got %+v", update)
	}

	if !strings.HasPrefix(media.filename, "sala-") {
		t.Fatalf("expected filename prefixed with room name, got %q", media.filename)
	}
	if strings.Contains(media.filename, "/") || strings.HasSuffix(media.filename, ".mp4") {
		t.Fatalf("expected bare filename without directory or extension, got %q", media.filename)
	}
}

func TestStartEgressUnknownRoom(t *testing.T) {
	h, media, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/egress/start",
		strings.NewReader(`{"roomName":"sala-fantasma"}`))
	rec := httptest.NewRecorder()
	h.StartEgress(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if media.egressID != "" {
		t.Fatal("recording should not start for unknown rooms")
	}
}

func signedWebhookRequest(t *testing.T, body string) *http.Request {
	t.Helper()

	sum := sha256.Sum256([]byte(body))
	token, err := lkauth.NewAccessToken(testAPIKey, testAPISecret).
		SetSha256(base64.StdEncoding.EncodeToString(sum[:])).
		SetValidFor(5 * time.Minute).
		ToJWT()
	if err != nil {
		t.Fatalf("sign webhook: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks", strings.NewReader(body))
	req.Header.Set("Authorization", token)
	return req
}

func TestWebhookRoomStarted(t *testing.T) {
	h, _, sessions := newTestHandler()

	req := signedWebhookRequest(t, `{"event":"room_started","room":{"name":"sala"}}`)
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	update, ok := sessions.updates["sala"]
	if !ok || update.Status == nil || *update.Status != stream.StatusActive {
		t.Fatalf("expected session marked active, got %+v", update)
	}
	if update.StartedAt == nil {
		t.Fatal("expected startedAt set")
	}
}

func TestWebhookRoomFinished(t *testing.T) {
	h, _, sessions := newTestHandler()

	req := signedWebhookRequest(t, `{"event":"room_finished","room":{"name":"sala"}}`)
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	update := sessions.updates["sala"]
	if update.Status == nil || *update.Status != stream.StatusEnded || update.EndedAt == nil {
		t.Fatalf("expected session ended, got %+v", update)
	}
}

func TestWebhookParticipantJoined(t *testing.T) {
	h, _, sessions := newTestHandler()

	req := signedWebhookRequest(t, `{"event":"participant_joined","room":{"name":"sala","num_participants":3}}`)
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	update := sessions.updates["sala"]
	if update.ParticipantCount == nil || *update.ParticipantCount != 3 {
		t.Fatalf("expected participant count 3, got %+v", update)
	}
}

func TestWebhookBadSignature(t *testing.T) {
	h, _, sessions := newTestHandler()

	// Assinatura calculada sobre um corpo diferente do enviado.
	signed := signedWebhookRequest(t, `{"event":"room_started","room":{"name":"sala"}}`)
	forged := httptest.NewRequest(http.MethodPost, "/api/webhooks",
		strings.NewReader(`{"event":"room_finished","room":{"name":"sala"}}`))
	forged.Header.Set("Authorization", signed.Header.Get("Authorization"))

	rec := httptest.NewRecorder()
	h.Webhook(rec, forged)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(sessions.updates) != 0 {
		t.Fatalf("no session should be touched, got %+v", sessions.updates)
	}
}

func TestWebhookUnknownEventIgnored(t *testing.T) {
	h, _, sessions := newTestHandler()

	req := signedWebhookRequest(t, `{"event":"track_published","room":{"name":"sala"}}`)
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(sessions.updates) != 0 {
		t.Fatalf("unhandled events must not update sessions, got %+v", sessions.updates)
	}
}

func TestStopEgressRequiresID(t *testing.T) {
	h, _, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/egress/stop", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.StopEgress(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
