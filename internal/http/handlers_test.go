package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/portalconselheiros/portal/internal/auth"
	"github.com/portalconselheiros/portal/internal/conselheiro"
	"github.com/portalconselheiros/portal/internal/device"
	"github.com/portalconselheiros/portal/internal/facerec"
	httpmiddleware "github.com/portalconselheiros/portal/internal/http/middleware"
	"github.com/portalconselheiros/portal/internal/repo"
	"github.com/portalconselheiros/portal/internal/reuniao"
	"github.com/portalconselheiros/portal/internal/service"
	"github.com/portalconselheiros/portal/internal/stream"
	"github.com/portalconselheiros/portal/internal/user"
)

type stubConselheiroStore struct {
	lista    []conselheiro.Conselheiro
	inserted *conselheiro.CreateParams
	err      error
}

func (s *stubConselheiroStore) List(ctx context.Context) ([]conselheiro.Conselheiro, error) {
	return s.lista, s.err
}

func (s *stubConselheiroStore) Get(ctx context.Context, id uuid.UUID) (conselheiro.Conselheiro, error) {
	for _, c := range s.lista {
		if c.ID == id {
			return c, nil
		}
	}
	return conselheiro.Conselheiro{}, repo.ErrNotFound
}

func (s *stubConselheiroStore) Insert(ctx context.Context, arg conselheiro.CreateParams) (conselheiro.Conselheiro, error) {
	if s.err != nil {
		return conselheiro.Conselheiro{}, s.err
	}
	s.inserted = &arg
	return conselheiro.Conselheiro{ID: uuid.New(), Nome: arg.Nome, Email: arg.Email, Ativo: true}, nil
}

func (s *stubConselheiroStore) Update(ctx context.Context, id uuid.UUID, arg conselheiro.UpdateParams) (conselheiro.Conselheiro, error) {
	return s.Get(ctx, id)
}

func (s *stubConselheiroStore) UpdateFotoRef(ctx context.Context, id uuid.UUID, fotoURL string) error {
	return nil
}

func (s *stubConselheiroStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return nil
}

func (s *stubConselheiroStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.lista)), nil
}

type stubReuniaoStore struct {
	reunioes []reuniao.Reuniao
	upserts  []reuniao.PresencaParams
}

func (s *stubReuniaoStore) List(ctx context.Context) ([]reuniao.Reuniao, error) {
	return s.reunioes, nil
}

func (s *stubReuniaoStore) Get(ctx context.Context, id uuid.UUID) (reuniao.Reuniao, error) {
	for _, m := range s.reunioes {
		if m.ID == id {
			return m, nil
		}
	}
	return reuniao.Reuniao{}, repo.ErrNotFound
}

func (s *stubReuniaoStore) Insert(ctx context.Context, arg reuniao.CreateParams) (reuniao.Reuniao, error) {
	m := reuniao.Reuniao{ID: uuid.New(), Titulo: arg.Titulo, Data: arg.Data, Status: arg.Status, CreatedBy: arg.CreatedBy}
	s.reunioes = append(s.reunioes, m)
	return m, nil
}

func (s *stubReuniaoStore) Update(ctx context.Context, id uuid.UUID, arg reuniao.UpdateParams) (reuniao.Reuniao, error) {
	return s.Get(ctx, id)
}

func (s *stubReuniaoStore) UpdateStatus(ctx context.Context, id uuid.UUID, status reuniao.Status) (reuniao.Reuniao, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return reuniao.Reuniao{}, err
	}
	m.Status = status
	return m, nil
}

func (s *stubReuniaoStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.Get(ctx, id)
	return err
}

func (s *stubReuniaoStore) ListPresencas(ctx context.Context, reuniaoID uuid.UUID) ([]reuniao.Presenca, error) {
	return nil, nil
}

func (s *stubReuniaoStore) UpsertPresenca(ctx context.Context, arg reuniao.PresencaParams) (reuniao.Presenca, error) {
	s.upserts = append(s.upserts, arg)
	return reuniao.Presenca{
		ID:             uuid.New(),
		ReuniaoID:      arg.ReuniaoID,
		ConselheiroID:  arg.ConselheiroID,
		Presente:       arg.Presente,
		MetodoRegistro: arg.MetodoRegistro,
	}, nil
}

func (s *stubReuniaoStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.reunioes)), nil
}

func (s *stubReuniaoStore) CountPresencasHoje(ctx context.Context) (int64, error) {
	return 0, nil
}

type stubDeviceStore struct {
	devices    []device.Device
	authorized *string
}

func (s *stubDeviceStore) List(ctx context.Context) ([]device.Device, error) { return s.devices, nil }

func (s *stubDeviceStore) Get(ctx context.Context, id uuid.UUID) (device.Device, error) {
	for _, d := range s.devices {
		if d.ID == id {
			return d, nil
		}
	}
	return device.Device{}, repo.ErrNotFound
}

func (s *stubDeviceStore) Insert(ctx context.Context, arg device.CreateParams) (device.Device, error) {
	for _, d := range s.devices {
		if d.DeviceID == arg.DeviceID {
			return device.Device{}, repo.ErrConflict
		}
	}
	d := device.Device{ID: uuid.New(), DeviceID: arg.DeviceID}
	s.devices = append(s.devices, d)
	return d, nil
}

func (s *stubDeviceStore) Update(ctx context.Context, id uuid.UUID, arg device.UpdateParams) (device.Device, error) {
	return s.Get(ctx, id)
}

func (s *stubDeviceStore) Authorize(ctx context.Context, deviceID string, autorizado bool, ownerUserID uuid.UUID) (device.Device, error) {
	for _, d := range s.devices {
		if d.DeviceID == deviceID {
			s.authorized = &deviceID
			d.Autorizado = autorizado
			return d, nil
		}
	}
	return device.Device{}, repo.ErrNotFound
}

func (s *stubDeviceStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.Get(ctx, id)
	return err
}

func (s *stubDeviceStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.devices)), nil
}

type stubVerifier struct {
	result *facerec.VerifyResult
	err    error
}

func (s *stubVerifier) VerifyPresence(ctx context.Context, photoPath string, reuniaoID uuid.UUID, deviceID string) (*facerec.VerifyResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestListConselheiros(t *testing.T) {
	h := &Handler{conselheiros: &stubConselheiroStore{
		lista: []conselheiro.Conselheiro{{ID: uuid.New(), Nome: "Maria Aparecida Santos"}},
	}}

	rec := httptest.NewRecorder()
	h.ListConselheiros(rec, httptest.NewRequest(http.MethodGet, "/api/conselheiros", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	envelope := decodeEnvelope(t, rec)
	data, ok := envelope["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("unexpected data: %v", envelope["data"])
	}
}

func TestCreateConselheiroValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"sem nome", `{"email":"x@y.br"}`, http.StatusBadRequest},
		{"email inválido", `{"nome":"Fulano","email":"nao-é-email"}`, http.StatusBadRequest},
		{"válido", `{"nome":"Fulano","email":"fulano@senac.br"}`, http.StatusCreated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &stubConselheiroStore{}
			h := &Handler{conselheiros: store}

			req := httptest.NewRequest(http.MethodPost, "/api/conselheiros", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.CreateConselheiro(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateConselheiroConflict(t *testing.T) {
	h := &Handler{conselheiros: &stubConselheiroStore{err: repo.ErrConflict}}

	req := httptest.NewRequest(http.MethodPost, "/api/conselheiros",
		strings.NewReader(`{"nome":"Fulano","email":"fulano@senac.br"}`))
	rec := httptest.NewRecorder()
	h.CreateConselheiro(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRegisterPresencaUpserts(t *testing.T) {
	store := &stubReuniaoStore{}
	m, _ := store.Insert(context.Background(), reuniao.CreateParams{Titulo: "Reunião", Status: reuniao.StatusAgendada})

	h := &Handler{reunioes: store}
	conselheiroID := uuid.New()
	body := `{"conselheiroId":"` + conselheiroID.String() + `","presente":true}`

	req := httptest.NewRequest(http.MethodPost, "/api/reunioes/"+m.ID.String()+"/presencas", strings.NewReader(body))
	req = withURLParam(req, "id", m.ID.String())

	rec := httptest.NewRecorder()
	h.RegisterPresenca(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserts))
	}

	up := store.upserts[0]
	if up.ConselheiroID != conselheiroID || up.MetodoRegistro != reuniao.MetodoManual {
		t.Fatalf("unexpected upsert: %+v", up)
	}
	if up.HorarioChegada == nil {
		t.Fatal("expected horario_chegada for presente=true")
	}
}

func TestUpdateReuniaoStatusRejectsUnknown(t *testing.T) {
	store := &stubReuniaoStore{}
	m, _ := store.Insert(context.Background(), reuniao.CreateParams{Titulo: "Reunião", Status: reuniao.StatusAgendada})

	h := &Handler{reunioes: store}

	req := httptest.NewRequest(http.MethodPatch, "/api/reunioes/"+m.ID.String()+"/status",
		strings.NewReader(`{"status":"PAUSADA"}`))
	req = withURLParam(req, "id", m.ID.String())

	rec := httptest.NewRecorder()
	h.UpdateReuniaoStatus(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthorizeDevice(t *testing.T) {
	store := &stubDeviceStore{devices: []device.Device{{ID: uuid.New(), DeviceID: "tablet-senac-001"}}}
	h := &Handler{devices: store}

	req := httptest.NewRequest(http.MethodPatch, "/api/devices/authorize",
		strings.NewReader(`{"deviceId":"tablet-senac-001"}`))
	req = req.WithContext(context.WithValue(req.Context(), httpmiddleware.ContextKeySubject, uuid.NewString()))

	rec := httptest.NewRecorder()
	h.AuthorizeDevice(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.authorized == nil || *store.authorized != "tablet-senac-001" {
		t.Fatal("expected device to be authorized")
	}
}

func multipartPhoto(t *testing.T, reuniaoID string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("photo", "captura.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("jpeg-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.WriteField("reuniaoId", reuniaoID); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestVerifyPresenceSuccess(t *testing.T) {
	matchID := uuid.New()
	h := &Handler{verifier: &stubVerifier{result: &facerec.VerifyResult{
		Conselheiro: conselheiro.Conselheiro{ID: matchID, Nome: "Maria Aparecida Santos"},
		Confidence:  0.93,
	}}}

	body, contentType := multipartPhoto(t, uuid.NewString())
	req := httptest.NewRequest(http.MethodPost, "/api/conselheiros/verify-presence", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(device.HeaderDeviceID, "tablet-senac-001")

	rec := httptest.NewRecorder()
	h.VerifyPresence(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestVerifyPresenceNotRecognized(t *testing.T) {
	h := &Handler{verifier: &stubVerifier{err: facerec.ErrNaoReconhecido}}

	body, contentType := multipartPhoto(t, uuid.NewString())
	req := httptest.NewRequest(http.MethodPost, "/api/conselheiros/verify-presence", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.VerifyPresence(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestVerifyPresenceRejectsMissingPhoto(t *testing.T) {
	h := &Handler{verifier: &stubVerifier{}}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("reuniaoId", uuid.NewString())
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/conselheiros/verify-presence", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	h.VerifyPresence(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	h := &Handler{
		conselheiros: &stubConselheiroStore{lista: []conselheiro.Conselheiro{{ID: uuid.New()}}},
		reunioes:     &stubReuniaoStore{reunioes: []reuniao.Reuniao{{ID: uuid.New()}, {ID: uuid.New()}}},
		devices:      &stubDeviceStore{devices: []device.Device{{ID: uuid.New()}}},
	}

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	envelope := decodeEnvelope(t, rec)
	data, ok := envelope["data"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected data: %v", envelope["data"])
	}
	if data["total_reunioes"] != float64(2) {
		t.Fatalf("expected 2 reuniões, got %v", data["total_reunioes"])
	}
}

type stubAuthUsers struct {
	u user.User
}

func (s *stubAuthUsers) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if email == s.u.Email {
		return s.u, nil
	}
	return user.User{}, repo.ErrNotFound
}

func (s *stubAuthUsers) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return s.u, nil
}

type stubAuthRedis struct{}

func (stubAuthRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	return redis.NewStatusCmd(ctx)
}

func (stubAuthRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal("1")
	return cmd
}

func (stubAuthRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	return redis.NewIntCmd(ctx)
}

func newLoginHandler(t *testing.T) (*Handler, *auth.JWTManager) {
	t.Helper()

	hash, err := auth.Hash("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	mgr := auth.NewJWTManager(
		"segredo-de-acesso-com-tamanho-bom",
		"segredo-de-refresh-com-tamanho-bom",
		15*time.Minute,
		24*time.Hour,
	)
	svc := service.NewAuthService(&stubAuthUsers{u: user.User{
		ID:        uuid.New(),
		Email:     "admin@senac.br",
		SenhaHash: hash,
		Role:      user.RoleAdmin,
	}}, stubAuthRedis{}, mgr)

	return &Handler{authService: svc}, mgr
}

func TestLoginAceitaCampoPassword(t *testing.T) {
	h, mgr := newLoginHandler(t)

	body := `{"email":"admin@senac.br","password":"admin123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	envelope := decodeEnvelope(t, rec)
	data, ok := envelope["data"].(map[string]any)
	if !ok {
		t.Fatalf("unexpected data: %v", envelope["data"])
	}
	accessToken, _ := data["accessToken"].(string)
	if accessToken == "" {
		t.Fatal("expected accessToken in response")
	}

	claims, err := mgr.ParseAccessToken(accessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != string(user.RoleAdmin) {
		t.Fatalf("expected role ADMIN, got %q", claims.Role)
	}
}

func TestLoginAceitaCampoSenha(t *testing.T) {
	h, _ := newLoginHandler(t)

	body := `{"email":"admin@senac.br","senha":"admin123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginCredenciaisInvalidas(t *testing.T) {
	h, _ := newLoginHandler(t)

	body := `{"email":"admin@senac.br","password":"errada"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

type stubExporter struct {
	chamadas []string
}

func (s *stubExporter) PresencasCSV(ctx context.Context, reuniaoID uuid.UUID, w io.Writer) error {
	s.chamadas = append(s.chamadas, "presencas-csv")
	_, err := w.Write([]byte("ID Reunião\n"))
	return err
}

func (s *stubExporter) PresencasXLSX(ctx context.Context, reuniaoID uuid.UUID, w io.Writer) error {
	s.chamadas = append(s.chamadas, "presencas-xlsx")
	return nil
}

func (s *stubExporter) ConselheirosCSV(ctx context.Context, w io.Writer) error {
	s.chamadas = append(s.chamadas, "conselheiros-csv")
	return nil
}

func (s *stubExporter) ConselheirosXLSX(ctx context.Context, w io.Writer) error {
	s.chamadas = append(s.chamadas, "conselheiros-xlsx")
	return nil
}

func TestExportPresencasFormato(t *testing.T) {
	exp := &stubExporter{}
	h := &Handler{exports: exp}

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/export/"+id.String()+"/presencas/csv", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("reuniaoId", id.String())
	rctx.URLParams.Add("format", "csv")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.ExportPresencas(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Fatalf("expected attachment disposition, got %q", got)
	}
	if len(exp.chamadas) != 1 || exp.chamadas[0] != "presencas-csv" {
		t.Fatalf("unexpected calls: %v", exp.chamadas)
	}
}

func TestExportConselheirosFormatoInvalido(t *testing.T) {
	exp := &stubExporter{}
	h := &Handler{exports: exp}

	req := httptest.NewRequest(http.MethodGet, "/api/export/conselheiros/pdf", nil)
	req = withURLParam(req, "format", "pdf")

	rec := httptest.NewRecorder()
	h.ExportConselheiros(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(exp.chamadas) != 0 {
		t.Fatalf("exporter should not be called, got %v", exp.chamadas)
	}
}

var _ streamStore = (*stream.Repository)(nil)
