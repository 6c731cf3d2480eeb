package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/portalconselheiros/portal/internal/config"
	"github.com/portalconselheiros/portal/internal/conselheiro"
	"github.com/portalconselheiros/portal/internal/device"
	"github.com/portalconselheiros/portal/internal/export"
	"github.com/portalconselheiros/portal/internal/facerec"
	httpmiddleware "github.com/portalconselheiros/portal/internal/http/middleware"
	"github.com/portalconselheiros/portal/internal/metrics"
	"github.com/portalconselheiros/portal/internal/reuniao"
	"github.com/portalconselheiros/portal/internal/service"
	"github.com/portalconselheiros/portal/internal/storage"
	"github.com/portalconselheiros/portal/internal/stream"
	"github.com/portalconselheiros/portal/internal/user"
)

type conselheiroStore interface {
	List(ctx context.Context) ([]conselheiro.Conselheiro, error)
	Get(ctx context.Context, id uuid.UUID) (conselheiro.Conselheiro, error)
	Insert(ctx context.Context, arg conselheiro.CreateParams) (conselheiro.Conselheiro, error)
	Update(ctx context.Context, id uuid.UUID, arg conselheiro.UpdateParams) (conselheiro.Conselheiro, error)
	UpdateFotoRef(ctx context.Context, id uuid.UUID, fotoURL string) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type reuniaoStore interface {
	List(ctx context.Context) ([]reuniao.Reuniao, error)
	Get(ctx context.Context, id uuid.UUID) (reuniao.Reuniao, error)
	Insert(ctx context.Context, arg reuniao.CreateParams) (reuniao.Reuniao, error)
	Update(ctx context.Context, id uuid.UUID, arg reuniao.UpdateParams) (reuniao.Reuniao, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status reuniao.Status) (reuniao.Reuniao, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListPresencas(ctx context.Context, reuniaoID uuid.UUID) ([]reuniao.Presenca, error)
	UpsertPresenca(ctx context.Context, arg reuniao.PresencaParams) (reuniao.Presenca, error)
	Count(ctx context.Context) (int64, error)
	CountPresencasHoje(ctx context.Context) (int64, error)
}

type deviceStore interface {
	List(ctx context.Context) ([]device.Device, error)
	Get(ctx context.Context, id uuid.UUID) (device.Device, error)
	Insert(ctx context.Context, arg device.CreateParams) (device.Device, error)
	Update(ctx context.Context, id uuid.UUID, arg device.UpdateParams) (device.Device, error)
	Authorize(ctx context.Context, deviceID string, autorizado bool, ownerUserID uuid.UUID) (device.Device, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type streamStore interface {
	List(ctx context.Context) ([]stream.Session, error)
	Get(ctx context.Context, id uuid.UUID) (stream.Session, error)
	Insert(ctx context.Context, arg stream.CreateParams) (stream.Session, error)
	Update(ctx context.Context, id uuid.UUID, arg stream.UpdateParams) (stream.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type presenceVerifier interface {
	VerifyPresence(ctx context.Context, photoPath string, reuniaoID uuid.UUID, deviceID string) (*facerec.VerifyResult, error)
}

type exporter interface {
	PresencasCSV(ctx context.Context, reuniaoID uuid.UUID, w io.Writer) error
	PresencasXLSX(ctx context.Context, reuniaoID uuid.UUID, w io.Writer) error
	ConselheirosCSV(ctx context.Context, w io.Writer) error
	ConselheirosXLSX(ctx context.Context, w io.Writer) error
}

// Handler concentra as dependências dos endpoints da API.
type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	authService   *service.AuthService
	conselheiros  conselheiroStore
	reunioes      reuniaoStore
	devices       deviceStore
	streams       streamStore
	verifier      presenceVerifier
	exports       exporter
	storage       storage.Uploader
	collector     *metrics.Collector
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	deviceLimiter *httpmiddleware.RateLimiter
}

// Deps agrupa o que o roteador precisa além da configuração.
type Deps struct {
	Pool         *pgxpool.Pool
	Redis        *redis.Client
	AuthService  *service.AuthService
	Conselheiros *conselheiro.Repository
	Reunioes     *reuniao.Repository
	Devices      *device.Repository
	Streams      *stream.Repository
	Verifier     *facerec.Service
	Exports      *export.Service
	Storage      storage.Uploader
	Collector    *metrics.Collector
	Metrics      http.Handler
}

// NewRouter devolve roteador configurado com todos os grupos de rotas.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	h := &Handler{
		cfg:           cfg,
		pool:          deps.Pool,
		redis:         deps.Redis,
		authService:   deps.AuthService,
		conselheiros:  deps.Conselheiros,
		reunioes:      deps.Reunioes,
		devices:       deps.Devices,
		streams:       deps.Streams,
		verifier:      deps.Verifier,
		exports:       deps.Exports,
		storage:       deps.Storage,
		collector:     deps.Collector,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		deviceLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))
	if deps.Collector != nil {
		r.Use(deps.Collector.Middleware)
	}

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/api/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/api/auth", func(auth chi.Router) {
			auth.Post("/login", h.Login)
			auth.Post("/refresh", h.Refresh)
			auth.Post("/logout", h.Logout)
		})
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api", func(private chi.Router) {
		private.Use(httpmiddleware.Auth(deps.AuthService.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/auth/me", h.Me)

		private.Route("/conselheiros", func(c chi.Router) {
			c.Group(func(read chi.Router) {
				read.Use(httpmiddleware.RequireRoles(user.RoleAdmin, user.RoleModerator, user.RolePresenter))
				read.Get("/", h.ListConselheiros)
				read.Get("/{id}", h.GetConselheiro)
			})
			c.Group(func(write chi.Router) {
				write.Use(httpmiddleware.RequireRoles(user.RoleAdmin, user.RoleModerator))
				write.Post("/", h.CreateConselheiro)
				write.Put("/{id}", h.UpdateConselheiro)
				write.Post("/{id}/photo", h.UploadConselheiroFoto)
			})
			c.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.RequireRoles(user.RoleAdmin))
				admin.Delete("/{id}", h.DeleteConselheiro)
			})
			c.Group(func(verify chi.Router) {
				verify.Use(httpmiddleware.RequireRoles(user.RoleAdmin, user.RolePresenter))
				verify.Use(device.Gate(deps.Devices))
				verify.Use(httpmiddleware.DeviceRateLimit(h.deviceLimiter))
				verify.Post("/verify-presence", h.VerifyPresence)
			})
		})

		private.Route("/reunioes", func(re chi.Router) {
			re.Group(func(read chi.Router) {
				read.Use(httpmiddleware.RequireRoles(user.RoleAdmin, user.RoleModerator, user.RolePresenter, user.RoleViewer))
				read.Get("/", h.ListReunioes)
				read.Get("/{id}", h.GetReuniao)
				read.Get("/{id}/presencas", h.ListPresencas)
			})
			re.Group(func(write chi.Router) {
				write.Use(httpmiddleware.RequireRoles(user.RoleAdmin, user.RoleModerator))
				write.Post("/", h.CreateReuniao)
				write.Put("/{id}", h.UpdateReuniao)
				write.Patch("/{id}/status", h.UpdateReuniaoStatus)
				write.Post("/{id}/presencas", h.RegisterPresenca)
			})
			re.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.RequireRoles(user.RoleAdmin))
				admin.Delete("/{id}", h.DeleteReuniao)
			})
		})

		private.Route("/devices", func(d chi.Router) {
			d.Use(httpmiddleware.RequireRoles(user.RoleAdmin))
			d.Get("/", h.ListDevices)
			d.Get("/{id}", h.GetDevice)
			d.Post("/", h.CreateDevice)
			d.Put("/{id}", h.UpdateDevice)
			d.Patch("/authorize", h.AuthorizeDevice)
			d.Delete("/{id}", h.DeleteDevice)
		})

		private.Route("/stream-sessions", func(s chi.Router) {
			s.Group(func(read chi.Router) {
				read.Use(httpmiddleware.RequireRoles(user.RoleAdmin, user.RoleModerator, user.RolePresenter))
				read.Get("/", h.ListStreamSessions)
				read.Get("/{id}", h.GetStreamSession)
			})
			s.Group(func(write chi.Router) {
				write.Use(httpmiddleware.RequireRoles(user.RoleAdmin, user.RoleModerator))
				write.Post("/", h.CreateStreamSession)
				write.Put("/{id}", h.UpdateStreamSession)
				write.Delete("/{id}", h.DeleteStreamSession)
			})
		})

		private.Route("/export", func(ex chi.Router) {
			ex.Use(httpmiddleware.RequireRoles(user.RoleAdmin, user.RoleModerator))
			ex.Get("/conselheiros/{format}", h.ExportConselheiros)
			ex.Get("/{reuniaoId}/presencas/{format}", h.ExportPresencas)
		})

		private.Group(func(stats chi.Router) {
			stats.Use(httpmiddleware.RequireRoles(user.RoleAdmin, user.RoleModerator))
			stats.Get("/stats", h.Stats)
		})
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}
